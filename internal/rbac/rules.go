package rbac

const (
	PermTestTake      = "test:take"
	PermTestSubmit    = "test:submit"
	PermResultViewOwn = "result:view-own"
	PermVideoStream   = "video:stream"
)

// Simple default policy. Expand as needed.
var RolePermissions = map[string][]string{
	"student": {
		PermTestTake,
		PermTestSubmit,
		PermResultViewOwn,
		PermVideoStream,
	},
	"teacher": {
		PermResultViewOwn,
		PermVideoStream,
	},
	"admin": {
		"*", // everything
	},
}
