package rbac

import "strings"

// Checker answers role/permission questions against a policy compiled once
// at construction. A grant of "*" allows everything; "test:*" allows every
// permission starting with "test:".
type Checker struct {
	exact    map[string]map[string]struct{}
	prefixes map[string][]string
}

// NewChecker compiles policy, or RolePermissions when policy is nil.
func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	c := &Checker{
		exact:    make(map[string]map[string]struct{}, len(policy)),
		prefixes: make(map[string][]string),
	}
	for role, grants := range policy {
		set := make(map[string]struct{}, len(grants))
		for _, g := range grants {
			if p, ok := strings.CutSuffix(g, "*"); ok {
				c.prefixes[role] = append(c.prefixes[role], p)
				continue
			}
			set[g] = struct{}{}
		}
		c.exact[role] = set
	}
	return c
}

func (c *Checker) Has(role, perm string) bool {
	if _, ok := c.exact[role][perm]; ok {
		return true
	}
	for _, p := range c.prefixes[role] {
		if strings.HasPrefix(perm, p) {
			return true
		}
	}
	return false
}

// Any reports whether role holds at least one of perms.
func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}
