package catalog

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/mindengage-courses/internal/db"
)

func TestVideoID(t *testing.T) {
	cases := map[string]string{
		"bio/m0/intro.mp4":   "intro.mp4",
		`bio\m0\intro.mp4`:   "intro.mp4",
		"intro.mp4":          "intro.mp4",
		" /abs/path/x.webm ": "x.webm",
		"":                   "",
	}
	for key, want := range cases {
		assert.Equal(t, want, VideoID(key), key)
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	m.Enroll("s1", "c1")
	m.Enroll("s1", "c1")
	m.PutModule("c1", Module{Index: 2, Title: "late"})
	m.PutModule("c1", Module{Index: 0, Title: "first"})
	m.PutModule("c1", Module{Index: 2, Title: "late, revised"})

	courses, _ := m.EnrolledCourses(context.Background(), "s1")
	assert.Equal(t, []string{"c1"}, courses)

	mods, _ := m.Modules(context.Background(), "c1")
	require.Len(t, mods, 2)
	assert.Equal(t, "first", mods[0].Title)
	assert.Equal(t, "late, revised", mods[1].Title)
}

func TestSQLReader(t *testing.T) {
	ctx := context.Background()
	sqlDB, err := db.Open(ctx, db.DriverSQLite, "file:catalog_test?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	now := time.Now().Unix()
	stmts := []string{
		`INSERT INTO courses (id, title, published, created_at) VALUES ('bio', 'Biology', 1, ` + itoa(now) + `)`,
		`INSERT INTO courses (id, title, published, created_at) VALUES ('chem', 'Chemistry', 1, ` + itoa(now) + `)`,
		`INSERT INTO course_students (course_id, student_id, status, added_at) VALUES ('bio', 's1', 'active', 0)`,
		`INSERT INTO course_students (course_id, student_id, status, added_at) VALUES ('chem', 's1', 'removed', 0)`,
		`INSERT INTO course_modules (course_id, idx, title) VALUES ('bio', 1, 'Genetics')`,
		`INSERT INTO course_modules (course_id, idx, title) VALUES ('bio', 0, 'Cells')`,
		`INSERT INTO module_videos (course_id, module_idx, position, title, storage_key, duration_sec, free_preview)
		 VALUES ('bio', 0, 1, 'Organelles', 'bio/m0/organelles.mp4', 300, 0)`,
		`INSERT INTO module_videos (course_id, module_idx, position, title, storage_key, duration_sec, free_preview)
		 VALUES ('bio', 0, 0, 'Intro', 'bio/m0/intro.mp4', 60, 1)`,
		`INSERT INTO module_videos (course_id, module_idx, position, title, storage_key, duration_sec, free_preview)
		 VALUES ('bio', 1, 0, 'DNA', 'bio/m1/dna.mp4', 420, 0)`,
	}
	for _, s := range stmts {
		_, err := sqlDB.ExecContext(ctx, s)
		require.NoError(t, err, s)
	}

	r := NewSQLReader(sqlDB, "sqlite")
	courses, err := r.EnrolledCourses(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"bio"}, courses, "inactive enrollments are ignored")

	mods, err := r.Modules(ctx, "bio")
	require.NoError(t, err)
	require.Len(t, mods, 2)
	assert.Equal(t, "Cells", mods[0].Title)
	require.Len(t, mods[0].Videos, 2)
	assert.Equal(t, "intro.mp4", mods[0].Videos[0].ID())
	assert.True(t, mods[0].Videos[0].FreePreview)
	assert.Equal(t, "bio/m1/dna.mp4", mods[1].Videos[0].StorageKey)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }
