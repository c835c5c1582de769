package catalog

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// SQLReader reads the catalog tables maintained by the course admin.
type SQLReader struct {
	db *sqlx.DB
}

func NewSQLReader(db *sql.DB, driver string) *SQLReader {
	return &SQLReader{db: sqlx.NewDb(db, driver)}
}

func (r *SQLReader) EnrolledCourses(ctx context.Context, studentID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT course_id FROM course_students WHERE student_id=$1 AND status='active' ORDER BY course_id`,
		studentID)
	return ids, err
}

func (r *SQLReader) Modules(ctx context.Context, courseID string) ([]Module, error) {
	var mods []struct {
		Index int    `db:"idx"`
		Title string `db:"title"`
	}
	if err := r.db.SelectContext(ctx, &mods,
		`SELECT idx, title FROM course_modules WHERE course_id=$1 ORDER BY idx`, courseID); err != nil {
		return nil, err
	}

	var vids []struct {
		ModuleIdx int `db:"module_idx"`
		VideoRef
	}
	if err := r.db.SelectContext(ctx, &vids,
		`SELECT module_idx, title, storage_key, duration_sec, free_preview
		   FROM module_videos WHERE course_id=$1 ORDER BY module_idx, position`, courseID); err != nil {
		return nil, err
	}

	out := make([]Module, len(mods))
	pos := make(map[int]int, len(mods))
	for i, m := range mods {
		out[i] = Module{Index: m.Index, Title: m.Title}
		pos[m.Index] = i
	}
	for _, v := range vids {
		if i, ok := pos[v.ModuleIdx]; ok {
			out[i].Videos = append(out[i].Videos, v.VideoRef)
		}
	}
	return out, nil
}
