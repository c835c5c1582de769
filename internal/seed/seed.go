// Package seed loads users, course structure, enrollments and tests from a
// fixture file. Authoring happens outside this service; the loader exists for
// local installs and demos.
package seed

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/mind-engage/mindengage-courses/internal/assessment"
	"github.com/mind-engage/mindengage-courses/internal/catalog"
)

const passwordCost = 12

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`     // student|teacher|admin, default student
	Password string `json:"password"` // plaintext, hashed on load
}

type Video struct {
	Title       string `json:"title"`
	StorageKey  string `json:"storage_key"`
	DurationSec int    `json:"duration_sec"`
	FreePreview bool   `json:"free_preview"`
}

type Module struct {
	Title  string  `json:"title"`
	Videos []Video `json:"videos"`
}

type Course struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Published bool     `json:"published"`
	Students  []string `json:"students"`
	Modules   []Module `json:"modules"` // replaces the stored modules
}

type Fixture struct {
	Users   []User            `json:"users"`
	Courses []Course          `json:"courses"`
	Tests   []assessment.Test `json:"tests"`
}

type Report struct {
	Users, Courses, Enrollments, Videos, Tests int
}

// Load reads a JSON or YAML fixture. YAML is converted to JSON first so both
// forms share the json tags, including the tagged question encoding.
func Load(path string) (Fixture, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return Fixture{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if raw, err = json.Marshal(doc); err != nil {
			return Fixture{}, fmt.Errorf("convert %s: %w", path, err)
		}
	}
	var f Fixture
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}

// Apply upserts f. Users, courses and enrollments are written in one
// transaction; tests go through the assessment store afterwards so they are
// validated the same way as any other write.
func Apply(ctx context.Context, db *sql.DB, driver string, f Fixture) (rep Report, err error) {
	for _, t := range f.Tests {
		if err := t.Validate(); err != nil {
			return rep, fmt.Errorf("test %s: %w", t.ID, err)
		}
	}

	if rep, err = applyCatalog(ctx, sqlx.NewDb(db, driver), f); err != nil {
		return rep, err
	}

	store := assessment.NewSQLStore(db, driver)
	for _, t := range f.Tests {
		if err = store.PutTest(ctx, t); err != nil {
			return rep, fmt.Errorf("test %s: %w", t.ID, err)
		}
		rep.Tests++
	}
	return rep, nil
}

func applyCatalog(ctx context.Context, db *sqlx.DB, f Fixture) (rep Report, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return rep, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	now := time.Now().Unix()
	for _, u := range f.Users {
		if err = upsertUser(ctx, tx, u, now); err != nil {
			return rep, err
		}
		rep.Users++
	}
	for _, c := range f.Courses {
		var n, v int
		if n, v, err = upsertCourse(ctx, tx, c, now); err != nil {
			return rep, err
		}
		rep.Courses++
		rep.Enrollments += n
		rep.Videos += v
	}
	if err = checkVideoIDs(ctx, tx); err != nil {
		return rep, err
	}
	return rep, nil
}

// checkVideoIDs rejects a catalog where two videos share a client-facing id.
// Clients address videos by id alone, so a clash would make one of them
// unreachable.
func checkVideoIDs(ctx context.Context, tx *sqlx.Tx) error {
	var rows []struct {
		CourseID   string `db:"course_id"`
		StorageKey string `db:"storage_key"`
	}
	if err := tx.SelectContext(ctx, &rows,
		`SELECT course_id, storage_key FROM module_videos ORDER BY course_id, module_idx, position`); err != nil {
		return err
	}
	seen := make(map[string]string, len(rows))
	for _, r := range rows {
		id := catalog.VideoID(r.StorageKey)
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("video id %q is used by %s and %s: storage keys need distinct base names",
				id, prev, r.StorageKey)
		}
		seen[id] = r.StorageKey
	}
	return nil
}

func upsertUser(ctx context.Context, tx *sqlx.Tx, u User, now int64) error {
	if u.Role == "" {
		u.Role = "student"
	}
	switch u.Role {
	case "student", "teacher", "admin":
	default:
		return fmt.Errorf("user %s: invalid role %q", u.Username, u.Role)
	}
	if u.ID == "" || u.Username == "" {
		return fmt.Errorf("user needs an id and a username")
	}
	if u.Password == "" {
		return fmt.Errorf("password required for user %s", u.Username)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), passwordCost)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO users (id, username, role, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET username=EXCLUDED.username, role=EXCLUDED.role,
		  password_hash=EXCLUDED.password_hash`,
		u.ID, u.Username, u.Role, string(hash), now)
	if err != nil {
		return fmt.Errorf("user %s: %w", u.Username, err)
	}
	return nil
}

func upsertCourse(ctx context.Context, tx *sqlx.Tx, c Course, now int64) (enrolled, videos int, err error) {
	if c.ID == "" {
		return 0, 0, fmt.Errorf("course needs an id")
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO courses (id, title, published, created_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, published=EXCLUDED.published`,
		c.ID, c.Title, c.Published, now); err != nil {
		return 0, 0, fmt.Errorf("course %s: %w", c.ID, err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM module_videos WHERE course_id=$1`, c.ID); err != nil {
		return 0, 0, err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM course_modules WHERE course_id=$1`, c.ID); err != nil {
		return 0, 0, err
	}
	for mi, m := range c.Modules {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO course_modules (course_id, idx, title) VALUES ($1,$2,$3)`,
			c.ID, mi, m.Title); err != nil {
			return 0, 0, fmt.Errorf("course %s module %d: %w", c.ID, mi, err)
		}
		for pos, v := range m.Videos {
			if strings.TrimSpace(v.StorageKey) == "" {
				return 0, 0, fmt.Errorf("course %s module %d video %d: storage_key required", c.ID, mi, pos)
			}
			if _, err = tx.ExecContext(ctx, `INSERT INTO module_videos
				(course_id, module_idx, position, title, storage_key, duration_sec, free_preview)
				VALUES ($1,$2,$3,$4,$5,$6,$7)`,
				c.ID, mi, pos, v.Title, v.StorageKey, v.DurationSec, v.FreePreview); err != nil {
				return 0, 0, fmt.Errorf("course %s video %s: %w", c.ID, v.StorageKey, err)
			}
			videos++
		}
	}

	for _, sid := range c.Students {
		if _, err = tx.ExecContext(ctx, `INSERT INTO course_students (course_id, student_id, status, added_at)
			VALUES ($1,$2,'active',$3)
			ON CONFLICT (course_id, student_id) DO UPDATE SET status='active'`,
			c.ID, sid, now); err != nil {
			return 0, 0, fmt.Errorf("enroll %s in %s: %w", sid, c.ID, err)
		}
		enrolled++
	}
	return enrolled, videos, nil
}
