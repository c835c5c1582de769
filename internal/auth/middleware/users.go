package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

var ErrUnknownUser = errors.New("unknown user")

type User struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Role         string `db:"role"`
	PasswordHash string `db:"password_hash"`
}

// UserLookup finds a user by id or username.
type UserLookup interface {
	Lookup(ctx context.Context, key string) (User, error)
}

type SQLUsers struct{ db *sqlx.DB }

func NewSQLUsers(db *sql.DB, driver string) *SQLUsers {
	return &SQLUsers{db: sqlx.NewDb(db, driver)}
}

func (s *SQLUsers) Lookup(ctx context.Context, key string) (User, error) {
	var u User
	// dev tokens often carry the username as subject
	err := s.db.GetContext(ctx, &u,
		`SELECT id, username, role, password_hash FROM users WHERE id=$1 OR username=$1 LIMIT 1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUnknownUser
	}
	return u, err
}
