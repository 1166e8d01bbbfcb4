// internal/repository/postgres/user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"minicrm-service/internal/domain/auth"
	xerrors "minicrm-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindUserByUsername looks up a credentials row by exact username.
func (r *UserRepository) FindUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	query := `
		SELECT id, username, password_hash, COALESCE(name, ''), created_at
		FROM users
		WHERE username = $1
	`

	var u auth.User
	err := r.db.Pool().QueryRow(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.Name, &u.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &u, nil
}
