package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"huddle/domain"
	"huddle/errors"
	"huddle/repositories"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserRepository handles user persistence
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser inserts a user, usernames and emails are stored lowercase
func (r *UserRepository) CreateUser(ctx context.Context, newUser repositories.NewUser) (repositories.User, error) {
	query := `
		INSERT INTO users (id, username, email, password_hash, avatar, is_online, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $7)
		RETURNING id, username, COALESCE(email, ''), password_hash, avatar, is_online, created_at, updated_at
	`

	now := time.Now().UTC()
	var user repositories.User
	err := r.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		strings.ToLower(newUser.Username),
		strings.ToLower(newUser.Email),
		newUser.PasswordHash,
		newUser.Avatar,
		newUser.IsOnline,
		now,
	).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.IsOnline,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repositories.User{}, errors.ErrUserAlreadyExists
		}
		return repositories.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) (repositories.User, error) {
	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, avatar, is_online, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, userID))
}

// GetUserByLogin accepts a username or an email
func (r *UserRepository) GetUserByLogin(ctx context.Context, login string) (repositories.User, error) {
	query := `
		SELECT id, username, COALESCE(email, ''), password_hash, avatar, is_online, created_at, updated_at
		FROM users
		WHERE username = $1 OR email = $1
		LIMIT 1
	`
	return r.scanUser(r.db.QueryRowContext(ctx, query, strings.ToLower(login)))
}

func (r *UserRepository) SetUserOnline(ctx context.Context, userID string, online bool) error {
	query := `UPDATE users SET is_online = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, online, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update presence: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return errors.ErrUserNotFound
	}
	return nil
}

// GetUser returns nil, nil when the user doesn't exist
func (r *UserRepository) GetUser(ctx context.Context, userID string) (*domain.UserProjection, error) {
	query := `SELECT id, username, avatar, is_online FROM users WHERE id = $1`

	projection := &domain.UserProjection{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&projection.ID,
		&projection.Username,
		&projection.Avatar,
		&projection.IsOnline,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return projection, nil
}

func (r *UserRepository) scanUser(row *sql.Row) (repositories.User, error) {
	var user repositories.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.Avatar,
		&user.IsOnline,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return repositories.User{}, errors.ErrUserNotFound
		}
		return repositories.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
