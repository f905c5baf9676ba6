//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"huddle/domain"
	"huddle/errors"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(ctx context.Context, user NewUser) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	GetUserByLogin(ctx context.Context, login string) (User, error)
	SetUserOnline(ctx context.Context, userID string, online bool) error
	GetUser(ctx context.Context, userID string) (*domain.UserProjection, error)
}

// NewUser carries what registration knows before the user has an id.
type NewUser struct {
	Username     string
	Email        string
	PasswordHash string
	Avatar       string
	IsOnline     bool
}

// User is the repository-level representation of an account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"password_hash"`
	Avatar       string    `json:"avatar"`
	IsOnline     bool      `json:"is_online"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) Projection() *domain.UserProjection {
	return &domain.UserProjection{
		ID:       u.ID,
		Username: u.Username,
		Avatar:   u.Avatar,
		IsOnline: u.IsOnline,
	}
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

func userKey(id string) []byte { return []byte("user:" + id) }

func usernameKey(username string) []byte { return []byte("username:" + strings.ToLower(username)) }

func emailKey(email string) []byte { return []byte("email:" + strings.ToLower(email)) }

// CreateUser persists the user with its lowercase username and email indexes.
// The whole write happens in one transaction so two registrations can't take the same name.
func (u *UserRepository) CreateUser(_ context.Context, newUser NewUser) (User, error) {
	now := time.Now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Username:     strings.ToLower(newUser.Username),
		Email:        strings.ToLower(newUser.Email),
		PasswordHash: newUser.PasswordHash,
		Avatar:       newUser.Avatar,
		IsOnline:     newUser.IsOnline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	data, err := json.Marshal(user)
	if err != nil {
		return User{}, fmt.Errorf("marshal failed: %w", err)
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(usernameKey(user.Username)); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if user.Email != "" {
			if _, err := txn.Get(emailKey(user.Email)); err == nil {
				return errors.ErrUserAlreadyExists
			}
			if err := txn.Set(emailKey(user.Email), []byte(user.ID)); err != nil {
				return err
			}
		}
		if err := txn.Set(usernameKey(user.Username), []byte(user.ID)); err != nil {
			return err
		}
		return txn.Set(userKey(user.ID), data)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (u *UserRepository) GetUserByID(_ context.Context, userID string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, userID, &user)
	})
	return user, err
}

// GetUserByLogin accepts a username or an email, case-insensitively.
func (u *UserRepository) GetUserByLogin(_ context.Context, login string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(usernameKey(login))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			item, err = txn.Get(emailKey(login))
		}
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return readUser(txn, string(id), &user)
	})
	return user, err
}

// SetUserOnline flips the presence flag. Unknown users are reported as ErrUserNotFound.
func (u *UserRepository) SetUserOnline(_ context.Context, userID string, online bool) error {
	return u.db.Update(func(txn *badger.Txn) error {
		var user User
		if err := readUser(txn, userID, &user); err != nil {
			return err
		}
		user.IsOnline = online
		user.UpdatedAt = time.Now().UTC()
		data, err := json.Marshal(user)
		if err != nil {
			return err
		}
		return txn.Set(userKey(userID), data)
	})
}

// GetUser returns nil, nil when the user doesn't exist.
func (u *UserRepository) GetUser(ctx context.Context, userID string) (*domain.UserProjection, error) {
	user, err := u.GetUserByID(ctx, userID)
	if stderrors.Is(err, errors.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user.Projection(), nil
}

func readUser(txn *badger.Txn, userID string, user *User) error {
	item, err := txn.Get(userKey(userID))
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return errors.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, user)
	})
}
