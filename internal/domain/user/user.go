package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
	ErrSelfBlock           = errors.New("user: cannot block yourself")
)

type ID string

// User is an account. Anonymous users come from the guest bootstrap
// flow and carry no email or password. BlockedUserIDs is the user's
// personal blacklist: a listing filter, not access control.
type User struct {
	ID             ID
	Email          string
	PasswordHash   string
	Anonymous      bool
	BlockedUserIDs []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:           ID(id),
		Email:        email,
		PasswordHash: params.PasswordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// NewAnonymous builds a guest account with no credentials.
func NewAnonymous(id ID, now time.Time) (*User, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return nil, ErrIDRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		ID:        ID(trimmed),
		Anonymous: true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Block adds targetID to the blacklist. Set semantics: blocking the
// same user twice is a no-op.
func (u *User) Block(targetID string, now time.Time) error {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return ErrIDRequired
	}
	if targetID == string(u.ID) {
		return ErrSelfBlock
	}
	for _, id := range u.BlockedUserIDs {
		if id == targetID {
			return nil
		}
	}
	u.BlockedUserIDs = append(u.BlockedUserIDs, targetID)
	u.touch(now)
	return nil
}

// Unblock removes targetID from the blacklist; unknown ids are no-ops.
func (u *User) Unblock(targetID string, now time.Time) {
	for i, id := range u.BlockedUserIDs {
		if id == targetID {
			u.BlockedUserIDs = append(u.BlockedUserIDs[:i], u.BlockedUserIDs[i+1:]...)
			u.touch(now)
			return
		}
	}
}

// HasBlocked reports whether targetID is on the blacklist.
func (u *User) HasBlocked(targetID string) bool {
	for _, id := range u.BlockedUserIDs {
		if id == targetID {
			return true
		}
	}
	return false
}

func (u *User) SetPasswordHash(hash string, now time.Time) error {
	if strings.TrimSpace(hash) == "" {
		return ErrPasswordHashMissing
	}
	u.PasswordHash = hash
	u.touch(now)
	return nil
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
