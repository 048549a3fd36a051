package users

import (
	"context"
	"time"
)

// User is a registered account. PasswordHash never leaves this layer;
// handlers serialize only the identity attributes.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	DeletedAt    *time.Time
}

type CreateParams struct {
	Name         string
	Email        string
	PasswordHash string
}

// Repository is the persistence contract for user records. Lookups
// return only active (non soft-deleted) users unless noted otherwise.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
}
