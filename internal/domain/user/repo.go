package user

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, u *User) error
	List(ctx context.Context, limit, offset int) ([]*User, int, error)

	CreateCode(ctx context.Context, c *Code) error
	// LatestCode returns the newest unconsumed code of a purpose for a user.
	LatestCode(ctx context.Context, userID uuid.UUID, purpose string) (*Code, error)
	ConsumeCode(ctx context.Context, id uuid.UUID) error
}
