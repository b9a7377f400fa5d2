package user

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the app_user table.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"full_name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	IsSuperuser  bool      `db:"is_superuser" json:"is_superuser"`
	Activated    bool      `db:"activated" json:"activated"`
	Active       bool      `db:"active" json:"active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Code purposes. Activation codes confirm the email at registration; login
// codes are the second factor of the two-step login.
const (
	PurposeActivation = "activation"
	PurposeLogin      = "login"
)

// Code is a single-use 6-digit code mailed to the user.
type Code struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Purpose   string    `db:"purpose" json:"purpose"`
	Code      string    `db:"code" json:"code"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Consumed  bool      `db:"consumed" json:"consumed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Expired reports whether the code is no longer usable at the given time.
func (c *Code) Expired(now time.Time) bool {
	return c.Consumed || now.After(c.ExpiresAt)
}
