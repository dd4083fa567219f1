package model

import (
	"time"
)

// RevokedToken records a JWT that must no longer be accepted, keyed by its
// jti claim. Logout and refresh write here; rows are dead weight once
// expires_at passes and can be swept by DeleteExpired.
type RevokedToken struct {
	ID        string    `db:"id"`
	JTI       string    `db:"jti"`
	UserID    string    `db:"user_id"`
	ExpiresAt time.Time `db:"expires_at"`
	RevokedAt time.Time `db:"revoked_at"`
}

func (t *RevokedToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
