package model

import (
	"time"
)

type User struct {
	ID   string `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	// Password holds the bcrypt hash. It is serialized in API responses
	// for compatibility with existing clients, which is a known weakness.
	Password        string     `db:"password" json:"password"`
	Email           string     `db:"email" json:"email"`
	RememberToken   string     `db:"remember_token" json:"-"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}
