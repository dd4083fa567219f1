package validation

import (
	"errors"
	"net/mail"
)

var (
	ErrEmailRequired = errors.New("The email field is required.")
	ErrEmailInvalid  = errors.New("The email must be a valid email address.")
	ErrEmailTooLong  = errors.New("The email may not be greater than 255 characters.")
	ErrEmailTaken    = errors.New("The email has already been taken.")
)

// ValidateEmail checks presence, length and RFC 5322 format.
// Uniqueness is a store concern and is reported with ErrEmailTaken by callers.
func ValidateEmail(email string) error {
	if email == "" {
		return ErrEmailRequired
	}

	if len(email) > 255 {
		return ErrEmailTooLong
	}

	_, err := mail.ParseAddress(email)
	if err != nil {
		return ErrEmailInvalid
	}

	return nil
}
