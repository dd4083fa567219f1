package validation

import (
	"errors"
)

var (
	ErrPasswordRequired = errors.New("The password field is required.")
	ErrPasswordTooShort = errors.New("The password must be at least 6 characters.")
	// bcrypt rejects inputs above 72 bytes, surface that before hashing
	ErrPasswordTooLong      = errors.New("The password may not be greater than 72 characters.")
	ErrPasswordConfirmation = errors.New("The password confirmation does not match.")
)

// ValidatePassword enforces the minimum length rule used at registration
// and login.
func ValidatePassword(password string) error {
	if password == "" {
		return ErrPasswordRequired
	}

	if len(password) < 6 {
		return ErrPasswordTooShort
	}

	if len(password) > 72 {
		return ErrPasswordTooLong
	}

	return nil
}

// ValidatePasswordConfirmed additionally requires the confirmation field to
// match, as on registration.
func ValidatePasswordConfirmed(password, confirmation string) error {
	err := ValidatePassword(password)
	if err != nil {
		return err
	}

	if password != confirmation {
		return ErrPasswordConfirmation
	}

	return nil
}
