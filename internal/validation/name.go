package validation

import (
	"errors"
)

var (
	ErrNameRequired = errors.New("The name field is required.")
	ErrNameTooShort = errors.New("The name must be at least 2 characters.")
	ErrNameTooLong  = errors.New("The name may not be greater than 255 characters.")
)

// ValidateName applies the registration rules: 2 to 255 characters.
func ValidateName(name string) error {
	if name == "" {
		return ErrNameRequired
	}

	if len(name) < 2 {
		return ErrNameTooShort
	}

	if len(name) > 255 {
		return ErrNameTooLong
	}

	return nil
}

// ValidateNameLoose is the profile-update variant, which has no minimum
// length rule.
func ValidateNameLoose(name string) error {
	if name == "" {
		return ErrNameRequired
	}

	if len(name) > 255 {
		return ErrNameTooLong
	}

	return nil
}
