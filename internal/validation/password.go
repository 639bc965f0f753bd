package validation

import (
	"errors"
)

// ValidatePassword enforces minimal password shape.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	// bcrypt silently truncates input past 72 bytes, so refuse it outright
	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	return nil
}
