package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last@sub.example.org",
		"u+tag@example.io",
	}
	for _, email := range valid {
		assert.NoError(t, ValidateEmail(email), email)
	}

	invalid := []string{
		"",
		"not-an-email",
		"@example.com",
		"user@",
		"User Name <user@example.com>",
		strings.Repeat("a", 250) + "@example.com",
	}
	for _, email := range invalid {
		assert.Error(t, ValidateEmail(email), email)
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("long-enough-secret"))
	assert.Error(t, ValidatePassword(""))
	assert.Error(t, ValidatePassword("short"))
	assert.Error(t, ValidatePassword(strings.Repeat("p", 73)))
}

func TestValidateRegistration(t *testing.T) {
	assert.Nil(t, ValidateRegistration("user@example.com", "long-enough-secret"))

	errs := ValidateRegistration("nope", "pw")
	assert.Len(t, errs, 2)
	assert.Equal(t, "email", errs[0].Field)
	assert.Equal(t, "password", errs[1].Field)

	// The validator is pure: running it twice yields the same descriptors
	again := ValidateRegistration("nope", "pw")
	assert.Equal(t, errs, again)
}

func TestValidateLogin(t *testing.T) {
	assert.Nil(t, ValidateLogin("user@example.com", "whatever"))

	errs := ValidateLogin("user@example.com", "")
	assert.Len(t, errs, 1)
	assert.Equal(t, "password", errs[0].Field)
}
