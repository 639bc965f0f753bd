package validation

// FieldError describes a single invalid field. Validation is a pure function
// over the submitted values; errors are returned, never accumulated on a
// mutable form object.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidateRegistration checks a registration submission and returns one error
// descriptor per invalid field, or nil when the submission is valid.
func ValidateRegistration(email, password string) []FieldError {
	var errs []FieldError

	if err := ValidateEmail(email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: err.Error()})
	}
	if err := ValidatePassword(password); err != nil {
		errs = append(errs, FieldError{Field: "password", Message: err.Error()})
	}

	return errs
}

// ValidateLogin checks a login submission. Only shape is validated here;
// credential checking belongs to the auth service.
func ValidateLogin(email, password string) []FieldError {
	var errs []FieldError

	if err := ValidateEmail(email); err != nil {
		errs = append(errs, FieldError{Field: "email", Message: err.Error()})
	}
	if password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "password is required"})
	}

	return errs
}
