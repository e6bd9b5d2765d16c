package validation

import (
	"fmt"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// ValidationError describes one rejected field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks the address shape only; no DNS lookups are made.
func ValidateEmail(email string) error {
	err := ozzo.Validate(email,
		ozzo.Required,
		ozzo.Length(3, 254),
		is.EmailFormat,
	)
	if err == nil {
		return nil
	}

	code := "INVALID_FORMAT"
	if ve, ok := err.(ozzo.Error); ok {
		code = ve.Code()
	}
	return &ValidationError{
		Field:   "email",
		Message: err.Error(),
		Code:    code,
	}
}
