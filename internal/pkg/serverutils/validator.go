package serverutils

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidationError marks a request body that failed struct validation; the
// error middleware turns it into a 400.
type ValidationError struct {
	cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.cause)
}

func (e *ValidationError) Unwrap() error {
	return e.cause
}

func ValidateRequest(req interface{}) error {
	if err := validate.Struct(req); err != nil {
		return &ValidationError{cause: err}
	}
	return nil
}
