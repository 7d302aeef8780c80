package web

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// GetErrorMsg turns the first validation failure into a human readable message.
func GetErrorMsg(ve validator.ValidationErrors) string {
	if len(ve) == 0 {
		return "invalid request"
	}

	fe := ve[0]

	return fe.Field() + fieldErrorMsg(fe)
}

func fieldErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "email":
		return " must be a valid email"
	case "min":
		return fmt.Sprintf(" must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf(" must be at most %s characters long", fe.Param())
	case "len":
		return fmt.Sprintf(" must be exactly %s characters long", fe.Param())
	case "numeric":
		return " must contain only digits"
	case "uuid":
		return " must be a valid id"
	case "txkind":
		return " must be either incoming or expense"
	}

	return " is invalid"
}

// ErrInvalidBody is reported when the request body cannot be decoded.
var ErrInvalidBody = errors.New("invalid request body")

// BindErrorMsg returns the message for an error returned by gin's binding.
func BindErrorMsg(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return GetErrorMsg(ve)
	}

	return ErrInvalidBody.Error()
}
