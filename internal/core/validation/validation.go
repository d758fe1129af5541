// Package validation checks credential forms before anything reaches the
// backend. Registration runs an ordered chain that stops at the first failure;
// login only checks that both fields are filled in.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SpecialChars is the set a registration password must draw at least one
// character from.
const SpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

const minLength = 8

var (
	ErrUsernameTooShort   = errors.New("username too short")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrMissingSpecialChar = errors.New("missing special character")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUsernameRequired   = errors.New("username is required")
	ErrPasswordRequired   = errors.New("password is required")
)

// RegistrationInput is the registration form. Field order is check order.
type RegistrationInput struct {
	Username        string `validate:"min=8"`
	Password        string `validate:"min=8,specialchar"`
	ConfirmPassword string `validate:"eqfield=Password"`
}

// LoginInput is the login form.
type LoginInput struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("specialchar", hasSpecialChar); err != nil {
		panic(fmt.Sprintf("validation: register specialchar: %v", err))
	}
	return v
}

func hasSpecialChar(fl validator.FieldLevel) bool {
	return strings.ContainsAny(fl.Field().String(), SpecialChars)
}

// ValidateRegistration returns the first violated rule, in order: username
// length, password length, special character, confirmation match.
func ValidateRegistration(in RegistrationInput) error {
	return firstError(validate.Struct(in))
}

// ValidateLogin only requires both fields to be non-empty.
func ValidateLogin(in LoginInput) error {
	return firstError(validate.Struct(in))
}

// firstError maps the first FieldError to its sentinel. The validator walks
// fields in declaration order and stops at the first failing tag per field.
func firstError(err error) error {
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return err
	}
	fe := ve[0]
	switch fe.Field() + "." + fe.Tag() {
	case "Username.min":
		return ErrUsernameTooShort
	case "Password.min":
		return ErrPasswordTooShort
	case "Password.specialchar":
		return ErrMissingSpecialChar
	case "ConfirmPassword.eqfield":
		return ErrPasswordMismatch
	case "Username.required":
		return ErrUsernameRequired
	case "Password.required":
		return ErrPasswordRequired
	}
	return fmt.Errorf("%s failed validation (%s)", strings.ToLower(fe.Field()), fe.Tag())
}

// IsValidationError reports whether err came from this package.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrUsernameTooShort, ErrPasswordTooShort, ErrMissingSpecialChar,
		ErrPasswordMismatch, ErrUsernameRequired, ErrPasswordRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
