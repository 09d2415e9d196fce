// Package form checks what the login and registration screens submit before
// anything reaches the coordinator.
package form

import (
	"errors"
	"strings"

	"github.com/go-playground/validator"
)

// User-facing messages shown by the screens.
const (
	MsgAllFieldsRequired = "All fields are required"
	MsgPasswordsMismatch = "Passwords do not match"
	MsgInvalidRole       = "Role must be User or Admin"
	MsgLoginRequired     = "Please enter email and password"
	MsgInvalidCredential = "Invalid Credentials"
)

// Error is a form rejection. Field names the first offending input.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// RegisterForm is the registration screen's input.
type RegisterForm struct {
	Username        string `validate:"notblank"`
	Email           string `validate:"notblank"`
	Role            string `validate:"notblank,oneof=User Admin"`
	Password        string `validate:"notblank"`
	ConfirmPassword string `validate:"notblank,eqfield=Password"`
}

// LoginForm is the login screen's input.
type LoginForm struct {
	Email    string `validate:"notblank"`
	Password string `validate:"notblank"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateRegister returns nil or an *Error carrying the screen message.
// Blank fields are reported before a password mismatch, which is reported
// before an unknown role.
func ValidateRegister(f RegisterForm) error {
	errs, ok := check(f)
	if !ok {
		return nil
	}
	if fe := first(errs, "notblank"); fe != nil {
		return &Error{Field: fe.Field(), Message: MsgAllFieldsRequired}
	}
	if fe := first(errs, "eqfield"); fe != nil {
		return &Error{Field: fe.Field(), Message: MsgPasswordsMismatch}
	}
	fe := errs[0]
	if fe.Tag() == "oneof" {
		return &Error{Field: fe.Field(), Message: MsgInvalidRole}
	}
	return &Error{Field: fe.Field(), Message: MsgAllFieldsRequired}
}

// ValidateLogin returns nil or an *Error carrying the screen message.
func ValidateLogin(f LoginForm) error {
	errs, ok := check(f)
	if !ok {
		return nil
	}
	return &Error{Field: errs[0].Field(), Message: MsgLoginRequired}
}

// IsFormError reports whether err is a form rejection.
func IsFormError(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

func check(v interface{}) (validator.ValidationErrors, bool) {
	err := validate.Struct(v)
	if err == nil {
		return nil, false
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return validator.ValidationErrors{}, false
	}
	return errs, true
}

func first(errs validator.ValidationErrors, tag string) validator.FieldError {
	for _, fe := range errs {
		if fe.Tag() == tag {
			return fe
		}
	}
	return nil
}
