// Package validator provides validation infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package validator

import (
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// maxPhoneInputBytes bounds a single raw phone number accepted by the API.
const maxPhoneInputBytes = 64

// Validator wraps the go-playground validator for structured validation.
// Using a struct allows for dependency injection and easier testing.
type Validator struct {
	v *validator.Validate
}

// New creates a new Validator instance with the phone-specific tags registered:
//
//	calling_code  1-4 ASCII digits without a leading zero
//	phone_input   at most 64 bytes of printable UTF-8
func New() *Validator {
	v := validator.New()
	_ = v.RegisterValidation("calling_code", validateCallingCode)
	_ = v.RegisterValidation("phone_input", validatePhoneInput)
	return &Validator{v: v}
}

// Struct validates a struct based on validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single variable against a tag.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation registers a custom validation function.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}

// FieldErrors flattens validation errors into field -> failed tag, for
// apperr details. Other errors yield nil.
func FieldErrors(err error) map[string]string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

func validateCallingCode(fl validator.FieldLevel) bool {
	code := fl.Field().String()
	if code == "" || len(code) > 4 || code[0] == '0' {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func validatePhoneInput(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if len(value) > maxPhoneInputBytes || !utf8.ValidString(value) {
		return false
	}
	for _, r := range value {
		if !unicode.IsPrint(r) && r != '\t' {
			return false
		}
	}
	return true
}
