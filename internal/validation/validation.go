// Package validation checks form and API input structs with
// go-playground/validator and reports user-facing messages.
//
// Each validated field carries its message in a msg tag:
//
//	Name string `validate:"min=2" msg:"Name must be at least 2 characters long."`
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/cottonadvisor/internal/common"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Errors lists the messages of every failed field in declaration order.
type Errors []string

func (e Errors) Error() string { return strings.Join(e, " ") }

// Unwrap lets callers match common.ErrValidation.
func (e Errors) Unwrap() error { return common.ErrValidation }

type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if msg := f.Tag.Get("msg"); msg != "" {
			return msg
		}
		return f.Name
	})
	_ = v.RegisterValidation("email_address", func(fl validator.FieldLevel) bool {
		return emailRe.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s and returns Errors, or nil when s is valid. Repeated
// messages are reported once.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := make(Errors, 0, len(ve))
	seen := map[string]bool{}
	for _, fe := range ve {
		msg := fe.Field()
		if !seen[msg] {
			seen[msg] = true
			out = append(out, msg)
		}
	}
	return out
}

// Messages extracts the user-facing messages from err, or nil.
func Messages(err error) []string {
	var e Errors
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsEmail reports whether s is an acceptable email address.
func IsEmail(s string) bool {
	return emailRe.MatchString(s)
}
