package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/pitchside/server/internal/domain/ids"
)

var (
	usernamePattern  = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	shortNamePattern = regexp.MustCompile(`^[A-Za-z]+$`)
	oneOfPattern     = regexp.MustCompile(`'[^']*'|\S+`)
)

const passwordSpecials = "!@#$%^&*"

// Validator checks request payloads using struct tags and reports failures
// with the JSON names clients sent.
type Validator struct {
	validate *validator.Validate
}

// NewValidator registers the custom rules used by request payloads:
// username, password_strength, shortname and ulid.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "shortname", func(fl validator.FieldLevel) bool {
		return shortNamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "password_strength", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})
	mustRegister(v, "ulid", func(fl validator.FieldLevel) bool {
		return ids.IsULID(fl.Field().String())
	})
	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// StrongPassword reports whether password mixes upper case, lower case,
// digits and one of !@#$%^&*.
func StrongPassword(password string) bool {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	return upper && lower && digit && special
}

// Struct validates payload and returns Errors, or nil when it is valid.
func (v *Validator) Struct(payload any) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fieldPath(fe.Namespace()), Message: message(fe)})
	}
	return out
}

// fieldPath drops the struct name prefix: "createTeam.manager.name" -> "manager.name".
func fieldPath(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required", "required_unless", "required_with":
		return "is required"
	case "min":
		if isString {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.Join(oneOfValues(fe.Param()), ", ")
	case "email":
		return "must be a valid email"
	case "url", "http_url":
		return "must be a valid URL"
	case "nefield":
		return fmt.Sprintf("must differ from %s", fe.Param())
	case "username":
		return "can only contain letters, numbers and underscores"
	case "shortname":
		return "can only contain letters"
	case "password_strength":
		return "must contain at least one uppercase letter, one lowercase letter, one number and one special character"
	case "ulid":
		return "must be a valid id"
	case "dive":
		return "contains an invalid entry"
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

func oneOfValues(param string) []string {
	values := oneOfPattern.FindAllString(param, -1)
	for i, v := range values {
		values[i] = strings.Trim(v, "'")
	}
	return values
}
