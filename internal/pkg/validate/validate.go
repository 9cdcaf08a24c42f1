package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phone-verification-api/internal/domain"
)

const usernameRule = "min=2,max=100"

// v is the package-level singleton validator. It is initialised once at
// package load time. Any custom type registrations must be made during init()
// before the first call to Struct.
var v = validator.New()

// messages maps a JSON field name to the text reported for any length violation on it.
var messages = map[string]string{
	"username":          "username must be between 2 and 100 characters",
	"verification_code": "verification code must be between 4 and 8 characters",
}

func init() {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Struct validates the given struct using its validate tags.
// Violations come back as domain.ValidationErrors, one entry per failed field.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return err
		}
		out := make(domain.ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			out = append(out, fieldError(fe.Field(), fe.Tag()))
		}
		return out
	}
	return nil
}

// Username applies the username length rule to a bare value, e.g. a path parameter.
func Username(username string) error {
	if err := v.Var(username, usernameRule); err != nil {
		return domain.ValidationErrors{fieldError("username", "")}
	}
	return nil
}

func fieldError(field, tag string) domain.FieldError {
	msg, ok := messages[field]
	if !ok {
		msg = fmt.Sprintf("field '%s' failed '%s'", field, tag)
	}
	return domain.FieldError{Field: field, Message: msg}
}
