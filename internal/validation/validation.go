// Package validation holds the request rules shared by the HTTP handlers:
// the password policy tags and the translation of validator errors into
// per-field messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Symbols is the punctuation set a password must draw at least one character from.
const Symbols = `!@#$%^&*(),.?":{}|<>`

// CommonPasswords are rejected outright, compared case-sensitively.
var CommonPasswords = []string{"password", "12345678", "qwerty", "admin123"}

var ginOnce sync.Once

// BindGin installs the custom tags on gin's default validator. Safe to call
// more than once.
func BindGin() {
	ginOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			Register(v)
		}
	})
}

// Register adds the password tags and makes errors report JSON field names.
func Register(v *validator.Validate) {
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	must(v.RegisterValidation("has_upper", runeCheck(inRange('A', 'Z'))))
	must(v.RegisterValidation("has_lower", runeCheck(inRange('a', 'z'))))
	must(v.RegisterValidation("has_digit", runeCheck(inRange('0', '9'))))
	must(v.RegisterValidation("has_symbol", runeCheck(func(r rune) bool {
		return strings.ContainsRune(Symbols, r)
	})))
	must(v.RegisterValidation("not_common", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		for _, p := range CommonPasswords {
			if s == p {
				return false
			}
		}
		return true
	}))
}

// Character classes are ASCII only; "É" is not an uppercase letter here.
func inRange(lo, hi rune) func(rune) bool {
	return func(r rune) bool { return r >= lo && r <= hi }
}

func runeCheck(pred func(rune) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), pred) >= 0
	}
}

func must(err error) {
	if err != nil {
		panic("register validation: " + err.Error())
	}
}

// Fields converts a binding error into field → messages. ok is false when
// err is not about field values (e.g. malformed JSON).
func Fields(err error) (fields map[string][]string, ok bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields = make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], Message(fe))
		}
		return fields, true
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		field := typeErr.Field
		return map[string][]string{
			field: {fmt.Sprintf("The %s field must be a %s.", display(field), typeErr.Type.Kind())},
		}, true
	}

	return nil, false
}

// Message renders one field error in the API's wording.
func Message(fe validator.FieldError) string {
	name := display(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", name)
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", name, fe.Param())
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", name, fe.Param())
	case "has_upper":
		return fmt.Sprintf("The %s field must contain at least one uppercase letter.", name)
	case "has_lower":
		return fmt.Sprintf("The %s field must contain at least one lowercase letter.", name)
	case "has_digit":
		return fmt.Sprintf("The %s field must contain at least one number.", name)
	case "has_symbol":
		return fmt.Sprintf("The %s field must contain at least one symbol.", name)
	case "not_common":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "eqfield":
		return fmt.Sprintf("The %s field must match %s.", name, display(toSnake(fe.Param())))
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}

func display(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

// toSnake maps a Go field name such as "Password" to its JSON spelling.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
