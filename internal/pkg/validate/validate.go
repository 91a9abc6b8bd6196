package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// v is the package-level singleton validator. Custom tags are registered in
// init() before the first call to Struct.
var v = validator.New()

func init() {
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return Phone(fl.Field().String())
	})
}

// Struct validates the given struct using its validate tags.
// Returns a human-readable error string or nil.
func Struct(s interface{}) error {
	if err := v.Struct(s); err != nil {
		ve, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var msgs []string
		for _, fe := range ve {
			msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
		}
		return fmt.Errorf("%s", strings.Join(msgs, "; "))
	}
	return nil
}

// Email reports whether s is a syntactically valid email address.
func Email(s string) bool {
	return v.Var(s, "required,email") == nil
}

// Phone reports whether s is an E.164-style number. Spaces and dashes are ignored.
func Phone(s string) bool {
	return phonePattern.MatchString(NormalizePhone(s))
}

// NormalizePhone strips spaces and dashes from a phone number.
func NormalizePhone(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(s))
}
