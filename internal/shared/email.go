package shared

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var emailValidate = validator.New()

// NormalizeEmail trims and lower-cases raw and checks it is a bare address.
// Employees and customers share this rule.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", Invalid("email", "is required")
	}
	if err := emailValidate.Var(email, "email,max=255"); err != nil {
		return "", Invalid("email", "must be a valid email")
	}
	return email, nil
}
