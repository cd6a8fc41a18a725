package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var projectKeyRE = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance
func New() *CustomValidator {
	v := validator.New()
	// project_key accepts tracker project keys up to canonicalization
	// (surrounding whitespace and lower case are repaired later).
	_ = v.RegisterValidation("project_key", func(fl validator.FieldLevel) bool {
		key := strings.ToUpper(strings.TrimSpace(fl.Field().String()))
		return projectKeyRE.MatchString(key)
	})
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}
