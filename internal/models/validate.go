package models

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
	phonePattern = regexp.MustCompile(`^[0-9][0-9 ]{4,18}[0-9]$`)
)

// Validator returns the shared struct validator with the console's custom rules.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate checks struct tags.
func Validate(v any) error {
	return Validator().Struct(v)
}
