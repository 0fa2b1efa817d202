package validator

import (
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	// Initialize validation
	validate = validator.New(validator.WithRequiredStructEnabled())
	if err := validate.RegisterValidation("difficulty", validateDifficulty); err != nil {
		panic(err)
	}
}

func GetValidator() *validator.Validate {
	return validate
}

// validateDifficulty accepts the three engine difficulty labels.
func validateDifficulty(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "easy", "medium", "hard":
		return true
	}
	return false
}
