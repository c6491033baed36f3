package validators

import "github.com/go-playground/validator/v10"

// Validator adapts go-playground/validator to Echo's Validator interface
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new Validator
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate validates a struct by its validate tags
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
