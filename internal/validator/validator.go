package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/educheck-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessRules is implemented by requests that carry rules beyond struct tags.
type BusinessRules interface {
	ValidateBusiness(v *Validator) ValidationErrors
}

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate performs complete validation (struct tags, then business rules).
// Failures are returned as ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}

	if rules, ok := s.(BusinessRules); ok {
		if errs := rules.ValidateBusiness(v); len(errs) > 0 {
			return errs
		}
	}

	return nil
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("not_blank", validateNotBlank)
	validate.RegisterValidation("option_index", validateOptionIndex)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).IsValid()
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateOptionIndex(fl validator.FieldLevel) bool {
	idx := fl.Field().Int()
	return idx >= 0 && idx < models.MaxOptions
}
