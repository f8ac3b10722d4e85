package document

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educonnect/core"
)

var (
	urgencyTag  = "urgency"
	urgencyText = "urgency must be one of low, medium or high"

	statusTag  = "status"
	statusText = "unknown status"
)

// InitValidators registers the document request validators.
func InitValidators(v *core.Validator) {
	v.RegisterValidation(urgencyTag, urgencyText, func(fl validator.FieldLevel) bool {
		return Urgency(fl.Field().String()).Valid()
	})
	v.RegisterValidation(statusTag, statusText, func(fl validator.FieldLevel) bool {
		return Status(fl.Field().String()).Valid()
	})
}
