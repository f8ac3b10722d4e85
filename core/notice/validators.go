package notice

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educonnect/core"
)

var (
	typeTag  = "notice_type"
	typeText = "type must be one of school or teacher"
)

func InitValidators(v *core.Validator) {
	v.RegisterValidation(typeTag, typeText, func(fl validator.FieldLevel) bool {
		return Type(fl.Field().String()).Valid()
	})
}
