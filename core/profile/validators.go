package profile

import (
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/permission"
)

var (
	permissionsTag  = "permissions"
	permissionsText = "unknown permission"
)

// InitValidators registers the profile validators.
func InitValidators(v *core.Validator) {
	v.RegisterValidation(permissionsTag, permissionsText, permissionsValidation)
}

// permissionsValidation checks that every token of a permission list is in the catalog.
func permissionsValidation(fl validator.FieldLevel) bool {
	fld := fl.Field()
	if fld.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < fld.Len(); i++ {
		if !permission.Valid(permission.Permission(fld.Index(i).String())) {
			return false
		}
	}
	return true
}
