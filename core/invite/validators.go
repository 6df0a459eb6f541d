package invite

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/darasahq/darasa/core/user"
)

// InitValidators registers this package's custom validators.
// The `allroles` tag is registered by the user package.
func InitValidators(validate *validator.Validate, _ ut.Translator) {
	validate.RegisterStructValidation(acceptStructValidation, AcceptInvite{})
}

// acceptStructValidation applies the user password policy to invite acceptance.
func acceptStructValidation(sl validator.StructLevel) {
	if ai, ok := sl.Current().Interface().(AcceptInvite); ok {
		user.ValidatePassword(ai.Password, sl)
	}
}
