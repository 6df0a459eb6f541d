package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// usernameTag allows letters, digits, underscores and spaces. Domain
// packages attach it to username-like fields.
const usernameTag = "alphanum_"

var usernameRegex = regexp.MustCompile(`^[\w\s]+$`)

// translationOverrides replace stock messages with the API's wording.
var translationOverrides = map[string]string{
	"required":      "this field is required",
	"required_with": "this field is required",
	"uuid4":         "must be a valid ID",
}

// InitValidators wires the shared validator: English translations, JSON
// field names in error output, and the kernel's custom tags. Domain packages
// register their own tags through their InitValidators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// error output speaks the API's field names, not Go's
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(usernameTag, func(fl validator.FieldLevel) bool {
		return usernameRegex.MatchString(fl.Field().String())
	})
	RegisterCustomTranslation(validate, translator, usernameTag,
		"only letters, numbers and underscores are allowed")

	for tag, text := range translationOverrides {
		RegisterCustomTranslation(validate, translator, tag, text, true)
	}
}

// RegisterCustomTranslation maps a validation tag to a fixed message.
// Pass override to replace a stock translation.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(tag, fe.Field())
			return msg
		},
	)
}
