package core_test

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core"
)

func newValidator(t *testing.T) (*validator.Validate, ut.Translator) {
	t.Helper()
	locale := en.New()
	translator, found := ut.New(locale, locale).GetTranslator(locale.Locale())
	require.True(t, found)
	validate := validator.New()
	core.InitValidators(validate, translator)
	return validate, translator
}

func Test_InitValidators(t *testing.T) {
	validate, translator := newValidator(t)

	type form struct {
		Handle   string `json:"handle" validate:"required,alphanum_"`
		CohortID string `json:"cohort_id" validate:"omitempty,uuid4"`
	}

	tests := []struct {
		name    string
		data    form
		field   string
		message string
	}{
		{name: "valid", data: form{Handle: "le_user 1"}},
		{
			name:    "missing handle",
			data:    form{},
			field:   "handle",
			message: "this field is required",
		},
		{
			name:    "handle with punctuation",
			data:    form{Handle: "le.user!"},
			field:   "handle",
			message: "only letters, numbers and underscores are allowed",
		},
		{
			name:    "bad cohort id",
			data:    form{Handle: "le_user", CohortID: "not-a-uuid"},
			field:   "cohort_id",
			message: "must be a valid ID",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.data)
			if tt.field == "" {
				require.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			// errors carry the JSON field name, not the Go one
			assert.Equal(t, tt.field, verrs[0].Field())
			assert.Equal(t, tt.message, verrs[0].Translate(translator))
		})
	}
}
