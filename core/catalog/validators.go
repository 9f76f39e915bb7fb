package catalog

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/sose/core"
)

var (
	digitalURLTag  = "digital_only"
	digitalURLText = "only digital books can have a digital url"
)

// InitValidators registers the catalog validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(bookStructValidation, NewBook{})
	core.RegisterCustomTranslation(validate, translator, digitalURLTag, digitalURLText)
}

// bookStructValidation checks that a digital url is only set on digital books.
func bookStructValidation(sl validator.StructLevel) {
	nb := sl.Current().Interface().(NewBook)
	if nb.DigitalURL != "" && !nb.IsDigital {
		sl.ReportError(nb.DigitalURL, "digital_url", "DigitalURL", digitalURLTag, "")
	}
}
