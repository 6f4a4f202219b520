// Package validation checks settings structs against their validate tags.
package validation

import (
	"reflect"
	"strings"

	"golang-move-import-service/pkg/errors"

	"github.com/go-playground/validator/v10"
)

// Validator reports failing fields by the name one of their tags gives them
type Validator struct {
	validate *validator.Validate
}

// New returns a validator naming fields after tag, e.g. "json" or
// "mapstructure". Fields without the tag keep their Go name.
func New(tag string) *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Struct validates s. The first failing field is returned as a configuration
// error named section.field.
func (v *Validator) Struct(section string, s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		setting := fe.Field()
		if section != "" {
			setting = section + "." + setting
		}
		return errors.ConfigurationError(errors.CodeInvalidConfig, setting, fe.Value(), err)
	}
	if section == "" {
		section = "options"
	}
	return errors.ConfigurationError(errors.CodeInvalidConfig, section, s, err)
}
