package validation

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RUTTag задаёт имя тега go-playground/validator для полей с RUT.
const RUTTag = "rut"

// NewValidator создаёт валидатор структур с зарегистрированным тегом rut.
func NewValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())

	// В ошибках используются имена полей из тегов json.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation(RUTTag, func(fl validator.FieldLevel) bool {
		return IsValidRUT(fl.Field().String())
	}); err != nil {
		return nil, err
	}

	return v, nil
}
