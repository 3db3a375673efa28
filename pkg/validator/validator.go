package validator

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validator validates request structs against their `validate` tags.
type Validator interface {
	Validate(interface{}) error
}

type wrapper struct {
	v *validator.Validate
}

func New() Validator {
	return &wrapper{v: validator.New()}
}

func (w *wrapper) Validate(obj interface{}) error {
	if err := w.v.Struct(obj); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("%s failed %s validation", first.Field(), first.Tag())
		}
		return err
	}
	return nil
}
