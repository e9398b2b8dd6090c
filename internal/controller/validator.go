package controller

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/kvanc/server/internal/dto"
)

type requestValidator struct {
	validator *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{
		validator: validator.New(),
	}
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validator.Struct(i); err != nil {
		return fmt.Errorf("%w: %v", dto.ErrValidation, err)
	}
	return nil
}
