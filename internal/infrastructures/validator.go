package infrastructures

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/safatanc/coupon-core/internal/app/errors"
)

type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

func (v *Validator) Validate(i interface{}) error {
	if i == nil {
		return errors.NewBadRequestError("Invalid request body")
	}

	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !stderrors.As(err, &validationErrs) {
		return errors.NewBadRequestError(err.Error())
	}

	details := make(map[string]interface{}, len(validationErrs))
	messages := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		msg := fmt.Sprintf("%s failed on '%s'", fieldErr.Field(), fieldErr.Tag())
		details[fieldErr.Field()] = fieldErr.Tag()
		messages = append(messages, msg)
	}

	return errors.NewBadRequestError(strings.Join(messages, "; ")).WithDetails(details)
}
