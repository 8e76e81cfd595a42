package serrors

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validation translates validator failures into coded field errors. Only the
// first failure is reported because the error envelope carries a single
// error per response.
func Validation(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	if fe.Tag() == "required" {
		return NewFieldRequiredError(field, "ValidationErrors.required")
	}
	return NewFieldInvalidError(field, fe.Tag(), "ValidationErrors."+fe.Tag())
}
