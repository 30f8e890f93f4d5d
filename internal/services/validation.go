package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clemson-tix/tigertix/internal/models"
	"github.com/go-playground/validator/v10"
)

// validate runs the shared validator and folds field failures into a single
// ErrInvalidInput.
func validate(v any) error {
	err := models.Validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return models.InvalidInput("%v", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return models.InvalidInput("%s", strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "eventdate":
		return fmt.Sprintf("%s must be a YYYY-MM-DD date that is not in the past", fe.Field())
	case "role":
		return fmt.Sprintf("%s must be one of user, organizer, admin", fe.Field())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
}
