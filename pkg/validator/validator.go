package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jwalitptl/orms-api/internal/model"
)

// Register installs the custom tags on v and reports field names by their
// json tag.
//
//	visit_status  one of waiting, checked-in, completed
//	timestamp     a date or date-time model.ParseTimestamp accepts
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("visit_status", visitStatus); err != nil {
		return fmt.Errorf("failed to register visit_status: %w", err)
	}
	if err := v.RegisterValidation("timestamp", timestamp); err != nil {
		return fmt.Errorf("failed to register timestamp: %w", err)
	}
	return nil
}

func visitStatus(fl validator.FieldLevel) bool {
	_, err := model.ParseVisitStatus(fl.Field().String())
	return err == nil
}

func timestamp(fl validator.FieldLevel) bool {
	_, err := model.ParseTimestamp(fl.Field().String())
	return err == nil
}

// Describe renders the first validation failure in err as a client message,
// e.g. "firstName is required". Other errors are returned verbatim.
func Describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must contain at least %s entries", field, fe.Param())
	case "visit_status":
		return "Invalid status"
	case "timestamp":
		return field + " must be a date (YYYY-MM-DD) or date-time"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}
