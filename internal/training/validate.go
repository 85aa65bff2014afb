package training

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/five82/cohort/internal/docstore"
)

var (
	validate = newValidator()

	scriptScheme = regexp.MustCompile(`(?i)javascript:`)
	eventHandler = regexp.MustCompile(`(?i)on\w+=`)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json names so messages read "name is required".
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("module_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case StatusInProgress, StatusCompleted:
			return true
		}
		return false
	})
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case Present, Absent, Late:
			return true
		}
		return false
	})
	return v
}

// checkInput validates in and converts failures to invalid-argument errors.
func checkInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &docstore.Error{Code: docstore.CodeInvalidArgument, Message: "invalid input", Err: err}
	}
	return &docstore.Error{Code: docstore.CodeInvalidArgument, Message: describe(verrs[0]), Err: err}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", fe.Field(), fe.Param())
	case "email":
		return "please enter a valid email address"
	case "gt", "gte", "ltefield":
		return fe.Field() + " is out of range"
	case "datetime":
		return fe.Field() + " must be YYYY-MM-DD"
	case "required_without":
		return "subject or body is required"
	case "module_status", "attendance_status":
		return fmt.Sprintf("%q is not a valid %s", fe.Value(), strings.ReplaceAll(fe.Tag(), "_", " "))
	default:
		return fe.Error()
	}
}

// SanitizeString trims s and strips markup and script fragments.
func SanitizeString(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("<", "", ">", "").Replace(s)
	s = scriptScheme.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	return s
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return validate.Var(strings.TrimSpace(s), "required,email") == nil
}
