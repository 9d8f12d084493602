package form

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"lmsadmin/internal/listing"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type namedValue struct {
	name  string
	value string
}

// requireAll reports the first empty field in the given order.
func requireAll(fields ...namedValue) error {
	for _, f := range fields {
		if err := validate.Var(strings.TrimSpace(f.value), "required"); err != nil {
			return required(f.name)
		}
	}
	return nil
}

// checkFormats runs the struct's format rules and converts the first failure.
func checkFormats(draft any) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return err
	}
	fe := errs[0]
	return &ValidationError{Field: fe.Field(), Message: formatMessage(fe)}
}

func formatMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "numeric":
		return fmt.Sprintf("%s must be a number", fe.Field())
	case "number":
		return fmt.Sprintf("%s must be a whole number", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// Field value coercion shared by the drafts.

func text(v any) string {
	return strings.TrimSpace(listing.Text(v))
}

func flag(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		return err == nil && b || strings.EqualFold(strings.TrimSpace(t), "on")
	}
	return listing.Number(v) != 0
}

func list(v any) []string {
	out := []string{}
	switch t := v.(type) {
	case []string:
		for _, s := range t {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range t {
			if s := text(item); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, part := range strings.Split(t, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
