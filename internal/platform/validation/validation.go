// Package validation adapts go-playground/validator to echo and renders its
// failures as field-scoped apierror messages.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/healthcare/healthcare-api/internal/platform/apierror"
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// Validator implements echo.Validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator that reports fields by their JSON names and knows
// the custom "username" tag.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Validate checks struct tags and returns an *apierror.Error of kind
// validation listing every failing field.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fe := apierror.FieldErrors{}
	for _, e := range verrs {
		fe.Add(e.Field(), message(e))
	}
	return fe.Err()
}

func message(e validator.FieldError) string {
	numeric := false
	switch e.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		numeric = true
	}

	switch e.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		if numeric {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
	case "min":
		if numeric {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(e.Value()))
	case "datetime":
		return "Date has wrong format. Use one of these formats instead: YYYY-MM-DD."
	case "uuid", "uuid4":
		return "Must be a valid UUID."
	case "username":
		return "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	default:
		return "Invalid value."
	}
}

// Normalizer is implemented by request types that clean up their input, for
// example turning blank optional strings into nil, before validation runs.
type Normalizer interface {
	Normalize()
}

// BindAndValidate decodes the request body into dst and validates it.
// Decoding failures become validation errors so every malformed payload is a
// 400 with the usual body shape.
func BindAndValidate(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return bindError(err)
	}
	if n, ok := dst.(Normalizer); ok {
		n.Normalize()
	}
	return c.Validate(dst)
}

func bindError(err error) error {
	cause := err
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code != http.StatusBadRequest {
			return he
		}
		if he.Internal != nil {
			cause = he.Internal
		}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(cause, &typeErr) && typeErr.Field != "" {
		return apierror.Validation(typeErr.Field, typeMessage(typeErr.Type))
	}
	var syntaxErr *json.SyntaxError
	if errors.As(cause, &syntaxErr) {
		return apierror.NonField(fmt.Sprintf("JSON parse error - %s", syntaxErr.Error()))
	}
	if he != nil {
		return apierror.NonField(fmt.Sprint(he.Message))
	}
	return apierror.NonField(err.Error())
}

func typeMessage(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.Float32, reflect.Float64:
		return "A valid number is required."
	case reflect.Bool:
		return "Must be a valid boolean."
	default:
		return "Not a valid string."
	}
}
