package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"sitediary/models"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrIDConflict = errors.New("activity id already in use")
)

// ValidationError lists every problem found in a request. It matches ErrValidation.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return ErrValidation.Error() + ": " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(format string, args ...any) error {
	return &ValidationError{Problems: []string{fmt.Sprintf(format, args...)}}
}

// Validator checks reports and master data before they are written.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("isodate", isoDate); err != nil {
		panic(err)
	}
	v.RegisterStructValidation(codeRequiredWithData, models.BaseEntry{})
	v.RegisterStructValidation(riskCodeRequiredWithData, models.RiskEntry{})
	return &Validator{v: v}
}

// Struct validates s and converts failures to a *ValidationError.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	ve := &ValidationError{}
	for _, fe := range fieldErrs {
		ve.Problems = append(ve.Problems, describe(fe))
	}
	return ve
}

// Date checks a single YYYY-MM-DD value.
func (v *Validator) Date(field, value string) error {
	if _, err := time.Parse(models.DateLayout, value); err != nil {
		return invalid("%s must be a YYYY-MM-DD date", field)
	}
	return nil
}

func isoDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(models.DateLayout, fl.Field().String())
	return err == nil
}

func codeRequiredWithData(sl validator.StructLevel) {
	b := sl.Current().Interface().(models.BaseEntry)
	if b.HasData() && strings.TrimSpace(b.Code) == "" {
		sl.ReportError(b.Code, "code", "Code", "required_with_data", "")
	}
}

func riskCodeRequiredWithData(sl validator.StructLevel) {
	r := sl.Current().Interface().(models.RiskEntry)
	if r.HasData() && strings.TrimSpace(r.Code) == "" {
		sl.ReportError(r.Code, "code", "Code", "required_with_data", "")
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ReplaceAll(ns, ".BaseEntry", "")
}

func describe(fe validator.FieldError) string {
	path := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "required_with_data":
		return path + " is required when the row has data"
	case "isodate":
		return path + " must be a YYYY-MM-DD date"
	case "gte":
		return path + " must not be negative"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", path, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", path, fe.Param())
	case "excludesall":
		return fmt.Sprintf("%s must not contain %q", path, fe.Param())
	default:
		return path + " is invalid"
	}
}
