package domain

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Validation struct {
	validator *validator.Validate
}

func NewValidation() *Validation {
	v := validator.New()

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterValidation("collection", validateCollection)
	v.RegisterValidation("badge", validateBadge)
	v.RegisterValidation("status", validateStatus)
	v.RegisterValidation("slug", validateSlug)
	return &Validation{validator: v}
}

func validateCollection(fl validator.FieldLevel) bool {
	return Collection(fl.Field().String()).Valid()
}

func validateBadge(fl validator.FieldLevel) bool {
	return Badge(fl.Field().String()).Valid()
}

func validateStatus(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

// ValidationError wraps the validator's FieldError
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (v ValidationError) Error() string {
	return fmt.Sprintf("Field '%s': %s", v.Field, v.Message)
}

// ValidationErrors is a slice of ValidationError
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	return strings.Join(ve.Messages(), "; ")
}

// Messages converts the errors to a slice of strings
func (ve ValidationErrors) Messages() []string {
	msgs := make([]string, 0, len(ve))
	for _, v := range ve {
		msgs = append(msgs, v.Error())
	}
	return msgs
}

func (v *Validation) Validate(i interface{}) ValidationErrors {
	var errs ValidationErrors

	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: "", Message: err.Error()}}
	}
	for _, fe := range validationErrors {
		errs = append(errs, ValidationError{
			Field:   fe.Field(),
			Message: fmt.Sprintf("failed on the '%s' tag", fe.Tag()),
		})
	}

	return errs
}

// Var validates a single value against a tag, e.g. "required,email"
func (v *Validation) Var(field string, value interface{}, tag string) ValidationErrors {
	err := v.validator.Var(value, tag)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Field: field, Message: err.Error()}}
	}
	var errs ValidationErrors
	for _, fe := range validationErrors {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("failed on the '%s' tag", fe.Tag()),
		})
	}
	return errs
}
