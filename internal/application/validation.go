package application

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/example/room-reservations/internal/scheduler"
)

// DateLayout is the calendar date layout used by bookings.
const DateLayout = "2006-01-02"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func inputValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, err := scheduler.ParseClock(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			value := fl.Field().String()
			parsed, err := time.Parse(DateLayout, value)
			return err == nil && parsed.Format(DateLayout) == value
		})
		validate = v
	})
	return validate
}

// validateStruct runs tag validation and converts failures into a ValidationError.
func validateStruct(input any) *ValidationError {
	vErr := &ValidationError{}
	err := inputValidator().Struct(input)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("input", err.Error())
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(fe.Field(), fieldMessage(fe))
	}
	return vErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " is invalid"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param())
	case "clock":
		return fe.Field() + " must be a 24h HH:MM time"
	case "isodate":
		return fe.Field() + " must be a YYYY-MM-DD date"
	}
	return fe.Field() + " is invalid"
}
