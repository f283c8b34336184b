package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"maharaja/pkg/logger"
	"maharaja/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as a field-to-message map for API responses.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names so messages match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("booking_status", validateBookingStatus); err != nil {
		log.Fatal("Failed to register 'booking_status' validator",
			"error", err,
		)
	}

	log.Info("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	status, ok := fl.Field().Interface().(model.BookingStatus)
	return ok && status.Valid()
}

// ValidateRequest checks field formats plus the shape rules that depend on
// which fields were sent. Resource-dependent rules, such as whether the
// resource takes a time slot, are left to the service.
func (v *BookingValidator) ValidateRequest(req *model.BookingRequest) error {
	if err := v.Validate(req); err != nil {
		return err
	}

	var errs ValidationErrors
	usesSlot := req.Date != "" || req.TimeSlot != ""
	usesRange := req.CheckIn != nil || req.CheckOut != nil

	switch {
	case usesSlot && usesRange:
		errs = append(errs, ValidationError{Field: "check_in", Message: "send either check_in/check_out or date/time_slot, not both"})
	case usesSlot:
		if req.Date == "" {
			errs = append(errs, ValidationError{Field: "date", Message: "date is required with time_slot"})
		}
		if req.TimeSlot == "" {
			errs = append(errs, ValidationError{Field: "time_slot", Message: "time_slot is required with date"})
		}
	case usesRange:
		if req.CheckIn == nil {
			errs = append(errs, ValidationError{Field: "check_in", Message: "check_in is required"})
		}
		if req.CheckOut == nil {
			errs = append(errs, ValidationError{Field: "check_out", Message: "check_out is required"})
		}
		if req.CheckIn != nil && req.CheckOut != nil && !req.CheckIn.Before(*req.CheckOut) {
			errs = append(errs, ValidationError{Field: "check_out", Message: "check_out must be after check_in"})
		}
	default:
		errs = append(errs, ValidationError{Field: "check_in", Message: "check_in/check_out or date/time_slot is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Validate runs the struct tags of s.
func (v *BookingValidator) Validate(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "datetime":
			message = fmt.Sprintf("%s must be a date in %s format", err.Field(), err.Param())
		case "booking_status":
			message = fmt.Sprintf("%s is not a known booking status", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
