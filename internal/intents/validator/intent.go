package validator

import (
	"errors"
	"fmt"
	"stayd/pkg/logger"
	"stayd/pkg/model"
	"strings"
	"time"

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

type IntentValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewIntentValidator(log *logger.Logger) *IntentValidator {
	v := validator.New()

	log.Info("Intent validator initialized successfully")

	return &IntentValidator{
		validate: v,
		logger:   log,
	}
}

// Validate checks the intent against its struct tags plus the cross-field
// rules tags cannot express. The not-in-past check is judged against the
// caller's clock, never the wall clock, so callers stay in control of time.
func (v *IntentValidator) Validate(intent *model.BookingIntent, now time.Time) error {
	if err := v.validate.Struct(intent); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}

	if !intent.EndDate.After(intent.StartDate) {
		return ValidationErrors{
			ValidationError{
				Field:   "EndDate",
				Message: "end_date must be after start_date",
			},
		}
	}

	if intent.StartDate.Before(model.Today(now)) {
		return ValidationErrors{
			ValidationError{
				Field:   "StartDate",
				Message: "start_date cannot be in the past",
			},
		}
	}

	if err := v.validatePricing(&intent.Pricing); err != nil {
		return err
	}

	return nil
}

func (v *IntentValidator) validatePricing(pricing *model.Pricing) error {
	if pricing.PaymentType == model.PaymentDeposit {
		if pricing.DepositPercentage <= 0 || pricing.DepositPercentage >= 100 {
			return ValidationErrors{
				ValidationError{
					Field:   "DepositPercentage",
					Message: "deposit_percentage must be between 1 and 99 for deposit payments",
				},
			}
		}
		if pricing.DepositAmount+pricing.RemainingAmount != pricing.TotalPrice {
			return ValidationErrors{
				ValidationError{
					Field:   "DepositAmount",
					Message: "deposit_amount and remaining_amount must sum to total_price",
				},
			}
		}
	}

	if pricing.PaymentAmount > pricing.TotalPrice {
		return ValidationErrors{
			ValidationError{
				Field:   "PaymentAmount",
				Message: "payment_amount cannot exceed total_price",
			},
		}
	}

	return nil
}

func (v *IntentValidator) ValidateExtendWindow(intent *model.BookingIntent, window time.Duration, now time.Time) error {
	if intent.ExpiresAt.Sub(now) > window {
		return ValidationErrors{
			ValidationError{
				Field:   "ExpiresAt",
				Message: fmt.Sprintf("extension allowed only within the final %s of the lease", window),
			},
		}
	}
	return nil
}

func (v *IntentValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
