package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"strompris/internal/dataprocessing"
	apierrors "strompris/internal/errors"
)

// Validator validates request structs using struct tags
type Validator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewValidator creates a validator with the price API's custom tags registered
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	// Registration only fails on an empty tag or nil func.
	_ = v.RegisterValidation("region", isRegion)
	_ = v.RegisterValidation("csvview", isCSVViewName)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{
		validator: v,
		logger:    logger.With(slog.String("component", "validator")),
	}
}

// ValidateStruct validates v and returns an *apierrors.APIError listing every
// rejected field, or nil.
func (m *Validator) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	m.logger.Debug("request validation failed", slog.Int("fields", len(validationErrors)))

	return apierrors.NewValidationErrors(validationErrors)
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, param)
	case "region":
		return fmt.Sprintf("%s: unknown region %q, expected a region name or NO1-NO5", field, err.Value())
	case "csvview":
		return fmt.Sprintf("%s: unknown export view %q", field, err.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

// isRegion accepts a region name or code, case-insensitively
func isRegion(fl validator.FieldLevel) bool {
	_, ok := dataprocessing.ResolveRegionName(fl.Field().String())
	return ok
}

// isCSVViewName accepts "<view>.csv" with a plain view name, no path parts
func isCSVViewName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	view, ok := strings.CutSuffix(name, ".csv")
	if !ok || view == "" {
		return false
	}
	return !strings.ContainsAny(view, `/\.`)
}
