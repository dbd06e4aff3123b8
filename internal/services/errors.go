package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotFound is wrapped by errors for missing users, assignments and check-ins
	ErrNotFound = errors.New("not found")

	// ErrConflict is wrapped by errors that contradict the current state
	ErrConflict = errors.New("conflict")

	// ErrInvalidCredentials is returned for an unknown user or a wrong password
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAccountDisabled is returned when an inactive or deleted user logs in
	ErrAccountDisabled = errors.New("account is disabled")
)

// FieldIssue describes one invalid input field
type FieldIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before anything is persisted when the input is
// incomplete or inconsistent
type ValidationError struct {
	Message string
	Issues  []FieldIssue
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func newValidationError(message string, issues ...FieldIssue) *ValidationError {
	return &ValidationError{Message: message, Issues: issues}
}

// issueList accumulates field issues across several checks
type issueList []FieldIssue

func (l *issueList) add(field, format string, args ...interface{}) {
	*l = append(*l, FieldIssue{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (l issueList) err() error {
	if len(l) == 0 {
		return nil
	}
	return newValidationError("validation failed", l...)
}

func notFoundError(what string, id int64) error {
	return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
}

func conflictError(cause error) error {
	return fmt.Errorf("%w: %w", ErrConflict, cause)
}

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON name so issues match the request body
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validateStruct runs the validate tags of s and converts failures into a
// ValidationError with one issue per field
func validateStruct(s interface{}) error {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	var issues issueList
	for _, fe := range fieldErrs {
		issues.add(fe.Field(), "%s", describeFieldError(fe))
	}
	return issues.err()
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
