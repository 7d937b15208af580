package ingest

import (
	"errors"
	"fmt"
	"strings"

	"alliance-observatory/internal/domain"
)

type ErrorCategory string

const (
	CategoryNone        ErrorCategory = ""
	CategoryDependency  ErrorCategory = "dependency"
	CategoryValidation  ErrorCategory = "validation"
	CategoryExternal    ErrorCategory = "external"
	CategoryUnsupported ErrorCategory = "unsupported"
	CategoryCancelled   ErrorCategory = "cancelled"
)

// errVisionDisabled is returned by vision routes when AI extraction is off.
var errVisionDisabled = fmt.Errorf("ai extraction disabled: %w", domain.ErrDependencyMissing)

// Categorize maps a processing error to its category and the message shown
// to whoever uploaded the file.
func Categorize(err error) (ErrorCategory, string) {
	switch {
	case err == nil:
		return CategoryNone, ""
	case errors.Is(err, domain.ErrDependencyMissing):
		return CategoryDependency, fmt.Sprintf("System error: missing required component (%v). Please contact support.", err)
	case errors.Is(err, domain.ErrValidation):
		return CategoryValidation, fmt.Sprintf("Data extraction failed: %v. Screenshot may be cropped or unclear.", err)
	case errors.Is(err, domain.ErrUnsupportedType):
		return CategoryUnsupported, fmt.Sprintf("Unknown or unsupported screenshot type: %v", err)
	case errors.Is(err, domain.ErrExternalService):
		return CategoryExternal, "OCR service temporarily unavailable. Please try again in a few minutes."
	case errors.Is(err, domain.ErrStoreUnavailable), isDatabaseError(err):
		return CategoryExternal, "Database error. Please try again or contact support if the problem persists."
	}
	return CategoryExternal, fmt.Sprintf("Processing failed: %v", err)
}

func isDatabaseError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite") || strings.Contains(msg, "database")
}

// ErrorType names the innermost error of a chain.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("panic: %v", p.value)
}
