package ingest

import (
	"errors"
	"fmt"
	"testing"

	"alliance-observatory/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		prefix   string
	}{
		{"nil", nil, CategoryNone, ""},
		{"dependency", fmt.Errorf("tesseract: %w", domain.ErrDependencyMissing), CategoryDependency, "System error: missing required component"},
		{"validation", fmt.Errorf("no rows: %w", domain.ErrValidation), CategoryValidation, "Data extraction failed: no rows"},
		{"unsupported", domain.ErrUnsupportedType, CategoryUnsupported, "Unknown or unsupported screenshot type"},
		{"external", fmt.Errorf("timeout: %w", domain.ErrExternalService), CategoryExternal, "OCR service temporarily unavailable"},
		{"store", domain.ErrStoreUnavailable, CategoryExternal, "Database error"},
		{"sqlite text", errors.New("sqlite3: constraint failed"), CategoryExternal, "Database error"},
		{"other", errors.New("strange"), CategoryExternal, "Processing failed: strange"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			category, message := Categorize(tt.err)
			assert.Equal(t, tt.category, category)
			assert.Contains(t, message, tt.prefix)
		})
	}
}

type innerError struct{}

func (innerError) Error() string { return "inner" }

func TestErrorType(t *testing.T) {
	assert.Equal(t, "", ErrorType(nil))
	assert.Equal(t, "ingest.innerError", ErrorType(fmt.Errorf("a: %w", fmt.Errorf("b: %w", innerError{}))))
	assert.Equal(t, "*errors.errorString", ErrorType(errors.New("plain")))
}
