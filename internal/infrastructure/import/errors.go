package csvimport

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error type tags carried by ImportValidationError. Every error a batch
// produces is classified as exactly one of these.
const (
	// ErrorSchemaValidation covers field-level rule failures on a mapped row
	// (required, range, format).
	ErrorSchemaValidation = "schema_validation"

	// ErrorSchemaError covers values that cannot be mapped to the target
	// type at all (non-numeric ID, unparseable date).
	ErrorSchemaError = "schema_error"

	// ErrorDuplicateInCSV marks a row repeating an origin ID already seen
	// earlier in the same batch.
	ErrorDuplicateInCSV = "duplicate_in_csv"

	// ErrorFKViolation marks a reference to a parent record that does not
	// exist in the target database.
	ErrorFKViolation = "fk_violation"

	// ErrorDuplicateInDB marks an origin ID already imported. Import is
	// insert-only, so an existing row can never be overwritten.
	ErrorDuplicateInDB = "duplicate_in_db"

	// ErrorUniqueViolation marks a business-rule uniqueness failure beyond
	// the origin key (customer email, product SKU).
	ErrorUniqueViolation = "unique_violation"
)

// Common import errors
var (
	// ErrEmptyFile is returned when the CSV file is empty
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the file is not valid UTF-8
	ErrInvalidEncoding = errors.New("invalid file encoding")

	// ErrMissingHeader is returned when the CSV file has no header row
	ErrMissingHeader = errors.New("CSV file missing header row")

	// ErrNoDataRows is returned when the CSV file has no data rows
	ErrNoDataRows = errors.New("CSV file contains no data rows")

	// ErrUnsupportedEntityType is returned when the entity type has no
	// registered import schema
	ErrUnsupportedEntityType = errors.New("unsupported entity type")

	// ErrTooManyRows is returned when a batch exceeds the configured row cap
	ErrTooManyRows = errors.New("batch exceeds maximum row count")
)

// ImportValidationError is one rejected row/field. RowNumber is 1-based over
// the batch's data rows and stable across validation stages.
type ImportValidationError struct {
	RowNumber int    `json:"row_number"`
	FieldName string `json:"field_name"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
	Value     string `json:"value,omitempty"`
}

// Error implements the error interface
func (e ImportValidationError) Error() string {
	return fmt.Sprintf("row %d, field %q: %s", e.RowNumber, e.FieldName, e.Message)
}

// ValidationResult is the outcome of validating one batch. The batch may be
// committed only when IsValid is true; a single error rejects the whole
// batch.
type ValidationResult struct {
	IsValid        bool                    `json:"is_valid"`
	TotalRows      int                     `json:"total_rows"`
	ValidRows      int                     `json:"valid_rows"`
	Errors         []ImportValidationError `json:"errors"`
	ValidationTime time.Duration           `json:"validation_time"`
}

// AddError appends an error and flips the validity flag.
func (r *ValidationResult) AddError(err ImportValidationError) {
	r.Errors = append(r.Errors, err)
	r.IsValid = false
}

// Finalize computes ValidRows as total rows minus the distinct rows any
// error references.
func (r *ValidationResult) Finalize() {
	seen := make(map[int]bool, len(r.Errors))
	for _, e := range r.Errors {
		seen[e.RowNumber] = true
	}
	r.ValidRows = r.TotalRows - len(seen)
	r.IsValid = len(r.Errors) == 0
}

// DependencyError reports that an import cannot run because required parent
// tables are still empty for the platform.
type DependencyError struct {
	EntityType string
	Missing    []string
}

// Error implements the error interface
func (e *DependencyError) Error() string {
	return fmt.Sprintf("cannot import %s: required tables are empty: %s",
		e.EntityType, strings.Join(e.Missing, ", "))
}
