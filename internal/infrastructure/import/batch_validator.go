package csvimport

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
)

// importDependencies lists the parent tables that must be non-empty before a
// batch of the given entity may even be validated for import. Referential
// checks against empty parents would reject every row with a confusing
// fk_violation instead of one clear gate error.
var importDependencies = map[string][]string{
	commerce.TableProducts: {commerce.TableCategories, commerce.TableBrands},
	commerce.TableOrders: {
		commerce.TableCustomers, commerce.TableAddresses,
		commerce.TablePayments, commerce.TableCarriers,
	},
	commerce.TableOrderDetails: {commerce.TableOrders, commerce.TableProducts},
}

// BatchValidator runs the pre-commit validation pipeline over a CSV batch.
// All stages accumulate errors; the caller sees every problem in one pass.
// Validation is read-only, commit is a separate step.
type BatchValidator struct {
	repo     commerce.SyncRepository
	validate *validator.Validate
	logger   *zap.Logger
}

// NewBatchValidator creates a validator backed by the given repository.
func NewBatchValidator(repo commerce.SyncRepository, logger *zap.Logger) *BatchValidator {
	v := validator.New()
	// Report errors under the CSV column name, not the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("csv")
	})
	return &BatchValidator{repo: repo, validate: v, logger: logger}
}

// MissingDependencies returns the parent tables still empty for the platform
// that block importing entityType. Empty result means the gate is open.
func (v *BatchValidator) MissingDependencies(ctx context.Context, entityType string, platformID int64) ([]string, error) {
	schema, err := schemaFor(entityType)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, table := range importDependencies[schema.table] {
		has, err := v.repo.HasRows(ctx, table, platformID, commerce.PlatformScoped(table))
		if err != nil {
			return nil, fmt.Errorf("dependency check on %s failed: %w", table, err)
		}
		if !has {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

// ValidateBatch validates a batch of parsed rows for entityType on the given
// platform and returns the accumulated result. It never mutates the
// database; an error return means the pipeline itself failed, not the batch.
func (v *BatchValidator) ValidateBatch(ctx context.Context, rows []*Row, entityType string, platformID int64) (*ValidationResult, error) {
	result, _, err := v.validateBatch(ctx, rows, entityType, platformID)
	return result, err
}

// validateBatch additionally returns the parsed records so the importer can
// build models without re-parsing.
func (v *BatchValidator) validateBatch(ctx context.Context, rows []*Row, entityType string, platformID int64) (*ValidationResult, []*parsedRow, error) {
	start := time.Now()

	schema, err := schemaFor(entityType)
	if err != nil {
		return nil, nil, err
	}

	result := &ValidationResult{IsValid: true, TotalRows: len(rows)}

	// Stage 1: schema. Type conversion and field rules, every error per row.
	recs := make([]*parsedRow, 0, len(rows))
	for _, row := range rows {
		rec, parseErrs := schema.parse(row)
		for _, e := range parseErrs {
			result.AddError(e)
		}

		if err := v.validate.Struct(rec.record); err != nil {
			var fieldErrs validator.ValidationErrors
			if !errors.As(err, &fieldErrs) {
				return nil, nil, fmt.Errorf("schema validation failed: %w", err)
			}
			for _, fe := range fieldErrs {
				result.AddError(ImportValidationError{
					RowNumber: row.Number,
					FieldName: fe.Field(),
					ErrorType: ErrorSchemaValidation,
					Message:   ruleMessage(fe),
					Value:     row.Get(fe.Field()),
				})
			}
		}
		recs = append(recs, rec)
	}

	// Stage 2: intra-batch duplicates by origin ID. First occurrence wins,
	// later rows reference the winning row number.
	firstSeen := make(map[int64]int, len(recs))
	for _, rec := range recs {
		if rec.origin <= 0 {
			continue
		}
		if first, ok := firstSeen[rec.origin]; ok {
			result.AddError(ImportValidationError{
				RowNumber: rec.row.Number,
				FieldName: "id_origin",
				ErrorType: ErrorDuplicateInCSV,
				Message:   fmt.Sprintf("origin ID %d already appears in row %d", rec.origin, first),
				Value:     strconv.FormatInt(rec.origin, 10),
			})
			continue
		}
		firstSeen[rec.origin] = rec.row.Number
	}

	// Stage 3: foreign keys. One batched existence query per FK field.
	for _, fk := range schema.fks {
		refs := distinctRefs(recs, fk.column)
		if len(refs) == 0 {
			continue
		}
		existing, err := v.repo.ExistingOrigins(ctx, fk.table, refs, platformID, fk.scoped)
		if err != nil {
			return nil, nil, fmt.Errorf("foreign key lookup on %s failed: %w", fk.table, err)
		}
		for _, rec := range recs {
			ref := rec.refs[fk.column]
			if ref > 0 && !existing[ref] {
				result.AddError(ImportValidationError{
					RowNumber: rec.row.Number,
					FieldName: fk.column,
					ErrorType: ErrorFKViolation,
					Message:   fmt.Sprintf("references a missing %s record (origin ID %d)", fk.table, ref),
					Value:     strconv.FormatInt(ref, 10),
				})
			}
		}
	}
	for _, fk := range schema.nameFKs {
		names := distinctStrs(recs, fk.column)
		if len(names) == 0 {
			continue
		}
		existing, err := v.repo.ExistingStrings(ctx, fk.table, fk.dbColumn, names, 0, false)
		if err != nil {
			return nil, nil, fmt.Errorf("foreign key lookup on %s failed: %w", fk.table, err)
		}
		for _, rec := range recs {
			name := rec.strs[fk.column]
			if name != "" && !existing[name] {
				result.AddError(ImportValidationError{
					RowNumber: rec.row.Number,
					FieldName: fk.column,
					ErrorType: ErrorFKViolation,
					Message:   fmt.Sprintf("references a missing %s record (%s %q)", fk.table, fk.dbColumn, name),
					Value:     name,
				})
			}
		}
	}

	// Stage 4: already imported. Import is insert-only, so any origin that
	// exists in the target table rejects the row.
	if len(firstSeen) > 0 {
		origins := make([]int64, 0, len(firstSeen))
		for origin := range firstSeen {
			origins = append(origins, origin)
		}
		existing, err := v.repo.ExistingOrigins(ctx, schema.table, origins, platformID, schema.scoped)
		if err != nil {
			return nil, nil, fmt.Errorf("duplicate lookup on %s failed: %w", schema.table, err)
		}
		for origin, rowNumber := range firstSeen {
			if existing[origin] {
				result.AddError(ImportValidationError{
					RowNumber: rowNumber,
					FieldName: "id_origin",
					ErrorType: ErrorDuplicateInDB,
					Message:   fmt.Sprintf("origin ID %d is already imported", origin),
					Value:     strconv.FormatInt(origin, 10),
				})
			}
		}
	}

	// Stage 5: business rules. Uniqueness beyond the origin key, both within
	// the batch and against the database. Values are already normalized by
	// the schema parser.
	for _, u := range schema.uniques {
		firstStr := make(map[string]int, len(recs))
		for _, rec := range recs {
			val := rec.strs[u.column]
			if val == "" {
				continue
			}
			if first, ok := firstStr[val]; ok {
				result.AddError(ImportValidationError{
					RowNumber: rec.row.Number,
					FieldName: u.column,
					ErrorType: ErrorUniqueViolation,
					Message:   fmt.Sprintf("%q already appears in row %d", val, first),
					Value:     val,
				})
				continue
			}
			firstStr[val] = rec.row.Number
		}
		if len(firstStr) == 0 {
			continue
		}

		values := make([]string, 0, len(firstStr))
		for val := range firstStr {
			values = append(values, val)
		}
		existing, err := v.repo.ExistingStrings(ctx, u.table, u.dbColumn, values, platformID, u.scoped)
		if err != nil {
			return nil, nil, fmt.Errorf("uniqueness lookup on %s failed: %w", u.table, err)
		}
		for val, rowNumber := range firstStr {
			if existing[val] {
				result.AddError(ImportValidationError{
					RowNumber: rowNumber,
					FieldName: u.column,
					ErrorType: ErrorUniqueViolation,
					Message:   fmt.Sprintf("%q already exists", val),
					Value:     val,
				})
			}
		}
	}

	result.Finalize()
	result.ValidationTime = time.Since(start)

	v.logger.Debug("batch validated",
		zap.String("entity", schema.table),
		zap.Int("total_rows", result.TotalRows),
		zap.Int("valid_rows", result.ValidRows),
		zap.Int("errors", len(result.Errors)),
		zap.Duration("elapsed", result.ValidationTime),
	)

	return result, recs, nil
}

func distinctRefs(recs []*parsedRow, column string) []int64 {
	seen := make(map[int64]bool)
	var out []int64
	for _, rec := range recs {
		if ref := rec.refs[column]; ref > 0 && !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}
	return out
}

func distinctStrs(recs []*parsedRow, column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rec := range recs {
		if val := rec.strs[column]; val != "" && !seen[val] {
			seen[val] = true
			out = append(out, val)
		}
	}
	return out
}

// ruleMessage renders a field rule failure for humans.
func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "value is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "not a valid email address"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}
