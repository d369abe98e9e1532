package csvimport

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
)

// ImportResult is the envelope returned for one import attempt, whether the
// batch committed or was rejected by validation.
type ImportResult struct {
	ImportID    string            `json:"import_id"`
	EntityType  string            `json:"entity_type"`
	TotalRows   int               `json:"total_rows"`
	Inserted    int               `json:"inserted"`
	Validation  *ValidationResult `json:"validation"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt time.Time         `json:"completed_at"`
	ImportTime  time.Duration     `json:"import_time"`
}

// Importer commits validated CSV batches. A batch is written only when the
// dependency gate is open and validation produced zero errors; writes are
// insert-only and chunked.
type Importer struct {
	repo      commerce.SyncRepository
	validator *BatchValidator
	batchSize int
	maxRows   int
	logger    *zap.Logger
}

// NewImporter creates an importer. maxRows <= 0 disables the row cap.
func NewImporter(repo commerce.SyncRepository, validator *BatchValidator, batchSize, maxRows int, logger *zap.Logger) *Importer {
	return &Importer{
		repo:      repo,
		validator: validator,
		batchSize: batchSize,
		maxRows:   maxRows,
		logger:    logger,
	}
}

// ImportBatch validates and, when fully valid, commits a batch of rows for
// entityType on the given platform. A rejected batch returns a result with
// the validation errors and Inserted == 0, not an error.
func (im *Importer) ImportBatch(ctx context.Context, rows []*Row, entityType string, platformID int64) (*ImportResult, error) {
	started := time.Now()

	if len(rows) == 0 {
		return nil, ErrNoDataRows
	}
	if im.maxRows > 0 && len(rows) > im.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(rows), im.maxRows)
	}

	schema, err := schemaFor(entityType)
	if err != nil {
		return nil, err
	}

	missing, err := im.validator.MissingDependencies(ctx, entityType, platformID)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, &DependencyError{EntityType: schema.table, Missing: missing}
	}

	validation, recs, err := im.validator.validateBatch(ctx, rows, entityType, platformID)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{
		ImportID:   uuid.NewString(),
		EntityType: schema.table,
		TotalRows:  len(rows),
		Validation: validation,
		StartedAt:  started,
	}

	if !validation.IsValid {
		result.CompletedAt = time.Now()
		result.ImportTime = result.CompletedAt.Sub(started)
		im.logger.Warn("import rejected by validation",
			zap.String("import_id", result.ImportID),
			zap.String("entity", schema.table),
			zap.Int("total_rows", validation.TotalRows),
			zap.Int("errors", len(validation.Errors)),
		)
		return result, nil
	}

	res, err := im.resolveReferences(ctx, schema, recs, platformID)
	if err != nil {
		return nil, err
	}

	inserted, err := im.repo.InsertRows(ctx, schema.build(recs, platformID, res), im.batchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to insert %s rows: %w", schema.table, err)
	}

	result.Inserted = inserted
	result.CompletedAt = time.Now()
	result.ImportTime = result.CompletedAt.Sub(started)

	im.logger.Info("import committed",
		zap.String("import_id", result.ImportID),
		zap.String("entity", schema.table),
		zap.Int("inserted", inserted),
		zap.Duration("elapsed", result.ImportTime),
	)
	return result, nil
}

// resolveReferences prefetches the origin-to-local-ID maps the builder needs.
// Validation has already proven every referenced record exists.
func (im *Importer) resolveReferences(ctx context.Context, schema *entitySchema, recs []*parsedRow, platformID int64) (*refResolver, error) {
	res := &refResolver{
		locals:   make(map[string]map[int64]int64),
		payments: make(map[string]int64),
	}

	for _, fk := range schema.fks {
		refs := distinctRefs(recs, fk.column)
		if len(refs) == 0 {
			continue
		}
		m, err := im.repo.OriginToLocalIDs(ctx, fk.table, refs, platformID, fk.scoped)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s references: %w", fk.table, err)
		}
		if res.locals[fk.table] == nil {
			res.locals[fk.table] = make(map[int64]int64, len(m))
		}
		for origin, local := range m {
			res.locals[fk.table][origin] = local
		}
	}

	for _, fk := range schema.nameFKs {
		for _, name := range distinctStrs(recs, fk.column) {
			id, err := im.repo.PaymentIDByName(ctx, name)
			if err != nil {
				return nil, fmt.Errorf("failed to resolve payment %q: %w", name, err)
			}
			res.payments[name] = id
		}
	}

	return res, nil
}
