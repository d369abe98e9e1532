package importapp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/backoffice/backend/internal/domain/commerce"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/backoffice/backend/internal/infrastructure/config"
	csvimport "github.com/backoffice/backend/internal/infrastructure/import"
)

// Service exposes CSV validation and import to the HTTP layer: parse the
// uploaded file, run the validation pipeline, and commit only fully valid
// batches.
type Service struct {
	validator *csvimport.BatchValidator
	importer  *csvimport.Importer
	maxRows   int
	logger    *zap.Logger
}

// NewService creates an import application service.
func NewService(repo commerce.SyncRepository, cfg config.ImportConfig, logger *zap.Logger) *Service {
	validator := csvimport.NewBatchValidator(repo, logger)
	return &Service{
		validator: validator,
		importer:  csvimport.NewImporter(repo, validator, cfg.BatchSize, cfg.MaxRows, logger),
		maxRows:   cfg.MaxRows,
		logger:    logger,
	}
}

// ValidateCSV parses and validates an uploaded CSV batch without writing
// anything.
func (s *Service) ValidateCSV(ctx context.Context, data []byte, entityType string, platformID int64) (*csvimport.ValidationResult, error) {
	rows, err := s.parse(data, entityType)
	if err != nil {
		return nil, err
	}
	return s.validator.ValidateBatch(ctx, rows, entityType, platformID)
}

// ImportCSV parses, validates and commits an uploaded CSV batch. A batch
// rejected by validation returns a result carrying the errors, not an error.
func (s *Service) ImportCSV(ctx context.Context, data []byte, entityType string, platformID int64) (*csvimport.ImportResult, error) {
	rows, err := s.parse(data, entityType)
	if err != nil {
		return nil, err
	}
	return s.importer.ImportBatch(ctx, rows, entityType, platformID)
}

// SupportedEntities lists the entity types accepted for import.
func (s *Service) SupportedEntities() []string {
	return csvimport.SupportedEntities()
}

func (s *Service) parse(data []byte, entityType string) ([]*csvimport.Row, error) {
	required, err := csvimport.RequiredHeaders(entityType)
	if err != nil {
		return nil, err
	}

	parser, err := csvimport.ParseFromBytes(data)
	if err != nil {
		return nil, err
	}
	if err := parser.ParseHeader(); err != nil {
		return nil, err
	}
	if missing := parser.ValidateHeaders(required); len(missing) > 0 {
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
	}

	rows, err := parser.ReadAllRows()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, csvimport.ErrNoDataRows
	}
	if s.maxRows > 0 && len(rows) > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", csvimport.ErrTooManyRows, len(rows), s.maxRows)
	}
	return rows, nil
}
