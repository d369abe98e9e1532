package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	importapp "github.com/backoffice/backend/internal/application/import"
	"github.com/backoffice/backend/internal/domain/shared"
	csvimport "github.com/backoffice/backend/internal/infrastructure/import"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
)

// ImportHandler exposes CSV validation and import endpoints.
type ImportHandler struct {
	BaseHandler
	service *importapp.Service
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(service *importapp.Service) *ImportHandler {
	return &ImportHandler{service: service}
}

// RegisterRoutes registers the import routes on the API group.
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/import")
	{
		imports.GET("/entities", h.Entities)
		imports.POST("/:entity/validate", h.Validate)
		imports.POST("/:entity", h.Import)
	}
}

// Entities lists the entity types accepted for import.
func (h *ImportHandler) Entities(c *gin.Context) {
	h.Success(c, h.service.SupportedEntities())
}

// Validate runs the validation pipeline over an uploaded CSV without
// writing anything. All stage errors are reported together.
func (h *ImportHandler) Validate(c *gin.Context) {
	data, platformID, ok := h.uploadParams(c)
	if !ok {
		return
	}

	result, err := h.service.ValidateCSV(c.Request.Context(), data, c.Param("entity"), platformID)
	if err != nil {
		h.importError(c, err)
		return
	}
	h.Success(c, result)
}

// Import validates and commits an uploaded CSV. A batch rejected by
// validation returns 200 with the errors in the result; the batch is
// all-or-nothing.
func (h *ImportHandler) Import(c *gin.Context) {
	data, platformID, ok := h.uploadParams(c)
	if !ok {
		return
	}

	result, err := h.service.ImportCSV(c.Request.Context(), data, c.Param("entity"), platformID)
	if err != nil {
		h.importError(c, err)
		return
	}
	h.Success(c, result)
}

// uploadParams reads the CSV payload and the platform scope. The file
// arrives either as the "file" part of a multipart form or as the raw
// request body.
func (h *ImportHandler) uploadParams(c *gin.Context) ([]byte, int64, bool) {
	platformID, err := strconv.ParseInt(c.DefaultQuery("platform_id", c.PostForm("platform_id")), 10, 64)
	if err != nil || platformID < 1 {
		h.BadRequest(c, "platform_id must be a positive integer")
		return nil, 0, false
	}

	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			h.BadRequest(c, "failed to open uploaded file")
			return nil, 0, false
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			h.BadRequest(c, "failed to read uploaded file")
			return nil, 0, false
		}
		return data, platformID, true
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "failed to read request body")
		return nil, 0, false
	}
	return data, platformID, true
}

func (h *ImportHandler) importError(c *gin.Context, err error) {
	var depErr *csvimport.DependencyError
	var domainErr *shared.DomainError
	switch {
	case errors.As(err, &depErr):
		h.Error(c, http.StatusConflict, dto.ErrCodeMissingDependency, depErr.Error())
	case errors.Is(err, csvimport.ErrTooManyRows):
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, err.Error())
	case errors.Is(err, csvimport.ErrUnsupportedEntityType),
		errors.Is(err, csvimport.ErrEmptyFile),
		errors.Is(err, csvimport.ErrInvalidEncoding),
		errors.Is(err, csvimport.ErrMissingHeader),
		errors.Is(err, csvimport.ErrNoDataRows):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
	case errors.As(err, &domainErr):
		h.ErrorWithCode(c, dto.NormalizeErrorCode(domainErr.Code), domainErr.Message)
	default:
		h.InternalError(c, err.Error())
	}
}
