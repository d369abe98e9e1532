package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	syncapp "github.com/backoffice/backend/internal/application/sync"
	"github.com/backoffice/backend/internal/domain/integration"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes store synchronization endpoints.
type SyncHandler struct {
	BaseHandler
	service *syncapp.Service
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(service *syncapp.Service) *SyncHandler {
	return &SyncHandler{service: service}
}

// RegisterRoutes registers the sync routes on the API group.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	stores := rg.Group("/stores")
	{
		stores.POST("/:id/sync", h.SyncStore)
		stores.POST("/:id/sync/:entity", h.SyncEntity)
		stores.GET("/:id/last-imported-ids", h.LastImportedIDs)
	}
}

// SyncStore runs a full or incremental sync session for one store. The
// session result is returned even when some functions failed; only a
// session that could not run at all maps to an error status.
func (h *SyncHandler) SyncStore(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}
	incremental, _ := strconv.ParseBool(c.DefaultQuery("incremental", "false"))

	result, err := h.service.SyncStore(c.Request.Context(), storeID, incremental)
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncEntity runs a single-entity sync for one store.
func (h *SyncHandler) SyncEntity(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	result, err := h.service.SyncEntity(c.Request.Context(), storeID, c.Param("entity"))
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, result)
}

// LastImportedIDs returns the per-entity incremental watermarks for a store.
func (h *SyncHandler) LastImportedIDs(c *gin.Context) {
	storeID, ok := h.storeID(c)
	if !ok {
		return
	}

	ids, err := h.service.LastImportedIDs(c.Request.Context(), storeID)
	if err != nil {
		h.syncError(c, err)
		return
	}
	h.Success(c, ids)
}

func (h *SyncHandler) storeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		h.BadRequest(c, "store id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *SyncHandler) syncError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, integration.ErrStoreNotFound):
		h.NotFound(c, "store not found")
	case errors.Is(err, integration.ErrStoreInactive):
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "store is not active")
	case errors.Is(err, integration.ErrStoreMissingPlatform):
		h.UnprocessableEntity(c, dto.ErrCodeInvalidState, "store has no associated platform")
	case errors.Is(err, integration.ErrPlatformNotSupported):
		h.UnprocessableEntity(c, dto.ErrCodeBusinessRule, "platform is not supported")
	case errors.Is(err, syncapp.ErrUnknownEntity):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
	default:
		h.InternalError(c, err.Error())
	}
}
