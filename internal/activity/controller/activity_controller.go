package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"stockroom/internal/domain"
	apperrors "stockroom/internal/errors"
	"stockroom/internal/identity"
)

type ActivityUseCase interface {
	ListRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error)
	Undo(ctx context.Context, actor domain.Actor, logID string) (*domain.ActivityLog, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type Controller struct {
	activity ActivityUseCase
	logger   *zap.Logger
}

func NewController(activity ActivityUseCase, logger *zap.Logger) *Controller {
	return &Controller{activity: activity, logger: logger}
}

type logEntryDTO struct {
	ID                 string    `json:"id"`
	Type               string    `json:"type"`
	ProductID          string    `json:"productId,omitempty"`
	WarehouseProductID string    `json:"warehouseProductId,omitempty"`
	StoreProductID     string    `json:"storeProductId,omitempty"`
	StoreID            string    `json:"storeId,omitempty"`
	Name               string    `json:"name"`
	Quantity           int       `json:"quantity"`
	LocationName       string    `json:"locationName"`
	ActorID            string    `json:"actorId"`
	Undone             bool      `json:"undone"`
	Timestamp          time.Time `json:"timestamp"`
}

func toLogEntryDTO(e domain.ActivityLog) logEntryDTO {
	return logEntryDTO{
		ID:                 e.ID,
		Type:               e.Type,
		ProductID:          e.ProductID,
		WarehouseProductID: e.WarehouseProductID,
		StoreProductID:     e.StoreProductID,
		StoreID:            e.StoreID,
		Name:               e.Name,
		Quantity:           e.Quantity,
		LocationName:       e.LocationName,
		ActorID:            e.ActorID,
		Undone:             e.Undone,
		Timestamp:          e.Timestamp,
	}
}

func (c *Controller) HandleListRecent(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	// Default window of 20 entries; an explicit limit=0 lifts it.
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.writeValidationError(w, "invalid limit", apperrors.ValidationDetail{
				Field:   "limit",
				Message: "limit must be a non-negative integer",
			})
			return
		}
		limit = parsed
		if limit > maxListLimit {
			limit = maxListLimit
		}
	}

	entries, err := c.activity.ListRecent(r.Context(), limit)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	dtos := make([]logEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toLogEntryDTO(e))
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{"traceId": traceID, "entries": dtos})
}

func (c *Controller) HandleUndo(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		c.writeErrorResponse(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing caller identity")
		return
	}

	logID := chi.URLParam(r, "logID")
	entry, err := c.activity.Undo(r.Context(), actor, logID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, map[string]interface{}{
		"traceId": traceID,
		"entry":   toLogEntryDTO(*entry),
	})
}

func (c *Controller) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeValidationError(w, ve.Message, ve.Details...)
		return
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
		return
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
		return
	}
	if _, ok := apperrors.IsForbiddenError(err); ok {
		c.writeErrorResponse(w, traceID, http.StatusForbidden, "FORBIDDEN", err.Error())
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeErrorResponse(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
}

type validationErrorResponse struct {
	Error   string                       `json:"error"`
	Message string                       `json:"message"`
	Details []apperrors.ValidationDetail `json:"details"`
}

func (c *Controller) writeValidationError(w http.ResponseWriter, message string, details ...apperrors.ValidationDetail) {
	c.writeJSON(w, http.StatusBadRequest, validationErrorResponse{
		Error:   "VALIDATION_ERROR",
		Message: message,
		Details: details,
	})
}

type errorResponse struct {
	TraceID   string    `json:"traceId"`
	Status    int       `json:"status"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Controller) writeErrorResponse(w http.ResponseWriter, traceID string, status int, code, message string) {
	c.writeJSON(w, status, errorResponse{
		TraceID:   traceID,
		Status:    status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (c *Controller) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
