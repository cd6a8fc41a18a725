package handler

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	dto "github.com/meeting-secretary-team/meeting-secretary/internal/adapter/dto/run"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/internal/usecase/pipeline"
)

// History handles the persisted run-history endpoints.
type History struct {
	pipeline *pipeline.Service
	logger   *zap.Logger
}

// NewHistory creates a new history handler
func NewHistory(p *pipeline.Service, logger *zap.Logger) *History {
	return &History{pipeline: p, logger: logger}
}

// List returns the persisted run records, newest first.
func (h *History) List(c echo.Context) error {
	records := h.pipeline.History(c.Request().Context())
	if records == nil {
		records = []entities.RunRecord{}
	}
	return HandleSuccess(h.logger, c, dto.HistoryResponse{Records: records, Count: len(records)})
}

// Clear removes all persisted run records.
func (h *History) Clear(c echo.Context) error {
	h.pipeline.ClearHistory(c.Request().Context())
	return HandleSuccess(h.logger, c, dto.HistoryResponse{Records: []entities.RunRecord{}, Count: 0})
}
