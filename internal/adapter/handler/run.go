package handler

import (
	"io"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	dto "github.com/meeting-secretary-team/meeting-secretary/internal/adapter/dto/run"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/internal/usecase/pipeline"
)

// Run handles run lifecycle endpoints: ingestion, state, tracker sync,
// reset.
type Run struct {
	pipeline *pipeline.Service
	logger   *zap.Logger
}

// NewRun creates a new run handler
func NewRun(p *pipeline.Service, logger *zap.Logger) *Run {
	return &Run{pipeline: p, logger: logger}
}

// Upload starts a run from an uploaded media file (multipart field "file").
func (h *Run) Upload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return HandleError(h.logger, c, errors.ErrValidation("multipart field \"file\" is required"))
	}

	src, err := file.Open()
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return HandleError(h.logger, c, errors.ErrInternal(err))
	}

	input := pipeline.LocalUpload{
		Name: file.Filename,
		Mime: file.Header.Get("Content-Type"),
		Data: data,
	}
	if err := h.pipeline.Start(c.Request().Context(), input); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.StartedResponse{Phase: string(entities.PhaseUploading)})
}

// StartZoom starts a run from a Zoom cloud recording.
func (h *Run) StartZoom(c echo.Context) error {
	var req dto.ZoomFetchRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation(err.Error()))
	}

	input := pipeline.ZoomRecording{
		MeetingID:     req.MeetingID,
		AccessToken:   req.AccessToken,
		Passcode:      req.Passcode,
		PreferredType: req.PreferredType,
	}
	if err := h.pipeline.Start(c.Request().Context(), input); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.StartedResponse{Phase: string(entities.PhaseUploading)})
}

// StartDrive starts a run from a Google Drive file.
func (h *Run) StartDrive(c echo.Context) error {
	var req dto.DriveFetchRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation(err.Error()))
	}

	input := pipeline.DriveRecording{
		FileID:      req.FileID,
		AccessToken: req.AccessToken,
	}
	if err := h.pipeline.Start(c.Request().Context(), input); err != nil {
		return HandleError(h.logger, c, err)
	}
	return HandleSuccess(h.logger, c, dto.StartedResponse{Phase: string(entities.PhaseUploading)})
}

// State returns the observable state of the current run.
func (h *Run) State(c echo.Context) error {
	return HandleSuccess(h.logger, c, dto.StateFromEntity(h.pipeline.State()))
}

// Sync submits the current run's action items to the issue tracker.
func (h *Run) Sync(c echo.Context) error {
	var req dto.SyncRequest
	if err := c.Bind(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation("invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return HandleError(h.logger, c, errors.ErrValidation(err.Error()))
	}

	results, err := h.pipeline.SubmitSync(c.Request().Context(), req.ToTrackerConfig())
	if err != nil {
		return HandleError(h.logger, c, err)
	}

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}
	return HandleSuccess(h.logger, c, dto.SyncResponse{Results: results, Failed: failed})
}

// Reset abandons the current run and returns to the pristine state.
func (h *Run) Reset(c echo.Context) error {
	h.pipeline.Reset()
	return HandleSuccess(h.logger, c, dto.StateFromEntity(h.pipeline.State()))
}
