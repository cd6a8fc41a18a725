package handler

import (
	"context"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	dto "github.com/meeting-secretary-team/meeting-secretary/internal/adapter/dto/run"
)

// ArchiveLister enumerates the archived recording objects.
type ArchiveLister interface {
	ListArchived(ctx context.Context) ([]string, error)
}

// Archive exposes the recording archive. The lister is nil when archiving
// is disabled.
type Archive struct {
	lister ArchiveLister
	logger *zap.Logger
}

// NewArchive creates a new archive handler
func NewArchive(lister ArchiveLister, logger *zap.Logger) *Archive {
	return &Archive{lister: lister, logger: logger}
}

// List returns the object names of archived recordings, oldest first.
func (h *Archive) List(c echo.Context) error {
	if h.lister == nil {
		return HandleError(h.logger, c, errors.ErrNotFound("recording archive"))
	}
	objects, err := h.lister.ListArchived(c.Request().Context())
	if err != nil {
		return HandleError(h.logger, c, errors.ErrStorageFailed("list archive", err))
	}
	if objects == nil {
		objects = []string{}
	}
	return HandleSuccess(h.logger, c, dto.ArchiveResponse{Objects: objects, Count: len(objects)})
}
