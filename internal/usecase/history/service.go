package history

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/storage"
)

// Service persists run records as a single JSON blob under one fixed key.
// History is a convenience, never a dependency: when the backing store is
// missing or failing the service degrades to an empty, write-discarding
// history instead of surfacing errors to the pipeline.
type Service struct {
	store  storage.Store
	key    string
	logger *zap.Logger
}

// NewService creates a history service. A nil store is allowed and yields
// the degraded no-op behavior.
func NewService(store storage.Store, key string, logger *zap.Logger) *Service {
	return &Service{store: store, key: key, logger: logger}
}

// Load returns the persisted records, newest first, capped at the history
// limit. Malformed blobs and malformed records are repaired or dropped, so
// a corrupt store reads as a shorter (possibly empty) history.
func (s *Service) Load(ctx context.Context) []entities.RunRecord {
	if s.store == nil {
		return nil
	}
	blob, found, err := s.store.Get(ctx, s.key)
	if err != nil {
		s.warn("history load failed", err)
		return nil
	}
	if !found || blob == "" {
		return nil
	}

	var raw []entities.RunRecord
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		s.warn("history blob is not valid JSON", err)
		return nil
	}

	records := make([]entities.RunRecord, 0, len(raw))
	for i := range raw {
		if entities.SanitizeRunRecord(&raw[i]) {
			records = append(records, raw[i])
		}
	}
	if len(records) > entities.HistoryLimit {
		records = records[:entities.HistoryLimit]
	}
	return records
}

// Create builds a record for a completed run and persists it. Runs with no
// surviving tasks are never persisted; the returned record is nil in that
// case and when storage is unavailable the record is still returned so the
// caller can keep referring to it in memory.
func (s *Service) Create(ctx context.Context, kind entities.SourceKind, transcript string, tasks []entities.ActionItem, metadata map[string]string) *entities.RunRecord {
	record := entities.NewRunRecord(kind, transcript, tasks, metadata)
	if record == nil {
		return nil
	}
	s.Upsert(ctx, *record, nil)
	return record
}

// Upsert inserts the record at the newest position, replacing any existing
// record with the same source identity, and evicts beyond the history
// limit. Passing the current records avoids a redundant Load; nil means
// load first.
func (s *Service) Upsert(ctx context.Context, record entities.RunRecord, current []entities.RunRecord) {
	if s.store == nil {
		s.warn("history store unavailable, record not persisted", nil)
		return
	}
	if !entities.SanitizeRunRecord(&record) {
		return
	}
	if current == nil {
		current = s.Load(ctx)
	}

	records := make([]entities.RunRecord, 0, len(current)+1)
	records = append(records, record)
	for _, existing := range current {
		if record.SameSource(&existing) {
			continue
		}
		records = append(records, existing)
	}
	if len(records) > entities.HistoryLimit {
		records = records[:entities.HistoryLimit]
	}
	s.persist(ctx, records)
}

// Patch applies updater to the record with the given id and persists the
// result. Unknown ids are ignored.
func (s *Service) Patch(ctx context.Context, id string, updater func(*entities.RunRecord), current []entities.RunRecord) {
	if s.store == nil || id == "" || updater == nil {
		return
	}
	if current == nil {
		current = s.Load(ctx)
	}

	patched := false
	records := make([]entities.RunRecord, 0, len(current))
	for _, record := range current {
		if record.ID == id {
			updater(&record)
			if !entities.SanitizeRunRecord(&record) {
				continue
			}
			patched = true
		}
		records = append(records, record)
	}
	if !patched {
		return
	}
	s.persist(ctx, records)
}

// Clear removes the whole history blob.
func (s *Service) Clear(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Remove(ctx, s.key); err != nil {
		s.warn("history clear failed", err)
	}
}

func (s *Service) persist(ctx context.Context, records []entities.RunRecord) {
	blob, err := json.Marshal(records)
	if err != nil {
		s.warn("history marshal failed", err)
		return
	}
	if err := s.store.Set(ctx, s.key, string(blob)); err != nil {
		s.warn("history write failed", err)
	}
}

func (s *Service) warn(message string, err error) {
	if s.logger == nil {
		return
	}
	if err != nil {
		s.logger.Warn(message, zap.Error(err))
		return
	}
	s.logger.Warn(message)
}
