package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SourceKind identifies where a run's recording came from.
type SourceKind string

const (
	SourceLocalUpload          SourceKind = "local_upload"
	SourceZoomRecording        SourceKind = "zoom_recording"
	SourceGoogleDriveRecording SourceKind = "google_drive_recording"
)

// TranscriptPreviewLimit caps the derived preview length in runes.
const TranscriptPreviewLimit = 280

// HistoryLimit is the maximum number of retained run records.
const HistoryLimit = 10

// RunRecord is one persisted history entry for a completed run.
type RunRecord struct {
	ID                string              `json:"id"`
	SourceKind        SourceKind          `json:"source_kind"`
	CreatedAt         time.Time           `json:"created_at"`
	Transcript        string              `json:"transcript"`
	TranscriptPreview string              `json:"transcript_preview"`
	Tasks             []ActionItem        `json:"tasks"`
	Metadata          map[string]string   `json:"metadata,omitempty"`
	SyncResults       []TrackerSyncResult `json:"sync_results,omitempty"`
}

// NewRunRecord builds a record from a completed run. Returns nil when tasks
// is empty: task-less runs are never persisted.
func NewRunRecord(kind SourceKind, transcript string, tasks []ActionItem, metadata map[string]string) *RunRecord {
	if len(tasks) == 0 {
		return nil
	}
	record := &RunRecord{
		ID:                uuid.NewString(),
		SourceKind:        kind,
		CreatedAt:         time.Now().UTC(),
		Transcript:        transcript,
		TranscriptPreview: DeriveTranscriptPreview(transcript),
		Tasks:             make([]ActionItem, 0, len(tasks)),
		Metadata:          compactMetadata(metadata),
	}
	for _, task := range tasks {
		item := task
		if SanitizeActionItem(&item) {
			record.Tasks = append(record.Tasks, item)
		}
	}
	if len(record.Tasks) == 0 {
		return nil
	}
	return record
}

// DeriveTranscriptPreview caps the transcript at the preview limit, marking
// truncation with an ellipsis.
func DeriveTranscriptPreview(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= TranscriptPreviewLimit {
		return transcript
	}
	return string(runes[:TranscriptPreviewLimit]) + "…"
}

// SanitizeRunRecord repairs a record loaded from storage so malformed
// persisted data never crashes the caller. Returns false when the record is
// unusable (no tasks survive sanitation).
func SanitizeRunRecord(record *RunRecord) bool {
	if record == nil {
		return false
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	switch record.SourceKind {
	case SourceLocalUpload, SourceZoomRecording, SourceGoogleDriveRecording:
	default:
		record.SourceKind = SourceLocalUpload
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.TranscriptPreview = DeriveTranscriptPreview(record.Transcript)
	sanitized := make([]ActionItem, 0, len(record.Tasks))
	for _, task := range record.Tasks {
		item := task
		if SanitizeActionItem(&item) {
			sanitized = append(sanitized, item)
		}
	}
	record.Tasks = sanitized
	record.Metadata = compactMetadata(record.Metadata)
	record.SyncResults = sanitizeSyncResults(record.SyncResults)
	return len(record.Tasks) > 0
}

// SameSource reports whether two records describe the same ingestion, the
// upsert identity used by the history store.
func (r *RunRecord) SameSource(other *RunRecord) bool {
	return r != nil && other != nil &&
		r.SourceKind == other.SourceKind &&
		r.Transcript == other.Transcript
}

func compactMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	compact := make(map[string]string, len(metadata))
	for key, value := range metadata {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		compact[key] = value
	}
	if len(compact) == 0 {
		return nil
	}
	return compact
}

func sanitizeSyncResults(results []TrackerSyncResult) []TrackerSyncResult {
	if len(results) == 0 {
		return nil
	}
	sanitized := make([]TrackerSyncResult, 0, len(results))
	for _, result := range results {
		result.Summary = strings.TrimSpace(result.Summary)
		if result.Summary == "" {
			continue
		}
		if !result.Success && result.Error == "" {
			result.Error = "unknown tracker failure"
		}
		sanitized = append(sanitized, result)
	}
	if len(sanitized) == 0 {
		return nil
	}
	return sanitized
}
