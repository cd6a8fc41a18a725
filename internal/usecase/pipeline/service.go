package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/internal/usecase/history"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/runcontext"
)

// Transcriber turns raw media into transcript text.
type Transcriber interface {
	Transcribe(ctx context.Context, media []byte, filename, mimeType string) (string, error)
}

// Extractor turns transcript text into action items.
type Extractor interface {
	Extract(ctx context.Context, transcript string) ([]entities.ActionItem, error)
}

// Tracker creates one issue per action item.
type Tracker interface {
	CreateIssue(ctx context.Context, cfg entities.TrackerConfig, item entities.ActionItem) (entities.TrackerSyncResult, error)
}

// ZoomFetcher downloads a Zoom cloud recording.
type ZoomFetcher interface {
	FetchRecording(ctx context.Context, meetingID, accessToken, passcode, preferredType string) (entities.Recording, error)
}

// DriveFetcher downloads a Google Drive file.
type DriveFetcher interface {
	FetchRecording(ctx context.Context, fileID, accessToken string) (entities.Recording, error)
}

// Archiver keeps a best-effort copy of ingested media.
type Archiver interface {
	ArchiveRecording(ctx context.Context, filename, contentType string, data []byte) (string, error)
}

// Timeouts bounds each outbound pipeline stage.
type Timeouts struct {
	Fetch      time.Duration
	Transcribe time.Duration
	Extract    time.Duration
	Sync       time.Duration
}

// Input is one ingestion request. Exactly one concrete input type starts a
// run; the pipeline never mixes sources.
type Input interface {
	sourceKind() entities.SourceKind
}

// LocalUpload is media supplied directly by the caller.
type LocalUpload struct {
	Name string
	Mime string
	Data []byte
}

// ZoomRecording identifies a Zoom cloud recording to fetch.
type ZoomRecording struct {
	MeetingID     string
	AccessToken   string
	Passcode      string
	PreferredType string
}

// DriveRecording identifies a Google Drive file to fetch.
type DriveRecording struct {
	FileID      string
	AccessToken string
}

func (LocalUpload) sourceKind() entities.SourceKind    { return entities.SourceLocalUpload }
func (ZoomRecording) sourceKind() entities.SourceKind  { return entities.SourceZoomRecording }
func (DriveRecording) sourceKind() entities.SourceKind { return entities.SourceGoogleDriveRecording }

// Service drives one run at a time through the ingestion pipeline:
// Idle → Uploading → Transcribing → Extracting → Ready, then optionally
// SyncingTracker → Done. Stages run on a background goroutine; observers
// poll State. Every state mutation is tagged with the generation the run
// started under, so a Reset or a newer Start silently discards results of
// stages that were already in flight.
type Service struct {
	mu             sync.Mutex
	state          entities.RunState
	generation     uint64
	runID          string
	sourceKind     entities.SourceKind
	metadata       map[string]string
	activeRecordID string

	transcriber Transcriber
	extractor   Extractor
	tracker     Tracker
	zoom        ZoomFetcher
	drive       DriveFetcher
	archiver    Archiver
	history     *history.Service
	timeouts    Timeouts
	logger      *zap.Logger
}

// Dependencies bundles the service's collaborators. Archiver may be nil.
type Dependencies struct {
	Transcriber Transcriber
	Extractor   Extractor
	Tracker     Tracker
	Zoom        ZoomFetcher
	Drive       DriveFetcher
	Archiver    Archiver
	History     *history.Service
	Timeouts    Timeouts
}

// NewService creates the pipeline orchestrator in the pristine Idle state.
func NewService(deps Dependencies, logger *zap.Logger) *Service {
	return &Service{
		state:       entities.NewRunState(),
		transcriber: deps.Transcriber,
		extractor:   deps.Extractor,
		tracker:     deps.Tracker,
		zoom:        deps.Zoom,
		drive:       deps.Drive,
		archiver:    deps.Archiver,
		history:     deps.History,
		timeouts:    deps.Timeouts,
		logger:      logger,
	}
}

// Start discards any previous run and begins ingesting the given input on a
// background goroutine. It returns once the run is accepted; progress is
// observable through State.
func (s *Service) Start(ctx context.Context, input Input) error {
	if err := validateInput(input); err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.runID = uuid.NewString()
	runID := s.runID
	s.sourceKind = input.sourceKind()
	s.metadata = make(map[string]string)
	s.activeRecordID = ""
	s.state = entities.NewRunState()
	s.state.Phase = entities.PhaseUploading
	s.state.Progress = entities.Progress{Stage: "uploading", Percent: 5}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("run started",
			zap.String("run_id", runID),
			zap.String("source", string(input.sourceKind())))
	}

	go s.run(context.WithoutCancel(ctx), gen, runID, input)
	return nil
}

func validateInput(input Input) error {
	switch v := input.(type) {
	case LocalUpload:
		if len(v.Data) == 0 {
			return errors.ErrValidation("uploaded file is empty")
		}
		return nil
	case ZoomRecording:
		if strings.TrimSpace(v.MeetingID) == "" {
			return errors.ErrValidation("meeting id is required")
		}
		return nil
	case DriveRecording:
		if strings.TrimSpace(v.FileID) == "" {
			return errors.ErrValidation("file id is required")
		}
		return nil
	default:
		return errors.ErrValidation("unsupported ingestion input")
	}
}

// run executes the ingestion stages for one generation. Every mutation goes
// through the generation-guarded helpers, so a superseded run finishes its
// in-flight stage and then disappears without a trace.
func (s *Service) run(ctx context.Context, gen uint64, runID string, input Input) {
	recording, err := s.ingest(ctx, gen, runID, input)
	if err != nil {
		s.fail(gen, err)
		return
	}

	if !s.advance(gen, entities.PhaseTranscribing, "transcribing", 35) {
		return
	}
	stageCtx, cancel := runcontext.StageBegin(ctx, runID, gen, "transcribe", s.timeouts.Transcribe)
	transcript, err := s.transcriber.Transcribe(stageCtx, recording.Data, recording.Filename, recording.Mime)
	cancel()
	if err != nil {
		s.fail(gen, err)
		return
	}
	if !s.setTranscript(gen, transcript) {
		return
	}

	if !s.advance(gen, entities.PhaseExtracting, "extracting", 70) {
		return
	}
	stageCtx, cancel = runcontext.StageBegin(ctx, runID, gen, "extract", s.timeouts.Extract)
	tasks, err := s.extractor.Extract(stageCtx, transcript)
	cancel()
	if err != nil {
		s.fail(gen, err)
		return
	}

	s.finishIngestion(ctx, gen, transcript, tasks)
}

// ingest resolves the input into raw media, fetching from the provider when
// needed, and archives a best-effort copy.
func (s *Service) ingest(ctx context.Context, gen uint64, runID string, input Input) (entities.Recording, error) {
	var recording entities.Recording

	switch v := input.(type) {
	case LocalUpload:
		name := strings.TrimSpace(v.Name)
		if name == "" {
			name = "upload"
		}
		recording = entities.Recording{
			Filename: name,
			Mime:     entities.InferRecordingMime(v.Mime, name),
			Data:     v.Data,
		}
		s.setMetadata(gen, "filename", name)
	case ZoomRecording:
		stageCtx, cancel := runcontext.StageBegin(ctx, runID, gen, "fetch_zoom", s.timeouts.Fetch)
		fetched, err := s.zoom.FetchRecording(stageCtx, v.MeetingID, v.AccessToken, v.Passcode, v.PreferredType)
		cancel()
		if err != nil {
			return recording, err
		}
		recording = fetched
		s.setMetadata(gen, "meeting_id", v.MeetingID)
		s.setMetadata(gen, "filename", fetched.Filename)
	case DriveRecording:
		stageCtx, cancel := runcontext.StageBegin(ctx, runID, gen, "fetch_drive", s.timeouts.Fetch)
		fetched, err := s.drive.FetchRecording(stageCtx, v.FileID, v.AccessToken)
		cancel()
		if err != nil {
			return recording, err
		}
		recording = fetched
		s.setMetadata(gen, "file_id", v.FileID)
		s.setMetadata(gen, "filename", fetched.Filename)
	}

	s.archive(ctx, gen, runID, recording)
	return recording, nil
}

// archive stores a copy of the ingested media. Failures are logged and
// swallowed; archival never blocks a run.
func (s *Service) archive(ctx context.Context, gen uint64, runID string, recording entities.Recording) {
	if s.archiver == nil {
		return
	}
	object, err := s.archiver.ArchiveRecording(ctx, recording.Filename, recording.Mime, recording.Data)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("recording archive failed", zap.String("run_id", runID), zap.Error(err))
		}
		return
	}
	s.setMetadata(gen, "archive_object", object)
}

// finishIngestion records the extraction outcome and moves the run to Ready.
func (s *Service) finishIngestion(ctx context.Context, gen uint64, transcript string, tasks []entities.ActionItem) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.state.Tasks = append([]entities.ActionItem{}, tasks...)
	s.state.Phase = entities.PhaseReady
	s.state.Progress = entities.Progress{Stage: "ready", Percent: 100}
	kind := s.sourceKind
	metadata := cloneMetadata(s.metadata)
	s.mu.Unlock()

	if record := s.history.Create(ctx, kind, transcript, tasks, metadata); record != nil {
		s.mu.Lock()
		if gen == s.generation {
			s.activeRecordID = record.ID
		}
		s.mu.Unlock()
	}
	if s.logger != nil {
		s.logger.Info("run ready", zap.Int("tasks", len(tasks)))
	}
}

// SubmitSync pushes the current run's action items to the issue tracker,
// one at a time. It is valid only in Ready. Task failures are isolated into
// failed results; the run still ends in Done, with ErrorMessage summarizing
// any failures.
func (s *Service) SubmitSync(ctx context.Context, cfg entities.TrackerConfig) ([]entities.TrackerSyncResult, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.state.Phase != entities.PhaseReady {
		current := s.state.Phase
		s.mu.Unlock()
		return nil, errors.ErrInvalidRunState(string(current), string(entities.PhaseReady))
	}
	if len(s.state.Tasks) == 0 {
		message := "no action items to sync"
		s.state.Phase = entities.PhaseFailed
		s.state.ErrorMessage = &message
		s.state.Progress = entities.Progress{Stage: "failed", Percent: 100}
		s.mu.Unlock()
		return nil, errors.ErrValidation(message)
	}
	gen := s.generation
	runID := s.runID
	recordID := s.activeRecordID
	tasks := append([]entities.ActionItem{}, s.state.Tasks...)
	s.state.Phase = entities.PhaseSyncingTracker
	s.state.SyncResults = []entities.TrackerSyncResult{}
	s.state.Progress = entities.Progress{Stage: "syncing_tracker", Percent: 0}
	s.mu.Unlock()

	results := make([]entities.TrackerSyncResult, 0, len(tasks))
	for i, task := range tasks {
		stageCtx, cancel := runcontext.StageBegin(ctx, runID, gen, "sync_tracker", s.timeouts.Sync)
		result, err := s.tracker.CreateIssue(stageCtx, cfg, task)
		cancel()
		if err != nil {
			result = entities.TrackerSyncResult{Summary: task.Summary, Error: err.Error()}
		}
		results = append(results, result)

		percent := (i + 1) * 100 / len(tasks)
		if !s.recordSyncProgress(gen, results, percent) {
			// A reset or a new run took over; the tracker issues created so
			// far stand, but this run no longer owns the state.
			return results, nil
		}
	}

	failed := 0
	for _, result := range results {
		if !result.Success {
			failed++
		}
	}

	if recordID != "" && len(results) > 0 {
		s.history.Patch(ctx, recordID, func(r *entities.RunRecord) {
			r.SyncResults = append([]entities.TrackerSyncResult{}, results...)
		}, nil)
	}

	s.mu.Lock()
	if gen == s.generation {
		s.state.Phase = entities.PhaseDone
		s.state.Progress = entities.Progress{Stage: "done", Percent: 100}
		if failed > 0 {
			message := fmt.Sprintf("%d of %d tasks failed to sync", failed, len(results))
			s.state.ErrorMessage = &message
		}
	}
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("tracker sync finished",
			zap.Int("tasks", len(results)),
			zap.Int("failed", failed))
	}
	return results, nil
}

func (s *Service) recordSyncProgress(gen uint64, results []entities.TrackerSyncResult, percent int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.state.SyncResults = append([]entities.TrackerSyncResult{}, results...)
	s.state.Progress = entities.Progress{Stage: "syncing_tracker", Percent: percent}
	return true
}

// Reset abandons the current run and returns to the pristine Idle state.
// Persisted history is untouched.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.runID = ""
	s.sourceKind = ""
	s.metadata = nil
	s.activeRecordID = ""
	s.state = entities.NewRunState()
}

// State returns a copy of the observable run state.
func (s *Service) State() entities.RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.state
	state.Tasks = append([]entities.ActionItem{}, s.state.Tasks...)
	state.SyncResults = append([]entities.TrackerSyncResult{}, s.state.SyncResults...)
	if s.state.Transcript != nil {
		transcript := *s.state.Transcript
		state.Transcript = &transcript
	}
	if s.state.ErrorMessage != nil {
		message := *s.state.ErrorMessage
		state.ErrorMessage = &message
	}
	return state
}

// History returns the persisted run records, newest first.
func (s *Service) History(ctx context.Context) []entities.RunRecord {
	return s.history.Load(ctx)
}

// ClearHistory removes all persisted run records.
func (s *Service) ClearHistory(ctx context.Context) {
	s.history.Clear(ctx)
}

func (s *Service) advance(gen uint64, phase entities.Phase, stage string, percent int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.state.Phase = phase
	s.state.Progress = entities.Progress{Stage: stage, Percent: percent}
	return true
}

func (s *Service) setTranscript(gen uint64, transcript string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.state.Transcript = &transcript
	return true
}

func (s *Service) setMetadata(gen uint64, key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation || s.metadata == nil {
		return
	}
	s.metadata[key] = value
}

// fail moves the run to Failed, keeping whatever partial results earlier
// stages produced.
func (s *Service) fail(gen uint64, err error) {
	message := err.Error()
	var appErr errors.AppError
	if errors.AsAppError(err, &appErr) {
		message = appErr.Message
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.state.Phase = entities.PhaseFailed
	s.state.ErrorMessage = &message
	s.state.Progress = entities.Progress{Stage: "failed", Percent: 100}
	if s.logger != nil {
		s.logger.Warn("run failed", zap.String("run_id", s.runID), zap.Error(err))
	}
}

func cloneMetadata(metadata map[string]string) map[string]string {
	if len(metadata) == 0 {
		return nil
	}
	clone := make(map[string]string, len(metadata))
	for k, v := range metadata {
		clone[k] = v
	}
	return clone
}
