package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/storage"
	"github.com/meeting-secretary-team/meeting-secretary/internal/usecase/history"
)

type fakeTranscriber struct {
	text  string
	err   error
	mu    sync.Mutex
	gate  chan struct{}
	calls int32
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, media []byte, filename, mimeType string) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.text, f.err
}

// setGate swaps the blocking gate and returns the previous one. Tests use
// it to stall one run while a concurrent Start or Reset races past it.
func (f *fakeTranscriber) setGate(gate chan struct{}) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	prev := f.gate
	f.gate = gate
	return prev
}

type fakeExtractor struct {
	tasks []entities.ActionItem
	err   error
}

func (f *fakeExtractor) Extract(ctx context.Context, transcript string) ([]entities.ActionItem, error) {
	return f.tasks, f.err
}

type fakeTracker struct {
	calls   int32
	failFor map[string]string
}

func (f *fakeTracker) CreateIssue(ctx context.Context, cfg entities.TrackerConfig, item entities.ActionItem) (entities.TrackerSyncResult, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if message, ok := f.failFor[item.Summary]; ok {
		return entities.TrackerSyncResult{Summary: item.Summary, Error: message}, nil
	}
	key := "MEET-" + strings.Repeat("I", int(n))
	return entities.TrackerSyncResult{Summary: item.Summary, Success: true, IssueKey: key}, nil
}

type fakeZoom struct {
	recording entities.Recording
	err       error
	calls     int32
}

func (f *fakeZoom) FetchRecording(ctx context.Context, meetingID, accessToken, passcode, preferredType string) (entities.Recording, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.recording, f.err
}

type fakeDrive struct {
	recording entities.Recording
	err       error
}

func (f *fakeDrive) FetchRecording(ctx context.Context, fileID, accessToken string) (entities.Recording, error) {
	return f.recording, f.err
}

type fakeArchiver struct {
	object string
	err    error
	calls  int32
}

func (f *fakeArchiver) ArchiveRecording(ctx context.Context, filename, contentType string, data []byte) (string, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.object, f.err
}

type fixture struct {
	svc         *Service
	transcriber *fakeTranscriber
	extractor   *fakeExtractor
	tracker     *fakeTracker
	zoom        *fakeZoom
	drive       *fakeDrive
	history     *history.Service
}

func newFixture() *fixture {
	f := &fixture{
		transcriber: &fakeTranscriber{text: "we decided to ship on friday"},
		extractor:   &fakeExtractor{tasks: []entities.ActionItem{{Summary: "Ship on Friday", Confidence: 0.8}}},
		tracker:     &fakeTracker{},
		zoom:        &fakeZoom{recording: entities.Recording{Filename: "zoom.m4a", Mime: "audio/mp4", Data: []byte("z")}},
		drive:       &fakeDrive{recording: entities.Recording{Filename: "drive.mp3", Mime: "audio/mpeg", Data: []byte("d")}},
		history:     history.NewService(storage.NewMemoryStore(), "history.test", nil),
	}
	f.svc = NewService(Dependencies{
		Transcriber: f.transcriber,
		Extractor:   f.extractor,
		Tracker:     f.tracker,
		Zoom:        f.zoom,
		Drive:       f.drive,
		History:     f.history,
	}, nil)
	return f
}

func waitForPhase(t *testing.T, svc *Service, want entities.Phase) entities.RunState {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := svc.State()
		if state.Phase == want {
			return state
		}
		if state.Phase == entities.PhaseFailed && want != entities.PhaseFailed {
			message := "(no message)"
			if state.ErrorMessage != nil {
				message = *state.ErrorMessage
			}
			t.Fatalf("run failed: %s", message)
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for phase %s, at %s", want, svc.State().Phase)
	return entities.RunState{}
}

func TestLocalUploadReachesReady(t *testing.T) {
	f := newFixture()
	if err := f.svc.Start(context.Background(), LocalUpload{Name: "standup.mp3", Data: []byte("media")}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	state := waitForPhase(t, f.svc, entities.PhaseReady)
	if state.Transcript == nil || *state.Transcript != "we decided to ship on friday" {
		t.Errorf("transcript not recorded: %+v", state.Transcript)
	}
	if len(state.Tasks) != 1 || state.Tasks[0].Summary != "Ship on Friday" {
		t.Errorf("tasks not recorded: %+v", state.Tasks)
	}
	if state.ErrorMessage != nil {
		t.Errorf("unexpected error message %q", *state.ErrorMessage)
	}

	records := f.svc.History(context.Background())
	if len(records) != 1 {
		t.Fatalf("expected 1 history record, got %d", len(records))
	}
	if records[0].SourceKind != entities.SourceLocalUpload {
		t.Errorf("unexpected source kind %q", records[0].SourceKind)
	}
	if records[0].Metadata["filename"] != "standup.mp3" {
		t.Errorf("filename metadata missing: %+v", records[0].Metadata)
	}
}

func TestZoomInputFetchesBeforeTranscribing(t *testing.T) {
	f := newFixture()
	if err := f.svc.Start(context.Background(), ZoomRecording{MeetingID: "987", AccessToken: "tok"}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	waitForPhase(t, f.svc, entities.PhaseReady)
	if atomic.LoadInt32(&f.zoom.calls) != 1 {
		t.Errorf("expected one zoom fetch, got %d", f.zoom.calls)
	}

	records := f.svc.History(context.Background())
	if len(records) != 1 || records[0].SourceKind != entities.SourceZoomRecording {
		t.Fatalf("expected zoom history record, got %+v", records)
	}
	if records[0].Metadata["meeting_id"] != "987" {
		t.Errorf("meeting id metadata missing: %+v", records[0].Metadata)
	}
}

func TestStartRejectsEmptyUpload(t *testing.T) {
	f := newFixture()
	err := f.svc.Start(context.Background(), LocalUpload{Name: "empty.mp3"})
	if errors.CodeOf(err) != errors.ErrorCode_INVALID_ARGUMENT {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f.svc.State().Phase != entities.PhaseIdle {
		t.Errorf("rejected start must not leave Idle")
	}
}

func TestTranscriptionFailureKeepsPartials(t *testing.T) {
	f := newFixture()
	f.transcriber.err = errors.ErrEmptyResult("transcription service")
	f.transcriber.text = ""

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	state := waitForPhase(t, f.svc, entities.PhaseFailed)
	if state.ErrorMessage == nil || *state.ErrorMessage == "" {
		t.Fatalf("failed run must carry an error message")
	}
	if len(f.svc.History(context.Background())) != 0 {
		t.Errorf("failed run must not be persisted")
	}
}

func TestExtractionFailureRetainsTranscript(t *testing.T) {
	f := newFixture()
	f.extractor.err = stderrors.New("extractor exploded")
	f.extractor.tasks = nil

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	state := waitForPhase(t, f.svc, entities.PhaseFailed)
	if state.Transcript == nil {
		t.Fatalf("transcript partial must survive extraction failure")
	}
	if state.ErrorMessage == nil {
		t.Fatalf("failed run must carry an error message")
	}
}

func TestSubmitSyncRequiresReady(t *testing.T) {
	f := newFixture()
	_, err := f.svc.SubmitSync(context.Background(), readyTrackerConfig())
	if errors.CodeOf(err) != errors.ErrorCode_INVALID_RUN_STATE {
		t.Fatalf("expected invalid-run-state error, got %v", err)
	}
}

func TestSubmitSyncEmptyTasksFailsWithoutTrackerCalls(t *testing.T) {
	f := newFixture()
	f.extractor.tasks = []entities.ActionItem{}

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	waitForPhase(t, f.svc, entities.PhaseReady)

	_, err := f.svc.SubmitSync(context.Background(), readyTrackerConfig())
	if errors.CodeOf(err) != errors.ErrorCode_INVALID_ARGUMENT {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(&f.tracker.calls) != 0 {
		t.Errorf("tracker must not be called for an empty task list")
	}
	state := f.svc.State()
	if state.Phase != entities.PhaseFailed || state.ErrorMessage == nil {
		t.Errorf("expected Failed with message, got %+v", state)
	}
}

func TestSubmitSyncIsolatesTaskFailures(t *testing.T) {
	f := newFixture()
	f.extractor.tasks = []entities.ActionItem{
		{Summary: "First", Confidence: 0.9},
		{Summary: "Second", Confidence: 0.9},
		{Summary: "Third", Confidence: 0.9},
	}
	f.tracker.failFor = map[string]string{"Second": "project does not exist"}

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	waitForPhase(t, f.svc, entities.PhaseReady)

	results, err := f.svc.SubmitSync(context.Background(), readyTrackerConfig())
	if err != nil {
		t.Fatalf("SubmitSync returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Errorf("expected only the second task to fail: %+v", results)
	}
	if results[1].Error != "project does not exist" {
		t.Errorf("failure message lost: %+v", results[1])
	}

	state := f.svc.State()
	if state.Phase != entities.PhaseDone {
		t.Errorf("partial failure must still end in Done, got %s", state.Phase)
	}
	if state.ErrorMessage == nil || !strings.Contains(*state.ErrorMessage, "1 of 3") {
		t.Errorf("expected failure summary, got %+v", state.ErrorMessage)
	}

	records := f.svc.History(context.Background())
	if len(records) != 1 || len(records[0].SyncResults) != 3 {
		t.Fatalf("sync results not patched into history: %+v", records)
	}
}

func TestResetReturnsToPristineState(t *testing.T) {
	f := newFixture()
	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	waitForPhase(t, f.svc, entities.PhaseReady)

	f.svc.Reset()
	state := f.svc.State()
	if state.Phase != entities.PhaseIdle || state.Transcript != nil || len(state.Tasks) != 0 {
		t.Errorf("expected pristine state, got %+v", state)
	}
	if len(f.svc.History(context.Background())) != 1 {
		t.Errorf("reset must not touch persisted history")
	}
}

func TestResetDiscardsInFlightRun(t *testing.T) {
	f := newFixture()
	gate := make(chan struct{})
	f.transcriber.setGate(gate)

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	waitForPhase(t, f.svc, entities.PhaseTranscribing)

	f.svc.Reset()
	close(gate)

	// Give the stale goroutine a chance to (incorrectly) mutate state.
	time.Sleep(20 * time.Millisecond)
	state := f.svc.State()
	if state.Phase != entities.PhaseIdle {
		t.Errorf("stale run mutated state after reset: %+v", state)
	}
	if state.Transcript != nil {
		t.Errorf("stale transcript leaked through: %q", *state.Transcript)
	}
	if len(f.svc.History(context.Background())) != 0 {
		t.Errorf("stale run must not persist a record")
	}
}

func TestNewStartSupersedesRunningOne(t *testing.T) {
	f := newFixture()
	f.transcriber.setGate(make(chan struct{}))

	f.svc.Start(context.Background(), LocalUpload{Name: "first.mp3", Data: []byte("1")})
	waitForPhase(t, f.svc, entities.PhaseTranscribing)

	gate := f.transcriber.setGate(nil)
	f.svc.Start(context.Background(), LocalUpload{Name: "second.mp3", Data: []byte("2")})
	close(gate)

	state := waitForPhase(t, f.svc, entities.PhaseReady)
	if state.Transcript == nil {
		t.Fatalf("second run must complete")
	}
	records := f.svc.History(context.Background())
	if len(records) != 1 {
		t.Fatalf("only the second run may persist, got %d records", len(records))
	}
	if records[0].Metadata["filename"] != "second.mp3" {
		t.Errorf("unexpected surviving record: %+v", records[0].Metadata)
	}
}

func TestArchiveFailureDoesNotFailRun(t *testing.T) {
	f := newFixture()
	archiver := &fakeArchiver{err: stderrors.New("bucket gone")}
	f.svc.archiver = archiver

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	waitForPhase(t, f.svc, entities.PhaseReady)
	if atomic.LoadInt32(&archiver.calls) != 1 {
		t.Errorf("archiver must be attempted once, got %d", archiver.calls)
	}
}

func TestArchiveObjectRecordedInMetadata(t *testing.T) {
	f := newFixture()
	f.svc.archiver = &fakeArchiver{object: "recordings/123-a.mp3"}

	f.svc.Start(context.Background(), LocalUpload{Name: "a.mp3", Data: []byte("m")})
	waitForPhase(t, f.svc, entities.PhaseReady)

	records := f.svc.History(context.Background())
	if len(records) != 1 || records[0].Metadata["archive_object"] != "recordings/123-a.mp3" {
		t.Fatalf("archive object missing from metadata: %+v", records)
	}
}

func readyTrackerConfig() entities.TrackerConfig {
	cfg := entities.NewTrackerConfig()
	cfg.BaseURL = "https://tracker.example.com"
	cfg.Identity = "bot"
	cfg.Secret = "token"
	cfg.ProjectKey = "MEET"
	return cfg
}
