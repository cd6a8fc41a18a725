package history

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/internal/infrastructure/storage"
)

const testKey = "history.test"

func newTestService() (*Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewService(store, testKey, nil), store
}

func task(summary string) entities.ActionItem {
	return entities.ActionItem{Summary: summary, Confidence: 0.5}
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	record := svc.Create(ctx, entities.SourceLocalUpload, "we agreed on three things", []entities.ActionItem{task("Do the thing")}, map[string]string{"filename": "call.mp3"})
	if record == nil {
		t.Fatalf("expected record to be created")
	}

	loaded := svc.Load(ctx)
	if len(loaded) != 1 {
		t.Fatalf("expected 1 record, got %d", len(loaded))
	}
	if loaded[0].ID != record.ID {
		t.Errorf("expected id %s, got %s", record.ID, loaded[0].ID)
	}
	if loaded[0].Metadata["filename"] != "call.mp3" {
		t.Errorf("metadata lost: %+v", loaded[0].Metadata)
	}
}

func TestCreateSkipsTasklessRuns(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if record := svc.Create(ctx, entities.SourceLocalUpload, "nothing actionable", nil, nil); record != nil {
		t.Fatalf("task-less run must not create a record")
	}
	if record := svc.Create(ctx, entities.SourceLocalUpload, "blank tasks", []entities.ActionItem{task("   ")}, nil); record != nil {
		t.Fatalf("run with only blank tasks must not create a record")
	}
	if loaded := svc.Load(ctx); len(loaded) != 0 {
		t.Fatalf("expected empty history, got %d records", len(loaded))
	}
}

func TestUpsertReplacesSameSource(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	first := svc.Create(ctx, entities.SourceZoomRecording, "same transcript", []entities.ActionItem{task("One")}, nil)
	svc.Create(ctx, entities.SourceLocalUpload, "other transcript", []entities.ActionItem{task("Two")}, nil)
	second := svc.Create(ctx, entities.SourceZoomRecording, "same transcript", []entities.ActionItem{task("One updated")}, nil)

	loaded := svc.Load(ctx)
	if len(loaded) != 2 {
		t.Fatalf("expected replacement not duplication, got %d records", len(loaded))
	}
	if loaded[0].ID != second.ID {
		t.Errorf("replacement must move to newest position")
	}
	for _, record := range loaded {
		if record.ID == first.ID {
			t.Errorf("replaced record still present")
		}
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	var ids []string
	for i := 0; i < entities.HistoryLimit+3; i++ {
		record := svc.Create(ctx, entities.SourceLocalUpload, fmt.Sprintf("transcript %d", i), []entities.ActionItem{task("T")}, nil)
		ids = append(ids, record.ID)
	}

	loaded := svc.Load(ctx)
	if len(loaded) != entities.HistoryLimit {
		t.Fatalf("expected %d records, got %d", entities.HistoryLimit, len(loaded))
	}
	if loaded[0].ID != ids[len(ids)-1] {
		t.Errorf("newest record must come first")
	}
	for _, record := range loaded {
		for _, evicted := range ids[:3] {
			if record.ID == evicted {
				t.Errorf("oldest records must be evicted")
			}
		}
	}
}

func TestPatchUpdatesSyncResults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	record := svc.Create(ctx, entities.SourceLocalUpload, "transcript", []entities.ActionItem{task("Ship it")}, nil)
	svc.Patch(ctx, record.ID, func(r *entities.RunRecord) {
		r.SyncResults = []entities.TrackerSyncResult{{Summary: "Ship it", Success: true, IssueKey: "MEET-7"}}
	}, nil)

	loaded := svc.Load(ctx)
	if len(loaded) != 1 || len(loaded[0].SyncResults) != 1 {
		t.Fatalf("expected patched sync results, got %+v", loaded)
	}
	if loaded[0].SyncResults[0].IssueKey != "MEET-7" {
		t.Errorf("unexpected sync result %+v", loaded[0].SyncResults[0])
	}
}

func TestLoadToleratesCorruptBlob(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	store.Set(ctx, testKey, "{not json")
	if loaded := svc.Load(ctx); loaded != nil {
		t.Fatalf("corrupt blob must read as empty, got %+v", loaded)
	}
}

func TestLoadDropsUnusableRecords(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	blob, _ := json.Marshal([]entities.RunRecord{
		{Transcript: "no tasks"},
		{Transcript: "good", Tasks: []entities.ActionItem{task("Keep me")}, SourceKind: "weird_source"},
	})
	store.Set(ctx, testKey, string(blob))

	loaded := svc.Load(ctx)
	if len(loaded) != 1 {
		t.Fatalf("expected the single usable record, got %d", len(loaded))
	}
	if loaded[0].SourceKind != entities.SourceLocalUpload {
		t.Errorf("unknown source kind must fall back, got %q", loaded[0].SourceKind)
	}
	if loaded[0].ID == "" {
		t.Errorf("missing id must be repaired")
	}
}

func TestNilStoreDegradesToNoOp(t *testing.T) {
	svc := NewService(nil, testKey, nil)
	ctx := context.Background()

	if record := svc.Create(ctx, entities.SourceLocalUpload, "t", []entities.ActionItem{task("T")}, nil); record == nil {
		t.Fatalf("record must still be built for in-memory use")
	}
	if loaded := svc.Load(ctx); loaded != nil {
		t.Fatalf("nil store must read as empty")
	}
	svc.Clear(ctx)
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (string, bool, error) {
	return "", false, stderrors.New("backend down")
}
func (failingStore) Set(context.Context, string, string) error { return stderrors.New("backend down") }
func (failingStore) Remove(context.Context, string) error      { return stderrors.New("backend down") }

func TestFailingStoreDegradesToNoOp(t *testing.T) {
	svc := NewService(failingStore{}, testKey, nil)
	ctx := context.Background()

	if record := svc.Create(ctx, entities.SourceLocalUpload, "t", []entities.ActionItem{task("T")}, nil); record == nil {
		t.Fatalf("record must still be built when writes fail")
	}
	if loaded := svc.Load(ctx); loaded != nil {
		t.Fatalf("failing store must read as empty")
	}
}
