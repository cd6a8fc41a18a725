package entities

// Phase is the orchestrator's position in the ingestion pipeline.
type Phase string

const (
	PhaseIdle           Phase = "idle"
	PhaseUploading      Phase = "uploading"
	PhaseTranscribing   Phase = "transcribing"
	PhaseExtracting     Phase = "extracting"
	PhaseReady          Phase = "ready"
	PhaseSyncingTracker Phase = "syncing_tracker"
	PhaseDone           Phase = "done"
	PhaseFailed         Phase = "failed"
)

// Terminal reports whether the phase ends a run.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// Progress is advisory stage information for observers. It never influences
// transition logic.
type Progress struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
}

// RunState is the observable state of one pipeline run.
type RunState struct {
	Phase        Phase               `json:"phase"`
	Transcript   *string             `json:"transcript,omitempty"`
	Tasks        []ActionItem        `json:"tasks"`
	SyncResults  []TrackerSyncResult `json:"sync_results"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	Progress     Progress            `json:"progress"`
}

// NewRunState returns the pristine initial state.
func NewRunState() RunState {
	return RunState{
		Phase:       PhaseIdle,
		Tasks:       []ActionItem{},
		SyncResults: []TrackerSyncResult{},
	}
}
