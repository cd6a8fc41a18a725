package run

import (
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
)

// StateResponse is the observable run state returned by the state endpoint.
type StateResponse struct {
	Phase        string                       `json:"phase"`
	Transcript   *string                      `json:"transcript,omitempty"`
	Tasks        []entities.ActionItem        `json:"tasks"`
	SyncResults  []entities.TrackerSyncResult `json:"sync_results"`
	ErrorMessage *string                      `json:"error_message,omitempty"`
	Progress     entities.Progress            `json:"progress"`
}

// StateFromEntity converts the domain run state to its response shape.
func StateFromEntity(state entities.RunState) StateResponse {
	return StateResponse{
		Phase:        string(state.Phase),
		Transcript:   state.Transcript,
		Tasks:        state.Tasks,
		SyncResults:  state.SyncResults,
		ErrorMessage: state.ErrorMessage,
		Progress:     state.Progress,
	}
}

// StartedResponse acknowledges an accepted ingestion request.
type StartedResponse struct {
	Phase string `json:"phase"`
}

// SyncResponse carries the per-task outcomes of a tracker sync.
type SyncResponse struct {
	Results []entities.TrackerSyncResult `json:"results"`
	Failed  int                          `json:"failed"`
}

// HistoryResponse wraps the persisted run records.
type HistoryResponse struct {
	Records []entities.RunRecord `json:"records"`
	Count   int                  `json:"count"`
}

// ArchiveResponse lists the archived recording object names.
type ArchiveResponse struct {
	Objects []string `json:"objects"`
	Count   int      `json:"count"`
}
