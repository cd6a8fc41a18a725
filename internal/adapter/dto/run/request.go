package run

import (
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
)

// ZoomFetchRequest starts a run from a Zoom cloud recording.
type ZoomFetchRequest struct {
	MeetingID     string `json:"meeting_id" validate:"required"`
	AccessToken   string `json:"access_token" validate:"required"`
	Passcode      string `json:"passcode,omitempty"`
	PreferredType string `json:"preferred_type,omitempty"`
}

// DriveFetchRequest starts a run from a Google Drive file.
type DriveFetchRequest struct {
	FileID      string `json:"file_id" validate:"required"`
	AccessToken string `json:"access_token" validate:"required"`
}

// SyncRequest submits the current run's action items to an issue tracker.
// The toggle fields are pointers so an absent toggle keeps its default
// (enabled) instead of reading as false.
type SyncRequest struct {
	BaseURL         string   `json:"base_url" validate:"required"`
	Identity        string   `json:"identity" validate:"required"`
	Secret          string   `json:"secret" validate:"required"`
	ProjectKey      string   `json:"project_key" validate:"required,project_key"`
	IssueType       string   `json:"issue_type,omitempty"`
	Description     string   `json:"description,omitempty"`
	DefaultAssignee string   `json:"default_assignee,omitempty"`
	DefaultPriority string   `json:"default_priority,omitempty"`
	DefaultLabels   []string `json:"default_labels,omitempty"`
	SyncAssignee    *bool    `json:"sync_assignee,omitempty"`
	SyncDueDate     *bool    `json:"sync_due_date,omitempty"`
	SyncPriority    *bool    `json:"sync_priority,omitempty"`
	SyncLabels      *bool    `json:"sync_labels,omitempty"`
}

// ToTrackerConfig converts the request into a domain tracker config.
func (r *SyncRequest) ToTrackerConfig() entities.TrackerConfig {
	cfg := entities.NewTrackerConfig()
	cfg.BaseURL = r.BaseURL
	cfg.Identity = r.Identity
	cfg.Secret = r.Secret
	cfg.ProjectKey = r.ProjectKey
	if r.IssueType != "" {
		cfg.IssueType = r.IssueType
	}
	cfg.Description = r.Description
	cfg.DefaultAssignee = r.DefaultAssignee
	cfg.DefaultPriority = r.DefaultPriority
	cfg.DefaultLabels = r.DefaultLabels
	if r.SyncAssignee != nil {
		cfg.SyncAssignee = *r.SyncAssignee
	}
	if r.SyncDueDate != nil {
		cfg.SyncDueDate = *r.SyncDueDate
	}
	if r.SyncPriority != nil {
		cfg.SyncPriority = *r.SyncPriority
	}
	if r.SyncLabels != nil {
		cfg.SyncLabels = *r.SyncLabels
	}
	return cfg
}
