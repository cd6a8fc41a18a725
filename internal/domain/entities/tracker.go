package entities

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
)

// TrackerSyncResult is the outcome of creating one tracker issue for one
// action item. The summary is echoed for correlation only; tracker issues do
// not carry it back. Exactly one of IssueKey / Error is populated, except for
// a degraded success where the tracker acknowledged without returning a key.
type TrackerSyncResult struct {
	Summary  string `json:"summary"`
	Success  bool   `json:"success"`
	IssueKey string `json:"issue_key,omitempty"`
	IssueURL string `json:"issue_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// DefaultIssueType is used when the tracker config does not name one.
const DefaultIssueType = "Task"

var projectKeyRE = regexp.MustCompile(`^[A-Z][A-Z0-9]*$`)

// TrackerConfig configures issue-tracker submission for one sync attempt.
// It is supplied per request and never persisted.
type TrackerConfig struct {
	BaseURL         string   `json:"base_url"`
	Identity        string   `json:"identity"`
	Secret          string   `json:"secret"`
	ProjectKey      string   `json:"project_key"`
	IssueType       string   `json:"issue_type"`
	Description     string   `json:"description"`
	DefaultAssignee string   `json:"default_assignee"`
	DefaultPriority string   `json:"default_priority"`
	DefaultLabels   []string `json:"default_labels"`
	SyncAssignee    bool     `json:"sync_assignee"`
	SyncDueDate     bool     `json:"sync_due_date"`
	SyncPriority    bool     `json:"sync_priority"`
	SyncLabels      bool     `json:"sync_labels"`
}

// NewTrackerConfig returns a config with the sync toggles at their defaults
// (all enabled).
func NewTrackerConfig() TrackerConfig {
	return TrackerConfig{
		IssueType:    DefaultIssueType,
		SyncAssignee: true,
		SyncDueDate:  true,
		SyncPriority: true,
		SyncLabels:   true,
	}
}

// Normalize validates the config and rewrites it into canonical form: base
// URL with a scheme, upper-cased project key, defaulted issue type. It is
// called before any network I/O; failures are validation errors.
func (c *TrackerConfig) Normalize() error {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL == "" {
		return errors.ErrValidation("tracker base URL is required")
	}
	if !strings.Contains(c.BaseURL, "://") {
		c.BaseURL = "https://" + c.BaseURL
	}
	parsed, err := url.Parse(c.BaseURL)
	if err != nil || parsed.Host == "" {
		return errors.ErrValidation(fmt.Sprintf("tracker base URL %q is not a valid URL", c.BaseURL))
	}
	c.BaseURL = strings.TrimRight(parsed.String(), "/")

	c.Identity = strings.TrimSpace(c.Identity)
	if c.Identity == "" {
		return errors.ErrValidation("tracker identity is required")
	}
	c.Secret = strings.TrimSpace(c.Secret)
	if c.Secret == "" {
		return errors.ErrValidation("tracker API token is required")
	}

	c.ProjectKey = strings.ToUpper(strings.TrimSpace(c.ProjectKey))
	if !projectKeyRE.MatchString(c.ProjectKey) {
		return errors.ErrValidation(fmt.Sprintf("tracker project key %q is invalid", c.ProjectKey))
	}

	c.IssueType = strings.TrimSpace(c.IssueType)
	if c.IssueType == "" {
		c.IssueType = DefaultIssueType
	}
	c.DefaultLabels = NormalizeLabels(c.DefaultLabels)
	return nil
}

// EffectiveAssignee resolves the assignee for one item per the sync toggle:
// the item value (falling back to the default) when syncing is enabled, the
// default alone when disabled.
func (c *TrackerConfig) EffectiveAssignee(item ActionItem) string {
	if c.SyncAssignee && item.Assignee != nil {
		return *item.Assignee
	}
	return c.DefaultAssignee
}

// EffectiveDueDate resolves the due date for one item.
func (c *TrackerConfig) EffectiveDueDate(item ActionItem) string {
	if c.SyncDueDate && item.Due != nil {
		return *item.Due
	}
	return ""
}

// EffectivePriority resolves the priority for one item.
func (c *TrackerConfig) EffectivePriority(item ActionItem) string {
	if c.SyncPriority && item.Priority != nil {
		return *item.Priority
	}
	return c.DefaultPriority
}

// EffectiveLabels resolves the label set for one item.
func (c *TrackerConfig) EffectiveLabels(item ActionItem) []string {
	if c.SyncLabels && len(item.Labels) > 0 {
		return item.Labels
	}
	return c.DefaultLabels
}
