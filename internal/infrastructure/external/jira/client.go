package jira

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
)

const serviceName = "issue tracker"

// SummaryLimit is the tracker's summary field length limit.
const SummaryLimit = 254

// Client creates issues in a Jira-compatible tracker. Connection details
// arrive with each request inside the TrackerConfig, so the client itself
// only carries transport settings.
type Client struct {
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a tracker client. A zero timeout disables the
// client-side deadline.
func NewClient(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		timeout: timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// issueFields is the payload under "fields" for issue creation.
type issueFields struct {
	Project     projectRef `json:"project"`
	Summary     string     `json:"summary"`
	Description string     `json:"description"`
	IssueType   namedRef   `json:"issuetype"`
	Labels      []string   `json:"labels,omitempty"`
	DueDate     string     `json:"duedate,omitempty"`
	Priority    *namedRef  `json:"priority,omitempty"`
	Assignee    *assignRef `json:"assignee,omitempty"`
}

type projectRef struct {
	Key string `json:"key"`
}

type namedRef struct {
	Name string `json:"name"`
}

type assignRef struct {
	Name string `json:"name"`
}

type createRequest struct {
	Fields issueFields `json:"fields"`
}

type createResponse struct {
	Key string `json:"key"`
}

// errorBody is Jira's error response shape.
type errorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

// CreateIssue creates one tracker issue for one action item. A non-success
// response from the tracker is reported through the returned result, not an
// error, so one task's rejection never aborts the rest of a sync. The error
// return is reserved for local failures: request construction, transport,
// context cancellation.
func (c *Client) CreateIssue(ctx context.Context, cfg entities.TrackerConfig, item entities.ActionItem) (entities.TrackerSyncResult, error) {
	result := entities.TrackerSyncResult{Summary: item.Summary}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	fields := issueFields{
		Project:     projectRef{Key: cfg.ProjectKey},
		Summary:     truncateSummary(item.Summary),
		Description: buildDescription(cfg, item),
		IssueType:   namedRef{Name: cfg.IssueType},
		Labels:      cfg.EffectiveLabels(item),
		DueDate:     cfg.EffectiveDueDate(item),
	}
	if priority := cfg.EffectivePriority(item); priority != "" {
		fields.Priority = &namedRef{Name: priority}
	}
	if assignee := cfg.EffectiveAssignee(item); assignee != "" {
		fields.Assignee = &assignRef{Name: assignee}
	}

	body, err := json.Marshal(createRequest{Fields: fields})
	if err != nil {
		return result, errors.ErrInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.BaseURL+"/rest/api/2/issue", bytes.NewReader(body))
	if err != nil {
		return result, errors.ErrInternal(err)
	}
	req.SetBasicAuth(cfg.Identity, cfg.Secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return result, errors.ErrDeadlineExceeded("tracker issue creation", c.timeout)
		}
		return result, errors.ErrUnreachable(serviceName, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := extractErrorMessage(raw)
		if message == "" {
			message = fmt.Sprintf("tracker returned status %d", resp.StatusCode)
		}
		if c.logger != nil {
			c.logger.Warn("tracker rejected issue",
				zap.Int("status", resp.StatusCode),
				zap.String("summary", item.Summary))
		}
		result.Error = message
		return result, nil
	}

	var created createResponse
	if err := json.Unmarshal(raw, &created); err != nil || created.Key == "" {
		// The tracker acknowledged but the key is unreadable. Count it as a
		// degraded success rather than re-submitting a duplicate later.
		result.Success = true
		return result, nil
	}

	result.Success = true
	result.IssueKey = created.Key
	result.IssueURL = cfg.BaseURL + "/browse/" + created.Key
	return result, nil
}

// truncateSummary caps the issue summary at the tracker's field limit,
// counting runes so multi-byte text is never split.
func truncateSummary(summary string) string {
	runes := []rune(summary)
	if len(runes) <= SummaryLimit {
		return summary
	}
	return string(runes[:SummaryLimit])
}

// buildDescription renders the action item's metadata as human-readable
// lines, followed by the configured free text and an attribution footer.
func buildDescription(cfg entities.TrackerConfig, item entities.ActionItem) string {
	var b strings.Builder

	if assignee := cfg.EffectiveAssignee(item); assignee != "" {
		fmt.Fprintf(&b, "Assignee: %s\n", assignee)
	}
	if due := cfg.EffectiveDueDate(item); due != "" {
		fmt.Fprintf(&b, "Due date: %s\n", due)
	}
	if priority := cfg.EffectivePriority(item); priority != "" {
		fmt.Fprintf(&b, "Priority: %s\n", priority)
	}
	if labels := cfg.EffectiveLabels(item); len(labels) > 0 {
		fmt.Fprintf(&b, "Labels: %s\n", strings.Join(labels, ", "))
	}
	fmt.Fprintf(&b, "Confidence: %.2f\n", item.Confidence)

	if item.Source != nil && strings.TrimSpace(*item.Source) != "" {
		fmt.Fprintf(&b, "\nFrom the transcript:\n%s\n", strings.TrimSpace(*item.Source))
	}
	if extra := strings.TrimSpace(cfg.Description); extra != "" {
		fmt.Fprintf(&b, "\n%s\n", extra)
	}

	b.WriteString("\n----\nCreated automatically from a meeting recording by Meeting Secretary.")
	return b.String()
}

// extractErrorMessage pulls a readable message out of a Jira error body.
func extractErrorMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	parts := make([]string, 0, len(body.ErrorMessages)+len(body.Errors))
	parts = append(parts, body.ErrorMessages...)
	for field, msg := range body.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(parts, "; ")
}
