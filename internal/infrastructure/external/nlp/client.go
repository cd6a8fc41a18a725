package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

const serviceName = "extraction service"

// Client calls the NLP task-extraction service.
type Client struct {
	baseURL string
	timeout time.Duration
	retries int
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates an extraction client using values from the provided
// config.
func NewClient(cfg *config.ExtractorConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		timeout: cfg.Timeout,
		retries: cfg.Retries,
		client:  &http.Client{},
		logger:  logger,
	}
}

// extractRequest is the payload for /extract-tasks.
type extractRequest struct {
	Text string `json:"text"`
}

// extractResponse is the response shape. Tasks arrive either as plain
// strings or as enriched objects depending on the service configuration.
type extractResponse struct {
	Tasks []json.RawMessage `json:"tasks"`
}

// taskPayload is the enriched task shape. Confidence is loosely typed
// because the service has been observed returning both numbers and strings.
type taskPayload struct {
	Summary    string      `json:"summary"`
	Confidence interface{} `json:"confidence"`
	Source     *string     `json:"source"`
	Assignee   *string     `json:"assignee"`
	Due        *string     `json:"due"`
	Priority   *string     `json:"priority"`
	Labels     []string    `json:"labels"`
}

// Extract sends the transcript to the extraction service and returns the
// sanitized action items. The call is retried immediately up to the
// configured count on any failure.
func (c *Client) Extract(ctx context.Context, transcript string) ([]entities.ActionItem, error) {
	var items []entities.ActionItem
	var lastErr error

	operation := func() error {
		result, err := c.extractOnce(ctx, transcript)
		if err != nil {
			lastErr = err
			if c.logger != nil {
				c.logger.Warn("extraction attempt failed", zap.Error(err))
			}
			return err
		}
		items = result
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, uint64(c.retries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		var appErr errors.AppError
		if stderrors.As(lastErr, &appErr) {
			return nil, appErr
		}
		return nil, errors.ErrUnreachable(serviceName, err)
	}
	return items, nil
}

func (c *Client) extractOnce(parent context.Context, transcript string) ([]entities.ActionItem, error) {
	ctx, cancel := context.WithTimeout(parent, c.timeout)
	defer cancel()

	body, err := json.Marshal(extractRequest{Text: transcript})
	if err != nil {
		return nil, errors.ErrInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/extract-tasks", bytes.NewReader(body))
	if err != nil {
		return nil, errors.ErrInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, errors.ErrDeadlineExceeded("extraction", c.timeout)
		}
		return nil, errors.ErrUnreachable(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, errors.ErrRemoteStatus(serviceName, resp.StatusCode, extractErrorMessage(resp.Body))
	}

	var payload extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.ErrRemoteStatus(serviceName, resp.StatusCode, "extraction service returned malformed JSON")
	}
	return parseTasks(payload.Tasks), nil
}

// parseTasks converts raw task entries into sanitized action items,
// tolerating both the plain-string and enriched object shapes. Items that
// fail sanitation are dropped.
func parseTasks(raw []json.RawMessage) []entities.ActionItem {
	items := make([]entities.ActionItem, 0, len(raw))
	for _, entry := range raw {
		var task taskPayload
		if err := json.Unmarshal(entry, &task); err != nil {
			var summary string
			if err := json.Unmarshal(entry, &summary); err != nil {
				continue
			}
			task = taskPayload{Summary: summary}
		}
		item := entities.ActionItem{
			Summary:    task.Summary,
			Confidence: entities.CoerceConfidence(task.Confidence),
			Source:     task.Source,
			Assignee:   task.Assignee,
			Due:        task.Due,
			Priority:   task.Priority,
			Labels:     task.Labels,
		}
		if entities.SanitizeActionItem(&item) {
			items = append(items, item)
		}
	}
	return items
}

// extractErrorMessage pulls the human-readable message out of a FastAPI
// error body, returning "" when the body is not parseable.
func extractErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return ""
	}
	var parsed struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ""
	}
	return parsed.Detail
}
