package gdrive

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

const serviceName = "Google Drive"

// Client fetches recording files from Google Drive.
type Client struct {
	baseURL string
	timeout time.Duration
	logger  *zap.Logger
}

// NewClient creates a Drive recording-fetch client.
func NewClient(cfg *config.DriveConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// fileMetadata is the subset of Drive file metadata the pipeline needs.
type fileMetadata struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
}

// driveError is the Drive API error response shape.
type driveError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// FetchRecording looks up a Drive file's metadata and then downloads its
// content. The access token is carried by an oauth2 transport so every
// request in the exchange is authenticated the same way.
func (c *Client) FetchRecording(ctx context.Context, fileID, accessToken string) (entities.Recording, error) {
	if strings.TrimSpace(accessToken) == "" {
		return entities.Recording{}, errors.ErrMissingCredential(serviceName)
	}
	if strings.TrimSpace(fileID) == "" {
		return entities.Recording{}, errors.ErrValidation("file id is required")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	client := oauth2.NewClient(ctx, source)

	meta, err := c.fetchMetadata(ctx, client, fileID)
	if err != nil {
		return entities.Recording{}, err
	}

	data, err := c.downloadContent(ctx, client, fileID)
	if err != nil {
		return entities.Recording{}, err
	}

	filename := strings.TrimSpace(meta.Name)
	if filename == "" {
		filename = "drive-file-" + fileID
	}
	return entities.Recording{
		Filename: filename,
		Mime:     entities.InferRecordingMime(meta.MimeType, filename),
		Data:     data,
	}, nil
}

func (c *Client) fetchMetadata(ctx context.Context, client *http.Client, fileID string) (fileMetadata, error) {
	var meta fileMetadata

	endpoint := fmt.Sprintf("%s/drive/v3/files/%s?fields=name,mimeType", c.baseURL, url.PathEscape(fileID))
	raw, err := c.get(ctx, client, endpoint, "metadata lookup")
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return meta, errors.ErrRemoteStatus(serviceName, 0, "file metadata response is not valid JSON")
	}
	return meta, nil
}

func (c *Client) downloadContent(ctx context.Context, client *http.Client, fileID string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/drive/v3/files/%s?alt=media", c.baseURL, url.PathEscape(fileID))
	data, err := c.get(ctx, client, endpoint, "file download")
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.ErrEmptyResult(serviceName)
	}
	if c.logger != nil {
		c.logger.Debug("downloaded drive file", zap.String("file_id", fileID), zap.Int("bytes", len(data)))
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, client *http.Client, endpoint, operation string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.ErrInternal(err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.ErrDeadlineExceeded(operation, c.timeout)
		}
		return nil, errors.ErrUnreachable(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrUnreachable(serviceName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body driveError
		message := fmt.Sprintf("%s returned status %d", operation, resp.StatusCode)
		if json.Unmarshal(raw, &body) == nil && body.Error.Message != "" {
			message = body.Error.Message
		}
		return nil, errors.ErrRemoteStatus(serviceName, resp.StatusCode, message)
	}
	return raw, nil
}
