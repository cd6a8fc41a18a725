package zoom

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

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/internal/domain/entities"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

const serviceName = "Zoom"

// Client fetches cloud recordings from the Zoom API.
type Client struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a Zoom recording-fetch client.
func NewClient(cfg *config.ZoomConfig, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		client:  &http.Client{},
		logger:  logger,
	}
}

// recordingFile is one entry in a meeting's recording list.
type recordingFile struct {
	ID            string `json:"id"`
	RecordingType string `json:"recording_type"`
	FileType      string `json:"file_type"`
	FileExtension string `json:"file_extension"`
	DownloadURL   string `json:"download_url"`
}

// recordingList is the response of the meeting recordings endpoint.
type recordingList struct {
	Topic          string          `json:"topic"`
	RecordingFiles []recordingFile `json:"recording_files"`
}

// zoomError is Zoom's error response shape.
type zoomError struct {
	Message string `json:"message"`
}

// FetchRecording locates a meeting's cloud recordings and downloads a single
// representative file. When the meeting offers several files the preferred
// recording type wins, then the audio-only track, then the first listed.
func (c *Client) FetchRecording(ctx context.Context, meetingID, accessToken, passcode, preferredType string) (entities.Recording, error) {
	if strings.TrimSpace(accessToken) == "" {
		return entities.Recording{}, errors.ErrMissingCredential(serviceName)
	}
	if strings.TrimSpace(meetingID) == "" {
		return entities.Recording{}, errors.ErrValidation("meeting id is required")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	list, err := c.listRecordings(ctx, meetingID, accessToken)
	if err != nil {
		return entities.Recording{}, err
	}
	if len(list.RecordingFiles) == 0 {
		return entities.Recording{}, errors.ErrEmptyResult(serviceName)
	}

	file := pickRecordingFile(list.RecordingFiles, preferredType)
	data, err := c.download(ctx, file, accessToken, passcode)
	if err != nil {
		return entities.Recording{}, err
	}

	filename := buildFilename(list.Topic, meetingID, file)
	return entities.Recording{
		Filename: filename,
		Mime:     entities.InferRecordingMime(mimeForFileType(file.FileType), filename),
		Data:     data,
	}, nil
}

func (c *Client) listRecordings(ctx context.Context, meetingID, accessToken string) (recordingList, error) {
	var list recordingList

	endpoint := fmt.Sprintf("%s/v2/meetings/%s/recordings", c.baseURL, url.PathEscape(meetingID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return list, errors.ErrInternal(err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return list, c.classify(err, "recording lookup")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body zoomError
		message := fmt.Sprintf("recording lookup returned status %d", resp.StatusCode)
		if json.Unmarshal(raw, &body) == nil && body.Message != "" {
			message = body.Message
		}
		return list, errors.ErrRemoteStatus(serviceName, resp.StatusCode, message)
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return list, errors.ErrRemoteStatus(serviceName, resp.StatusCode, "recording list response is not valid JSON")
	}
	return list, nil
}

func (c *Client) download(ctx context.Context, file recordingFile, accessToken, passcode string) ([]byte, error) {
	endpoint, err := url.Parse(file.DownloadURL)
	if err != nil {
		return nil, errors.ErrRemoteStatus(serviceName, 0, fmt.Sprintf("download URL %q is invalid", file.DownloadURL))
	}
	query := endpoint.Query()
	query.Set("access_token", accessToken)
	if passcode != "" {
		query.Set("passcode", passcode)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, errors.ErrInternal(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.classify(err, "recording download")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ErrRemoteStatus(serviceName, resp.StatusCode,
			fmt.Sprintf("recording download returned status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ErrUnreachable(serviceName, err)
	}
	if len(data) == 0 {
		return nil, errors.ErrEmptyResult(serviceName)
	}
	if c.logger != nil {
		c.logger.Debug("downloaded zoom recording",
			zap.String("recording_type", file.RecordingType),
			zap.Int("bytes", len(data)))
	}
	return data, nil
}

func (c *Client) classify(err error, operation string) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrDeadlineExceeded(operation, c.timeout)
	}
	return errors.ErrUnreachable(serviceName, err)
}

// pickRecordingFile chooses one file out of a meeting's recording list:
// the explicitly requested type first, then the audio-only track, then
// whatever is listed first.
func pickRecordingFile(files []recordingFile, preferredType string) recordingFile {
	preferredType = strings.ToLower(strings.TrimSpace(preferredType))
	if preferredType != "" {
		for _, f := range files {
			if strings.ToLower(f.RecordingType) == preferredType {
				return f
			}
		}
	}
	for _, f := range files {
		if strings.ToLower(f.RecordingType) == "audio_only" {
			return f
		}
	}
	return files[0]
}

func buildFilename(topic, meetingID string, file recordingFile) string {
	base := strings.TrimSpace(topic)
	if base == "" {
		base = "zoom-meeting-" + meetingID
	}
	base = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '-'
		}
		return r
	}, base)

	ext := strings.ToLower(strings.TrimSpace(file.FileExtension))
	if ext == "" {
		ext = strings.ToLower(strings.TrimSpace(file.FileType))
	}
	if ext == "" {
		ext = "m4a"
	}
	return base + "." + ext
}

// mimeForFileType maps Zoom's file type codes to mime types.
func mimeForFileType(fileType string) string {
	switch strings.ToUpper(strings.TrimSpace(fileType)) {
	case "M4A":
		return "audio/mp4"
	case "MP4":
		return "video/mp4"
	case "MP3":
		return "audio/mpeg"
	default:
		return ""
	}
}
