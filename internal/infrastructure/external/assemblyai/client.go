package assemblyai

import (
	"bytes"
	"context"
	stderrors "errors"
	"strings"
	"time"

	aai "github.com/AssemblyAI/assemblyai-go-sdk"
	"go.uber.org/zap"

	"github.com/meeting-secretary-team/meeting-secretary/errors"
	"github.com/meeting-secretary-team/meeting-secretary/pkg/config"
)

const serviceName = "transcription service"

// engine is the slice of the AssemblyAI SDK the client needs. Tests
// substitute a fake.
type engine interface {
	Upload(ctx context.Context, media []byte) (string, error)
	Submit(ctx context.Context, audioURL string) (string, error)
	Poll(ctx context.Context, transcriptID string) (status, text, remoteErr string, err error)
}

// Client transcribes raw media bytes through AssemblyAI: upload, submit,
// then poll until the job settles or the deadline aborts it.
type Client struct {
	apiKey       string
	engine       engine
	timeout      time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewClient creates a transcription client from the provided config.
func NewClient(cfg *config.AssemblyAIConfig, logger *zap.Logger) *Client {
	client := &Client{
		apiKey:       cfg.APIKey,
		timeout:      cfg.Timeout,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
	if cfg.APIKey != "" {
		client.engine = &sdkEngine{sdk: aai.NewClient(cfg.APIKey)}
	}
	return client
}

// Transcribe submits media for transcription and returns the transcript
// text. The filename and mime hint are advisory (logging only; AssemblyAI
// sniffs the payload itself).
func (c *Client) Transcribe(ctx context.Context, media []byte, filename, mimeType string) (string, error) {
	if c.apiKey == "" || c.engine == nil {
		return "", errors.ErrMissingCredential(serviceName)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if c.logger != nil {
		c.logger.Info("submitting media for transcription",
			zap.String("filename", filename),
			zap.String("mime_type", mimeType),
			zap.Int("size_bytes", len(media)),
		)
	}

	audioURL, err := c.engine.Upload(ctx, media)
	if err != nil {
		return "", c.classify(err)
	}

	transcriptID, err := c.engine.Submit(ctx, audioURL)
	if err != nil {
		return "", c.classify(err)
	}

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", c.classify(ctx.Err())
		case <-ticker.C:
		}

		status, text, remoteErr, err := c.engine.Poll(ctx, transcriptID)
		if err != nil {
			return "", c.classify(err)
		}

		switch status {
		case "completed":
			if strings.TrimSpace(text) == "" {
				return "", errors.ErrEmptyResult(serviceName)
			}
			if c.logger != nil {
				c.logger.Info("transcription completed",
					zap.String("transcript_id", transcriptID),
					zap.Int("text_length", len(text)),
				)
			}
			return text, nil
		case "error":
			return "", errors.ErrRemoteStatus(serviceName, 0, remoteErr)
		default:
			// queued or processing, keep polling
		}
	}
}

func (c *Client) classify(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.ErrDeadlineExceeded("transcription", c.timeout)
	}
	var apiErr aai.APIError
	if stderrors.As(err, &apiErr) {
		return errors.ErrRemoteStatus(serviceName, apiErr.Status, apiErr.Message)
	}
	return errors.ErrUnreachable(serviceName, err)
}

// sdkEngine adapts the official AssemblyAI SDK.
type sdkEngine struct {
	sdk *aai.Client
}

func (e *sdkEngine) Upload(ctx context.Context, media []byte) (string, error) {
	return e.sdk.Upload(ctx, bytes.NewReader(media))
}

func (e *sdkEngine) Submit(ctx context.Context, audioURL string) (string, error) {
	params := &aai.TranscriptOptionalParams{
		SpeakerLabels: aai.Bool(false),
	}
	transcript, err := e.sdk.Transcripts.TranscribeFromURL(ctx, audioURL, params)
	if err != nil {
		return "", err
	}
	if transcript.ID == nil {
		return "", stderrors.New("assemblyai returned no transcript id")
	}
	return *transcript.ID, nil
}

func (e *sdkEngine) Poll(ctx context.Context, transcriptID string) (string, string, string, error) {
	transcript, err := e.sdk.Transcripts.Get(ctx, transcriptID)
	if err != nil {
		return "", "", "", err
	}
	text := ""
	if transcript.Text != nil {
		text = *transcript.Text
	}
	remoteErr := ""
	if transcript.Error != nil {
		remoteErr = *transcript.Error
	}
	return string(transcript.Status), text, remoteErr, nil
}
