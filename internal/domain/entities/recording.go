package entities

import (
	"mime"
	"path/filepath"
	"strings"
)

// Recording is a fetched meeting recording ready for transcription: the raw
// media bytes plus the best filename and mime type the provider gave us.
type Recording struct {
	Filename string
	Mime     string
	Data     []byte
}

// DefaultRecordingMime is used when neither the provider nor the filename
// reveals a media type. Meeting recordings are overwhelmingly audio, so an
// audio fallback keeps downstream services on the happy path.
const DefaultRecordingMime = "audio/mpeg"

// InferRecordingMime resolves a mime type from an explicit provider hint,
// falling back to the filename extension and finally to the audio default.
func InferRecordingMime(hint, filename string) string {
	hint = strings.TrimSpace(hint)
	if hint != "" {
		return hint
	}
	if ext := filepath.Ext(filename); ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}
	return DefaultRecordingMime
}
