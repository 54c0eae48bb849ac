package services

import (
	"context"
	"errors"
)

// ErrTranscriptionUnavailable is returned when audio cannot be turned into text.
var ErrTranscriptionUnavailable = errors.New("transcription unavailable")

// Transcriber converts an audio attachment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, mediaURL, contentType string) (string, error)
}

// UnavailableTranscriber is the default Transcriber; speech-to-text runs upstream.
type UnavailableTranscriber struct{}

func (UnavailableTranscriber) Transcribe(ctx context.Context, mediaURL, contentType string) (string, error) {
	return "", ErrTranscriptionUnavailable
}
