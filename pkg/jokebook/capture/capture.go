// Package capture defines the OCR and speech-to-text collaborators that turn
// photographed notes and recordings into raw text for the import pipeline.
//
// Real engines live outside this module. The implementations here accept
// text that has already been extracted (pasted text, OCR dumps, transcript
// sidecar files) so the rest of the pipeline can run end to end.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// OCR failures.
var (
	ErrInvalidImage = errors.New("invalid image")
	ErrNoTextFound  = errors.New("no text found")
)

// Speech-to-text failures.
var (
	ErrNotAuthorized     = errors.New("speech recognition not authorized")
	ErrFileNotFound      = errors.New("audio file not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrNoSpeech          = errors.New("no speech detected")
)

// TextRecognizer extracts text from an image.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) (string, error)
}

// Transcriber converts a recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Transcript, error)
}

// Transcript is the result of a transcription.
type Transcript struct {
	Text       string
	Confidence float64 // 0..1
}

// FileRecognizer is a TextRecognizer over UTF-8 text payloads.
type FileRecognizer struct{}

// RecognizeText returns the payload as text. Binary payloads are rejected
// with ErrInvalidImage and blank ones with ErrNoTextFound.
func (FileRecognizer) RecognizeText(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(image) == 0 || !utf8.Valid(image) || strings.ContainsRune(string(image), 0) {
		return "", ErrInvalidImage
	}
	text := strings.TrimSpace(string(image))
	if text == "" {
		return "", ErrNoTextFound
	}
	return text, nil
}

// transcriptExts are the sidecar formats TranscriptReader understands.
var transcriptExts = map[string]bool{".txt": true, ".transcript": true}

// TranscriptReader is a Transcriber that reads transcripts produced by an
// external engine. Given an audio path it looks for "<path>.txt" next to it;
// a path that already names a transcript is read directly.
type TranscriptReader struct {
	// Denied simulates a revoked speech permission.
	Denied bool
}

// Transcribe implements Transcriber.
func (r TranscriptReader) Transcribe(ctx context.Context, path string) (Transcript, error) {
	if err := ctx.Err(); err != nil {
		return Transcript{}, err
	}
	if r.Denied {
		return Transcript{}, ErrNotAuthorized
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Transcript{}, fmt.Errorf("%s: %w", path, ErrFileNotFound)
		}
		return Transcript{}, fmt.Errorf("stat %s: %w", path, err)
	}

	source := path
	if !transcriptExts[strings.ToLower(filepath.Ext(path))] {
		source = path + ".txt"
		if _, err := os.Stat(source); err != nil {
			return Transcript{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
		}
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return Transcript{}, fmt.Errorf("read transcript %s: %w", source, err)
	}
	if !utf8.Valid(data) {
		return Transcript{}, fmt.Errorf("%s: %w", source, ErrUnsupportedFormat)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return Transcript{}, ErrNoSpeech
	}
	return Transcript{Text: text, Confidence: 1}, nil
}
