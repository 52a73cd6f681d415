package provider

import (
	"context"
	"time"
)

// Adapter is the base interface every provider adapter implements.
type Adapter interface {
	// Name returns the adapter identifier (e.g. "transcription", "reasoning").
	Name() string

	// Configured reports whether a credential was present at construction.
	// Unconfigured adapters fail fast and never touch the network.
	Configured() bool

	// Probe issues a minimal real call to verify the provider is reachable.
	Probe(ctx context.Context) error
}

// Token is a single transcribed word with timing and confidence.
type Token struct {
	Text       string  `json:"text"`
	StartMs    int64   `json:"start_ms"`
	EndMs      int64   `json:"end_ms"`
	Confidence float64 `json:"confidence"`
}

// TranscriptionResult is the normalized output of a transcription call.
// It is immutable once produced.
type TranscriptionResult struct {
	Text              string  `json:"text"`
	OverallConfidence float64 `json:"overall_confidence"` // [0,1]
	Tokens            []Token `json:"tokens"`
}

// TranscriptionInput describes one transcription request. Exactly one of
// Audio or AudioURL must be set; raw bytes are uploaded first.
type TranscriptionInput struct {
	Audio                []byte
	AudioURL             string
	Language             string
	BoostedVocabulary    []string
	ExpectedDurationHint time.Duration
}

// Transcriber converts audio into a TranscriptionResult.
type Transcriber interface {
	Adapter

	Transcribe(ctx context.Context, in TranscriptionInput) (*TranscriptionResult, error)
}

// CallOptions tune a single reasoning call. Temperature is advisory: an
// adapter whose backend fixes sampling at construction ignores it rather
// than mutate client state shared across concurrent calls.
type CallOptions struct {
	Temperature     float64
	MaxOutputTokens int
}

// Reasoner sends a rendered clinical prompt to an LLM and returns the raw
// response text. Normalization into structured records happens in the
// orchestration layer so reasoning backends stay swappable.
type Reasoner interface {
	Adapter

	Reason(ctx context.Context, prompt string, opts CallOptions) (string, error)
}
