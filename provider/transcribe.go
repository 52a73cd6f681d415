package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// TranscriptionConfig configures the HTTP transcription adapter.
type TranscriptionConfig struct {
	BaseURL      string
	APIKey       string
	CallTimeout  time.Duration // cap per Transcribe call; 0 = rely on caller ctx
	PollInterval time.Duration
	Retry        RetryPolicy
	Logger       zerolog.Logger
}

// HTTPTranscriber calls a speech-to-text service over HTTP. Raw audio is
// uploaded first; transcription jobs are then submitted and polled until
// they complete or the context expires.
type HTTPTranscriber struct {
	cfg    TranscriptionConfig
	client *http.Client
	log    zerolog.Logger
}

const adapterTranscription = "transcription"

// NewHTTPTranscriber builds the adapter. A missing API key does not fail
// construction; the adapter reports Configured() == false and every call
// returns KindUnconfigured without touching the network.
func NewHTTPTranscriber(cfg TranscriptionConfig) *HTTPTranscriber {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &HTTPTranscriber{
		cfg:    cfg,
		client: &http.Client{},
		log:    cfg.Logger,
	}
}

func (t *HTTPTranscriber) Name() string { return adapterTranscription }

func (t *HTTPTranscriber) Configured() bool {
	return t.cfg.APIKey != "" && t.cfg.BaseURL != ""
}

// Probe checks the service health endpoint.
func (t *HTTPTranscriber) Probe(ctx context.Context) error {
	if !t.Configured() {
		return NewAdapterError(KindUnconfigured, adapterTranscription, "no API key configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"/v2/health", nil)
	if err != nil {
		return NewAdapterError(KindUnknown, adapterTranscription, "build health request", err)
	}
	req.Header.Set("Authorization", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return t.transportError("health check", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return NewAdapterError(kindFromStatusCode(resp.StatusCode), adapterTranscription,
			fmt.Sprintf("health check returned %s", resp.Status), nil)
	}
	return nil
}

// Upload sends raw audio bytes to the service and returns the hosted URL.
func (t *HTTPTranscriber) Upload(ctx context.Context, audio []byte) (string, error) {
	if !t.Configured() {
		return "", NewAdapterError(KindUnconfigured, adapterTranscription, "no API key configured", nil)
	}

	return Retry(ctx, t.cfg.Retry, func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v2/upload", bytes.NewReader(audio))
		if err != nil {
			return "", NewAdapterError(KindUnknown, adapterTranscription, "build upload request", err)
		}
		req.Header.Set("Authorization", t.cfg.APIKey)
		req.Header.Set("Content-Type", "application/octet-stream")

		resp, err := t.client.Do(req)
		if err != nil {
			return "", t.transportError("upload", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", t.statusError("upload", resp)
		}

		var out struct {
			UploadURL string `json:"upload_url"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return "", NewAdapterError(KindInvalidResponse, adapterTranscription, "decode upload response", err)
		}
		if out.UploadURL == "" {
			return "", NewAdapterError(KindInvalidResponse, adapterTranscription, "upload response missing url", nil)
		}
		return out.UploadURL, nil
	})
}

// transcriptJob is the wire shape of a transcription job.
type transcriptJob struct {
	ID         string  `json:"id"`
	Status     string  `json:"status"` // queued, processing, completed, error
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error,omitempty"`
	Words      []struct {
		Text       string  `json:"text"`
		Start      int64   `json:"start"`
		End        int64   `json:"end"`
		Confidence float64 `json:"confidence"`
	} `json:"words"`
}

// Transcribe runs the full upload -> submit -> poll cycle and normalizes the
// provider's job shape into a TranscriptionResult.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, in TranscriptionInput) (*TranscriptionResult, error) {
	if !t.Configured() {
		return nil, NewAdapterError(KindUnconfigured, adapterTranscription, "no API key configured", nil)
	}

	if t.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.CallTimeout)
		defer cancel()
	}

	audioURL := in.AudioURL
	if audioURL == "" {
		if len(in.Audio) == 0 {
			return nil, NewAdapterError(KindInvalidResponse, adapterTranscription, "no audio bytes or URL provided", nil)
		}
		url, err := t.Upload(ctx, in.Audio)
		if err != nil {
			return nil, err
		}
		audioURL = url
	}

	job, err := t.submit(ctx, audioURL, in)
	if err != nil {
		return nil, err
	}

	final, err := t.awaitCompletion(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	result := &TranscriptionResult{
		Text:              final.Text,
		OverallConfidence: final.Confidence,
		Tokens:            make([]Token, 0, len(final.Words)),
	}
	for _, w := range final.Words {
		result.Tokens = append(result.Tokens, Token{
			Text:       w.Text,
			StartMs:    w.Start,
			EndMs:      w.End,
			Confidence: w.Confidence,
		})
	}

	t.log.Debug().
		Int("tokens", len(result.Tokens)).
		Float64("confidence", result.OverallConfidence).
		Msg("transcription complete")
	return result, nil
}

func (t *HTTPTranscriber) submit(ctx context.Context, audioURL string, in TranscriptionInput) (*transcriptJob, error) {
	payload := map[string]any{
		"audio_url": audioURL,
	}
	if in.Language != "" {
		payload["language_code"] = in.Language
	}
	if len(in.BoostedVocabulary) > 0 {
		payload["word_boost"] = in.BoostedVocabulary
	}
	if in.ExpectedDurationHint > 0 {
		payload["audio_duration_hint_s"] = int(in.ExpectedDurationHint.Seconds())
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, NewAdapterError(KindUnknown, adapterTranscription, "encode transcript request", err)
	}

	return Retry(ctx, t.cfg.Retry, func(ctx context.Context) (*transcriptJob, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/v2/transcript", bytes.NewReader(body))
		if err != nil {
			return nil, NewAdapterError(KindUnknown, adapterTranscription, "build transcript request", err)
		}
		req.Header.Set("Authorization", t.cfg.APIKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, t.transportError("submit", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, t.statusError("submit", resp)
		}

		var job transcriptJob
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			return nil, NewAdapterError(KindInvalidResponse, adapterTranscription, "decode transcript response", err)
		}
		if job.ID == "" {
			return nil, NewAdapterError(KindInvalidResponse, adapterTranscription, "transcript response missing id", nil)
		}
		return &job, nil
	})
}

func (t *HTTPTranscriber) awaitCompletion(ctx context.Context, id string) (*transcriptJob, error) {
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		job, err := t.fetch(ctx, id)
		if err != nil {
			return nil, err
		}

		switch job.Status {
		case "completed":
			return job, nil
		case "error":
			return nil, NewAdapterError(KindInvalidResponse, adapterTranscription,
				"transcription job failed: "+job.Error, nil)
		}

		select {
		case <-ctx.Done():
			return nil, NewAdapterError(KindTimeout, adapterTranscription,
				"deadline expired while waiting for transcription", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (t *HTTPTranscriber) fetch(ctx context.Context, id string) (*transcriptJob, error) {
	// Polling is a pure read and therefore safe under the retry policy.
	return Retry(ctx, t.cfg.Retry, func(ctx context.Context) (*transcriptJob, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return nil, NewAdapterError(KindUnknown, adapterTranscription, "build poll request", err)
		}
		req.Header.Set("Authorization", t.cfg.APIKey)

		resp, err := t.client.Do(req)
		if err != nil {
			return nil, t.transportError("poll", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, t.statusError("poll", resp)
		}

		var job transcriptJob
		if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
			return nil, NewAdapterError(KindInvalidResponse, adapterTranscription, "decode poll response", err)
		}
		return &job, nil
	})
}

func (t *HTTPTranscriber) transportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewAdapterError(KindTimeout, adapterTranscription, op+" timed out", err)
	}
	return NewAdapterError(KindUnknown, adapterTranscription, op+" request failed", err)
}

func (t *HTTPTranscriber) statusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return NewAdapterError(kindFromStatusCode(resp.StatusCode), adapterTranscription,
		fmt.Sprintf("%s returned %s: %s", op, resp.Status, string(body)), nil)
}
