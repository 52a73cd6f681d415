package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/teilomillet/gollm"
	gollmcore "github.com/teilomillet/gollm/llm"
)

// textGenerator is the one slice of gollm.LLM the adapter calls. Narrowing
// the dependency keeps per-call state off the shared client and lets tests
// substitute a scripted generator.
type textGenerator interface {
	Generate(ctx context.Context, prompt *gollm.Prompt, opts ...gollmcore.GenerateOption) (string, error)
}

// ReasoningConfig configures a GollmReasoner.
type ReasoningConfig struct {
	Name        string // adapter identifier, e.g. "reasoning" or "validation"
	Provider    string // gollm provider id, e.g. "openai", "anthropic"
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	CallTimeout time.Duration // cap per call; 0 = rely on caller ctx
	Retry       RetryPolicy
	Logger      zerolog.Logger
}

// GollmReasoner wraps a gollm.LLM behind the Reasoner contract. The same
// type serves both the primary medical reasoning adapter and the secondary
// validation adapter; they differ only in configuration.
type GollmReasoner struct {
	cfg ReasoningConfig
	llm textGenerator
	log zerolog.Logger
}

// NewGollmReasoner builds the adapter. A missing API key does not fail
// construction; the adapter reports Configured() == false and every call
// returns KindUnconfigured with no network activity.
func NewGollmReasoner(cfg ReasoningConfig) (*GollmReasoner, error) {
	if cfg.Name == "" {
		cfg.Name = "reasoning"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}

	r := &GollmReasoner{cfg: cfg, log: cfg.Logger}
	if cfg.APIKey == "" {
		return r, nil
	}

	llm, err := gollm.NewLLM(
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetAPIKey(cfg.APIKey),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0), // retry is handled by the adapter policy
		gollm.SetLogLevel(gollm.LogLevelWarn),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s LLM for provider %s: %w", cfg.Name, cfg.Provider, err)
	}
	r.llm = llm
	return r, nil
}

func (r *GollmReasoner) Name() string { return r.cfg.Name }

func (r *GollmReasoner) Configured() bool { return r.llm != nil }

// Probe issues a trivial prompt to confirm the credential and model work.
func (r *GollmReasoner) Probe(ctx context.Context) error {
	if r.llm == nil {
		return NewAdapterError(KindUnconfigured, r.cfg.Name, "no API key configured", nil)
	}
	prompt := gollm.NewPrompt("Reply with the single word OK.", gollm.WithMaxLength(8))
	if _, err := r.llm.Generate(ctx, prompt); err != nil {
		return r.translateError(err)
	}
	return nil
}

// Reason sends the rendered prompt and returns the raw response text.
// Parsing of the text into structured records is the caller's concern.
func (r *GollmReasoner) Reason(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	if r.llm == nil {
		return "", NewAdapterError(KindUnconfigured, r.cfg.Name, "no API key configured", nil)
	}

	if r.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
	}

	// Temperature is fixed at construction via gollm.SetTemperature; the
	// advisory opts.Temperature is deliberately not applied because the
	// underlying client is shared across concurrent calls.
	maxTokens := opts.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = r.cfg.MaxTokens
	}
	p := gollm.NewPrompt(prompt, gollm.WithMaxLength(maxTokens))

	start := time.Now()
	text, err := Retry(ctx, r.cfg.Retry, func(ctx context.Context) (string, error) {
		out, err := r.llm.Generate(ctx, p)
		if err != nil {
			return "", r.translateError(err)
		}
		return out, nil
	})
	if err != nil {
		return "", err
	}

	// Log sizes only; response text may contain clinical detail.
	r.log.Debug().
		Str("adapter", r.cfg.Name).
		Int("prompt_chars", len(prompt)).
		Int("response_chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("reasoning call complete")
	return text, nil
}

// translateError folds gollm's free-text errors into the adapter taxonomy.
func (r *GollmReasoner) translateError(err error) error {
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		kind = classifyMessage(err.Error())
	}
	return NewAdapterError(kind, r.cfg.Name, "provider call failed", err)
}
