package assess

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/neurotriage/neurotriage/provider"
	"github.com/neurotriage/neurotriage/speech"
)

// ErrNoEvidence rejects a structurally unusable request before any adapter
// is invoked. It is the only failure Assess surfaces as an error.
var ErrNoEvidence = errors.New("assess: request carries no audio, transcript, or metrics")

// Saver persists a finished assessment. Calls are fire-and-forget relative
// to the response path; failures are logged as soft warnings and never
// block or fail the assessment.
type Saver interface {
	Save(ctx context.Context, a *AggregatedAssessment, d *Diagnostics) error
}

// Config tunes the orchestrator. Zero values fall back to defaults.
type Config struct {
	Weights              Weights
	Thresholds           speech.Thresholds
	TranscriptionTimeout time.Duration
	ReasoningTimeout     time.Duration
	ValidationTimeout    time.Duration
	DefaultTimeout       time.Duration // overall bound when the caller supplies none
	Temperature          float64
	MaxOutputTokens      int
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Weights:              DefaultWeights(),
		Thresholds:           speech.DefaultThresholds(),
		TranscriptionTimeout: 60 * time.Second,
		ReasoningTimeout:     45 * time.Second,
		ValidationTimeout:    30 * time.Second,
		DefaultTimeout:       2 * time.Minute,
		Temperature:          0.2,
		MaxOutputTokens:      1024,
	}
}

// Orchestrator sequences the provider adapters and aggregates their output
// into one confidence-scored assessment. Adapters are injected at
// construction; substituting fakes in tests needs no global state.
type Orchestrator struct {
	transcriber provider.Transcriber
	reasoner    provider.Reasoner
	validator   provider.Reasoner
	health      *provider.HealthMonitor
	saver       Saver
	cfg         Config
	log         zerolog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTranscriber sets the transcription adapter.
func WithTranscriber(t provider.Transcriber) Option {
	return func(o *Orchestrator) { o.transcriber = t }
}

// WithReasoner sets the primary medical reasoning adapter.
func WithReasoner(r provider.Reasoner) Option {
	return func(o *Orchestrator) { o.reasoner = r }
}

// WithValidator sets the secondary validation adapter.
func WithValidator(v provider.Reasoner) Option {
	return func(o *Orchestrator) { o.validator = v }
}

// WithHealthMonitor sets the capability matrix source.
func WithHealthMonitor(h *provider.HealthMonitor) Option {
	return func(o *Orchestrator) { o.health = h }
}

// WithSaver sets the persistence collaborator.
func WithSaver(s Saver) Option {
	return func(o *Orchestrator) { o.saver = s }
}

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(o *Orchestrator) { o.cfg = cfg }
}

// WithLogger sets the orchestrator's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) { o.log = log }
}

// NewOrchestrator creates an orchestrator with the given options.
func NewOrchestrator(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg: DefaultConfig(),
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Assess runs the full assessment pipeline. It never returns an error for
// provider failures; those fold into Diagnostics and the caller receives a
// best-effort AggregatedAssessment, degrading to a documented floor when
// every provider failed. The only error is ErrNoEvidence for a request with
// nothing to assess.
func (o *Orchestrator) Assess(ctx context.Context, req Request) (*AggregatedAssessment, *Diagnostics, error) {
	if !req.HasEvidence() {
		return nil, nil, ErrNoEvidence
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = o.cfg.DefaultTimeout
		}
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
	}

	start := time.Now()
	diag := &Diagnostics{}
	caps := o.capabilities(ctx)

	// Stage 1: transcription and feature extraction, degrading gracefully
	// to caller-supplied metrics or the empty-features placeholder.
	transcript, feats, transcriptionConf := o.runTranscription(ctx, req, caps, diag)

	promptIn := PromptInput{
		Transcript: transcript,
		Speech:     feats,
		Facial:     req.FacialMetrics,
		Posture:    req.PostureMetrics,
		Context:    req.PatientContext,
	}

	// Stage 2: medical reasoning, with the rule-based fallback covering
	// unavailability and normalization failure alike.
	medical, fromReasoner := o.runReasoning(ctx, promptIn, caps, diag)
	if medical == nil {
		medical = FallbackAssessment(feats, req.FacialMetrics, req.PostureMetrics)
	}

	// Stage 3: validation critique. Requires a primary adapter assessment;
	// a fallback result is not worth a second provider call.
	var validation *ValidationOutcome
	if fromReasoner {
		validation = o.runValidation(ctx, *medical, promptIn, caps, diag)
	} else if o.validator != nil {
		diag.AdaptersSkipped = append(diag.AdaptersSkipped, o.validator.Name())
	}

	// Stage 4: aggregate over whichever adapters produced output.
	var sources []confidenceSource
	if transcriptionConf != nil {
		sources = append(sources, confidenceSource{o.cfg.Weights.Transcription, *transcriptionConf})
	}
	if fromReasoner {
		sources = append(sources, confidenceSource{o.cfg.Weights.Reasoning, medical.Confidence})
	}
	if validation != nil {
		sources = append(sources, confidenceSource{o.cfg.Weights.Validation, validation.Confidence})
	}

	result := &AggregatedAssessment{
		ID:         uuid.New().String(),
		CreatedAt:  time.Now().UTC(),
		Speech:     feats,
		Medical:    medical,
		Validation: validation,
		Degraded:   !fromReasoner,
	}

	if conf, ok := aggregateConfidence(sources); ok {
		if validation != nil {
			// Validation refines confidence, never diagnosis.
			conf = clamp(conf+validation.ConfidenceDelta, 0, 100)
		}
		result.OverallConfidence = conf
		result.Urgency = urgencyFor(medical.RiskLevel)
	} else {
		result.OverallConfidence = FloorConfidence
		result.Urgency = UrgencyRoutine
		result.Degraded = true
	}

	diag.Elapsed = time.Since(start)

	o.log.Info().
		Str("assessment_id", result.ID).
		Str("risk_level", string(medical.RiskLevel)).
		Float64("confidence", result.OverallConfidence).
		Bool("degraded", result.Degraded).
		Int("errors", len(diag.Errors)).
		Dur("elapsed", diag.Elapsed).
		Msg("assessment complete")

	o.persist(result, diag)
	return result, diag, nil
}

// capabilities consults the health monitor when one is wired, falling back
// to construction-time configuration checks otherwise.
func (o *Orchestrator) capabilities(ctx context.Context) provider.CapabilityMatrix {
	if o.health != nil {
		return o.health.Check(ctx)
	}
	matrix := make(provider.CapabilityMatrix)
	for _, a := range []provider.Adapter{o.transcriber, o.reasoner, o.validator} {
		if a == nil {
			continue
		}
		matrix[a.Name()] = provider.Capability{
			Name:          a.Name(),
			Available:     a.Configured(),
			LastCheckedAt: time.Now(),
		}
	}
	return matrix
}

func (o *Orchestrator) runTranscription(ctx context.Context, req Request, caps provider.CapabilityMatrix, diag *Diagnostics) (string, *speech.Features, *float64) {
	transcript := req.Transcript
	hasAudio := len(req.Audio) > 0 || req.AudioURL != ""

	if !hasAudio || o.transcriber == nil {
		if o.transcriber != nil {
			diag.AdaptersSkipped = append(diag.AdaptersSkipped, o.transcriber.Name())
		}
		return transcript, req.SpeechMetrics, nil
	}
	if !caps.Available(o.transcriber.Name()) {
		diag.AdaptersSkipped = append(diag.AdaptersSkipped, o.transcriber.Name())
		return transcript, req.SpeechMetrics, nil
	}

	callCtx, cancel := o.callContext(ctx, o.cfg.TranscriptionTimeout)
	defer cancel()

	diag.AdaptersRan = append(diag.AdaptersRan, o.transcriber.Name())
	res, err := o.transcriber.Transcribe(callCtx, provider.TranscriptionInput{
		Audio:    req.Audio,
		AudioURL: req.AudioURL,
		Language: req.Language,
	})
	if err != nil {
		diag.Errors = append(diag.Errors, diagError("transcription", err))
		return transcript, req.SpeechMetrics, nil
	}

	f := speech.Extract(*res, o.cfg.Thresholds)
	conf := clamp(res.OverallConfidence*100, 0, 100)
	if transcript == "" {
		transcript = res.Text
	}
	return transcript, &f, &conf
}

func (o *Orchestrator) runReasoning(ctx context.Context, in PromptInput, caps provider.CapabilityMatrix, diag *Diagnostics) (*MedicalAssessment, bool) {
	if o.reasoner == nil {
		return nil, false
	}
	if !caps.Available(o.reasoner.Name()) || ctx.Err() != nil {
		diag.AdaptersSkipped = append(diag.AdaptersSkipped, o.reasoner.Name())
		return nil, false
	}

	callCtx, cancel := o.callContext(ctx, o.cfg.ReasoningTimeout)
	defer cancel()

	diag.AdaptersRan = append(diag.AdaptersRan, o.reasoner.Name())
	raw, err := o.reasoner.Reason(callCtx, BuildAssessmentPrompt(in), provider.CallOptions{
		Temperature:     o.cfg.Temperature,
		MaxOutputTokens: o.cfg.MaxOutputTokens,
	})
	if err != nil {
		diag.Errors = append(diag.Errors, diagError("reasoning", err))
		return nil, false
	}

	medical, err := NormalizeAssessment(raw)
	if err != nil {
		diag.Errors = append(diag.Errors, diagError("normalization", err))
		return nil, false
	}
	return medical, true
}

func (o *Orchestrator) runValidation(ctx context.Context, primary MedicalAssessment, in PromptInput, caps provider.CapabilityMatrix, diag *Diagnostics) *ValidationOutcome {
	if o.validator == nil {
		return nil
	}
	if !caps.Available(o.validator.Name()) || ctx.Err() != nil {
		diag.AdaptersSkipped = append(diag.AdaptersSkipped, o.validator.Name())
		return nil
	}

	callCtx, cancel := o.callContext(ctx, o.cfg.ValidationTimeout)
	defer cancel()

	diag.AdaptersRan = append(diag.AdaptersRan, o.validator.Name())
	raw, err := o.validator.Reason(callCtx, BuildValidationPrompt(primary, in), provider.CallOptions{
		Temperature:     o.cfg.Temperature,
		MaxOutputTokens: o.cfg.MaxOutputTokens,
	})
	if err != nil {
		diag.Errors = append(diag.Errors, diagError("validation", err))
		return nil
	}

	outcome, err := NormalizeValidation(raw)
	if err != nil {
		diag.Errors = append(diag.Errors, diagError("normalization", err))
		return nil
	}
	return outcome
}

// persist hands the record to the saver without blocking the response path.
func (o *Orchestrator) persist(a *AggregatedAssessment, d *Diagnostics) {
	if o.saver == nil {
		return
	}
	go func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.saver.Save(saveCtx, a, d); err != nil {
			o.log.Warn().Err(err).Str("assessment_id", a.ID).Msg("assessment persistence failed")
		}
	}()
}

// callContext bounds one adapter call by the smaller of the stage timeout
// and the request's remaining deadline.
func (o *Orchestrator) callContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// diagError folds a failure into a diagnostic entry. Only the error kind
// and adapter-side message are recorded, never raw provider payloads.
func diagError(stage string, err error) DiagnosticError {
	kind := string(provider.KindOf(err))
	var nf *NormalizationFailure
	if errors.As(err, &nf) {
		kind = "normalization_failure"
	}
	return DiagnosticError{Stage: stage, Kind: kind, Message: err.Error()}
}
