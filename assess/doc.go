// Package assess contains the orchestration engine that assembles a
// neurological risk assessment from the provider adapters.
//
// The Orchestrator sequences the transcription, reasoning, and validation
// adapters, applies fallback and degradation rules, and aggregates whatever
// succeeded into one confidence-scored AggregatedAssessment. Provider
// failures never escape Assess; they are folded into Diagnostics and the
// caller always receives a best-effort result, down to a documented
// floor-confidence degraded record when every provider failed.
//
// The package also owns the prompt builder (deterministic labeled sections
// with explicit "not available" sentinels for missing modalities), the
// response normalizer (code-fence stripping, JSON parsing, schema
// validation with default filling), and the rule-based fallback table used
// when the reasoning adapter's output cannot be normalized.
package assess
