// Package provider wraps each external AI capability behind a typed,
// failure-safe call contract.
//
// # Architecture
//
// The package follows a three-layer structure:
//
//   - Contracts: the Adapter, Transcriber, and Reasoner interfaces plus the
//     shared result types (TranscriptionResult, Token).
//   - Failure taxonomy: AdapterError with a closed set of ErrorKind values
//     the orchestrator branches on, plus retry utilities for the kinds that
//     are safe to re-issue.
//   - Concrete adapters: HTTPTranscriber for the speech service and
//     GollmReasoner for LLM medical reasoning and validation.
//
// Adapters never panic past their boundary and never surface
// provider-specific error text as control flow; callers inspect only
// ErrorKind. Credential presence is checked at construction, so an
// unconfigured adapter fails fast with KindUnconfigured and performs no
// network calls.
//
// The HealthMonitor probes each adapter's availability, caches the resulting
// capability matrix with a TTL, and coalesces concurrent checks for the same
// adapter into one in-flight probe.
package provider
