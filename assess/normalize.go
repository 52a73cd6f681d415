package assess

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizationFailure is returned when a reasoning adapter's output cannot
// be parsed into a valid typed record. It is an expected outcome, not a
// panic path: the orchestrator reacts by switching to the rule-based
// fallback assessment.
type NormalizationFailure struct {
	Message string
	Cause   error
}

func (e *NormalizationFailure) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("normalization failed: %s: %v", e.Message, e.Cause)
	}
	return "normalization failed: " + e.Message
}

func (e *NormalizationFailure) Unwrap() error { return e.Cause }

// Default filled in for optional confidence fields the model omitted.
const defaultReportedConfidence = 50.0

// rawAssessment is the tolerant wire shape. Pointers distinguish absent
// optional fields from zero values.
type rawAssessment struct {
	RiskLevel              string             `json:"risk_level"`
	RiskScore              *float64           `json:"risk_score"`
	TerritorialLikelihoods map[string]float64 `json:"territorial_likelihoods"`
	ClinicalFindings       []string           `json:"clinical_findings"`
	Recommendations        []string           `json:"recommendations"`
	Confidence             *float64           `json:"confidence"`
}

// NormalizeAssessment parses a reasoning adapter's free-text output into a
// MedicalAssessment. It strips code-fence wrapping, recovers an embedded
// JSON object from surrounding prose when necessary, validates required
// fields, and default-fills optional ones. Any parse or validation failure
// returns a *NormalizationFailure; it never panics.
func NormalizeAssessment(text string) (*MedicalAssessment, error) {
	payload := stripCodeFence(text)

	var raw rawAssessment
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		// Best-effort recovery: the model may have wrapped the object in prose.
		embedded, ok := extractJSONObject(payload)
		if !ok {
			return nil, &NormalizationFailure{Message: "response is not a JSON object", Cause: err}
		}
		if err := json.Unmarshal([]byte(embedded), &raw); err != nil {
			return nil, &NormalizationFailure{Message: "embedded object did not parse", Cause: err}
		}
	}

	level, ok := normalizeRiskLevel(raw.RiskLevel)
	if !ok {
		return nil, &NormalizationFailure{Message: fmt.Sprintf("unrecognized risk_level %q", raw.RiskLevel)}
	}
	if raw.RiskScore == nil {
		return nil, &NormalizationFailure{Message: "missing required field risk_score"}
	}

	out := &MedicalAssessment{
		RiskLevel:              level,
		RiskScore:              clamp(*raw.RiskScore, 0, 100),
		TerritorialLikelihoods: raw.TerritorialLikelihoods,
		ClinicalFindings:       raw.ClinicalFindings,
		Recommendations:        raw.Recommendations,
		Confidence:             defaultReportedConfidence,
	}
	if raw.Confidence != nil {
		out.Confidence = clamp(*raw.Confidence, 0, 100)
	}
	for territory, likelihood := range out.TerritorialLikelihoods {
		out.TerritorialLikelihoods[territory] = clamp(likelihood, 0, 1)
	}
	return out, nil
}

// rawValidation is the tolerant wire shape for a validation critique.
type rawValidation struct {
	Verdict         string   `json:"verdict"`
	ConfidenceDelta *float64 `json:"confidence_delta"`
	Confidence      *float64 `json:"confidence"`
	Notes           []string `json:"notes"`
}

// NormalizeValidation parses a validation adapter's critique.
func NormalizeValidation(text string) (*ValidationOutcome, error) {
	payload := stripCodeFence(text)

	var raw rawValidation
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		embedded, ok := extractJSONObject(payload)
		if !ok {
			return nil, &NormalizationFailure{Message: "critique is not a JSON object", Cause: err}
		}
		if err := json.Unmarshal([]byte(embedded), &raw); err != nil {
			return nil, &NormalizationFailure{Message: "embedded critique did not parse", Cause: err}
		}
	}

	verdict := strings.ToLower(strings.TrimSpace(raw.Verdict))
	switch verdict {
	case VerdictCorroborate, VerdictNeutral, VerdictContradict:
	default:
		return nil, &NormalizationFailure{Message: fmt.Sprintf("unrecognized verdict %q", raw.Verdict)}
	}

	out := &ValidationOutcome{
		Verdict:    verdict,
		Confidence: defaultReportedConfidence,
		Notes:      raw.Notes,
	}
	if raw.ConfidenceDelta != nil {
		out.ConfidenceDelta = clamp(*raw.ConfidenceDelta, -20, 20)
	} else {
		// Delta defaults by verdict when the model omitted it.
		switch verdict {
		case VerdictCorroborate:
			out.ConfidenceDelta = 10
		case VerdictContradict:
			out.ConfidenceDelta = -10
		}
	}
	if raw.Confidence != nil {
		out.Confidence = clamp(*raw.Confidence, 0, 100)
	}
	return out, nil
}

// normalizeRiskLevel maps both vocabularies the source providers use onto
// the canonical enum. "medium" is the legacy spelling of moderate.
func normalizeRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "none", "mild":
		return RiskLow, true
	case "moderate", "medium":
		return RiskModerate, true
	case "high", "severe":
		return RiskHigh, true
	case "critical":
		return RiskCritical, true
	default:
		return "", false
	}
}

// stripCodeFence removes a wrapping markdown code fence if present.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag such as "json" on the fence line.
	if idx := strings.IndexByte(trimmed, '\n'); idx != -1 {
		first := strings.TrimSpace(trimmed[:idx])
		if len(first) <= 10 && !strings.ContainsAny(first, "{}") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// extractJSONObject pulls the outermost {...} block out of surrounding prose.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
