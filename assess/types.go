package assess

import (
	"time"

	"github.com/neurotriage/neurotriage/speech"
)

// RiskLevel is the canonical overall risk vocabulary. Legacy inputs using
// "medium" normalize to RiskModerate.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// UrgencyLevel is derived from the risk level of the final assessment.
type UrgencyLevel string

const (
	UrgencyRoutine   UrgencyLevel = "routine"
	UrgencyUrgent    UrgencyLevel = "urgent"
	UrgencyEmergency UrgencyLevel = "emergency"
	UrgencyImmediate UrgencyLevel = "immediate"
)

// urgencyFor maps risk level to urgency.
func urgencyFor(level RiskLevel) UrgencyLevel {
	switch level {
	case RiskCritical:
		return UrgencyImmediate
	case RiskHigh:
		return UrgencyEmergency
	case RiskModerate:
		return UrgencyUrgent
	default:
		return UrgencyRoutine
	}
}

// FacialMetrics are locally computed vision scores, all in [0,1].
type FacialMetrics struct {
	AsymmetryScore  float64 `json:"asymmetry_score" validate:"gte=0,lte=1"`
	EyeDroopScore   float64 `json:"eye_droop_score" validate:"gte=0,lte=1"`
	MouthDroopScore float64 `json:"mouth_droop_score" validate:"gte=0,lte=1"`
	Confidence      float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// PostureMetrics are locally computed posture scores, all in [0,1].
type PostureMetrics struct {
	ArmDriftScore float64 `json:"arm_drift_score" validate:"gte=0,lte=1"`
	BalanceScore  float64 `json:"balance_score" validate:"gte=0,lte=1"`
	Confidence    float64 `json:"confidence" validate:"gte=0,lte=1"`
}

// PatientContext is optional background for the reasoning prompt.
type PatientContext struct {
	Age            int      `json:"age,omitempty" validate:"omitempty,gte=0,lte=130"`
	Sex            string   `json:"sex,omitempty"`
	MedicalHistory []string `json:"medical_history,omitempty"`
	Medications    []string `json:"medications,omitempty"`
	SymptomOnset   string   `json:"symptom_onset,omitempty"`
}

// Request is the single inbound contract. Every evidence field is optional,
// but at least one of Audio, AudioURL, Transcript, SpeechMetrics,
// FacialMetrics, or PostureMetrics must be present.
type Request struct {
	Audio          []byte           `json:"audio,omitempty"`
	AudioURL       string           `json:"audio_url,omitempty"`
	Transcript     string           `json:"transcript,omitempty"`
	SpeechMetrics  *speech.Features `json:"speech_metrics,omitempty"` // caller-supplied fallback
	FacialMetrics  *FacialMetrics   `json:"facial_metrics,omitempty"`
	PostureMetrics *PostureMetrics  `json:"posture_metrics,omitempty"`
	PatientContext *PatientContext  `json:"patient_context,omitempty"`
	Language       string           `json:"language,omitempty"`
	Timeout        time.Duration    `json:"-"` // overall deadline if ctx has none
}

// HasEvidence reports whether the request carries any assessable input.
func (r Request) HasEvidence() bool {
	return len(r.Audio) > 0 || r.AudioURL != "" || r.Transcript != "" ||
		r.SpeechMetrics != nil || r.FacialMetrics != nil || r.PostureMetrics != nil
}

// MedicalAssessment is the normalized output of one reasoning call.
// Revision by a validation critique produces a new value, never a mutation.
type MedicalAssessment struct {
	RiskLevel              RiskLevel          `json:"risk_level"`
	RiskScore              float64            `json:"risk_score"` // [0,100]
	TerritorialLikelihoods map[string]float64 `json:"territorial_likelihoods,omitempty"`
	ClinicalFindings       []string           `json:"clinical_findings,omitempty"`
	Recommendations        []string           `json:"recommendations,omitempty"`
	Confidence             float64            `json:"confidence"` // [0,100]
}

// ValidationOutcome is the normalized critique from the validation adapter.
// It refines confidence, never diagnosis.
type ValidationOutcome struct {
	Verdict         string   `json:"verdict"` // corroborate, neutral, contradict
	ConfidenceDelta float64  `json:"confidence_delta"`
	Confidence      float64  `json:"confidence"` // validator's own confidence [0,100]
	Notes           []string `json:"notes,omitempty"`
}

// Validation verdict vocabulary.
const (
	VerdictCorroborate = "corroborate"
	VerdictNeutral     = "neutral"
	VerdictContradict  = "contradict"
)

// AggregatedAssessment is the terminal artifact returned to the caller.
// It is built once per request and never mutated after return.
type AggregatedAssessment struct {
	ID                string             `json:"id"`
	CreatedAt         time.Time          `json:"created_at"`
	Speech            *speech.Features   `json:"speech,omitempty"`
	Medical           *MedicalAssessment `json:"medical,omitempty"`
	Validation        *ValidationOutcome `json:"validation,omitempty"`
	OverallConfidence float64            `json:"overall_confidence"` // [0,100]
	Urgency           UrgencyLevel       `json:"urgency"`
	Degraded          bool               `json:"degraded"`
}

// DiagnosticError is one captured failure; kinds only, never raw payloads,
// so sensitive transcripts cannot leak into logs or responses.
type DiagnosticError struct {
	Stage   string `json:"stage"` // transcription, reasoning, validation, normalization, persistence
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Diagnostics reports which adapters ran, which were skipped, and every
// captured failure for one Assess call.
type Diagnostics struct {
	AdaptersRan     []string          `json:"adapters_ran,omitempty"`
	AdaptersSkipped []string          `json:"adapters_skipped,omitempty"`
	Errors          []DiagnosticError `json:"errors,omitempty"`
	Elapsed         time.Duration     `json:"elapsed"`
}
