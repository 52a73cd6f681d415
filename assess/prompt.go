package assess

import (
	"fmt"
	"strings"

	"github.com/neurotriage/neurotriage/speech"
)

// NotAvailable is the sentinel rendered for any absent modality. Sections
// are never silently blank, so the reasoning adapter can always tell a
// missing signal from a normal one and identical input yields an identical
// prompt.
const NotAvailable = "not available"

// PromptInput carries everything the builder may render. Nil fields render
// the NotAvailable sentinel.
type PromptInput struct {
	Transcript string
	Speech     *speech.Features
	Facial     *FacialMetrics
	Posture    *PostureMetrics
	Context    *PatientContext
}

// responseSchema is the JSON shape the reasoning adapter is instructed to
// produce; the normalizer validates against the same field set.
const responseSchema = `{
  "risk_level": "low | moderate | high | critical",
  "risk_score": 0-100,
  "territorial_likelihoods": {"mca": 0.0-1.0, "pca": 0.0-1.0, "posterior_circulation": 0.0-1.0},
  "clinical_findings": ["..."],
  "recommendations": ["..."],
  "confidence": 0-100
}`

// BuildAssessmentPrompt assembles the deterministic, ordered clinical
// prompt for the primary reasoning adapter.
func BuildAssessmentPrompt(in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("You are a clinical decision-support assistant screening for neurological stroke risk.\n")
	sb.WriteString("Assess the evidence below. Signals marked \"" + NotAvailable + "\" were not captured; do not infer them.\n\n")

	sb.WriteString("## Speech Analysis\n")
	writeSpeechSection(&sb, in.Transcript, in.Speech)

	sb.WriteString("\n## Facial Metrics\n")
	writeFacialSection(&sb, in.Facial)

	sb.WriteString("\n## Posture Metrics\n")
	writePostureSection(&sb, in.Posture)

	sb.WriteString("\n## Patient Context\n")
	writeContextSection(&sb, in.Context)

	sb.WriteString("\n## Response Format\n")
	sb.WriteString("Respond ONLY with a JSON object matching this schema, no other text:\n")
	sb.WriteString(responseSchema)
	sb.WriteString("\n")

	return sb.String()
}

// BuildValidationPrompt asks the secondary adapter to critique a primary
// assessment against the same evidence.
func BuildValidationPrompt(primary MedicalAssessment, in PromptInput) string {
	var sb strings.Builder

	sb.WriteString("You are independently reviewing another model's stroke risk assessment.\n")
	sb.WriteString("Judge whether the evidence supports it. Do not produce your own diagnosis.\n\n")

	sb.WriteString("## Primary Assessment\n")
	fmt.Fprintf(&sb, "risk_level: %s\n", primary.RiskLevel)
	fmt.Fprintf(&sb, "risk_score: %.0f\n", primary.RiskScore)
	fmt.Fprintf(&sb, "confidence: %.0f\n", primary.Confidence)
	if len(primary.ClinicalFindings) > 0 {
		fmt.Fprintf(&sb, "findings: %s\n", strings.Join(primary.ClinicalFindings, "; "))
	}

	sb.WriteString("\n## Evidence\n")
	sb.WriteString("### Speech Analysis\n")
	writeSpeechSection(&sb, in.Transcript, in.Speech)
	sb.WriteString("\n### Facial Metrics\n")
	writeFacialSection(&sb, in.Facial)
	sb.WriteString("\n### Posture Metrics\n")
	writePostureSection(&sb, in.Posture)

	sb.WriteString("\n## Response Format\n")
	sb.WriteString(`Respond ONLY with a JSON object, no other text:
{
  "verdict": "corroborate | neutral | contradict",
  "confidence_delta": -20 to 20,
  "confidence": 0-100,
  "notes": ["..."]
}
`)

	return sb.String()
}

func writeSpeechSection(sb *strings.Builder, transcript string, f *speech.Features) {
	if transcript == "" && f == nil {
		sb.WriteString(NotAvailable + "\n")
		return
	}

	if transcript != "" {
		fmt.Fprintf(sb, "Transcript: %q\n", transcript)
	} else {
		sb.WriteString("Transcript: " + NotAvailable + "\n")
	}

	if f == nil {
		sb.WriteString("Speech metrics: " + NotAvailable + "\n")
		return
	}

	fmt.Fprintf(sb, "Pauses: %d counted, %d long, max %dms, severity %s\n",
		f.Pauses.Count, len(f.Pauses.LongPauses), f.Pauses.MaxPauseMs, f.Pauses.Severity)
	fmt.Fprintf(sb, "Disfluency: rate %.3f (%d fillers, %d repetitions, %d hesitations), severity %s\n",
		f.Disfluency.Rate, f.Disfluency.Fillers, f.Disfluency.Repetitions,
		f.Disfluency.Hesitations, f.Disfluency.Severity)
	fmt.Fprintf(sb, "Pronunciation: accuracy %.2f", f.Pronunciation.Accuracy)
	if len(f.Pronunciation.FlaggedWords) > 0 {
		fmt.Fprintf(sb, ", flagged words: %s", strings.Join(f.Pronunciation.FlaggedWords, ", "))
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "Rate: %.0f wpm (%s)\n", f.Rate.WordsPerMinute, f.Rate.Band)
	for _, ind := range f.IndicatorSummary {
		fmt.Fprintf(sb, "Indicator: %s\n", ind)
	}
}

func writeFacialSection(sb *strings.Builder, m *FacialMetrics) {
	if m == nil {
		sb.WriteString(NotAvailable + "\n")
		return
	}
	fmt.Fprintf(sb, "Asymmetry: %.2f\n", m.AsymmetryScore)
	fmt.Fprintf(sb, "Eye droop: %.2f\n", m.EyeDroopScore)
	fmt.Fprintf(sb, "Mouth droop: %.2f\n", m.MouthDroopScore)
	fmt.Fprintf(sb, "Detection confidence: %.2f\n", m.Confidence)
}

func writePostureSection(sb *strings.Builder, m *PostureMetrics) {
	if m == nil {
		sb.WriteString(NotAvailable + "\n")
		return
	}
	fmt.Fprintf(sb, "Arm drift: %.2f\n", m.ArmDriftScore)
	fmt.Fprintf(sb, "Balance: %.2f\n", m.BalanceScore)
	fmt.Fprintf(sb, "Detection confidence: %.2f\n", m.Confidence)
}

func writeContextSection(sb *strings.Builder, c *PatientContext) {
	if c == nil {
		sb.WriteString(NotAvailable + "\n")
		return
	}
	if c.Age > 0 {
		fmt.Fprintf(sb, "Age: %d\n", c.Age)
	} else {
		sb.WriteString("Age: " + NotAvailable + "\n")
	}
	if c.Sex != "" {
		fmt.Fprintf(sb, "Sex: %s\n", c.Sex)
	}
	if len(c.MedicalHistory) > 0 {
		fmt.Fprintf(sb, "History: %s\n", strings.Join(c.MedicalHistory, ", "))
	}
	if len(c.Medications) > 0 {
		fmt.Fprintf(sb, "Medications: %s\n", strings.Join(c.Medications, ", "))
	}
	if c.SymptomOnset != "" {
		fmt.Fprintf(sb, "Symptom onset: %s\n", c.SymptomOnset)
	}
}
