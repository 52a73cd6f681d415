package assess

import (
	"github.com/neurotriage/neurotriage/speech"
)

// Deterministic fallback rule constants. The fallback assessment is
// computed directly from numeric thresholds on the available metrics when
// the reasoning adapter is unavailable or its output failed normalization,
// so the call never returns with no risk assessment at all.
const (
	// Risk score contributions per triggered rule.
	fallbackPointsSevereSpeech   = 30.0
	fallbackPointsModerateSpeech = 15.0
	fallbackPointsMildSpeech     = 5.0
	fallbackPointsLongPauses     = 15.0
	fallbackPointsLowAccuracy    = 15.0
	fallbackPointsSlowRate       = 10.0
	fallbackPointsFacialDroop    = 30.0
	fallbackPointsFacialMild     = 15.0
	fallbackPointsArmDrift       = 25.0
	fallbackPointsBalance        = 10.0

	// Metric thresholds for the vision/posture rules.
	fallbackFacialSevere  = 0.6
	fallbackFacialMild    = 0.3
	fallbackArmDriftLimit = 0.5
	fallbackBalanceLimit  = 0.5
	fallbackAccuracyFloor = 0.75

	// Risk score to risk level banding.
	fallbackCriticalScore = 80.0
	fallbackHighScore     = 60.0
	fallbackModerateScore = 35.0

	// Reported confidence of a rule-based assessment. Deliberately low: the
	// rules are a screening floor, not a clinical model.
	fallbackConfidence = 40.0
)

// fallbackRule is one named row of the rule table.
type fallbackRule struct {
	Name    string
	Points  float64
	Applies func(ev fallbackEvidence) bool
	Finding string
}

type fallbackEvidence struct {
	Speech  *speech.Features
	Facial  *FacialMetrics
	Posture *PostureMetrics
}

// fallbackRules is evaluated in order; every matching rule contributes its
// points and finding. Keeping the table explicit makes the rule-based path
// auditable and independently testable.
var fallbackRules = []fallbackRule{
	{
		Name:   "severe-disfluency",
		Points: fallbackPointsSevereSpeech,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Speech != nil && ev.Speech.Disfluency.Severity == speech.SeveritySevere
		},
		Finding: "severe speech disfluency",
	},
	{
		Name:   "moderate-disfluency",
		Points: fallbackPointsModerateSpeech,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Speech != nil && ev.Speech.Disfluency.Severity == speech.SeverityModerate
		},
		Finding: "moderate speech disfluency",
	},
	{
		Name:   "mild-disfluency",
		Points: fallbackPointsMildSpeech,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Speech != nil && ev.Speech.Disfluency.Severity == speech.SeverityMild
		},
		Finding: "mild speech disfluency",
	},
	{
		Name:   "long-pauses",
		Points: fallbackPointsLongPauses,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Speech != nil && len(ev.Speech.Pauses.LongPauses) > 0
		},
		Finding: "abnormal long pauses in speech",
	},
	{
		Name:   "low-pronunciation-accuracy",
		Points: fallbackPointsLowAccuracy,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Speech != nil && ev.Speech.Pronunciation.Accuracy > 0 &&
				ev.Speech.Pronunciation.Accuracy < fallbackAccuracyFloor
		},
		Finding: "reduced pronunciation accuracy",
	},
	{
		Name:   "abnormal-speech-rate",
		Points: fallbackPointsSlowRate,
		Applies: func(ev fallbackEvidence) bool {
			if ev.Speech == nil {
				return false
			}
			band := ev.Speech.Rate.Band
			return band == speech.RateVerySlow || band == speech.RateVeryFast
		},
		Finding: "abnormal speech rate",
	},
	{
		Name:   "facial-droop-severe",
		Points: fallbackPointsFacialDroop,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Facial != nil && maxFacialScore(ev.Facial) >= fallbackFacialSevere
		},
		Finding: "pronounced facial asymmetry or droop",
	},
	{
		Name:   "facial-droop-mild",
		Points: fallbackPointsFacialMild,
		Applies: func(ev fallbackEvidence) bool {
			if ev.Facial == nil {
				return false
			}
			score := maxFacialScore(ev.Facial)
			return score >= fallbackFacialMild && score < fallbackFacialSevere
		},
		Finding: "mild facial asymmetry",
	},
	{
		Name:   "arm-drift",
		Points: fallbackPointsArmDrift,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Posture != nil && ev.Posture.ArmDriftScore >= fallbackArmDriftLimit
		},
		Finding: "arm drift detected",
	},
	{
		Name:   "balance-impairment",
		Points: fallbackPointsBalance,
		Applies: func(ev fallbackEvidence) bool {
			return ev.Posture != nil && ev.Posture.BalanceScore >= fallbackBalanceLimit
		},
		Finding: "balance impairment",
	},
}

// FallbackAssessment computes the deterministic rule-based assessment from
// whatever metrics are available.
func FallbackAssessment(sp *speech.Features, facial *FacialMetrics, posture *PostureMetrics) *MedicalAssessment {
	ev := fallbackEvidence{Speech: sp, Facial: facial, Posture: posture}

	score := 0.0
	var findings []string
	for _, rule := range fallbackRules {
		if rule.Applies(ev) {
			score += rule.Points
			findings = append(findings, rule.Finding)
		}
	}
	score = clamp(score, 0, 100)

	level := RiskLow
	switch {
	case score >= fallbackCriticalScore:
		level = RiskCritical
	case score >= fallbackHighScore:
		level = RiskHigh
	case score >= fallbackModerateScore:
		level = RiskModerate
	}

	return &MedicalAssessment{
		RiskLevel:        level,
		RiskScore:        score,
		ClinicalFindings: findings,
		Recommendations:  fallbackRecommendations(level),
		Confidence:       fallbackConfidence,
	}
}

func fallbackRecommendations(level RiskLevel) []string {
	base := "rule-based screening only; clinical evaluation recommended"
	switch level {
	case RiskCritical, RiskHigh:
		return []string{"seek emergency medical attention immediately", base}
	case RiskModerate:
		return []string{"arrange prompt medical review", base}
	default:
		return []string{base}
	}
}

func maxFacialScore(m *FacialMetrics) float64 {
	score := m.AsymmetryScore
	if m.EyeDroopScore > score {
		score = m.EyeDroopScore
	}
	if m.MouthDroopScore > score {
		score = m.MouthDroopScore
	}
	return score
}
