package assess

import (
	"errors"
	"testing"
)

func TestNormalizeAssessmentWellFormed(t *testing.T) {
	text := `{
		"risk_level": "high",
		"risk_score": 72,
		"territorial_likelihoods": {"mca": 0.8, "pca": 0.1},
		"clinical_findings": ["slurred speech"],
		"recommendations": ["urgent evaluation"],
		"confidence": 85
	}`

	got, err := NormalizeAssessment(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RiskLevel != RiskHigh {
		t.Errorf("expected risk level high, got %s", got.RiskLevel)
	}
	if got.RiskScore != 72 {
		t.Errorf("expected risk score 72, got %v", got.RiskScore)
	}
	if got.Confidence != 85 {
		t.Errorf("expected confidence 85, got %v", got.Confidence)
	}
	if got.TerritorialLikelihoods["mca"] != 0.8 {
		t.Errorf("expected mca likelihood 0.8, got %v", got.TerritorialLikelihoods["mca"])
	}
}

func TestNormalizeAssessmentCodeFence(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"fence with language tag", "```json\n{\"risk_level\": \"low\", \"risk_score\": 10}\n```"},
		{"bare fence", "```\n{\"risk_level\": \"low\", \"risk_score\": 10}\n```"},
		{"embedded in prose", "Here is my assessment:\n{\"risk_level\": \"low\", \"risk_score\": 10}\nLet me know if you need more."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeAssessment(tt.text)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.RiskLevel != RiskLow || got.RiskScore != 10 {
				t.Errorf("got %s/%v, want low/10", got.RiskLevel, got.RiskScore)
			}
		})
	}
}

func TestNormalizeAssessmentRiskLevelVocabulary(t *testing.T) {
	tests := []struct {
		in   string
		want RiskLevel
	}{
		{"low", RiskLow},
		{"none", RiskLow},
		{"mild", RiskLow},
		{"moderate", RiskModerate},
		{"medium", RiskModerate},
		{"MEDIUM", RiskModerate},
		{"high", RiskHigh},
		{"severe", RiskHigh},
		{"critical", RiskCritical},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeAssessment(`{"risk_level": "` + tt.in + `", "risk_score": 50}`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.RiskLevel != tt.want {
				t.Errorf("%q normalized to %s, want %s", tt.in, got.RiskLevel, tt.want)
			}
		})
	}
}

func TestNormalizeAssessmentFailures(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"not json", "the patient seems fine to me"},
		{"empty", ""},
		{"unknown risk level", `{"risk_level": "catastrophic", "risk_score": 90}`},
		{"missing risk score", `{"risk_level": "high"}`},
		{"prose without object", "risk level: high, score: 90"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeAssessment(tt.text)
			if err == nil {
				t.Fatal("expected an error")
			}
			var nf *NormalizationFailure
			if !errors.As(err, &nf) {
				t.Errorf("expected *NormalizationFailure, got %T", err)
			}
		})
	}
}

func TestNormalizeAssessmentClamping(t *testing.T) {
	text := `{
		"risk_level": "moderate",
		"risk_score": 250,
		"territorial_likelihoods": {"mca": 1.7, "pca": -0.2},
		"confidence": -5
	}`

	got, err := NormalizeAssessment(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RiskScore != 100 {
		t.Errorf("risk score should clamp to 100, got %v", got.RiskScore)
	}
	if got.Confidence != 0 {
		t.Errorf("confidence should clamp to 0, got %v", got.Confidence)
	}
	if got.TerritorialLikelihoods["mca"] != 1 {
		t.Errorf("likelihood should clamp to 1, got %v", got.TerritorialLikelihoods["mca"])
	}
	if got.TerritorialLikelihoods["pca"] != 0 {
		t.Errorf("likelihood should clamp to 0, got %v", got.TerritorialLikelihoods["pca"])
	}
}

func TestNormalizeAssessmentDefaultConfidence(t *testing.T) {
	got, err := NormalizeAssessment(`{"risk_level": "low", "risk_score": 5}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Confidence != defaultReportedConfidence {
		t.Errorf("expected default confidence %v, got %v", defaultReportedConfidence, got.Confidence)
	}
}

func TestNormalizeValidation(t *testing.T) {
	got, err := NormalizeValidation(`{"verdict": "corroborate", "confidence_delta": 12, "confidence": 70, "notes": ["agrees with findings"]}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Verdict != VerdictCorroborate {
		t.Errorf("expected verdict corroborate, got %s", got.Verdict)
	}
	if got.ConfidenceDelta != 12 {
		t.Errorf("expected delta 12, got %v", got.ConfidenceDelta)
	}
	if got.Confidence != 70 {
		t.Errorf("expected confidence 70, got %v", got.Confidence)
	}
}

func TestNormalizeValidationDeltaClamping(t *testing.T) {
	got, err := NormalizeValidation(`{"verdict": "contradict", "confidence_delta": -45}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ConfidenceDelta != -20 {
		t.Errorf("delta should clamp to -20, got %v", got.ConfidenceDelta)
	}
}

func TestNormalizeValidationDefaultDelta(t *testing.T) {
	tests := []struct {
		verdict string
		delta   float64
	}{
		{"corroborate", 10},
		{"neutral", 0},
		{"contradict", -10},
	}

	for _, tt := range tests {
		t.Run(tt.verdict, func(t *testing.T) {
			got, err := NormalizeValidation(`{"verdict": "` + tt.verdict + `"}`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.ConfidenceDelta != tt.delta {
				t.Errorf("expected default delta %v for %s, got %v", tt.delta, tt.verdict, got.ConfidenceDelta)
			}
		})
	}
}

func TestNormalizeValidationBadVerdict(t *testing.T) {
	_, err := NormalizeValidation(`{"verdict": "maybe"}`)
	var nf *NormalizationFailure
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NormalizationFailure, got %v", err)
	}
}
