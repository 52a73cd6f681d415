package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/neurotriage/neurotriage/assess"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func sampleAssessment(id string) *assess.AggregatedAssessment {
	return &assess.AggregatedAssessment{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Medical: &assess.MedicalAssessment{
			RiskLevel:  assess.RiskModerate,
			RiskScore:  45,
			Confidence: 80,
		},
		OverallConfidence: 78,
		Urgency:           assess.UrgencyUrgent,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := sampleAssessment("a-1")
	d := &assess.Diagnostics{
		AdaptersRan: []string{"primary"},
		Errors:      []assess.DiagnosticError{{Stage: "validation", Kind: "unavailable", Message: "down"}},
	}
	if err := s.Save(ctx, a, d); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := s.Get(ctx, "a-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.RiskLevel != "moderate" || rec.RiskScore != 45 {
		t.Errorf("unexpected scalar columns: %+v", rec)
	}
	if rec.OverallConfidence != 78 || rec.Urgency != "urgent" {
		t.Errorf("unexpected confidence columns: %+v", rec)
	}
	if rec.ErrorCount != 1 {
		t.Errorf("expected error count 1, got %d", rec.ErrorCount)
	}

	var stored assess.AggregatedAssessment
	if err := json.Unmarshal([]byte(rec.Assessment), &stored); err != nil {
		t.Fatalf("stored assessment is not valid JSON: %v", err)
	}
	if stored.Medical.RiskLevel != assess.RiskModerate {
		t.Errorf("round-tripped risk level %s", stored.Medical.RiskLevel)
	}
}

func TestSaveWithoutMedical(t *testing.T) {
	s := openTestStore(t)

	a := sampleAssessment("a-2")
	a.Medical = nil
	if err := s.Save(context.Background(), a, &assess.Diagnostics{}); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := s.Get(context.Background(), "a-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.RiskLevel != "" || rec.RiskScore != 0 {
		t.Errorf("expected empty risk columns, got %+v", rec)
	}
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.Get(context.Background(), "nope"); err == nil {
		t.Fatal("expected an error for a missing record")
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		a := sampleAssessment(id)
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.Save(ctx, a, &assess.Diagnostics{}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	recs, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].ID != "new" || recs[1].ID != "mid" {
		t.Errorf("expected [new mid], got [%s %s]", recs[0].ID, recs[1].ID)
	}
}
