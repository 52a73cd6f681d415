package speech

import (
	"reflect"
	"testing"

	"github.com/neurotriage/neurotriage/provider"
)

// evenTokens builds n tokens evenly spread over totalMs with the given
// confidence.
func evenTokens(n int, totalMs int64, confidence float64) []provider.Token {
	tokens := make([]provider.Token, n)
	step := totalMs / int64(n)
	for i := range tokens {
		start := int64(i) * step
		tokens[i] = provider.Token{
			Text:       "word",
			StartMs:    start,
			EndMs:      start + step,
			Confidence: confidence,
		}
	}
	// Pin the final end so elapsed time is exact.
	tokens[n-1].EndMs = totalMs
	return tokens
}

func TestExtractDeterministic(t *testing.T) {
	res := provider.TranscriptionResult{
		Text:              "the quick brown fox",
		OverallConfidence: 0.9,
		Tokens: []provider.Token{
			{Text: "the", StartMs: 0, EndMs: 200, Confidence: 0.95},
			{Text: "quick", StartMs: 900, EndMs: 1200, Confidence: 0.6},
			{Text: "brown", StartMs: 2900, EndMs: 3100, Confidence: 0.9},
			{Text: "fox", StartMs: 3200, EndMs: 3400, Confidence: 0.85},
		},
	}

	first := Extract(res, Thresholds{})
	second := Extract(res, Thresholds{})
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical input produced different features")
	}
}

func TestPauseClassification(t *testing.T) {
	tests := []struct {
		name     string
		gapMs    int64
		long     bool
		severity Severity
	}{
		{"below counting threshold", 400, false, SeverityNone},
		{"counted but not long", 800, false, SeverityNone},
		{"moderate long pause", 1500, true, SeverityModerate},
		{"severe long pause", 3500, true, SeveritySevere},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := []provider.Token{
				{Text: "hello", StartMs: 0, EndMs: 500, Confidence: 0.9},
				{Text: "world", StartMs: 500 + tt.gapMs, EndMs: 1000 + tt.gapMs, Confidence: 0.9},
			}
			f := Extract(provider.TranscriptionResult{Tokens: tokens}, Thresholds{})

			if tt.long {
				if len(f.Pauses.LongPauses) != 1 {
					t.Fatalf("expected 1 long pause, got %d", len(f.Pauses.LongPauses))
				}
				if got := f.Pauses.LongPauses[0].Severity; got != tt.severity {
					t.Errorf("expected severity %s, got %s", tt.severity, got)
				}
			} else if len(f.Pauses.LongPauses) != 0 {
				t.Errorf("expected no long pauses, got %d", len(f.Pauses.LongPauses))
			}
		})
	}
}

func TestPauseCounting(t *testing.T) {
	tokens := []provider.Token{
		{Text: "a", StartMs: 0, EndMs: 100, Confidence: 0.9},
		{Text: "b", StartMs: 700, EndMs: 800, Confidence: 0.9},  // 600ms gap, counted
		{Text: "c", StartMs: 1100, EndMs: 1200, Confidence: 0.9}, // 300ms gap, ignored
	}
	f := Extract(provider.TranscriptionResult{Tokens: tokens}, Thresholds{})
	if f.Pauses.Count != 1 {
		t.Errorf("expected 1 counted pause, got %d", f.Pauses.Count)
	}
	if f.Pauses.MaxPauseMs != 600 {
		t.Errorf("expected max pause 600ms, got %d", f.Pauses.MaxPauseMs)
	}
}

func TestRateBanding(t *testing.T) {
	tests := []struct {
		name   string
		tokens int
		ms     int64
		band   RateBand
	}{
		{"90 wpm is very slow", 90, 60_000, RateVerySlow},
		{"120 wpm is slow", 120, 60_000, RateSlow},
		{"160 wpm is normal", 160, 60_000, RateNormal},
		{"200 wpm is fast", 200, 60_000, RateFast},
		{"240 wpm is very fast", 240, 60_000, RateVeryFast},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := provider.TranscriptionResult{Tokens: evenTokens(tt.tokens, tt.ms, 0.9)}
			f := Extract(res, Thresholds{})
			if f.Rate.Band != tt.band {
				t.Errorf("expected band %s, got %s (%.1f wpm)", tt.band, f.Rate.Band, f.Rate.WordsPerMinute)
			}
		})
	}
}

func TestDisfluencyScenario(t *testing.T) {
	// Two adjacent identical tokens plus one filler out of 20 tokens:
	// repetitions=2, fillers=1, rate exactly 3/20 = 0.15.
	tokens := evenTokens(20, 20_000, 0.9)
	tokens[3].Text = "the"
	tokens[4].Text = "the"
	tokens[10].Text = "um"
	for i := range tokens {
		if tokens[i].Text == "word" {
			// Keep surrounding words distinct so no extra repeats appear.
			tokens[i].Text = tokens[i].Text + string(rune('a'+i))
		}
	}

	f := Extract(provider.TranscriptionResult{Tokens: tokens}, Thresholds{})

	if f.Disfluency.Fillers != 1 {
		t.Errorf("expected 1 filler, got %d", f.Disfluency.Fillers)
	}
	if f.Disfluency.Repetitions != 2 {
		t.Errorf("expected 2 repetitions, got %d", f.Disfluency.Repetitions)
	}
	if f.Disfluency.Rate != 0.15 {
		t.Errorf("expected rate 0.15, got %v", f.Disfluency.Rate)
	}
	// The severe boundary is exclusive: exactly 0.15 bands moderate.
	if f.Disfluency.Severity != SeverityModerate {
		t.Errorf("expected moderate at the 0.15 boundary, got %s", f.Disfluency.Severity)
	}
}

func TestDisfluencyBandBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		fillers  int
		rate     float64
		severity Severity
	}{
		{"just above severe boundary", 1501, 0.1501, SeveritySevere},
		{"exactly severe boundary", 1500, 0.15, SeverityModerate},
		{"exactly moderate boundary", 800, 0.08, SeverityMild},
		{"exactly mild boundary", 300, 0.03, SeverityNone},
		{"clean speech", 0, 0.0, SeverityNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 10000 tokens gives enough resolution to hit each rate exactly.
			total := 10_000
			tokens := evenTokens(total, 600_000, 0.9)
			for i := range tokens {
				tokens[i].Text = tokens[i].Text + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26))
			}
			for i := 0; i < tt.fillers; i++ {
				tokens[i*2].Text = "um"
			}

			f := Extract(provider.TranscriptionResult{Tokens: tokens}, Thresholds{})
			if f.Disfluency.Rate != tt.rate {
				t.Fatalf("test setup produced rate %v, want %v", f.Disfluency.Rate, tt.rate)
			}
			if f.Disfluency.Severity != tt.severity {
				t.Errorf("rate %v: expected %s, got %s", tt.rate, tt.severity, f.Disfluency.Severity)
			}
		})
	}
}

func TestHesitationCounting(t *testing.T) {
	tokens := []provider.Token{
		{Text: "clear", StartMs: 0, EndMs: 200, Confidence: 0.95},
		{Text: "mumbled", StartMs: 300, EndMs: 500, Confidence: 0.5},
		{Text: "unsure", StartMs: 600, EndMs: 800, Confidence: 0.69},
	}
	f := Extract(provider.TranscriptionResult{Tokens: tokens}, Thresholds{})
	if f.Disfluency.Hesitations != 2 {
		t.Errorf("expected 2 hesitations below 0.7, got %d", f.Disfluency.Hesitations)
	}
}

func TestPronunciationFlagging(t *testing.T) {
	tokens := []provider.Token{
		{Text: "British", StartMs: 0, EndMs: 300, Confidence: 0.6},
		{Text: "constitution", StartMs: 400, EndMs: 900, Confidence: 0.9},
		{Text: "hospital", StartMs: 1000, EndMs: 1400, Confidence: 0.75},
		{Text: "banana", StartMs: 1500, EndMs: 1800, Confidence: 0.4}, // not a reference word
	}
	f := Extract(provider.TranscriptionResult{Tokens: tokens}, Thresholds{})

	want := []string{"british", "hospital"}
	if !reflect.DeepEqual(f.Pronunciation.FlaggedWords, want) {
		t.Errorf("expected flagged %v, got %v", want, f.Pronunciation.FlaggedWords)
	}

	wantAcc := (0.6 + 0.9 + 0.75 + 0.4) / 4
	if diff := f.Pronunciation.Accuracy - wantAcc; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected accuracy %v, got %v", wantAcc, f.Pronunciation.Accuracy)
	}
}

func TestExtractEmptyTokens(t *testing.T) {
	f := Extract(provider.TranscriptionResult{}, Thresholds{})
	if f.Pauses.Count != 0 || f.Disfluency.Rate != 0 || f.Rate.WordsPerMinute != 0 {
		t.Error("empty input should produce zeroed features")
	}
	if f.Disfluency.Severity != SeverityNone {
		t.Errorf("expected severity none, got %s", f.Disfluency.Severity)
	}
}
