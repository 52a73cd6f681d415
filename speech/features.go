package speech

import (
	"fmt"
	"strings"

	"github.com/neurotriage/neurotriage/provider"
)

// Severity grades one speech signal.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// RateBand classifies speaking speed.
type RateBand string

const (
	RateVerySlow RateBand = "very_slow"
	RateSlow     RateBand = "slow"
	RateNormal   RateBand = "normal"
	RateFast     RateBand = "fast"
	RateVeryFast RateBand = "very_fast"
)

// LongPause is one inter-token gap above the long-pause threshold.
type LongPause struct {
	AfterToken int      `json:"after_token"` // index of the token the pause follows
	DurationMs int64    `json:"duration_ms"`
	Severity   Severity `json:"severity"`
}

// PauseStats summarizes inter-token gaps.
type PauseStats struct {
	Count        int         `json:"count"` // pauses above the counting threshold
	LongPauses   []LongPause `json:"long_pauses,omitempty"`
	TotalPauseMs int64       `json:"total_pause_ms"`
	MaxPauseMs   int64       `json:"max_pause_ms"`
	Severity     Severity    `json:"severity"`
}

// DisfluencyStats summarizes hesitation markers.
type DisfluencyStats struct {
	Fillers     int      `json:"fillers"`
	Repetitions int      `json:"repetitions"`
	Hesitations int      `json:"hesitations"` // low-confidence tokens
	Rate        float64  `json:"rate"`        // (fillers + repetitions) / tokens
	Severity    Severity `json:"severity"`
}

// PronunciationStats summarizes articulation of reference words.
type PronunciationStats struct {
	FlaggedWords []string `json:"flagged_words,omitempty"`
	Accuracy     float64  `json:"accuracy"` // mean token confidence
}

// RateStats summarizes speaking speed.
type RateStats struct {
	WordsPerMinute float64  `json:"words_per_minute"`
	Band           RateBand `json:"band"`
}

// Features is the full derived speech profile for one transcription.
type Features struct {
	Pauses           PauseStats         `json:"pauses"`
	Disfluency       DisfluencyStats    `json:"disfluency"`
	Pronunciation    PronunciationStats `json:"pronunciation"`
	Rate             RateStats          `json:"rate"`
	IndicatorSummary []string           `json:"indicator_summary,omitempty"`
}

// Extract derives Features from a transcription result. It is deterministic
// and makes no calls; zero-valued threshold fields fall back to the
// reference defaults.
func Extract(res provider.TranscriptionResult, th Thresholds) Features {
	th = th.withDefaults()

	f := Features{
		Pauses:        extractPauses(res.Tokens, th),
		Disfluency:    extractDisfluency(res.Tokens, th),
		Pronunciation: extractPronunciation(res.Tokens, th),
		Rate:          extractRate(res.Tokens, th),
	}
	f.IndicatorSummary = summarize(f)
	return f
}

func extractPauses(tokens []provider.Token, th Thresholds) PauseStats {
	stats := PauseStats{Severity: SeverityNone}

	for i := 1; i < len(tokens); i++ {
		gap := tokens[i].StartMs - tokens[i-1].EndMs
		if gap <= th.PauseCountMs {
			continue
		}
		stats.Count++
		stats.TotalPauseMs += gap
		if gap > stats.MaxPauseMs {
			stats.MaxPauseMs = gap
		}
		if gap > th.PauseLongMs {
			sev := SeverityModerate
			if gap > th.PauseSevereMs {
				sev = SeveritySevere
			}
			stats.LongPauses = append(stats.LongPauses, LongPause{
				AfterToken: i - 1,
				DurationMs: gap,
				Severity:   sev,
			})
		}
	}

	for _, lp := range stats.LongPauses {
		if severityRank(lp.Severity) > severityRank(stats.Severity) {
			stats.Severity = lp.Severity
		}
	}
	return stats
}

func extractDisfluency(tokens []provider.Token, th Thresholds) DisfluencyStats {
	stats := DisfluencyStats{Severity: SeverityNone}
	if len(tokens) == 0 {
		return stats
	}

	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = normalizeWord(tok.Text)
	}

	for i, tok := range tokens {
		word := words[i]

		if fillerLexicon[word] {
			stats.Fillers++
		} else if word == fillerBigram[1] && i > 0 && words[i-1] == fillerBigram[0] {
			stats.Fillers++
		}

		// Every token belonging to an adjacent-repeat run counts, so a
		// doubled word ("the the") contributes two repetitions.
		if word != "" &&
			((i > 0 && words[i-1] == word) || (i < len(words)-1 && words[i+1] == word)) {
			stats.Repetitions++
		}

		if tok.Confidence < th.HesitationConfidence {
			stats.Hesitations++
		}
	}

	stats.Rate = float64(stats.Fillers+stats.Repetitions) / float64(len(tokens))

	switch {
	case stats.Rate > th.DisfluencySevere:
		stats.Severity = SeveritySevere
	case stats.Rate > th.DisfluencyModerate:
		stats.Severity = SeverityModerate
	case stats.Rate > th.DisfluencyMild:
		stats.Severity = SeverityMild
	}
	return stats
}

func extractPronunciation(tokens []provider.Token, th Thresholds) PronunciationStats {
	stats := PronunciationStats{}
	if len(tokens) == 0 {
		return stats
	}

	sum := 0.0
	for _, tok := range tokens {
		sum += tok.Confidence
		word := normalizeWord(tok.Text)
		if referenceWords[word] && tok.Confidence < th.PronunciationConfidence {
			stats.FlaggedWords = append(stats.FlaggedWords, word)
		}
	}
	stats.Accuracy = sum / float64(len(tokens))
	return stats
}

func extractRate(tokens []provider.Token, th Thresholds) RateStats {
	stats := RateStats{Band: RateNormal}
	if len(tokens) == 0 {
		return stats
	}

	elapsedMs := tokens[len(tokens)-1].EndMs - tokens[0].StartMs
	if elapsedMs <= 0 {
		return stats
	}

	stats.WordsPerMinute = float64(len(tokens)) / (float64(elapsedMs) / 1000.0) * 60.0

	switch {
	case stats.WordsPerMinute < th.RateVerySlow:
		stats.Band = RateVerySlow
	case stats.WordsPerMinute < th.RateSlow:
		stats.Band = RateSlow
	case stats.WordsPerMinute < th.RateNormal:
		stats.Band = RateNormal
	case stats.WordsPerMinute < th.RateFast:
		stats.Band = RateFast
	default:
		stats.Band = RateVeryFast
	}
	return stats
}

// summarize builds the human-readable indicator list carried into prompts
// and persisted records.
func summarize(f Features) []string {
	var out []string

	if n := len(f.Pauses.LongPauses); n > 0 {
		out = append(out, fmt.Sprintf("%d long pause(s), longest %dms, severity %s",
			n, f.Pauses.MaxPauseMs, f.Pauses.Severity))
	}
	if f.Disfluency.Severity != SeverityNone {
		out = append(out, fmt.Sprintf("disfluency rate %.3f (%d fillers, %d repetitions), severity %s",
			f.Disfluency.Rate, f.Disfluency.Fillers, f.Disfluency.Repetitions, f.Disfluency.Severity))
	}
	if len(f.Pronunciation.FlaggedWords) > 0 {
		out = append(out, fmt.Sprintf("possible mispronunciation of: %s",
			strings.Join(f.Pronunciation.FlaggedWords, ", ")))
	}
	if f.Rate.Band == RateVerySlow || f.Rate.Band == RateVeryFast {
		out = append(out, fmt.Sprintf("speech rate %.0f wpm (%s)", f.Rate.WordsPerMinute, f.Rate.Band))
	}
	return out
}

func normalizeWord(s string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(s)), ".,!?;:\"'")
}

func severityRank(s Severity) int {
	switch s {
	case SeveritySevere:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMild:
		return 1
	default:
		return 0
	}
}
