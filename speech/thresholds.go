package speech

// Default extraction thresholds. These must match the reference behavior
// exactly; they are named rather than inlined so the banding rules stay
// auditable.
const (
	// DefaultPauseCountMs is the minimum gap between tokens counted as a pause.
	DefaultPauseCountMs int64 = 500
	// DefaultPauseLongMs is the minimum gap flagged as a long pause.
	DefaultPauseLongMs int64 = 1000
	// DefaultPauseSevereMs is the gap above which a long pause is severe
	// rather than moderate.
	DefaultPauseSevereMs int64 = 3000

	// DefaultHesitationConfidence marks tokens below this adapter-reported
	// confidence as hesitations.
	DefaultHesitationConfidence = 0.7
	// DefaultPronunciationConfidence flags reference words below this
	// confidence as mispronounced.
	DefaultPronunciationConfidence = 0.8

	// Disfluency rate bands. Boundaries are exclusive: a rate of exactly
	// 0.15 bands as moderate, 0.1501 as severe.
	DefaultDisfluencySevere   = 0.15
	DefaultDisfluencyModerate = 0.08
	DefaultDisfluencyMild     = 0.03

	// Words-per-minute band boundaries.
	DefaultRateVerySlow = 100.0
	DefaultRateSlow     = 140.0
	DefaultRateNormal   = 180.0
	DefaultRateFast     = 220.0
)

// fillerLexicon is the fixed set of single-token fillers.
var fillerLexicon = map[string]bool{
	"um":   true,
	"uh":   true,
	"er":   true,
	"ah":   true,
	"like": true,
}

// "you know" is the one multi-token filler; it is matched as an adjacent pair.
var fillerBigram = [2]string{"you", "know"}

// referenceWords are phonetically stroke-sensitive words checked for
// pronunciation accuracy, drawn from standard dysarthria screening phrases.
var referenceWords = map[string]bool{
	"british":      true,
	"constitution": true,
	"hippopotamus": true,
	"caterpillar":  true,
	"methodist":    true,
	"episcopal":    true,
	"artillery":    true,
	"register":     true,
	"hospital":     true,
	"emergency":    true,
}

// Thresholds holds every tunable constant used by Extract. Zero values are
// replaced with the defaults, so Thresholds{} behaves like
// DefaultThresholds().
type Thresholds struct {
	PauseCountMs            int64
	PauseLongMs             int64
	PauseSevereMs           int64
	HesitationConfidence    float64
	PronunciationConfidence float64
	DisfluencySevere        float64
	DisfluencyModerate      float64
	DisfluencyMild          float64
	RateVerySlow            float64
	RateSlow                float64
	RateNormal              float64
	RateFast                float64
}

// DefaultThresholds returns the reference extraction constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		PauseCountMs:            DefaultPauseCountMs,
		PauseLongMs:             DefaultPauseLongMs,
		PauseSevereMs:           DefaultPauseSevereMs,
		HesitationConfidence:    DefaultHesitationConfidence,
		PronunciationConfidence: DefaultPronunciationConfidence,
		DisfluencySevere:        DefaultDisfluencySevere,
		DisfluencyModerate:      DefaultDisfluencyModerate,
		DisfluencyMild:          DefaultDisfluencyMild,
		RateVerySlow:            DefaultRateVerySlow,
		RateSlow:                DefaultRateSlow,
		RateNormal:              DefaultRateNormal,
		RateFast:                DefaultRateFast,
	}
}

// withDefaults fills zero fields with the reference constants.
func (t Thresholds) withDefaults() Thresholds {
	d := DefaultThresholds()
	if t.PauseCountMs == 0 {
		t.PauseCountMs = d.PauseCountMs
	}
	if t.PauseLongMs == 0 {
		t.PauseLongMs = d.PauseLongMs
	}
	if t.PauseSevereMs == 0 {
		t.PauseSevereMs = d.PauseSevereMs
	}
	if t.HesitationConfidence == 0 {
		t.HesitationConfidence = d.HesitationConfidence
	}
	if t.PronunciationConfidence == 0 {
		t.PronunciationConfidence = d.PronunciationConfidence
	}
	if t.DisfluencySevere == 0 {
		t.DisfluencySevere = d.DisfluencySevere
	}
	if t.DisfluencyModerate == 0 {
		t.DisfluencyModerate = d.DisfluencyModerate
	}
	if t.DisfluencyMild == 0 {
		t.DisfluencyMild = d.DisfluencyMild
	}
	if t.RateVerySlow == 0 {
		t.RateVerySlow = d.RateVerySlow
	}
	if t.RateSlow == 0 {
		t.RateSlow = d.RateSlow
	}
	if t.RateNormal == 0 {
		t.RateNormal = d.RateNormal
	}
	if t.RateFast == 0 {
		t.RateFast = d.RateFast
	}
	return t
}
