package assess

// Weights is the per-adapter confidence weight table. The defaults are a
// tunable policy, not a hard requirement; weights renormalize over the
// adapters that actually produced output.
type Weights struct {
	Transcription float64
	Reasoning     float64
	Validation    float64
}

// DefaultWeights returns the default weight table.
func DefaultWeights() Weights {
	return Weights{Transcription: 0.3, Reasoning: 0.5, Validation: 0.2}
}

// FloorConfidence is the documented confidence assigned when zero adapters
// produced output. The result is still valid, just explicitly degraded.
const FloorConfidence = 20.0

// confidenceSource is one adapter's reported confidence on the [0,100] scale.
type confidenceSource struct {
	weight float64
	value  float64
}

// aggregateConfidence computes the weighted average over the adapters that
// responded. ok is false when no adapter produced output, in which case the
// caller applies the floor.
func aggregateConfidence(sources []confidenceSource) (conf float64, ok bool) {
	totalWeight := 0.0
	weighted := 0.0
	for _, s := range sources {
		totalWeight += s.weight
		weighted += s.weight * s.value
	}
	if totalWeight == 0 {
		return 0, false
	}
	return clamp(weighted/totalWeight, 0, 100), true
}
