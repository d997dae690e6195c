package vectorstore

// DefaultRelevanceThreshold is the cosine-distance cutoff above which the
// best-matching chunk is considered unrelated to the question.
const DefaultRelevanceThreshold = 0.6

// RelevanceGate decides whether retrieved document context is on-topic
// enough to surface to the completion service.
type RelevanceGate struct {
	threshold float64
}

func NewRelevanceGate(threshold float64) RelevanceGate {
	if threshold <= 0 {
		threshold = DefaultRelevanceThreshold
	}
	return RelevanceGate{threshold: threshold}
}

// Accept reports whether the top result is close enough to use. No results,
// or a top result without a distance, is a rejection.
func (g RelevanceGate) Accept(results []RetrievalResult) bool {
	if len(results) == 0 {
		return false
	}

	distance := 1.0
	if results[0].HasDistance {
		distance = results[0].Distance
	}
	return distance <= g.threshold
}

func (g RelevanceGate) Threshold() float64 {
	return g.threshold
}
