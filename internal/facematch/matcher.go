// Package facematch implements face descriptor comparison and the
// duplicate-enrollment guard. A descriptor is a fixed-length vector produced
// by the external extractor service; two descriptors of the same person are
// close in Euclidean distance.
package facematch

import "math"

const (
	// RecognitionTolerance is the maximum Euclidean distance at which two
	// descriptors are considered the same person for duplicate detection.
	// Lower means stricter.
	RecognitionTolerance = 0.5

	// BestMatchScoreThreshold is the minimum confidence (1 - distance)
	// required for a kiosk recognition match. This is intentionally a
	// different scale than RecognitionTolerance: duplicate rejection at
	// enrollment and kiosk auto-recognition are tuned independently.
	BestMatchScoreThreshold = 0.6
)

// Candidate is one (identity, descriptor) pair in the enrolled population.
type Candidate struct {
	EmployeeID string
	Descriptor []float64
}

// Match is the result of a successful best-match search.
type Match struct {
	EmployeeID string
	// Confidence is 1 - Euclidean distance. It can be negative for very
	// dissimilar descriptors; values are reported as-is, not clamped.
	Confidence float64
}

// Distance computes the Euclidean distance between two descriptors.
// Mismatched or empty vectors yield +Inf so they can never match anything.
func Distance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Confidence converts a descriptor distance to a match confidence.
func Confidence(distance float64) float64 {
	return 1 - distance
}

// IsMatch reports whether two descriptors belong to the same person using
// the enrollment duplicate-detection tolerance. This is deliberately not
// expressed through BestMatchScoreThreshold; the two cutoffs must stay
// independent.
func IsMatch(a, b []float64) bool {
	return Distance(a, b) <= RecognitionTolerance
}

// BestMatch scans the population for the candidate most similar to query.
// A candidate replaces the running best only if its confidence is strictly
// greater, so on an exact tie the earliest candidate in iteration order
// wins. Candidates below BestMatchScoreThreshold never qualify. The second
// return value is the best confidence seen across the whole population,
// including sub-threshold and negative scores, for diagnostics; it is
// math.Inf(-1) when there was nothing to score.
func BestMatch(query []float64, population []Candidate) (Match, float64, bool) {
	var (
		best     Match
		found    bool
		bestSeen = math.Inf(-1)
	)
	for _, c := range population {
		score := Confidence(Distance(query, c.Descriptor))
		if score > bestSeen {
			bestSeen = score
		}
		if score >= BestMatchScoreThreshold && (!found || score > best.Confidence) {
			best = Match{EmployeeID: c.EmployeeID, Confidence: score}
			found = true
		}
	}
	return best, bestSeen, found
}
