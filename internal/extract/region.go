package extract

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// fuzzyCutoff is the minimum normalized similarity for a fuzzy region match
const fuzzyCutoff = 0.8

// DetectRegion finds the issuing region. Per line it tries full-name
// containment, then two-letter abbreviations on word boundaries, then a fuzzy
// match of the whole line. The first line producing any hit wins.
func DetectRegion(lines []string) Field {
	for _, line := range lines {
		if state, ok := regionOf(strings.ToUpper(line)); ok {
			return Found(title(state))
		}
	}
	return Missing()
}

func regionOf(upper string) (string, bool) {
	for _, state := range states {
		if strings.Contains(upper, state) {
			return state, true
		}
	}
	for _, a := range abbreviations {
		if a.re.MatchString(upper) {
			return a.state, true
		}
	}
	return closestState(strings.TrimSpace(upper))
}

// closestState returns the single most similar state name at or above the cutoff
func closestState(upper string) (string, bool) {
	if upper == "" {
		return "", false
	}
	best, bestScore := "", 0.0
	for _, state := range states {
		score := similarity(upper, state)
		if score >= fuzzyCutoff && score > bestScore {
			best, bestScore = state, score
		}
	}
	return best, best != ""
}

// similarity is 1 - editDistance/longerLength
func similarity(a, b string) float64 {
	longest := len([]rune(a))
	if n := len([]rune(b)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
