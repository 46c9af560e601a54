package temporal

import (
	"sort"
)

// Peak is one detected envelope peak
type Peak struct {
	Index int     `json:"index"` // Frame index into the envelope
	Value float64 `json:"value"` // Envelope value at that frame
}

// PeakPicker finds local maxima in an energy envelope subject to a minimum
// height and a minimum spacing between reported peaks.
//
// Conflict rule: two candidates separated by minDistance frames or fewer
// cannot both be reported. The higher one wins; at equal value the earlier
// index survives.
type PeakPicker struct {
	height      float64
	minDistance int
}

// NewPeakPicker creates a peak picker. A non-positive minDistance disables
// spacing enforcement.
func NewPeakPicker(height float64, minDistance int) *PeakPicker {
	return &PeakPicker{
		height:      height,
		minDistance: minDistance,
	}
}

// Detect returns the surviving peaks in increasing frame order. An empty
// envelope, or one with no qualifying local maximum, yields an empty slice.
// Detection is deterministic: the same envelope always gives the same peaks.
func (p *PeakPicker) Detect(envelope []float64) []Peak {
	candidates := p.localMaxima(envelope)
	if len(candidates) == 0 {
		return []Peak{}
	}

	if p.minDistance > 0 {
		candidates = p.pruneByDistance(candidates)
	}

	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].Index < candidates[b].Index
	})

	return candidates
}

// localMaxima scans for interior local maxima at or above the height
// threshold. A plateau counts as one candidate at its middle frame, and only
// when the envelope falls on both sides; signal endpoints are never peaks.
func (p *PeakPicker) localMaxima(envelope []float64) []Peak {
	n := len(envelope)
	if n < 3 {
		return nil
	}

	var candidates []Peak

	i := 1
	for i < n-1 {
		if envelope[i] <= envelope[i-1] {
			i++
			continue
		}

		// Rising edge at i; extend across any plateau
		j := i
		for j < n-1 && envelope[j+1] == envelope[i] {
			j++
		}

		if j < n-1 && envelope[j+1] < envelope[i] {
			mid := i + (j-i)/2
			if envelope[mid] >= p.height {
				candidates = append(candidates, Peak{Index: mid, Value: envelope[mid]})
			}
		}

		i = j + 1
	}

	return candidates
}

// pruneByDistance resolves spacing conflicts. Candidates are considered from
// highest value down (earlier index first among equals); a candidate within
// minDistance of an already accepted peak is dropped.
func (p *PeakPicker) pruneByDistance(candidates []Peak) []Peak {
	byPriority := make([]Peak, len(candidates))
	copy(byPriority, candidates)
	sort.Slice(byPriority, func(a, b int) bool {
		if byPriority[a].Value != byPriority[b].Value {
			return byPriority[a].Value > byPriority[b].Value
		}
		return byPriority[a].Index < byPriority[b].Index
	})

	var kept []Peak
	for _, candidate := range byPriority {
		conflict := false
		for _, accepted := range kept {
			distance := candidate.Index - accepted.Index
			if distance < 0 {
				distance = -distance
			}
			if distance <= p.minDistance {
				conflict = true
				break
			}
		}
		if !conflict {
			kept = append(kept, candidate)
		}
	}

	return kept
}

// Indices projects the frame indices of a peak list, for visualization
// payloads.
func Indices(peaks []Peak) []int {
	indices := make([]int, len(peaks))
	for i, peak := range peaks {
		indices[i] = peak.Index
	}
	return indices
}

// Values projects the envelope values of a peak list.
func Values(peaks []Peak) []float64 {
	values := make([]float64, len(peaks))
	for i, peak := range peaks {
		values[i] = peak.Value
	}
	return values
}
