package core

import "sort"

// TypeCount is the per-expectation-type breakdown of a summary.
type TypeCount struct {
	ExpectationType string `json:"expectation_type"`
	Total           int    `json:"total"`
	Passed          int    `json:"passed"`
	Failed          int    `json:"failed"`
	Errored         int    `json:"errored"`
}

// Summary aggregates the results of a validation run.
type Summary struct {
	Evaluated int `json:"evaluated"`
	Passed    int `json:"passed"`
	Failed    int `json:"failed"`
	Errored   int `json:"errored"`

	// SuccessRate is passed / (evaluated - errored) as a percentage.
	// Errored rules are excluded from the denominator and reported
	// separately; zero evaluable rules yields a rate of 0.
	SuccessRate float64 `json:"success_rate"`

	// ByType is sorted by expectation type so that identical inputs
	// always produce an identical summary.
	ByType []TypeCount `json:"by_type"`
}

// Summarize computes the deterministic summary of a result list. Given
// the same results, the output is always identical: the per-type
// breakdown is a sorted slice, not a map.
func Summarize(results []ExpectationResult) Summary {
	s := Summary{Evaluated: len(results)}

	byType := make(map[string]*TypeCount)
	for i := range results {
		r := &results[i]

		tc, ok := byType[r.ExpectationType]
		if !ok {
			tc = &TypeCount{ExpectationType: r.ExpectationType}
			byType[r.ExpectationType] = tc
		}
		tc.Total++

		switch {
		case r.Errored():
			s.Errored++
			tc.Errored++
		case r.Success:
			s.Passed++
			tc.Passed++
		default:
			s.Failed++
			tc.Failed++
		}
	}

	if evaluable := s.Evaluated - s.Errored; evaluable > 0 {
		s.SuccessRate = float64(s.Passed) / float64(evaluable) * 100
	}

	s.ByType = make([]TypeCount, 0, len(byType))
	for _, tc := range byType {
		s.ByType = append(s.ByType, *tc)
	}
	sort.Slice(s.ByType, func(i, j int) bool {
		return s.ByType[i].ExpectationType < s.ByType[j].ExpectationType
	})

	return s
}
