package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		results     []ExpectationResult
		wantPassed  int
		wantFailed  int
		wantErrored int
		wantRate    float64
	}{
		{
			name:    "empty",
			results: nil,
		},
		{
			name: "all passed",
			results: []ExpectationResult{
				{ExpectationType: "null_check", Success: true},
				{ExpectationType: "uniqueness", Success: true},
			},
			wantPassed: 2,
			wantRate:   100,
		},
		{
			name: "mixed outcomes",
			results: []ExpectationResult{
				{ExpectationType: "null_check", Success: true},
				{ExpectationType: "null_check", Success: false, ViolationCount: 3},
				{ExpectationType: "range_check", Success: true},
				{ExpectationType: "custom_sql", Err: NewRuleError(ErrQuerySyntax, "bad query")},
			},
			wantPassed:  2,
			wantFailed:  1,
			wantErrored: 1,
			wantRate:    float64(2) / 3 * 100,
		},
		{
			name: "all errored yields zero rate",
			results: []ExpectationResult{
				{ExpectationType: "custom_sql", Err: NewRuleError(ErrPlaceholderMissing, "no placeholder")},
			},
			wantErrored: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Summarize(tt.results)
			assert.Equal(t, len(tt.results), s.Evaluated)
			assert.Equal(t, tt.wantPassed, s.Passed)
			assert.Equal(t, tt.wantFailed, s.Failed)
			assert.Equal(t, tt.wantErrored, s.Errored)
			assert.InDelta(t, tt.wantRate, s.SuccessRate, 1e-9)
		})
	}
}

func TestSummarizeByTypeDeterministic(t *testing.T) {
	results := []ExpectationResult{
		{ExpectationType: "uniqueness", Success: true},
		{ExpectationType: "null_check", Success: false},
		{ExpectationType: "null_check", Success: true},
	}

	first := Summarize(results)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Summarize(results))
	}

	require.Len(t, first.ByType, 2)
	assert.Equal(t, "null_check", first.ByType[0].ExpectationType)
	assert.Equal(t, 2, first.ByType[0].Total)
	assert.Equal(t, "uniqueness", first.ByType[1].ExpectationType)
}

func TestAsRuleError(t *testing.T) {
	ruleErr := NewRuleError(ErrSchema, "column %q not found", "age")
	assert.Equal(t, ErrSchema, AsRuleError(ruleErr, ErrBackendUnavailable).Kind)
	assert.Contains(t, ruleErr.Error(), "age")

	plain := assert.AnError
	wrapped := AsRuleError(plain, ErrBackendUnavailable)
	assert.Equal(t, ErrBackendUnavailable, wrapped.Kind)
}
