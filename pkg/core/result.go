// Package core defines the shared result and error types of the
// validation engine: per-expectation outcomes, the ValidationRun value
// handed to reporting, and the rule-scoped error taxonomy.
package core

import "time"

// BackendName identifies which evaluation strategy produced a result.
type BackendName string

const (
	// BackendPrimary is the SQL-pushdown backend.
	BackendPrimary BackendName = "primary"
	// BackendFallback is the in-memory manual backend.
	BackendFallback BackendName = "fallback"
)

// Outcome is the raw product of evaluating one expectation against a
// snapshot, before it is wrapped into an ExpectationResult.
//
// ViolatingRowIDs is ordered by original row position and its length
// equals ViolationCount whenever row-level granularity is available;
// table-level checks report a count with no ids.
type Outcome struct {
	Success         bool
	ViolationCount  int
	ViolatingRowIDs []string
}

// ExpectationResult records the evaluation of a single expectation.
// Exactly one result exists per suite entry, in suite order.
type ExpectationResult struct {
	// Index is the position of the expectation in its suite.
	Index int `json:"index"`

	ExpectationType string `json:"expectation_type"`
	Column          string `json:"column,omitempty"`
	Description     string `json:"description,omitempty"`

	Success         bool        `json:"success"`
	ViolationCount  int         `json:"violation_count"`
	ViolatingRowIDs []string    `json:"violating_row_ids,omitempty"`
	Backend         BackendName `json:"backend,omitempty"`

	// Err is set when the rule could not be evaluated. Errored results are
	// distinct from failed (violation-bearing) results and are never
	// conflated in reporting.
	Err *RuleError `json:"error,omitempty"`
}

// Errored reports whether the rule failed to evaluate (as opposed to
// evaluating successfully and finding violations).
func (r *ExpectationResult) Errored() bool {
	return r.Err != nil
}

// ValidationRun is the complete, ordered output of evaluating a suite
// against a dataset snapshot. It is immutable after construction.
type ValidationRun struct {
	SuiteName  string    `json:"suite_name"`
	DatasetRef string    `json:"dataset_ref"`
	StartedAt  time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`

	// Partial is true when the run was cancelled before every expectation
	// was dispatched; Results then holds the completed prefix in order.
	Partial bool `json:"partial,omitempty"`

	Results []ExpectationResult `json:"results"`
	Summary Summary             `json:"summary"`
}
