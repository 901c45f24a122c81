// Package expect provides expectation evaluation backends. A Backend
// is one interchangeable strategy for evaluating built-in expectation
// kinds; the engine holds an ordered chain of backends and falls back
// along it when one errors, so results stay available even when the
// primary strategy is incompatible with a given dataset.
//
// The manual in-memory backend lives here. The SQL-pushdown primary
// backend lives in internal/sqlbackend and must reproduce identical
// semantics on the same input.
package expect

import (
	"context"

	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/suite"
)

// Backend is one evaluation strategy for built-in expectation kinds.
// Implementations are pure with respect to the snapshot: they never
// mutate it, and the same inputs always produce the same outcome.
type Backend interface {
	Name() core.BackendName

	// Evaluate computes the outcome of a single built-in expectation.
	// Errors are rule-scoped; the caller decides whether to fall back to
	// another backend or record the error.
	Evaluate(ctx context.Context, snap *dataset.Snapshot, spec *suite.Spec) (core.Outcome, error)
}
