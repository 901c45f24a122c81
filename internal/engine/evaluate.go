package engine

// evaluate.go - Suite evaluation orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veriq-labs/veriq/internal/sqlbackend"
	"github.com/veriq-labs/veriq/internal/sqlrunner"
	"github.com/veriq-labs/veriq/pkg/core"
	"github.com/veriq-labs/veriq/pkg/dataset"
	"github.com/veriq-labs/veriq/pkg/expect"
	"github.com/veriq-labs/veriq/pkg/suite"
)

// Evaluate runs every expectation in the suite against the snapshot
// and returns the aggregated validation run.
//
// Suite validation errors are fatal and abort the run before any rule
// executes. Once evaluation starts, rule failures are isolated: each
// errored rule is recorded in its result and the remaining rules still
// run. Cancelling ctx stops dispatching new rules and returns a
// partial run holding the results that completed.
func (e *Engine) Evaluate(ctx context.Context, su *suite.Suite, snap *dataset.Snapshot) (*core.ValidationRun, error) {
	if err := su.Validate(); err != nil {
		return nil, fmt.Errorf("invalid suite %s: %w", su.Name, err)
	}

	// A run cancelled before any rule was dispatched is a valid, empty
	// partial run, not a failure.
	if ctx.Err() != nil {
		now := time.Now().UTC()
		return &core.ValidationRun{
			SuiteName:   su.Name,
			DatasetRef:  snap.Name(),
			StartedAt:   now,
			CompletedAt: now,
			Partial:     len(su.Specs) > 0,
			Summary:     core.Summarize(nil),
		}, nil
	}

	if err := e.ensureDBConnected(ctx); err != nil {
		return nil, err
	}

	e.logger.Info("starting validation run",
		"suite", su.Name, "dataset", snap.Name(), "rules", len(su.Specs), "rows", snap.RowCount())

	if err := e.db.MaterializeSnapshot(ctx, e.tableName, snap); err != nil {
		return nil, fmt.Errorf("failed to materialize snapshot: %w", err)
	}

	// Confirm the table holds every snapshot row before any rule reads it.
	meta, err := e.db.GetTableMetadata(ctx, e.tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to verify snapshot table: %w", err)
	}
	if meta.RowCount != int64(snap.RowCount()) {
		return nil, fmt.Errorf("snapshot table %s holds %d rows, snapshot has %d",
			e.tableName, meta.RowCount, snap.RowCount())
	}

	run := &core.ValidationRun{
		SuiteName:  su.Name,
		DatasetRef: snap.Name(),
		StartedAt:  time.Now().UTC(),
	}

	primary := sqlbackend.New(e.db, e.tableName, e.logger)
	fallback := expect.NewMemoryBackend()
	runner := sqlrunner.New(e.db, e.tableName, e.logger)

	n := len(su.Specs)
	results := make([]core.ExpectationResult, n)
	completed := make([]bool, n)

	g := new(errgroup.Group)
	g.SetLimit(e.poolSize(n))

	dispatched := 0
	for i := range su.Specs {
		if ctx.Err() != nil {
			break
		}
		idx := i
		spec := &su.Specs[i]
		dispatched++
		g.Go(func() error {
			results[idx], completed[idx] = e.evaluateRule(ctx, idx, spec, snap, primary, fallback, runner)
			return nil
		})
	}
	_ = g.Wait()

	for i := 0; i < n; i++ {
		if completed[i] {
			run.Results = append(run.Results, results[i])
		}
	}
	run.Partial = len(run.Results) < n
	run.CompletedAt = time.Now().UTC()
	run.Summary = core.Summarize(run.Results)

	e.logger.Info("validation run completed",
		"suite", su.Name,
		"evaluated", run.Summary.Evaluated,
		"passed", run.Summary.Passed,
		"failed", run.Summary.Failed,
		"errored", run.Summary.Errored,
		"partial", run.Partial,
		"duration_ms", run.CompletedAt.Sub(run.StartedAt).Milliseconds(),
	)
	return run, nil
}

// evaluateRule runs a single expectation under the per-rule timeout.
// The second return is false only when the parent context was cancelled
// before the rule finished; such rules are excluded from the run.
func (e *Engine) evaluateRule(
	ctx context.Context,
	idx int,
	spec *suite.Spec,
	snap *dataset.Snapshot,
	primary *sqlbackend.Backend,
	fallback *expect.MemoryBackend,
	runner *sqlrunner.Runner,
) (core.ExpectationResult, bool) {
	res := core.ExpectationResult{
		Index:           idx,
		ExpectationType: spec.TypeString(),
		Column:          spec.Column,
		Description:     spec.Description,
	}

	rctx, cancel := context.WithTimeout(ctx, e.ruleTimeout)
	defer cancel()

	type ruleReturn struct {
		outcome core.Outcome
		backend core.BackendName
		err     *core.RuleError
	}
	done := make(chan ruleReturn, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("rule evaluation panicked", "index", idx, "type", res.ExpectationType, "panic", r)
				done <- ruleReturn{
					backend: core.BackendPrimary,
					err:     core.NewRuleError(core.ErrBackendUnavailable, "evaluation panicked: %v", r),
				}
			}
		}()
		out, backend, err := e.runRule(rctx, spec, snap, primary, fallback, runner)
		done <- ruleReturn{outcome: out, backend: backend, err: err}
	}()

	select {
	case r := <-done:
		res.Backend = r.backend
		if r.err != nil {
			e.logger.Debug("rule errored", "index", idx, "type", res.ExpectationType, "kind", r.err.Kind, "error", r.err.Message)
			res.Err = r.err
			return res, true
		}
		res.Success = r.outcome.Success
		res.ViolationCount = r.outcome.ViolationCount
		res.ViolatingRowIDs = r.outcome.ViolatingRowIDs
		return res, true

	case <-rctx.Done():
		if ctx.Err() != nil {
			// Parent cancellation, not a per-rule timeout.
			return res, false
		}
		e.logger.Warn("rule timed out", "index", idx, "type", res.ExpectationType, "timeout", e.ruleTimeout)
		res.Backend = core.BackendPrimary
		res.Err = core.NewRuleError(core.ErrExecutionTimeout,
			"rule exceeded its %s evaluation timeout", e.ruleTimeout)
		return res, true
	}
}

// runRule dispatches one expectation to its backend. Built-in kinds go
// to the relational backend first and fall back to the in-memory
// evaluator when it fails; custom SQL has no in-memory analog and runs
// on the predicate runner only.
func (e *Engine) runRule(
	ctx context.Context,
	spec *suite.Spec,
	snap *dataset.Snapshot,
	primary *sqlbackend.Backend,
	fallback *expect.MemoryBackend,
	runner *sqlrunner.Runner,
) (core.Outcome, core.BackendName, *core.RuleError) {
	if spec.IsCustomSQL() {
		out, err := runner.Run(ctx, spec, snap)
		if err != nil {
			return core.Outcome{}, core.BackendPrimary, core.AsRuleError(err, core.ErrQuerySyntax)
		}
		return out, core.BackendPrimary, nil
	}

	out, err := primary.Evaluate(ctx, snap, spec)
	if err == nil {
		return out, core.BackendPrimary, nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.Outcome{}, core.BackendPrimary,
			core.NewRuleError(core.ErrExecutionTimeout, "rule evaluation exceeded its deadline")
	}

	e.logger.Debug("primary backend failed, falling back",
		"type", spec.TypeString(), "column", spec.Column, "error", err)

	out, ferr := fallback.Evaluate(ctx, snap, spec)
	if ferr != nil {
		return core.Outcome{}, core.BackendFallback, core.AsRuleError(ferr, core.ErrBackendUnavailable)
	}
	return out, core.BackendFallback, nil
}
