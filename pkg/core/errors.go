package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies rule-scoped evaluation failures. Every kind is
// caught at the level of a single expectation and recorded into its
// result; none of them abort a validation run.
type ErrorKind string

const (
	// ErrSchema indicates a referenced column is absent from the snapshot.
	ErrSchema ErrorKind = "SchemaError"
	// ErrTypeCoercion indicates a value cannot satisfy a type-based check.
	ErrTypeCoercion ErrorKind = "TypeCoercionError"
	// ErrPlaceholderMissing indicates a custom SQL query lacks the
	// {table_name} placeholder.
	ErrPlaceholderMissing ErrorKind = "PlaceholderMissing"
	// ErrContractViolation indicates a custom SQL query breaks the runner
	// contract (missing violation_count column, forbidden keyword, no rows).
	ErrContractViolation ErrorKind = "ContractViolation"
	// ErrQuerySyntax indicates the SQL engine rejected or failed the query.
	ErrQuerySyntax ErrorKind = "QuerySyntaxError"
	// ErrQueryInconsistency indicates the materialized violating row set
	// does not match the reported violation count.
	ErrQueryInconsistency ErrorKind = "QueryInconsistency"
	// ErrExecutionTimeout indicates a rule exceeded its per-rule deadline.
	ErrExecutionTimeout ErrorKind = "ExecutionTimeout"
	// ErrBackendUnavailable indicates the primary evaluation backend raised
	// an unexpected error, triggering the fallback chain.
	ErrBackendUnavailable ErrorKind = "BackendUnavailable"
	// ErrOrphanedReference indicates a violating row id was not found in
	// the snapshot during failed-record linking.
	ErrOrphanedReference ErrorKind = "OrphanedReference"
)

// RuleError is a classified, rule-scoped evaluation error.
type RuleError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewRuleError builds a RuleError with a formatted message.
func NewRuleError(kind ErrorKind, format string, args ...any) *RuleError {
	return &RuleError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// AsRuleError extracts a RuleError from err, or classifies err under the
// given default kind when it is not already classified.
func AsRuleError(err error, fallback ErrorKind) *RuleError {
	var re *RuleError
	if errors.As(err, &re) {
		return re
	}
	return &RuleError{Kind: fallback, Message: err.Error()}
}
