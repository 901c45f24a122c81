// Package engine orchestrates the evaluation of an expectation suite
// against a dataset snapshot. It materializes the snapshot into an
// ephemeral relational view, fans the rules out over a bounded worker
// pool, and aggregates per-rule outcomes into a validation run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veriq-labs/veriq/internal/adapter"
)

const (
	// DefaultTableName is the registered alias for the snapshot table.
	DefaultTableName = "data_table"
	// DefaultRuleTimeout bounds each rule's evaluation.
	DefaultRuleTimeout = 30 * time.Second
	// maxWorkers caps the evaluation pool.
	maxWorkers = 8
)

// Engine evaluates expectation suites.
type Engine struct {
	// Database adapter (lazy initialized)
	db          adapter.Adapter
	dbConfig    adapter.Config
	dbConnected bool
	dbMu        sync.Mutex

	// Structured logger
	logger *slog.Logger

	tableName   string
	workers     int
	ruleTimeout time.Duration
}

// Config holds engine configuration.
type Config struct {
	// TableName is the alias custom SQL queries resolve the snapshot
	// under. Defaults to DefaultTableName.
	TableName string
	// Workers bounds the evaluation pool. Zero means one worker per
	// rule, capped at 8.
	Workers int
	// RuleTimeout bounds each rule's evaluation. Zero means
	// DefaultRuleTimeout.
	RuleTimeout time.Duration
	// AdapterConfig contains the database adapter configuration.
	// Defaults to an in-memory duckdb instance.
	AdapterConfig *adapter.Config
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// New creates a new engine with lazy database connection.
// The adapter is only connected when Evaluate is called.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	tableName := cfg.TableName
	if tableName == "" {
		tableName = DefaultTableName
	}

	ruleTimeout := cfg.RuleTimeout
	if ruleTimeout <= 0 {
		ruleTimeout = DefaultRuleTimeout
	}

	dbConfig := adapter.Config{Type: "duckdb", Path: ":memory:"}
	if cfg.AdapterConfig != nil {
		dbConfig = *cfg.AdapterConfig
	}
	if dbConfig.Type == "" {
		dbConfig.Type = "duckdb"
	}

	logger.Debug("initializing engine",
		"table_name", tableName, "adapter_type", dbConfig.Type, "rule_timeout", ruleTimeout)

	return &Engine{
		db:          nil, // Lazy
		dbConfig:    dbConfig,
		logger:      logger,
		tableName:   tableName,
		workers:     cfg.Workers,
		ruleTimeout: ruleTimeout,
	}, nil
}

// ensureDBConnected lazily connects the database adapter.
func (e *Engine) ensureDBConnected(ctx context.Context) error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	if e.dbConnected {
		return nil
	}

	e.logger.Debug("connecting to database", "adapter_type", e.dbConfig.Type)

	db, err := adapter.New(e.dbConfig, e.logger)
	if err != nil {
		return fmt.Errorf("failed to create database adapter: %w", err)
	}
	if err := db.Connect(ctx, e.dbConfig); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	e.db = db
	e.dbConnected = true
	return nil
}

// Close releases the database connection. The engine can be reused;
// the next Evaluate reconnects.
func (e *Engine) Close() error {
	e.dbMu.Lock()
	defer e.dbMu.Unlock()

	e.logger.Debug("closing engine")

	if e.db != nil {
		if err := e.db.Close(); err != nil {
			return fmt.Errorf("failed to close database adapter: %w", err)
		}
		e.db = nil
		e.dbConnected = false
	}
	return nil
}

// poolSize resolves the worker count for a suite of n rules.
func (e *Engine) poolSize(n int) int {
	w := e.workers
	if w <= 0 {
		w = n
	}
	if w > maxWorkers {
		w = maxWorkers
	}
	if w < 1 {
		w = 1
	}
	return w
}
