// Package postgres implements SQL-executing capabilities over a pgx
// connection pool. Each configured database becomes one named capability the
// planner can address.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aretw0/guardian/pkg/domain"
)

// Querier is the slice of a pgx pool the capability needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PoolConfig configures one database connection pool.
type PoolConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool creates a pgxpool connection pool and verifies connectivity.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// Capability runs query text from action payloads against one database.
type Capability struct {
	name        string
	description string
	db          Querier
}

// NewCapability creates a SQL capability over the given querier.
func NewCapability(name, description string, db Querier) *Capability {
	return &Capability{name: name, description: description, db: db}
}

// Name implements ports.Capability.
func (c *Capability) Name() string { return c.name }

// Description implements ports.Capability.
func (c *Capability) Description() string { return c.description }

// Execute runs the payload's query text. Row-returning statements yield a
// slice of column-keyed maps; other statements yield their command tag.
func (c *Capability) Execute(ctx context.Context, input domain.Payload) (any, error) {
	query := input.QueryText()
	if query == "" {
		return nil, errors.New("payload carries no query text")
	}

	rows, err := c.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return CollectRows(rows)
}

// CollectRows drains a row set into JSON-friendly values.
func CollectRows(rows pgx.Rows) (any, error) {
	fields := rows.FieldDescriptions()

	var out []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(fields))
		for i, fd := range fields {
			row[fd.Name] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Statements without a row description report their command tag instead.
	if len(fields) == 0 {
		tag := rows.CommandTag()
		return map[string]any{
			"status":        tag.String(),
			"rows_affected": tag.RowsAffected(),
		}, nil
	}

	if out == nil {
		out = []map[string]any{}
	}
	return out, nil
}
