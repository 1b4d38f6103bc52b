// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // postgres driver
)

// PostgresRepository appends usage records to the usage_records table
// for offline accounting and reconciliation.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository wraps an existing database handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// OpenPostgresRepository opens a connection from a DSN and verifies it.
func OpenPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach usage database: %w", err)
	}
	return &PostgresRepository{db: db}, nil
}

// AppendUsage implements Repository.
func (r *PostgresRepository) AppendUsage(ctx context.Context, rec UsageRecord) error {
	const query = `
		INSERT INTO usage_records (
			user_id, request_id, model,
			input_tokens, output_tokens,
			speed_mode, subscription_tier,
			final_cost, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		rec.UserID,
		rec.RequestID,
		rec.Model,
		rec.Breakdown.InputTokens,
		rec.Breakdown.OutputTokens,
		string(rec.Breakdown.SpeedMode),
		string(rec.Breakdown.SubscriptionTier),
		rec.Breakdown.FinalCost,
		rec.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}
