// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsight/core/shared/types"
)

func TestPostgresRepositoryAppendUsage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rec := UsageRecord{
		UserID:    "user-1",
		RequestID: "req-1",
		Model:     "gpt-5",
		Breakdown: Breakdown{
			Model:            "gpt-5",
			InputTokens:      800,
			OutputTokens:     200,
			SpeedMode:        types.SpeedBalanced,
			SubscriptionTier: types.TierFree,
			FinalCost:        0.003,
		},
		Timestamp: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO usage_records").
		WithArgs(
			rec.UserID, rec.RequestID, rec.Model,
			rec.Breakdown.InputTokens, rec.Breakdown.OutputTokens,
			string(rec.Breakdown.SpeedMode), string(rec.Breakdown.SubscriptionTier),
			rec.Breakdown.FinalCost, rec.Timestamp,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	repo := NewPostgresRepository(db)
	require.NoError(t, repo.AppendUsage(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryPropagatesInsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO usage_records").
		WillReturnError(assert.AnError)

	repo := NewPostgresRepository(db)
	err = repo.AppendUsage(context.Background(), UsageRecord{UserID: "user-1"})
	assert.Error(t, err)
}
