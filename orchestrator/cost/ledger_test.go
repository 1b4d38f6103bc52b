// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsight/core/shared/types"
)

func TestCheckPermissionAllowsUnderCap(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)

	status, err := l.CheckPermission(context.Background(), "user-1", types.TierFree, 0.01)
	require.NoError(t, err)

	assert.True(t, status.Allowed)
	assert.Equal(t, 0.50, status.DailyCap)
	assert.Zero(t, status.SpentToday)
	assert.Empty(t, status.Reason)
}

func TestCheckPermissionDeniesAtCap(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)
	ctx := context.Background()

	// Spend the whole free-tier budget.
	require.NoError(t, l.RecordUsage(ctx, "user-1", "req-1", Breakdown{Model: "gpt-5", FinalCost: 0.50}))

	status, err := l.CheckPermission(ctx, "user-1", types.TierFree, 0.01)
	require.NoError(t, err)

	assert.False(t, status.Allowed)
	assert.NotEmpty(t, status.Reason)
	assert.Zero(t, status.Remaining)
}

func TestCheckPermissionIsPerUser(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, l.RecordUsage(ctx, "user-1", "req-1", Breakdown{FinalCost: 0.50}))

	status, err := l.CheckPermission(ctx, "user-2", types.TierFree, 0.01)
	require.NoError(t, err)
	assert.True(t, status.Allowed, "one user's spend must not affect another's budget")
}

func TestCheckPermissionTierCaps(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, l.RecordUsage(ctx, "user-1", "req-1", Breakdown{FinalCost: 1.00}))

	free, err := l.CheckPermission(ctx, "user-1", types.TierFree, 0.01)
	require.NoError(t, err)
	assert.False(t, free.Allowed)

	pro, err := l.CheckPermission(ctx, "user-1", types.TierPro, 0.01)
	require.NoError(t, err)
	assert.True(t, pro.Allowed)
	assert.Equal(t, 10.00, pro.DailyCap)
}

func TestCheckPermissionUnknownTierTreatedAsFree(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)

	status, err := l.CheckPermission(context.Background(), "user-1", types.SubscriptionTier("platinum"), 0)
	require.NoError(t, err)
	assert.Equal(t, 0.50, status.DailyCap)
}

func TestRecordUsageAccumulates(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, l.RecordUsage(ctx, "user-1", "req-1", Breakdown{FinalCost: 0.10}))
	require.NoError(t, l.RecordUsage(ctx, "user-1", "req-2", Breakdown{FinalCost: 0.15}))

	status, err := l.Status(ctx, "user-1", types.TierFree)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, status.SpentToday, 1e-9)
	assert.InDelta(t, 0.25, status.Remaining, 1e-9)
}

func TestRecordUsageRejectsInvalidInput(t *testing.T) {
	l := NewLedger(DefaultLedgerConfig(), nil, nil, nil)
	ctx := context.Background()

	assert.ErrorIs(t, l.RecordUsage(ctx, "", "req-1", Breakdown{FinalCost: 0.10}), ErrInvalidInput)
	assert.ErrorIs(t, l.RecordUsage(ctx, "user-1", "req-1", Breakdown{FinalCost: -0.10}), ErrInvalidInput)
}

type capturingRepo struct {
	records []UsageRecord
}

func (r *capturingRepo) AppendUsage(_ context.Context, rec UsageRecord) error {
	r.records = append(r.records, rec)
	return nil
}

func TestRecordUsagePersistsToRepository(t *testing.T) {
	repo := &capturingRepo{}
	l := NewLedger(DefaultLedgerConfig(), nil, repo, nil)

	breakdown := Breakdown{Model: "gpt-5", InputTokens: 800, OutputTokens: 200, FinalCost: 0.003}
	require.NoError(t, l.RecordUsage(context.Background(), "user-1", "req-1", breakdown))

	require.Len(t, repo.records, 1)
	assert.Equal(t, "user-1", repo.records[0].UserID)
	assert.Equal(t, "req-1", repo.records[0].RequestID)
	assert.Equal(t, breakdown, repo.records[0].Breakdown)
	assert.WithinDuration(t, time.Now().UTC(), repo.records[0].Timestamp, 5*time.Second)
}

func TestMemoryStorePrunesOldDays(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.AddSpend(ctx, "user-1", "2026-08-23", 0.40)
	require.NoError(t, err)
	_, err = s.AddSpend(ctx, "user-1", "2026-08-24", 0.10)
	require.NoError(t, err)

	yesterday, err := s.SpentToday(ctx, "user-1", "2026-08-23")
	require.NoError(t, err)
	assert.Zero(t, yesterday, "previous-day windows are pruned on write")

	today, err := s.SpentToday(ctx, "user-1", "2026-08-24")
	require.NoError(t, err)
	assert.InDelta(t, 0.10, today, 1e-9)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	s := NewRedisStore(client)
	ctx := context.Background()

	spent, err := s.SpentToday(ctx, "user-1", "2026-08-24")
	require.NoError(t, err)
	assert.Zero(t, spent)

	total, err := s.AddSpend(ctx, "user-1", "2026-08-24", 0.25)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, total, 1e-9)

	total, err = s.AddSpend(ctx, "user-1", "2026-08-24", 0.10)
	require.NoError(t, err)
	assert.InDelta(t, 0.35, total, 1e-9)

	spent, err = s.SpentToday(ctx, "user-1", "2026-08-24")
	require.NoError(t, err)
	assert.InDelta(t, 0.35, spent, 1e-9)

	require.NoError(t, s.Ping(ctx))
}

func TestLedgerWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l := NewLedger(DefaultLedgerConfig(), NewRedisStore(client), nil, nil)
	ctx := context.Background()

	require.NoError(t, l.RecordUsage(ctx, "user-1", "req-1", Breakdown{FinalCost: 0.50}))

	status, err := l.CheckPermission(ctx, "user-1", types.TierFree, 0.01)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
}
