// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package cost

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chartsight/core/shared/logger"
	"chartsight/core/shared/types"
)

// DefaultDailyCaps is the per-tier daily spend cap in USD.
var DefaultDailyCaps = map[types.SubscriptionTier]float64{
	types.TierFree:    0.50,
	types.TierStarter: 2.00,
	types.TierPro:     10.00,
	types.TierElite:   50.00,
}

// Store tracks per-user spend keyed by UTC day. Implementations must be
// safe for concurrent use.
type Store interface {
	// SpentToday returns the user's accumulated spend for the given
	// UTC day.
	SpentToday(ctx context.Context, userID string, day string) (float64, error)

	// AddSpend adds amount to the user's spend for the given UTC day
	// and returns the new total.
	AddSpend(ctx context.Context, userID string, day string, amount float64) (float64, error)
}

// BudgetStatus is the ledger's answer to a permission check.
type BudgetStatus struct {
	UserID     string                 `json:"user_id"`
	Tier       types.SubscriptionTier `json:"tier"`
	DailyCap   float64                `json:"daily_cap"`
	SpentToday float64                `json:"spent_today"`
	Remaining  float64                `json:"remaining"`
	Allowed    bool                   `json:"allowed"`
	Reason     string                 `json:"reason,omitempty"`
}

// UsageRecord is one charged inference call, as persisted by an
// optional Repository.
type UsageRecord struct {
	UserID    string    `json:"user_id"`
	RequestID string    `json:"request_id"`
	Model     string    `json:"model"`
	Breakdown Breakdown `json:"breakdown"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository appends usage records for offline accounting. Persistence
// failures must not fail the request that produced the record.
type Repository interface {
	AppendUsage(ctx context.Context, rec UsageRecord) error
}

// LedgerConfig configures the budget ledger.
type LedgerConfig struct {
	DailyCaps map[types.SubscriptionTier]float64
}

// DefaultLedgerConfig returns a config with the published tier caps.
func DefaultLedgerConfig() LedgerConfig {
	caps := make(map[types.SubscriptionTier]float64, len(DefaultDailyCaps))
	for k, v := range DefaultDailyCaps {
		caps[k] = v
	}
	return LedgerConfig{DailyCaps: caps}
}

// Ledger enforces per-user daily spend caps. It is consulted before
// every external call and charged after every successful one.
type Ledger struct {
	config LedgerConfig
	store  Store
	repo   Repository
	log    *logger.Logger
}

// NewLedger creates a budget ledger. A nil store uses the in-process
// memory store; repo may be nil when offline accounting is disabled.
func NewLedger(config LedgerConfig, store Store, repo Repository, log *logger.Logger) *Ledger {
	if config.DailyCaps == nil {
		config.DailyCaps = DefaultLedgerConfig().DailyCaps
	}
	if store == nil {
		store = NewMemoryStore()
	}
	if log == nil {
		log = logger.New("cost-ledger")
	}
	return &Ledger{config: config, store: store, repo: repo, log: log}
}

// utcDay returns the budget window key. Windows roll over at UTC
// midnight regardless of the caller's timezone.
func utcDay(now time.Time) string {
	return now.UTC().Format("2006-01-02")
}

// capFor returns the daily cap for a tier, treating unknown tiers as
// free.
func (l *Ledger) capFor(tier types.SubscriptionTier) float64 {
	if cap, ok := l.config.DailyCaps[tier]; ok {
		return cap
	}
	return l.config.DailyCaps[types.TierFree]
}

// CheckPermission reports whether the user may spend estimated dollars
// today. A denial is terminal for the request: the caller must not make
// the external call or record any cost.
func (l *Ledger) CheckPermission(ctx context.Context, userID string, tier types.SubscriptionTier, estimated float64) (BudgetStatus, error) {
	if userID == "" {
		return BudgetStatus{}, fmt.Errorf("%w: missing user id", ErrInvalidInput)
	}

	cap := l.capFor(tier)
	spent, err := l.store.SpentToday(ctx, userID, utcDay(time.Now()))
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("failed to read budget state: %w", err)
	}

	status := BudgetStatus{
		UserID:     userID,
		Tier:       tier,
		DailyCap:   cap,
		SpentToday: spent,
		Remaining:  cap - spent,
		Allowed:    spent+estimated <= cap,
	}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	if !status.Allowed {
		status.Reason = fmt.Sprintf("daily budget of $%.2f reached for tier %s", cap, tier)
		l.log.Audit(userID, "", "Budget check denied", map[string]interface{}{
			"tier":        string(tier),
			"spent_today": spent,
			"daily_cap":   cap,
			"estimated":   estimated,
		})
	}
	return status, nil
}

// RecordUsage charges the user's daily budget with the actual cost of a
// completed call and, when a repository is configured, appends the
// usage record. Repository failures are logged but never propagated.
func (l *Ledger) RecordUsage(ctx context.Context, userID, requestID string, breakdown Breakdown) error {
	if userID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidInput)
	}
	if breakdown.FinalCost < 0 {
		return fmt.Errorf("%w: negative cost", ErrInvalidInput)
	}

	total, err := l.store.AddSpend(ctx, userID, utcDay(time.Now()), breakdown.FinalCost)
	if err != nil {
		return fmt.Errorf("failed to record spend: %w", err)
	}

	l.log.Audit(userID, requestID, "Usage recorded", map[string]interface{}{
		"model":       breakdown.Model,
		"final_cost":  breakdown.FinalCost,
		"spent_today": total,
	})

	if l.repo != nil {
		rec := UsageRecord{
			UserID:    userID,
			RequestID: requestID,
			Model:     breakdown.Model,
			Breakdown: breakdown,
			Timestamp: time.Now().UTC(),
		}
		if err := l.repo.AppendUsage(ctx, rec); err != nil {
			l.log.Error(userID, requestID, "Failed to persist usage record", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}
	return nil
}

// Status returns the user's current budget position without an
// estimated charge.
func (l *Ledger) Status(ctx context.Context, userID string, tier types.SubscriptionTier) (BudgetStatus, error) {
	return l.CheckPermission(ctx, userID, tier, 0)
}

// MemoryStore is the default single-process budget store. Spend for
// past days is pruned lazily on write.
type MemoryStore struct {
	mu    sync.RWMutex
	spend map[string]float64 // key: userID|day
}

// NewMemoryStore creates an empty in-process budget store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{spend: make(map[string]float64)}
}

func memKey(userID, day string) string {
	return userID + "|" + day
}

// SpentToday implements Store.
func (s *MemoryStore) SpentToday(_ context.Context, userID, day string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spend[memKey(userID, day)], nil
}

// AddSpend implements Store.
func (s *MemoryStore) AddSpend(_ context.Context, userID, day string, amount float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(userID, day)
	s.spend[key] += amount
	total := s.spend[key]

	// Drop entries from previous days so long-running processes do not
	// accumulate stale windows.
	suffix := "|" + day
	for k := range s.spend {
		if len(k) > len(suffix) && k[len(k)-len(suffix):] != suffix {
			delete(s.spend, k)
		}
	}
	return total, nil
}
