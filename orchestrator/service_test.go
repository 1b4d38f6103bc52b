// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsight/core/orchestrator/breaker"
	"chartsight/core/orchestrator/cost"
	"chartsight/core/orchestrator/faults"
	"chartsight/core/orchestrator/imaging"
	"chartsight/core/orchestrator/llm"
	"chartsight/core/orchestrator/monitor"
	"chartsight/core/shared/types"
)

// chartPNG renders a plausible chart upload.
func chartPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 96, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngMeta(data []byte) types.FileMetadata {
	return types.FileMetadata{OriginalName: "chart.png", MimeType: "image/png", Size: int64(len(data))}
}

// sleepRecorder replaces the retry sleep so tests run instantly.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

type serviceFixture struct {
	svc     *Service
	primary *llm.MockProvider
	chat    *llm.MockProvider
	ledger  *cost.Ledger
	store   *cost.MemoryStore
	sleeps  *sleepRecorder
}

func newServiceFixture(t *testing.T, clientCfg llm.ClientConfig, breakerCfg breaker.Config) *serviceFixture {
	t.Helper()
	if clientCfg.DefaultModel == "" {
		clientCfg.DefaultModel = "gpt-5"
	}

	primary := &llm.MockProvider{NameValue: "responses"}
	chat := &llm.MockProvider{NameValue: "chat"}

	store := cost.NewMemoryStore()
	ledger := cost.NewLedger(cost.DefaultLedgerConfig(), store, nil, nil)

	mon := monitor.New(nil)
	svc := NewService(
		DefaultConfig(),
		breaker.New(breakerCfg),
		imaging.New(imaging.Config{}, nil),
		cost.NewCalculator(nil),
		ledger,
		llm.NewClientWithProviders(clientCfg, primary, chat, nil),
		faults.NewHandler(mon, nil),
		mon,
		nil,
	)
	sleeps := &sleepRecorder{}
	svc.sleep = sleeps.sleep

	return &serviceFixture{svc: svc, primary: primary, chat: chat, ledger: ledger, store: store, sleeps: sleeps}
}

func TestAnalyzeSuccess(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())
	img := chartPNG(t, 640, 480)

	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "thinking about a long here", AnalysisOptions{
		UserID: "trader-1",
	})

	require.True(t, result.Success)
	require.NotNil(t, result.Data)
	assert.Equal(t, types.VerdictFire, result.Data.Verdict)
	assert.Equal(t, 72, result.Data.Confidence)
	assert.Equal(t, "mock analysis", result.Data.Reasoning)

	assert.NotEmpty(t, result.Metadata.RequestID)
	assert.Equal(t, "gpt-5", result.Metadata.Model)
	assert.Equal(t, 1000, result.Metadata.TokensUsed)
	assert.Greater(t, result.Metadata.Cost, 0.0)
	assert.Equal(t, types.SpeedBalanced, result.Metadata.SpeedMode)
	assert.Equal(t, "closed", result.Metadata.CircuitState)
	assert.Zero(t, result.Metadata.RetryCount)
	assert.False(t, result.Metadata.FallbackUsed)

	// gpt-5 speaks the structured responses shape.
	require.Len(t, fx.primary.Calls(), 1)
	assert.Empty(t, fx.chat.Calls())

	req := fx.primary.Calls()[0]
	assert.NotEmpty(t, req.ImageData)
	assert.Contains(t, req.Prompt, "thinking about a long here")
}

func TestAnalyzeChargesFromActualUsage(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())
	img := chartPNG(t, 320, 240)

	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})
	require.True(t, result.Success)

	// Mock usage is 800 in / 200 out on gpt-5 balanced free:
	// (0.8*0.00125 + 0.2*0.01) * 1.0 * 1.0
	assert.InDelta(t, 0.003, result.Metadata.Cost, 1e-9)

	status, err := fx.ledger.Status(context.Background(), "trader-1", types.TierFree)
	require.NoError(t, err)
	assert.InDelta(t, 0.003, status.SpentToday, 1e-9)

	require.NotNil(t, result.Metadata.BudgetStatus)
	assert.InDelta(t, 0.003, result.Metadata.BudgetStatus.SpentToday, 1e-9)
}

func TestAnalyzeBudgetDeniedIsTerminal(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())
	img := chartPNG(t, 320, 240)

	// Exhaust the free-tier daily cap up front.
	day := time.Now().UTC().Format("2006-01-02")
	_, err := fx.store.AddSpend(context.Background(), "trader-broke", day, 0.50)
	require.NoError(t, err)

	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-broke"})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, faults.CodeBudgetExceeded, result.Error.Code)
	assert.False(t, result.Error.CanRetry)

	// The backend was never consulted and nothing was retried.
	assert.Empty(t, fx.primary.Calls())
	assert.Empty(t, fx.chat.Calls())
	assert.Empty(t, fx.sleeps.delays)

	assert.Equal(t, int64(1), fx.svc.Report().RejectedCount)
}

func TestAnalyzeValidationFailureNeverReachesBackend(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())

	garbage := []byte("definitely not an image")
	result := fx.svc.Analyze(context.Background(), garbage, types.FileMetadata{
		OriginalName: "chart.txt", MimeType: "text/plain", Size: int64(len(garbage)),
	}, "", AnalysisOptions{UserID: "trader-1"})

	require.False(t, result.Success)
	require.NotNil(t, result.Error)
	assert.Equal(t, faults.CodeInvalidFormat, result.Error.Code)
	assert.False(t, result.Error.CanRetry)
	assert.Empty(t, fx.primary.Calls())
}

func TestAnalyzeRetriesRateLimitThenSucceeds(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())

	var mu sync.Mutex
	calls := 0
	fx.primary.CompleteFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			return nil, &llm.APIError{StatusCode: 429, Code: "rate_limit_exceeded", Message: "slow down"}
		}
		return &llm.Response{
			Content:    `{"verdict": "diamond", "confidence": 88, "reasoning": "clean setup"}`,
			Model:      req.Model,
			StopReason: "stop",
			Usage:      types.TokenUsage{PromptTokens: 800, CompletionTokens: 200, TotalTokens: 1000},
		}, nil
	}

	img := chartPNG(t, 320, 240)
	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})

	require.True(t, result.Success)
	assert.Equal(t, types.VerdictDiamond, result.Data.Verdict)
	assert.Equal(t, 1, result.Metadata.RetryCount)
	require.Len(t, fx.sleeps.delays, 1)
	// rate_limited backoff: 2s base, attempt 0, ±25% jitter.
	assert.GreaterOrEqual(t, fx.sleeps.delays[0], 1500*time.Millisecond)
	assert.LessOrEqual(t, fx.sleeps.delays[0], 2500*time.Millisecond)

	assert.Equal(t, int64(1), fx.svc.Report().RetriedCount)
}

func TestAnalyzeExhaustsRetryAllowance(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.Config{FailureThreshold: 100})

	fx.primary.CompleteFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, &llm.APIError{StatusCode: 429, Code: "rate_limit_exceeded", Message: "slow down"}
	}

	img := chartPNG(t, 320, 240)
	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})

	require.False(t, result.Success)
	assert.Equal(t, faults.CodeRateLimited, result.Error.Code)
	assert.False(t, result.Error.CanRetry, "exhausted retries must not invite a resubmit")

	// rate_limited allows 3 automatic retries: 4 attempts total.
	assert.Len(t, fx.primary.Calls(), 4)
	assert.Equal(t, 3, result.Metadata.RetryCount)
}

func TestAnalyzeOpenBreakerShortCircuits(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.Config{FailureThreshold: 1, RecoveryTimeout: time.Hour})

	fx.primary.CompleteFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, &llm.APIError{StatusCode: 503, Message: "backend down"}
	}

	img := chartPNG(t, 320, 240)

	// First request trips the breaker.
	first := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})
	require.False(t, first.Success)
	assert.Equal(t, faults.CodeBackendUnavailable, first.Error.Code)
	callsAfterFirst := len(fx.primary.Calls())

	// Second request is refused at admission without touching the mock.
	second := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})
	require.False(t, second.Success)
	assert.Equal(t, faults.CodeBackendUnavailable, second.Error.Code)
	assert.Equal(t, "open", second.Metadata.CircuitState)
	assert.Len(t, fx.primary.Calls(), callsAfterFirst)
}

func TestAnalyzeFallbackMarksMetadata(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{DefaultModel: "gpt-5", FallbackModel: "gpt-4o"}, breaker.DefaultConfig())

	fx.primary.CompleteFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return nil, &llm.APIError{StatusCode: 500, Message: "internal error"}
	}

	img := chartPNG(t, 320, 240)
	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})

	require.True(t, result.Success)
	assert.True(t, result.Metadata.FallbackUsed)
	assert.Equal(t, "gpt-4o", result.Metadata.Model)
	require.Len(t, fx.chat.Calls(), 1)
	assert.Equal(t, "gpt-4o", fx.chat.Calls()[0].Model)
}

func TestAnalyzeUnparseableOutputRetriesThenFails(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())

	fx.primary.CompleteFunc = func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		return &llm.Response{
			Content:    "I cannot evaluate this chart.",
			Model:      req.Model,
			StopReason: "stop",
			Usage:      types.TokenUsage{PromptTokens: 800, CompletionTokens: 50, TotalTokens: 850},
		}, nil
	}

	img := chartPNG(t, 320, 240)
	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})

	require.False(t, result.Success)
	assert.Equal(t, faults.CodeAnalysisFailed, result.Error.Code)
	// analysis_failed allows 2 automatic retries: 3 attempts total.
	assert.Len(t, fx.primary.Calls(), 3)
}

func TestAnalyzeForceModelRoutesChatShape(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())
	img := chartPNG(t, 320, 240)

	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{
		UserID:     "trader-1",
		ForceModel: "gpt-4o",
		SpeedMode:  types.SpeedSuperFast,
		Tier:       types.TierPro,
	})

	require.True(t, result.Success)
	assert.Equal(t, "gpt-4o", result.Metadata.Model)
	assert.Empty(t, fx.primary.Calls())
	require.Len(t, fx.chat.Calls(), 1)
	assert.Equal(t, types.SpeedSuperFast, fx.chat.Calls()[0].SpeedMode)
}

func TestAnalyzeThumbnailReturnedWhenRequested(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())
	img := chartPNG(t, 800, 600)

	result := fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{
		UserID:            "trader-1",
		GenerateThumbnail: true,
	})

	require.True(t, result.Success)
	assert.NotEmpty(t, result.Thumbnail)
}

func TestAnalyzeTracksMonitorOutcome(t *testing.T) {
	fx := newServiceFixture(t, llm.ClientConfig{}, breaker.DefaultConfig())
	img := chartPNG(t, 320, 240)

	fx.svc.Analyze(context.Background(), img, pngMeta(img), "", AnalysisOptions{UserID: "trader-1"})

	report := fx.svc.Report()
	assert.Equal(t, int64(1), report.TotalRequests)
	assert.Equal(t, int64(1), report.SuccessCount)
	assert.Zero(t, report.ActiveRequests)
	assert.Equal(t, int64(1000), report.TotalTokens)
}
