// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chartsight/core/orchestrator/breaker"
	"chartsight/core/orchestrator/cost"
	"chartsight/core/orchestrator/faults"
	"chartsight/core/orchestrator/imaging"
	"chartsight/core/orchestrator/llm"
	"chartsight/core/orchestrator/monitor"
	"chartsight/core/shared/logger"
	"chartsight/core/shared/types"
)

// estimate tokens used for the pre-call budget check; the actual charge
// always comes from the usage the backend returns.
const (
	estimateInputTokens  = 1200
	estimateOutputTokens = 400
)

// maxAttempts bounds the caller-visible retry loop regardless of what
// individual taxonomy entries allow.
const maxAttempts = 5

// Service owns every component of the analysis path.
type Service struct {
	config     Config
	breaker    *breaker.Breaker
	pipeline   *imaging.Pipeline
	calculator *cost.Calculator
	ledger     *cost.Ledger
	client     *llm.Client
	handler    *faults.Handler
	monitor    *monitor.Monitor
	log        *logger.Logger

	// sleep is swapped in tests to keep retries instant.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewService assembles a service from already-constructed components.
func NewService(cfg Config, cb *breaker.Breaker, pipeline *imaging.Pipeline, calc *cost.Calculator,
	ledger *cost.Ledger, client *llm.Client, handler *faults.Handler, mon *monitor.Monitor, log *logger.Logger) *Service {
	if log == nil {
		log = logger.New("orchestrator")
	}
	s := &Service{
		config:     cfg,
		breaker:    cb,
		pipeline:   pipeline,
		calculator: calc,
		ledger:     ledger,
		client:     client,
		handler:    handler,
		monitor:    mon,
		log:        log,
		sleep:      sleepCtx,
	}
	cb.Subscribe(func(e breaker.Event) {
		if e.Type == breaker.EventStateChange {
			mon.SetCircuitState(e.To.String())
			log.Warn("", "", "circuit state changed", map[string]interface{}{
				"from": e.From.String(), "to": e.To.String(),
			})
		}
	})
	return s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Analyze runs the full analysis sequence for one chart image. Failures
// classified as auto-retryable rerun the sequence from this iterative
// loop, with the classifier's backoff between attempts. The returned
// result is always non-nil.
func (s *Service) Analyze(ctx context.Context, image []byte, meta types.FileMetadata, description string, opts AnalysisOptions) *AnalysisResult {
	if opts.RequestID == "" {
		opts.RequestID = uuid.NewString()
	}
	if opts.SpeedMode == "" {
		opts.SpeedMode = types.SpeedBalanced
	}
	if opts.Tier == "" {
		opts.Tier = types.TierFree
	}

	start := time.Now()
	model := opts.ForceModel
	if model == "" {
		model = s.config.Model
	}

	s.monitor.TrackRequestStart(opts.RequestID, opts.UserID, model, len(image) > 0)

	var result *AnalysisResult
	for attempt := 0; ; attempt++ {
		res, err := s.analyzeOnce(ctx, image, meta, description, opts, model, attempt)
		if err == nil {
			res.Data.ProcessingTimeMs = time.Since(start).Milliseconds()
			res.Metadata.RetryCount = attempt
			result = res
			break
		}

		decision := s.handler.Handle(err, faults.RequestContext{
			RequestID: opts.RequestID,
			UserID:    opts.UserID,
			Attempt:   attempt,
		})
		if !decision.ShouldRetry || attempt+1 >= maxAttempts {
			result = s.failedResult(opts, model, decision, attempt)
			break
		}
		if serr := s.sleep(ctx, decision.Delay); serr != nil {
			timeout := s.handler.Handle(serr, faults.RequestContext{
				RequestID: opts.RequestID,
				UserID:    opts.UserID,
				Attempt:   attempt + 1,
			})
			result = s.failedResult(opts, model, timeout, attempt+1)
			break
		}
	}

	s.monitor.TrackRequestEnd(opts.RequestID, monitor.Outcome{
		Success:    result.Success,
		ErrorCode:  errorCode(result),
		TokensUsed: result.Metadata.TokensUsed,
		Cost:       result.Metadata.Cost,
		RetryCount: result.Metadata.RetryCount,
	})
	return result
}

func errorCode(r *AnalysisResult) string {
	if r.Error == nil {
		return ""
	}
	return string(r.Error.Code)
}

// analyzeOnce runs one pass of the sequence. Returned errors are raw;
// the caller classifies them.
func (s *Service) analyzeOnce(ctx context.Context, image []byte, meta types.FileMetadata, description string,
	opts AnalysisOptions, model string, attempt int) (*AnalysisResult, error) {

	// Budget gate before anything costs money. Denials are terminal.
	estimate := s.calculator.Calculate(model, estimateInputTokens, estimateOutputTokens, opts.SpeedMode, opts.Tier)
	budget, err := s.ledger.CheckPermission(ctx, opts.UserID, opts.Tier, estimate.FinalCost)
	if err != nil {
		return nil, err
	}
	if !budget.Allowed {
		return nil, fmt.Errorf("%w: %s", cost.ErrBudgetExceeded, budget.Reason)
	}

	// Image pipeline. Validation failures never reach the backend.
	run := s.pipeline.ProcessImage(ctx, image, meta, imaging.Options{GenerateThumbnail: opts.GenerateThumbnail})
	if !run.Success {
		return nil, run.Err
	}

	req := llm.Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		Prompt:       buildPrompt(description, opts.SpeedMode),
		ImageData:    run.Image.EncodedData,
		ImageMime:    "image/jpeg",
		SpeedMode:    opts.SpeedMode,
		MaxTokens:    s.config.MaxTokens,
		Temperature:  -1,
	}

	// The breaker guards admission; the llm client applies its single
	// fallback inside one admitted call.
	var resp *llm.Response
	err = s.breaker.Execute(ctx, func(callCtx context.Context) error {
		var cerr error
		resp, cerr = s.client.Complete(callCtx, req)
		return cerr
	})
	if err != nil {
		return nil, err
	}

	data, perr := parseVerdict(resp.Content)
	if perr != nil {
		s.log.Error(opts.UserID, opts.RequestID, "model output failed verdict parse", map[string]interface{}{
			"error": perr.Error(), "model": resp.Model,
		})
		return nil, fmt.Errorf("analysis output invalid: %w", perr)
	}

	// Charge from actual usage only.
	breakdown := s.calculator.Calculate(resp.Model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, opts.SpeedMode, opts.Tier)
	if rerr := s.ledger.RecordUsage(ctx, opts.UserID, opts.RequestID, breakdown); rerr != nil {
		// The analysis succeeded; losing the charge is an operator
		// problem, not the trader's.
		s.log.Error(opts.UserID, opts.RequestID, "failed to record usage", map[string]interface{}{
			"error": rerr.Error(),
		})
	}
	status, _ := s.ledger.Status(ctx, opts.UserID, opts.Tier)

	result := &AnalysisResult{
		Success: true,
		Data:    data,
		Metadata: AnalysisMetadata{
			RequestID:        opts.RequestID,
			Model:            resp.Model,
			TokensUsed:       resp.Usage.TotalTokens,
			Cost:             breakdown.FinalCost,
			SpeedMode:        opts.SpeedMode,
			CircuitState:     s.breaker.State().String(),
			BudgetStatus:     &status,
			FallbackUsed:     resp.FallbackUsed,
			QualityScore:     run.Image.QualityScore,
			CompressionRatio: run.Image.CompressionRatio,
			RetryCount:       attempt,
		},
		Thumbnail: run.Image.Thumbnail,
	}
	return result, nil
}

// failedResult composes the terminal error result from a classifier
// decision.
func (s *Service) failedResult(opts AnalysisOptions, model string, decision faults.Decision, attempts int) *AnalysisResult {
	return &AnalysisResult{
		Success: false,
		Error: &AnalysisError{
			Code:     decision.Code,
			Message:  decision.UserMessage,
			Guidance: decision.Guidance,
			CanRetry: decision.CanRetry,
		},
		Metadata: AnalysisMetadata{
			RequestID:    opts.RequestID,
			Model:        model,
			SpeedMode:    opts.SpeedMode,
			CircuitState: s.breaker.State().String(),
			RetryCount:   attempts,
		},
	}
}

// BreakerSnapshot exposes the circuit state for the status endpoint.
func (s *Service) BreakerSnapshot() breaker.Snapshot {
	return s.breaker.Snapshot()
}

// BudgetStatus exposes a user's budget position.
func (s *Service) BudgetStatus(ctx context.Context, userID string, tier types.SubscriptionTier) (cost.BudgetStatus, error) {
	return s.ledger.Status(ctx, userID, tier)
}

// Report exposes the monitoring snapshot.
func (s *Service) Report() monitor.Report {
	return s.monitor.GetReport()
}
