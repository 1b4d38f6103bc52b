// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

// Package imaging turns a raw user-supplied chart upload into the
// canonical, bounded, quality-scored image sent to the vision backend.
//
// The pipeline runs four ordered steps per request: validation,
// preprocessing (resize + re-encode), quality check, and optimization
// (thumbnail + bookkeeping). Validation failures abort the run before
// any external call is contemplated; a low quality score only attaches
// a warning. Preprocessing is CPU-bound and runs on a bounded worker
// pool so an upload burst cannot starve request admission.
package imaging

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"

	"chartsight/core/shared/logger"
	"chartsight/core/shared/types"
)

// Config contains pipeline limits. Zero values are replaced by
// defaults at construction.
type Config struct {
	// MaxBytes is the largest accepted upload (default 10MB).
	MaxBytes int64

	// MinDimension rejects images too small to analyze (default 50px).
	MinDimension int

	// MaxDimension rejects absurdly large images (default 8000px).
	MaxDimension int

	// MaxOutputEdge bounds the processed image (default 2048px).
	MaxOutputEdge int

	// JPEGQuality is the canonical output quality (default 85).
	JPEGQuality int

	// ThumbnailEdge bounds the optional thumbnail (default 256px).
	ThumbnailEdge int

	// ThumbnailQuality is the thumbnail JPEG quality (default 70).
	ThumbnailQuality int

	// Workers bounds concurrent CPU-bound preprocessing
	// (default runtime.NumCPU()).
	Workers int
}

// DefaultConfig returns the default pipeline limits.
func DefaultConfig() Config {
	return Config{
		MaxBytes:         10 * 1024 * 1024,
		MinDimension:     50,
		MaxDimension:     8000,
		MaxOutputEdge:    2048,
		JPEGQuality:      85,
		ThumbnailEdge:    256,
		ThumbnailQuality: 70,
		Workers:          runtime.NumCPU(),
	}
}

// Options selects per-run behavior.
type Options struct {
	// GenerateThumbnail enables thumbnail rendering in the
	// optimization step.
	GenerateThumbnail bool
}

// Pipeline validates and transforms chart uploads. Safe for
// concurrent use.
type Pipeline struct {
	config Config
	log    *logger.Logger
	sem    chan struct{}
}

// New creates a pipeline with the given configuration.
func New(config Config, log *logger.Logger) *Pipeline {
	def := DefaultConfig()
	if config.MaxBytes <= 0 {
		config.MaxBytes = def.MaxBytes
	}
	if config.MinDimension <= 0 {
		config.MinDimension = def.MinDimension
	}
	if config.MaxDimension <= 0 {
		config.MaxDimension = def.MaxDimension
	}
	if config.MaxOutputEdge <= 0 {
		config.MaxOutputEdge = def.MaxOutputEdge
	}
	if config.JPEGQuality <= 0 {
		config.JPEGQuality = def.JPEGQuality
	}
	if config.ThumbnailEdge <= 0 {
		config.ThumbnailEdge = def.ThumbnailEdge
	}
	if config.ThumbnailQuality <= 0 {
		config.ThumbnailQuality = def.ThumbnailQuality
	}
	if config.Workers <= 0 {
		config.Workers = def.Workers
	}
	if log == nil {
		log = logger.New("imaging")
	}

	return &Pipeline{
		config: config,
		log:    log,
		sem:    make(chan struct{}, config.Workers),
	}
}

// ProcessImage runs the four-step pipeline. The returned Run always
// records which steps executed; a failed step aborts the remainder and
// sets FailedStep.
func (p *Pipeline) ProcessImage(ctx context.Context, data []byte, meta types.FileMetadata, opts Options) *Run {
	run := &Run{PipelineID: uuid.NewString()}
	start := time.Now()
	defer func() { run.Duration = time.Since(start) }()

	// Step 1: validation. Cheap, runs before taking a pool slot.
	stepStart := time.Now()
	cfg, format, err := p.validate(data, meta)
	if err != nil {
		run.fail(StepValidation, err, time.Since(stepStart))
		p.log.Warn("", run.PipelineID, "image validation failed", map[string]interface{}{
			"error": err.Error(), "size": len(data), "mime": meta.MimeType,
		})
		return run
	}
	run.pass(StepValidation, time.Since(stepStart), nil)

	// CPU-bound work below runs on the bounded pool.
	select {
	case p.sem <- struct{}{}:
		defer func() { <-p.sem }()
	case <-ctx.Done():
		run.fail(StepPreprocessing, ctx.Err(), 0)
		return run
	}

	// Step 2: preprocessing.
	stepStart = time.Now()
	decoded, encoded, err := p.preprocess(data)
	if err != nil {
		run.fail(StepPreprocessing, err, time.Since(stepStart))
		p.log.Error("", run.PipelineID, "image preprocessing failed", map[string]interface{}{
			"error": err.Error(),
		})
		return run
	}

	bounds := decoded.Bounds()
	img := &ProcessedImage{
		Original: ImageInfo{
			Width:    cfg.Width,
			Height:   cfg.Height,
			Format:   format,
			ByteSize: len(data),
		},
		Processed: ImageInfo{
			Width:    bounds.Dx(),
			Height:   bounds.Dy(),
			Format:   "jpeg",
			ByteSize: len(encoded),
		},
		EncodedData:      encoded,
		CompressionRatio: float64(len(encoded)) / float64(len(data)),
	}
	run.pass(StepPreprocessing, time.Since(stepStart), nil)

	// Step 3: quality check. Warns, never aborts.
	stepStart = time.Now()
	img.QualityScore = qualityScore(img)
	var warnings []string
	if img.QualityScore < QualityWarningFloor {
		warnings = append(warnings, "low image quality may reduce analysis accuracy")
	}
	run.pass(StepQualityCheck, time.Since(stepStart), warnings)

	// Step 4: optimization and bookkeeping.
	stepStart = time.Now()
	var optWarnings []string
	if opts.GenerateThumbnail {
		thumb, terr := p.thumbnail(decoded)
		if terr != nil {
			// Thumbnail loss is not worth failing an otherwise good run.
			optWarnings = append(optWarnings, "thumbnail generation failed")
			p.log.Warn("", run.PipelineID, "thumbnail generation failed", map[string]interface{}{
				"error": terr.Error(),
			})
		} else {
			img.Thumbnail = thumb
		}
	}
	run.pass(StepOptimization, time.Since(stepStart), optWarnings)

	origPixels := float64(cfg.Width * cfg.Height)
	newPixels := float64(bounds.Dx() * bounds.Dy())
	run.Metrics = RunMetrics{
		CompressionPercent: (1 - img.CompressionRatio) * 100,
		DimensionReduction: (1 - newPixels/origPixels) * 100,
		EstimatedMemory:    int64(bounds.Dx()) * int64(bounds.Dy()) * 4,
	}
	run.Image = img
	run.Success = true

	p.log.Performance("", run.PipelineID, "image pipeline completed",
		float64(time.Since(start).Milliseconds()), map[string]interface{}{
			"quality_score": img.QualityScore,
			"original":      img.Original,
			"processed":     img.Processed,
		})

	return run
}

func (r *Run) pass(step StepName, d time.Duration, warnings []string) {
	r.Steps = append(r.Steps, StepResult{Step: step, Success: true, Duration: d, Warnings: warnings})
}

func (r *Run) fail(step StepName, err error, d time.Duration) {
	r.Steps = append(r.Steps, StepResult{Step: step, Success: false, Error: err.Error(), Duration: d})
	r.FailedStep = step
	r.Err = err
	r.Success = false
}
