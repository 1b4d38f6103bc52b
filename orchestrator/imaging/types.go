// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package imaging

import "time"

// StepName identifies a pipeline stage.
type StepName string

const (
	StepValidation    StepName = "validation"
	StepPreprocessing StepName = "preprocessing"
	StepQualityCheck  StepName = "qualityCheck"
	StepOptimization  StepName = "optimization"
)

// StepResult records the outcome of one pipeline stage.
type StepResult struct {
	Step     StepName      `json:"step"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Duration time.Duration `json:"duration_ms"`
}

// ImageInfo describes one encoded image.
type ImageInfo struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	ByteSize int    `json:"byte_size"`
}

// ProcessedImage is the canonical pipeline output. Immutable after
// creation.
type ProcessedImage struct {
	Original         ImageInfo `json:"original"`
	Processed        ImageInfo `json:"processed"`
	EncodedData      []byte    `json:"-"`
	CompressionRatio float64   `json:"compression_ratio"`
	QualityScore     int       `json:"quality_score"`
	Thumbnail        []byte    `json:"-"`
}

// RunMetrics aggregates what the pipeline achieved.
type RunMetrics struct {
	CompressionPercent float64 `json:"compression_percent"`
	DimensionReduction float64 `json:"dimension_reduction_percent"`
	EstimatedMemory    int64   `json:"estimated_memory_bytes"`
}

// Run is the per-request pipeline result. It is created and discarded
// per request, never persisted.
type Run struct {
	PipelineID string          `json:"pipeline_id"`
	Steps      []StepResult    `json:"steps"`
	Metrics    RunMetrics      `json:"metrics"`
	Success    bool            `json:"success"`
	FailedStep StepName        `json:"failed_step,omitempty"`
	Err        error           `json:"-"`
	Image      *ProcessedImage `json:"image,omitempty"`
	Duration   time.Duration   `json:"duration_ms"`
}

// Warnings collects warnings across all steps.
func (r *Run) Warnings() []string {
	var out []string
	for _, s := range r.Steps {
		out = append(out, s.Warnings...)
	}
	return out
}
