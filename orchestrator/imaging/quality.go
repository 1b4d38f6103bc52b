// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package imaging

// Quality scoring tuning. The score summarizes whether the processed
// image is still useful for downstream vision inference.
const (
	// overCompressionRatio is the processed/original byte ratio below
	// which detail loss is assumed.
	overCompressionRatio = 0.05

	// smallDimensionFloor is the processed min dimension below which
	// chart text becomes unreadable to the model.
	smallDimensionFloor = 200

	// sweetSpotMin/Max is the long-edge range known to work well with
	// the vision backend.
	sweetSpotMin = 512
	sweetSpotMax = 2048

	overCompressionPenalty = 20
	smallDimensionPenalty  = 25
	sweetSpotBonus         = 5

	// QualityWarningFloor is the score below which a warning (not a
	// failure) is attached to the pipeline run.
	QualityWarningFloor = 70
)

// qualityScore derives a 0-100 suitability score for the processed
// image. It never fails the pipeline; low scores surface as warnings.
func qualityScore(img *ProcessedImage) int {
	score := 100

	if img.CompressionRatio > 0 && img.CompressionRatio < overCompressionRatio {
		score -= overCompressionPenalty
	}

	minDim := img.Processed.Width
	if img.Processed.Height < minDim {
		minDim = img.Processed.Height
	}
	if minDim < smallDimensionFloor {
		score -= smallDimensionPenalty
	}

	longEdge := img.Processed.Width
	if img.Processed.Height > longEdge {
		longEdge = img.Processed.Height
	}
	if longEdge >= sweetSpotMin && longEdge <= sweetSpotMax {
		score += sweetSpotBonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
