// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"encoding/json"
	"fmt"
	"strings"

	"chartsight/core/shared/types"
)

// parsedVerdict is the JSON shape the model is instructed to return.
type parsedVerdict struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// parseVerdict extracts the structured verdict from raw model output.
// Markdown code fences around the JSON are tolerated; anything that
// does not yield a known verdict is an error.
func parseVerdict(raw string) (*AnalysisData, error) {
	text := stripCodeFences(raw)

	// Models occasionally wrap the object in prose; fall back to the
	// outermost braces.
	if !strings.HasPrefix(strings.TrimSpace(text), "{") {
		start := strings.Index(text, "{")
		end := strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("no JSON object in model output")
		}
		text = text[start : end+1]
	}

	var pv parsedVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &pv); err != nil {
		return nil, fmt.Errorf("malformed verdict JSON: %w", err)
	}

	verdict, err := normalizeVerdict(pv.Verdict)
	if err != nil {
		return nil, err
	}

	confidence := int(pv.Confidence)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	return &AnalysisData{
		Verdict:    verdict,
		Confidence: confidence,
		Reasoning:  strings.TrimSpace(pv.Reasoning),
	}, nil
}

// normalizeVerdict maps model spellings onto the closed verdict enum.
func normalizeVerdict(s string) (types.Verdict, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "diamond":
		return types.VerdictDiamond, nil
	case "fire":
		return types.VerdictFire, nil
	case "skull":
		return types.VerdictSkull, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", s)
	}
}

// stripCodeFences removes a surrounding markdown code fence if present.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop an optional language tag on the opening fence.
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		firstLine := trimmed[:idx]
		if !strings.Contains(firstLine, "{") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
