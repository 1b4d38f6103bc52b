// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"fmt"
	"strings"

	"chartsight/core/shared/types"
)

// systemPrompt is the analyst persona plus the output contract the
// verdict parser depends on.
const systemPrompt = `You are an experienced trading coach reviewing a chart screenshot a student uploaded.

Evaluate the setup visible in the chart and respond with ONLY a JSON object of this exact shape:
{"verdict": "diamond" | "fire" | "skull", "confidence": <integer 0-100>, "reasoning": "<2-4 sentences explaining the call>"}

Verdict meanings:
- "diamond": a high-quality setup worth taking
- "fire": interesting but risky, needs tight management
- "skull": avoid this trade

Do not add any text outside the JSON object.`

// buildPrompt assembles the user message from the trader's description
// and the requested depth.
func buildPrompt(description string, mode types.SpeedMode) string {
	var sb strings.Builder
	sb.WriteString("Review the attached chart screenshot.")
	if desc := strings.TrimSpace(description); desc != "" {
		fmt.Fprintf(&sb, " The trader says: %q.", desc)
	}
	if mode == types.SpeedHighAccuracy {
		sb.WriteString(" Take your time and weigh the full context before deciding.")
	}
	return sb.String()
}
