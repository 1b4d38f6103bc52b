// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartsight/core/shared/types"
)

func TestParseVerdictPlainJSON(t *testing.T) {
	data, err := parseVerdict(`{"verdict": "diamond", "confidence": 85, "reasoning": "clean breakout with volume"}`)
	require.NoError(t, err)

	assert.Equal(t, types.VerdictDiamond, data.Verdict)
	assert.Equal(t, 85, data.Confidence)
	assert.Equal(t, "clean breakout with volume", data.Reasoning)
}

func TestParseVerdictCodeFenced(t *testing.T) {
	raw := "```json\n{\"verdict\": \"fire\", \"confidence\": 60, \"reasoning\": \"risky\"}\n```"
	data, err := parseVerdict(raw)
	require.NoError(t, err)

	assert.Equal(t, types.VerdictFire, data.Verdict)
	assert.Equal(t, 60, data.Confidence)
}

func TestParseVerdictProseWrapped(t *testing.T) {
	raw := `Here is my assessment: {"verdict": "skull", "confidence": 90, "reasoning": "falling knife"} Good luck!`
	data, err := parseVerdict(raw)
	require.NoError(t, err)

	assert.Equal(t, types.VerdictSkull, data.Verdict)
}

func TestParseVerdictClampsConfidence(t *testing.T) {
	over, err := parseVerdict(`{"verdict": "fire", "confidence": 150, "reasoning": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, 100, over.Confidence)

	under, err := parseVerdict(`{"verdict": "fire", "confidence": -5, "reasoning": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, under.Confidence)
}

func TestParseVerdictCaseInsensitive(t *testing.T) {
	data, err := parseVerdict(`{"verdict": "Diamond", "confidence": 50, "reasoning": "x"}`)
	require.NoError(t, err)
	assert.Equal(t, types.VerdictDiamond, data.Verdict)
}

func TestParseVerdictRejectsInvalidShapes(t *testing.T) {
	cases := []string{
		``,
		`not json at all`,
		`{"verdict": "moon", "confidence": 50, "reasoning": "x"}`,
		`{"confidence": 50}`,
		`[1, 2, 3]`,
	}
	for _, raw := range cases {
		_, err := parseVerdict(raw)
		assert.Error(t, err, "input: %q", raw)
	}
}

func TestBuildPrompt(t *testing.T) {
	p := buildPrompt("long on BTC 4h", types.SpeedBalanced)
	assert.Contains(t, p, "long on BTC 4h")

	deep := buildPrompt("", types.SpeedHighAccuracy)
	assert.Contains(t, deep, "Take your time")

	plain := buildPrompt("", types.SpeedFast)
	assert.NotContains(t, plain, "Take your time")
}
