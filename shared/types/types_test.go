// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package types

import "testing"

func TestSpeedModeValidate(t *testing.T) {
	tests := []struct {
		mode    SpeedMode
		wantErr bool
	}{
		{SpeedSuperFast, false},
		{SpeedFast, false},
		{SpeedBalanced, false},
		{SpeedHighAccuracy, false},
		{SpeedMode("turbo"), true},
		{SpeedMode(""), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			err := tt.mode.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%q) error = %v, wantErr %v", tt.mode, err, tt.wantErr)
			}
		})
	}
}

func TestVerdictValidate(t *testing.T) {
	for _, v := range ValidVerdicts {
		if err := v.Validate(); err != nil {
			t.Errorf("expected %q to be valid: %v", v, err)
		}
	}

	if err := Verdict("Rocket").Validate(); err == nil {
		t.Error("expected error for unknown verdict")
	}
	if err := Verdict("").Validate(); err == nil {
		t.Error("expected error for empty verdict")
	}
}
