// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{name: "api key redacted", key: "api_key", want: redactedValue},
		{name: "token redacted", key: "access_token", want: redactedValue},
		{name: "password redacted", key: "db_password", want: redactedValue},
		{name: "authorization redacted", key: "Authorization", want: redactedValue},
		{name: "plain key kept", key: "model", want: "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Sanitize(map[string]interface{}{tt.key: "value"})
			if out[tt.key] != tt.want {
				t.Errorf("Sanitize(%q) = %v, want %v", tt.key, out[tt.key], tt.want)
			}
		})
	}
}

func TestSanitizeDoesNotMutateInput(t *testing.T) {
	in := map[string]interface{}{"token": "secret"}
	_ = Sanitize(in)
	if in["token"] != "secret" {
		t.Error("Sanitize mutated its input")
	}
}

func TestSanitizeNil(t *testing.T) {
	if Sanitize(nil) != nil {
		t.Error("expected nil for nil input")
	}
}

func TestTruncate(t *testing.T) {
	short := "hello"
	if truncate(short) != short {
		t.Error("short string should be unchanged")
	}

	long := strings.Repeat("a", MaxFieldLength+100)
	got := truncate(long)
	if !strings.HasSuffix(got, "...[truncated]") {
		t.Error("expected truncation marker")
	}
	if len(got) != MaxFieldLength+len("...[truncated]") {
		t.Errorf("unexpected truncated length %d", len(got))
	}
}
