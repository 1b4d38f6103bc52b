// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package logger

import "strings"

// sensitiveKeys are field names whose values are never written to a log
// stream, regardless of category.
var sensitiveKeys = []string{
	"api_key",
	"apikey",
	"authorization",
	"credential",
	"password",
	"secret",
	"token",
}

const redactedValue = "[REDACTED]"

// Sanitize returns a copy of fields with sensitive values redacted and
// oversized string values truncated. Nested maps are sanitized
// recursively. The input map is never modified.
func Sanitize(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if isSensitiveKey(k) {
			out[k] = redactedValue
			continue
		}
		switch val := v.(type) {
		case string:
			out[k] = truncate(val)
		case map[string]interface{}:
			out[k] = Sanitize(val)
		default:
			out[k] = v
		}
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func truncate(s string) string {
	if len(s) <= MaxFieldLength {
		return s
	}
	return s[:MaxFieldLength] + "...[truncated]"
}
