// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package logger

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log entry
type LogLevel string

const (
	DEBUG LogLevel = "DEBUG"
	INFO  LogLevel = "INFO"
	WARN  LogLevel = "WARN"
	ERROR LogLevel = "ERROR"
)

// Category selects the append-only stream a log entry is written to.
type Category string

const (
	CategoryGeneral     Category = "general"
	CategoryError       Category = "error"
	CategoryPerformance Category = "performance"
	CategoryAudit       Category = "audit"
)

// MaxFieldLength is the longest string value written to a log entry.
// Longer values are truncated with a marker so a single oversized
// model response cannot blow up the log stream.
const MaxFieldLength = 2000

// Logger provides structured JSON logging with per-category streams.
type Logger struct {
	Component  string
	InstanceID string
	Container  string

	mu      sync.Mutex
	streams map[Category]io.Writer
}

// LogEntry represents a structured log entry
type LogEntry struct {
	Timestamp  string                 `json:"timestamp"`
	Level      LogLevel               `json:"level"`
	Category   Category               `json:"category"`
	Component  string                 `json:"component"`
	InstanceID string                 `json:"instance_id"`
	Container  string                 `json:"container"`
	UserID     string                 `json:"user_id,omitempty"`
	RequestID  string                 `json:"request_id,omitempty"`
	Message    string                 `json:"message"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// New creates a new Logger for the specified component. All categories
// write to stdout until redirected with SetStream.
func New(component string) *Logger {
	instanceID := os.Getenv("INSTANCE_ID")
	if instanceID == "" {
		instanceID = "unknown"
	}

	container, err := os.Hostname()
	if err != nil {
		container = "unknown"
	}

	return &Logger{
		Component:  component,
		InstanceID: instanceID,
		Container:  container,
		streams:    make(map[Category]io.Writer),
	}
}

// SetStream redirects a category to the given writer. Categories without
// an explicit stream write to stdout.
func (l *Logger) SetStream(cat Category, w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.streams[cat] = w
}

// Log creates a structured log entry and writes it to the category stream.
// Sensitive field values are redacted and oversized strings truncated
// before serialization.
func (l *Logger) Log(level LogLevel, cat Category, userID, requestID, message string, fields map[string]interface{}) {
	entry := LogEntry{
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Level:      level,
		Category:   cat,
		Component:  l.Component,
		InstanceID: l.InstanceID,
		Container:  l.Container,
		UserID:     userID,
		RequestID:  requestID,
		Message:    truncate(message),
		Fields:     Sanitize(fields),
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fallback to plain text if JSON marshaling fails
		log.Printf("ERROR: failed to marshal log entry: %v", err)
		return
	}

	l.mu.Lock()
	w := l.streams[cat]
	l.mu.Unlock()

	if w == nil {
		log.Println(string(jsonBytes))
		return
	}
	_, _ = w.Write(append(jsonBytes, '\n'))
}

// Info logs an informational message to the general stream
func (l *Logger) Info(userID, requestID, message string, fields map[string]interface{}) {
	l.Log(INFO, CategoryGeneral, userID, requestID, message, fields)
}

// Error logs an error message to the error stream
func (l *Logger) Error(userID, requestID, message string, fields map[string]interface{}) {
	l.Log(ERROR, CategoryError, userID, requestID, message, fields)
}

// Warn logs a warning message to the general stream
func (l *Logger) Warn(userID, requestID, message string, fields map[string]interface{}) {
	l.Log(WARN, CategoryGeneral, userID, requestID, message, fields)
}

// Debug logs a debug message to the general stream
func (l *Logger) Debug(userID, requestID, message string, fields map[string]interface{}) {
	l.Log(DEBUG, CategoryGeneral, userID, requestID, message, fields)
}

// Audit logs an entry to the append-only audit stream
func (l *Logger) Audit(userID, requestID, message string, fields map[string]interface{}) {
	l.Log(INFO, CategoryAudit, userID, requestID, message, fields)
}

// Performance logs a timing entry to the performance stream
func (l *Logger) Performance(userID, requestID, message string, durationMS float64, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["duration_ms"] = durationMS
	l.Log(INFO, CategoryPerformance, userID, requestID, message, fields)
}

// ErrorWithCode logs an error with status code
func (l *Logger) ErrorWithCode(userID, requestID, message string, statusCode int, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	fields["status_code"] = statusCode
	if err != nil {
		fields["error"] = err.Error()
	}
	l.Error(userID, requestID, message, fields)
}
