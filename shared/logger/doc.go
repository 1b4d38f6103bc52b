// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

/*
Package logger provides structured JSON logging for ChartSight components.

# Overview

Log entries are single-line JSON written to one of four append-only
category streams (general, error, performance, audit), making them easily
consumable by CloudWatch, ELK, or any other log aggregation system.

Each entry includes:
  - Timestamp (RFC3339Nano format)
  - Log level (DEBUG, INFO, WARN, ERROR)
  - Category (general, error, performance, audit)
  - Component name (orchestrator, monitor, etc.)
  - Instance ID and container name (for distributed tracing)
  - User ID and request ID (for request correlation)
  - Custom fields

# Usage

Create a logger for your component:

	log := logger.New("orchestrator")

Log messages with user and request context:

	log.Info("user-123", "req-456", "analysis started", map[string]interface{}{
	    "model": "gpt-4o",
	})

# Redaction

Field values whose key contains a sensitive substring (api_key, token,
password, secret, authorization, credential) are replaced with [REDACTED]
before serialization. String values longer than MaxFieldLength are
truncated.

# Thread Safety

Logger instances are safe for concurrent use from multiple goroutines.
*/
package logger
