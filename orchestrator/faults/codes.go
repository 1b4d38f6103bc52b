// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package faults

import "time"

// Code identifies one entry in the closed error taxonomy.
type Code string

const (
	CodeRateLimited            Code = "rate_limited"
	CodeQuotaExceeded          Code = "quota_exceeded"
	CodeBackendUnavailable     Code = "backend_unavailable"
	CodeNetworkTimeout         Code = "network_timeout"
	CodeFileTooLarge           Code = "file_too_large"
	CodeInvalidFormat          Code = "invalid_format"
	CodeUploadFailed           Code = "upload_failed"
	CodeCorruptedImage         Code = "corrupted_image"
	CodeImageProcessingFailed  Code = "image_processing_failed"
	CodeAnalysisFailed         Code = "analysis_failed"
	CodeVisionAPIError         Code = "vision_api_error"
	CodeAuthFailed             Code = "auth_failed"
	CodeInsufficientCredits    Code = "insufficient_credits"
	CodeBudgetExceeded         Code = "budget_exceeded"
	CodeStorageConnectionError Code = "storage_connection_failed"
	CodeStorageWriteError      Code = "storage_write_failed"
	CodeValidationError        Code = "validation_error"
	CodeUnknown                Code = "unknown"
)

// Entry is one taxonomy row. Entries are immutable after construction.
type Entry struct {
	Code       Code
	Message    string
	Guidance   string
	Retryable  bool
	AutoRetry  bool
	BaseDelay  time.Duration
	MaxRetries int
}

// taxonomy is the closed code -> policy table. Codes not present here
// do not exist.
var taxonomy = map[Code]Entry{
	CodeRateLimited: {
		Code:       CodeRateLimited,
		Message:    "The analysis service is receiving too many requests right now.",
		Guidance:   "Wait a moment and try again.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  2 * time.Second,
		MaxRetries: 3,
	},
	CodeQuotaExceeded: {
		Code:       CodeQuotaExceeded,
		Message:    "The analysis service quota has been exhausted.",
		Guidance:   "Try again after the quota window resets.",
		Retryable:  true,
		AutoRetry:  false,
		BaseDelay:  60 * time.Second,
		MaxRetries: 0,
	},
	CodeBackendUnavailable: {
		Code:       CodeBackendUnavailable,
		Message:    "The analysis service is temporarily unavailable.",
		Guidance:   "Try again in a minute.",
		Retryable:  true,
		AutoRetry:  false,
		BaseDelay:  10 * time.Second,
		MaxRetries: 1,
	},
	CodeNetworkTimeout: {
		Code:       CodeNetworkTimeout,
		Message:    "The request to the analysis service timed out.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  1 * time.Second,
		MaxRetries: 3,
	},
	CodeFileTooLarge: {
		Code:      CodeFileTooLarge,
		Message:   "The chart image is too large to analyze.",
		Guidance:  "Upload an image under 10MB.",
		Retryable: false,
	},
	CodeInvalidFormat: {
		Code:      CodeInvalidFormat,
		Message:   "The uploaded file is not a supported image format.",
		Guidance:  "Upload a PNG, JPEG, WebP, or GIF screenshot of your chart.",
		Retryable: false,
	},
	CodeUploadFailed: {
		Code:       CodeUploadFailed,
		Message:    "The chart image failed to upload.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  1 * time.Second,
		MaxRetries: 2,
	},
	CodeCorruptedImage: {
		Code:      CodeCorruptedImage,
		Message:   "The chart image appears to be corrupted.",
		Guidance:  "Take a fresh screenshot and upload it again.",
		Retryable: false,
	},
	CodeImageProcessingFailed: {
		Code:       CodeImageProcessingFailed,
		Message:    "The chart image could not be processed.",
		Guidance:   "Try a different screenshot if this keeps happening.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  1 * time.Second,
		MaxRetries: 1,
	},
	CodeAnalysisFailed: {
		Code:       CodeAnalysisFailed,
		Message:    "The analysis could not be completed.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  2 * time.Second,
		MaxRetries: 2,
	},
	CodeVisionAPIError: {
		Code:       CodeVisionAPIError,
		Message:    "The vision service returned an error.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  2 * time.Second,
		MaxRetries: 2,
	},
	CodeAuthFailed: {
		Code:      CodeAuthFailed,
		Message:   "Authentication with the analysis service failed.",
		Guidance:  "Contact support if this persists.",
		Retryable: false,
	},
	CodeInsufficientCredits: {
		Code:      CodeInsufficientCredits,
		Message:   "The analysis service account has insufficient credits.",
		Guidance:  "Contact support if this persists.",
		Retryable: false,
	},
	CodeBudgetExceeded: {
		Code:      CodeBudgetExceeded,
		Message:   "You have reached your daily analysis budget.",
		Guidance:  "Your budget resets at midnight UTC, or upgrade your plan for a higher limit.",
		Retryable: false,
	},
	CodeStorageConnectionError: {
		Code:       CodeStorageConnectionError,
		Message:    "A storage service could not be reached.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  2 * time.Second,
		MaxRetries: 2,
	},
	CodeStorageWriteError: {
		Code:       CodeStorageWriteError,
		Message:    "A storage write failed.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  1 * time.Second,
		MaxRetries: 2,
	},
	CodeValidationError: {
		Code:      CodeValidationError,
		Message:   "The request failed validation.",
		Guidance:  "Check the image and request fields and try again.",
		Retryable: false,
	},
	CodeUnknown: {
		Code:       CodeUnknown,
		Message:    "An unexpected error occurred.",
		Retryable:  true,
		AutoRetry:  true,
		BaseDelay:  2 * time.Second,
		MaxRetries: 1,
	},
}

// Lookup returns the taxonomy entry for a code, falling back to the
// unknown entry.
func Lookup(code Code) Entry {
	if e, ok := taxonomy[code]; ok {
		return e
	}
	return taxonomy[CodeUnknown]
}
