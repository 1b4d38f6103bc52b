// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"

	"chartsight/core/shared/types"
)

// Typed validation errors. The fault classifier maps these onto the
// user-facing taxonomy, so they must stay distinguishable.
var (
	ErrFileTooLarge       = errors.New("image exceeds maximum allowed size")
	ErrUnsupportedFormat  = errors.New("unsupported image format")
	ErrCorruptData        = errors.New("image data is corrupt or not decodable")
	ErrDimensionsTooSmall = errors.New("image dimensions are too small to analyze")
	ErrDimensionsTooLarge = errors.New("image dimensions exceed the supported range")
	ErrEmptyInput         = errors.New("image data is empty")
)

// allowedMimeTypes is the upload whitelist. The canonical pipeline
// output is always JPEG regardless of input format.
var allowedMimeTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
	"image/gif":  true,
}

// validate rejects unsupported, oversized, corrupt, or out-of-range
// inputs before any decode work or external call happens.
func (p *Pipeline) validate(data []byte, meta types.FileMetadata) (image.Config, string, error) {
	if len(data) == 0 {
		return image.Config{}, "", ErrEmptyInput
	}

	if int64(len(data)) > p.config.MaxBytes {
		return image.Config{}, "", fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(data), p.config.MaxBytes)
	}

	if meta.MimeType != "" && !allowedMimeTypes[meta.MimeType] {
		return image.Config{}, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, meta.MimeType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, "", fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	if cfg.Width < p.config.MinDimension || cfg.Height < p.config.MinDimension {
		return cfg, format, fmt.Errorf("%w: %dx%d (minimum %dpx)",
			ErrDimensionsTooSmall, cfg.Width, cfg.Height, p.config.MinDimension)
	}
	if cfg.Width > p.config.MaxDimension || cfg.Height > p.config.MaxDimension {
		return cfg, format, fmt.Errorf("%w: %dx%d (maximum %dpx)",
			ErrDimensionsTooLarge, cfg.Width, cfg.Height, p.config.MaxDimension)
	}

	return cfg, format, nil
}
