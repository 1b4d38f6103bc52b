// Copyright 2025 ChartSight
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"

	// Registered decoders for the upload whitelist.
	_ "image/gif"
	_ "image/png"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrEncodeFailed wraps re-encoding failures during preprocessing.
var ErrEncodeFailed = errors.New("failed to encode processed image")

// targetDimensions computes output dimensions preserving aspect ratio,
// bounded by maxEdge. Images already within bounds are never upscaled.
func targetDimensions(w, h, maxEdge int) (int, int) {
	if w <= maxEdge && h <= maxEdge {
		return w, h
	}

	if w >= h {
		scaled := int(float64(h)*float64(maxEdge)/float64(w) + 0.5)
		if scaled < 1 {
			scaled = 1
		}
		return maxEdge, scaled
	}
	scaled := int(float64(w)*float64(maxEdge)/float64(h) + 0.5)
	if scaled < 1 {
		scaled = 1
	}
	return scaled, maxEdge
}

// preprocess decodes the input, scales it to the bounded target size,
// and re-encodes to the canonical JPEG output.
func (p *Pipeline) preprocess(data []byte) (image.Image, []byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorruptData, err)
	}

	bounds := src.Bounds()
	tw, th := targetDimensions(bounds.Dx(), bounds.Dy(), p.config.MaxOutputEdge)

	out := src
	if tw != bounds.Dx() || th != bounds.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, tw, th))
		xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: p.config.JPEGQuality}); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}

	return out, buf.Bytes(), nil
}

// thumbnail renders a small preview JPEG from the already-decoded
// processed image.
func (p *Pipeline) thumbnail(src image.Image) ([]byte, error) {
	bounds := src.Bounds()
	tw, th := targetDimensions(bounds.Dx(), bounds.Dy(), p.config.ThumbnailEdge)

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: p.config.ThumbnailQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}
