// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"errors"
	"fmt"
)

// Deployment-time maxima for accepted images. Fixed per build, never
// runtime-negotiable.
const (
	// MaxWidth is the largest accepted image width in pixels.
	MaxWidth uint32 = 4096
	// MaxHeight is the largest accepted image height in pixels.
	MaxHeight uint32 = 4096
	// MaxUnits is the largest accepted pixel count (8 Mi pixels).
	// Deliberately below MaxWidth*MaxHeight so the product cap binds
	// independently of the per-dimension caps: a 4096x4096 image
	// passes both dimension checks and is still rejected here.
	MaxUnits uint64 = 8 * 1024 * 1024
)

// ErrorKind classifies an admission rejection.
type ErrorKind int

const (
	// InvalidMagic: the leading bytes match no supported format.
	InvalidMagic ErrorKind = iota
	// TooSmall: the input is shorter than the format's header.
	TooSmall
	// InvalidHeader: the header is structurally malformed or truncated.
	InvalidHeader
	// ZeroDimension: width or height is zero.
	ZeroDimension
	// TooLarge: a dimension exceeds MaxWidth or MaxHeight.
	TooLarge
	// TooManyUnits: width*height exceeds MaxUnits or overflows.
	TooManyUnits
	// LengthMismatch: a declared payload length does not match the
	// length implied by the dimensions and format.
	LengthMismatch
	// UnsupportedVariant: a recognized format using a feature the
	// decoder does not handle.
	UnsupportedVariant
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidMagic:
		return "invalid magic"
	case TooSmall:
		return "input too small"
	case InvalidHeader:
		return "malformed header"
	case ZeroDimension:
		return "zero dimension"
	case TooLarge:
		return "dimension exceeds maximum"
	case TooManyUnits:
		return "pixel count exceeds maximum"
	case LengthMismatch:
		return "declared length mismatch"
	case UnsupportedVariant:
		return "unsupported format variant"
	default:
		return fmt.Sprintf("admission error %d", int(k))
	}
}

// ValidationError is the typed rejection produced by the admission
// gate. It is surfaced before any parser or allocation touches the
// input — a rejection has no side effects.
type ValidationError struct {
	// Kind classifies the rejection.
	Kind ErrorKind
	// Format names the detected format, if detection got that far.
	Format Format
	// Detail carries the offending values for diagnostics.
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("admission: %s: %s", e.Format, e.Kind)
	}
	return fmt.Sprintf("admission: %s: %s (%s)", e.Format, e.Kind, e.Detail)
}

// IsKind reports whether err is, or wraps, a *ValidationError of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var validationErr *ValidationError
	return errors.As(err, &validationErr) && validationErr.Kind == kind
}

func reject(format Format, kind ErrorKind, detail string) *ValidationError {
	return &ValidationError{Kind: kind, Format: format, Detail: detail}
}

// checkDimensions applies the shared dimension rules: nonzero, within
// the fixed maxima, product within MaxUnits. The product is computed
// in 64-bit so no input can overflow the check itself.
func checkDimensions(format Format, width, height uint32) *ValidationError {
	if width == 0 || height == 0 {
		return reject(format, ZeroDimension, fmt.Sprintf("%dx%d", width, height))
	}
	if width > MaxWidth || height > MaxHeight {
		return reject(format, TooLarge, fmt.Sprintf("%dx%d", width, height))
	}
	if uint64(width)*uint64(height) > MaxUnits {
		return reject(format, TooManyUnits, fmt.Sprintf("%dx%d", width, height))
	}
	return nil
}
