// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package surface wraps a raw pixel buffer in checked draw
// operations.
//
// The buffer typically aliases a shared frame region, so every
// coordinate is validated before any byte is written: a draw outside
// the surface returns a [BoundsViolation] and changes nothing. Offsets
// are computed in 64 bits; no coordinate pair can wrap into a valid
// offset.
package surface
