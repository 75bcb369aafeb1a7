// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package surface

import (
	"fmt"
)

// BytesPerPixel is the surface pixel stride. Surfaces are RGBA, 4
// bytes per pixel, rows stored top to bottom with no padding.
const BytesPerPixel = 4

// A BoundsViolation reports a draw that would have touched memory
// outside the surface. The write is refused; the surface is unchanged.
type BoundsViolation struct {
	// Op names the refused operation.
	Op string
	// X, Y are the offending coordinates.
	X, Y uint32
	// Width, Height are the surface dimensions.
	Width, Height uint32
}

func (e *BoundsViolation) Error() string {
	return fmt.Sprintf("surface: %s at (%d,%d) outside %dx%d", e.Op, e.X, e.Y, e.Width, e.Height)
}

// Pixel is one RGBA value.
type Pixel struct {
	R, G, B, A uint8
}

// Surface is a fixed-size pixel buffer with checked draw operations.
// Every coordinate is validated before any byte moves; a rejected draw
// leaves the buffer untouched. Index arithmetic is done in 64 bits so
// coordinate pairs near the 32-bit limit cannot alias a wrong, valid
// offset.
type Surface struct {
	width  uint32
	height uint32
	buf    []byte
}

// New returns a surface of the given dimensions backed by buf, which
// must be exactly width*height*BytesPerPixel bytes. The surface aliases
// buf; draws write through to it.
func New(width, height uint32, buf []byte) (*Surface, error) {
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("surface: zero dimension %dx%d", width, height)
	}
	need := uint64(width) * uint64(height) * BytesPerPixel
	if uint64(len(buf)) != need {
		return nil, fmt.Errorf("surface: buffer is %d bytes, %dx%d needs %d", len(buf), width, height, need)
	}
	return &Surface{width: width, height: height, buf: buf}, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() uint32 { return s.width }

// Height returns the surface height in pixels.
func (s *Surface) Height() uint32 { return s.height }

// Bytes returns the backing buffer. The caller must not resize it.
func (s *Surface) Bytes() []byte { return s.buf }

func (s *Surface) offset(x, y uint32) uint64 {
	return (uint64(y)*uint64(s.width) + uint64(x)) * BytesPerPixel
}

// PutPixel writes one pixel. Coordinates at or beyond the surface
// dimensions are refused with a *BoundsViolation.
func (s *Surface) PutPixel(x, y uint32, p Pixel) error {
	if x >= s.width || y >= s.height {
		return &BoundsViolation{Op: "PutPixel", X: x, Y: y, Width: s.width, Height: s.height}
	}
	off := s.offset(x, y)
	s.buf[off] = p.R
	s.buf[off+1] = p.G
	s.buf[off+2] = p.B
	s.buf[off+3] = p.A
	return nil
}

// GetPixel reads one pixel, with the same bounds discipline as
// PutPixel.
func (s *Surface) GetPixel(x, y uint32) (Pixel, error) {
	if x >= s.width || y >= s.height {
		return Pixel{}, &BoundsViolation{Op: "GetPixel", X: x, Y: y, Width: s.width, Height: s.height}
	}
	off := s.offset(x, y)
	return Pixel{R: s.buf[off], G: s.buf[off+1], B: s.buf[off+2], A: s.buf[off+3]}, nil
}

// FillRect fills the rectangle with origin (x, y). The whole rectangle
// must lie inside the surface: a partially out-of-bounds rectangle is
// refused entirely rather than silently clipped, because a caller that
// miscomputed a rectangle has miscomputed its layout. The containment
// checks are subtraction-form so hostile extents cannot overflow them.
func (s *Surface) FillRect(x, y, w, h uint32, p Pixel) error {
	if w == 0 || h == 0 {
		return nil
	}
	if x >= s.width || y >= s.height || w > s.width-x || h > s.height-y {
		return &BoundsViolation{Op: "FillRect", X: x, Y: y, Width: s.width, Height: s.height}
	}
	for row := y; row < y+h; row++ {
		off := s.offset(x, row)
		for col := uint32(0); col < w; col++ {
			s.buf[off] = p.R
			s.buf[off+1] = p.G
			s.buf[off+2] = p.B
			s.buf[off+3] = p.A
			off += BytesPerPixel
		}
	}
	return nil
}

// Clear fills the whole surface with one pixel value.
func (s *Surface) Clear(p Pixel) {
	for off := 0; off < len(s.buf); off += BytesPerPixel {
		s.buf[off] = p.R
		s.buf[off+1] = p.G
		s.buf[off+2] = p.B
		s.buf[off+3] = p.A
	}
}

// Blit copies an RGBA source image onto the surface at (x, y),
// clamping to the destination: rows and columns that fall outside are
// dropped, not wrapped. src must be srcWidth*srcHeight*BytesPerPixel
// bytes. Unlike FillRect this clamps instead of refusing, because the
// source dimensions come from decoded content rather than from the
// caller's own layout.
func (s *Surface) Blit(x, y uint32, src []byte, srcWidth, srcHeight uint32) error {
	need := uint64(srcWidth) * uint64(srcHeight) * BytesPerPixel
	if uint64(len(src)) != need {
		return fmt.Errorf("surface: blit source is %d bytes, %dx%d needs %d", len(src), srcWidth, srcHeight, need)
	}
	if x >= s.width || y >= s.height {
		return nil
	}
	copyWidth := min(uint64(srcWidth), uint64(s.width-x))
	copyHeight := min(uint64(srcHeight), uint64(s.height-y))
	for row := uint64(0); row < copyHeight; row++ {
		srcOff := row * uint64(srcWidth) * BytesPerPixel
		dstOff := s.offset(x, y+uint32(row))
		copy(s.buf[dstOff:dstOff+copyWidth*BytesPerPixel], src[srcOff:srcOff+copyWidth*BytesPerPixel])
	}
	return nil
}
