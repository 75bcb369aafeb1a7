// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"encoding/binary"
	"fmt"
	"testing"
)

// minimalJPEG builds a JPEG with SOI, a baseline SOF0 segment carrying
// the given dimensions, and enough trailing bytes to pass length
// checks.
func minimalJPEG(width, height uint16) []byte {
	data := []byte{
		0xFF, 0xD8, // SOI
		0xFF, 0xC0, // SOF0
		0x00, 0x0B, // segment length 11
		0x08, // precision
	}
	data = binary.BigEndian.AppendUint16(data, height)
	data = binary.BigEndian.AppendUint16(data, width)
	data = append(data, 0x03, 0x01, 0x11, 0x00) // component data
	return data
}

func minimalPNG(width, height uint32, interlace byte) []byte {
	data := append([]byte(nil), pngSignature...)
	data = binary.BigEndian.AppendUint32(data, 13)
	data = append(data, []byte("IHDR")...)
	data = binary.BigEndian.AppendUint32(data, width)
	data = binary.BigEndian.AppendUint32(data, height)
	data = append(data, 8, 2, 0, 0, interlace) // depth, RGB, compression, filter
	data = append(data, 0, 0, 0, 0)            // CRC (not checked by the gate)
	return data
}

func minimalQOI(width, height uint32) []byte {
	data := []byte("qoif")
	data = binary.BigEndian.AppendUint32(data, width)
	data = binary.BigEndian.AppendUint32(data, height)
	data = append(data, 4, 0) // channels, colorspace
	return data
}

func TestAcceptsInRangeDimensions(t *testing.T) {
	header, err := Validate(minimalJPEG(100, 100))
	if err != nil {
		t.Fatalf("Validate(100x100 JPEG): %v", err)
	}
	if header.Width != 100 || header.Height != 100 {
		t.Errorf("dimensions = %dx%d, want 100x100", header.Width, header.Height)
	}
	if header.Format != FormatJPEG {
		t.Errorf("Format = %v, want %v", header.Format, FormatJPEG)
	}
	if header.OutputSize() != 100*100*4 {
		t.Errorf("OutputSize() = %d, want %d", header.OutputSize(), 100*100*4)
	}
}

func TestRejectsZeroDimension(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"jpeg zero width", minimalJPEG(0, 100)},
		{"jpeg zero height", minimalJPEG(100, 0)},
		{"png zero width", minimalPNG(0, 50, 0)},
		{"qoi zero height", minimalQOI(64, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Validate(tc.data)
			if !IsKind(err, ZeroDimension) {
				t.Errorf("Validate = %v, want ZeroDimension rejection", err)
			}
		})
	}
}

func TestRejectsOversizedDimensions(t *testing.T) {
	_, err := Validate(minimalJPEG(65535, 65535))
	if !IsKind(err, TooLarge) {
		t.Errorf("Validate(65535x65535) = %v, want TooLarge", err)
	}
}

func TestRejectsTooManyUnits(t *testing.T) {
	// 4096x2048 = 8Mi pixels, exactly MaxUnits: admitted.
	if _, err := Validate(minimalPNG(4096, 2048, 0)); err != nil {
		t.Errorf("Validate(4096x2048) = %v, want admitted at the limit", err)
	}
	// 4096x2049 passes both per-dimension checks but exceeds the
	// product cap.
	_, err := Validate(minimalPNG(4096, 2049, 0))
	if !IsKind(err, TooManyUnits) {
		t.Errorf("Validate(4096x2049) = %v, want TooManyUnits", err)
	}
	// One dimension over its own cap reports TooLarge, not the
	// product kind.
	_, err = Validate(minimalQOI(4096, 4097))
	if !IsKind(err, TooLarge) {
		t.Errorf("Validate(4096x4097) = %v, want TooLarge", err)
	}
}

func TestRejectsUnknownMagic(t *testing.T) {
	_, err := Validate([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0})
	if !IsKind(err, InvalidMagic) {
		t.Errorf("Validate(garbage) = %v, want InvalidMagic", err)
	}
}

func TestRejectsTruncatedInput(t *testing.T) {
	_, err := Validate([]byte{0xFF})
	if !IsKind(err, TooSmall) {
		t.Errorf("Validate(1 byte) = %v, want TooSmall", err)
	}
	// SOI alone is below the structural minimum.
	_, err = Validate([]byte{0xFF, 0xD8, 0xFF, 0xC0})
	if !IsKind(err, TooSmall) {
		t.Errorf("Validate(4-byte JPEG) = %v, want TooSmall", err)
	}
	// A complete SOI+SOF0 header is judged on its dimensions, not its
	// byte count, however short it is.
	jpeg := minimalJPEG(100, 100)
	if _, err := Validate(jpeg); err != nil {
		t.Errorf("Validate(%d-byte JPEG) = %v, want admitted", len(jpeg), err)
	}
}

func TestRejectsPNGVariants(t *testing.T) {
	data := minimalPNG(100, 100, 0)
	data[24] = 3 // invalid bit depth
	_, err := ValidatePNG(data)
	if !IsKind(err, UnsupportedVariant) {
		t.Errorf("ValidatePNG(depth=3) = %v, want UnsupportedVariant", err)
	}
}

func TestBMPNegativeHeightAccepted(t *testing.T) {
	data := make([]byte, 26)
	data[0], data[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(data[18:], 640)
	topDown := int32(-480) // top-down DIB
	binary.LittleEndian.PutUint32(data[22:], uint32(topDown))
	header, err := ValidateBMP(data)
	if err != nil {
		t.Fatalf("ValidateBMP(top-down): %v", err)
	}
	if header.Width != 640 || header.Height != 480 {
		t.Errorf("dimensions = %dx%d, want 640x480", header.Width, header.Height)
	}
}

func TestInterlacedPNGDoublesEstimate(t *testing.T) {
	plain, err := ValidatePNG(minimalPNG(512, 512, 0))
	if err != nil {
		t.Fatalf("ValidatePNG(plain): %v", err)
	}
	interlaced, err := ValidatePNG(minimalPNG(512, 512, 1))
	if err != nil {
		t.Fatalf("ValidatePNG(interlaced): %v", err)
	}
	if interlaced.EstimatedMemory <= plain.OutputSize() {
		t.Errorf("interlaced estimate %d not above output size %d",
			interlaced.EstimatedMemory, plain.OutputSize())
	}
	if interlaced.EstimatedMemory != 2*interlaced.OutputSize() {
		t.Errorf("interlaced estimate = %d, want %d",
			interlaced.EstimatedMemory, 2*interlaced.OutputSize())
	}
}

func TestFitsBudget(t *testing.T) {
	header, err := Validate(minimalQOI(100, 100))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !header.FitsBudget(8 * 1024 * 1024) {
		t.Error("100x100 image rejected by an 8 MB budget")
	}
	if header.FitsBudget(1024) {
		t.Error("100x100 image accepted by a 1 KB budget")
	}
}

func TestIsKindMatchesWrappedErrors(t *testing.T) {
	_, err := Validate(minimalJPEG(0, 100))
	if !IsKind(err, ZeroDimension) {
		t.Fatalf("Validate = %v, want ZeroDimension", err)
	}
	wrapped := fmt.Errorf("loading photo 3: %w", err)
	if !IsKind(wrapped, ZeroDimension) {
		t.Errorf("IsKind(%v) = false after wrapping", wrapped)
	}
	if IsKind(wrapped, TooLarge) {
		t.Error("IsKind matched the wrong kind through a wrapper")
	}
	if IsKind(nil, ZeroDimension) {
		t.Error("IsKind(nil) = true")
	}
}

func TestRejectionHasNoSideEffects(t *testing.T) {
	// The gate must behave identically on repeated calls — it holds no
	// state that a hostile input could perturb.
	data := minimalJPEG(0, 100)
	firstErr := func() string {
		_, err := Validate(data)
		return err.Error()
	}()
	for i := 0; i < 3; i++ {
		_, err := Validate(data)
		if err == nil || err.Error() != firstErr {
			t.Fatalf("call %d: error %v differs from first %q", i, err, firstErr)
		}
	}
}
