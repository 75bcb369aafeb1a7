// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package admission

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Format identifies a supported image container.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatBMP
	FormatQOI
)

func (f Format) String() string {
	switch f {
	case FormatJPEG:
		return "jpeg"
	case FormatPNG:
		return "png"
	case FormatBMP:
		return "bmp"
	case FormatQOI:
		return "qoi"
	default:
		return "unknown"
	}
}

// Header is the validated summary of an admitted input. It is the only
// information the gate hands onward; the raw bytes are not touched
// beyond the fixed-offset header fields inspected here.
type Header struct {
	Width  uint32
	Height uint32
	Format Format

	// EstimatedMemory is a conservative estimate of the arena bytes a
	// decode of this image will need: the RGBA output buffer plus
	// per-format decoder state.
	EstimatedMemory uint64
}

// OutputSize returns the RGBA output buffer size for the image.
func (h Header) OutputSize() uint64 {
	return uint64(h.Width) * uint64(h.Height) * 4
}

// FitsBudget reports whether the estimated decode memory fits within
// an arena of the given capacity.
func (h Header) FitsBudget(capacity uint64) bool {
	return h.EstimatedMemory <= capacity
}

// Per-format decoder state estimates, added to the output buffer size.
const (
	jpegDecodeOverhead = 2 * 1024 * 1024 // huffman tables + DCT buffers
	pngDecodeOverhead  = 1024 * 1024     // inflate state + filter buffer
	qoiDecodeOverhead  = 256             // 64-entry color table
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Validate detects the input's format from its magic bytes and runs
// the matching header validation. It inspects only fixed-offset header
// fields, allocates nothing, and never invokes a decoder — a rejected
// input is never parsed.
func Validate(data []byte) (Header, error) {
	if len(data) < 4 {
		return Header{}, reject(FormatUnknown, TooSmall, fmt.Sprintf("%d bytes", len(data)))
	}
	switch {
	case data[0] == 0xFF && data[1] == 0xD8:
		return ValidateJPEG(data)
	case len(data) >= 8 && bytes.Equal(data[:8], pngSignature):
		return ValidatePNG(data)
	case data[0] == 'B' && data[1] == 'M':
		return ValidateBMP(data)
	case bytes.Equal(data[:4], []byte("qoif")):
		return ValidateQOI(data)
	default:
		return Header{}, reject(FormatUnknown, InvalidMagic, "")
	}
}

// ValidateJPEG scans for the SOF marker carrying the frame dimensions.
// Only marker structure is walked; no entropy-coded data is touched.
func ValidateJPEG(data []byte) (Header, error) {
	// Minimum structure: SOI + one marker with its length field. The
	// segment scan below does the real bounds work.
	if len(data) < 12 {
		return Header{}, reject(FormatJPEG, TooSmall, fmt.Sprintf("%d bytes", len(data)))
	}
	if data[0] != 0xFF || data[1] != 0xD8 {
		return Header{}, reject(FormatJPEG, InvalidMagic, "")
	}

	pos := 2
	for pos+4 < len(data) {
		if data[pos] != 0xFF {
			pos++
			continue
		}
		// Skip fill bytes.
		for pos < len(data) && data[pos] == 0xFF {
			pos++
		}
		if pos >= len(data) {
			break
		}
		marker := data[pos]
		pos++

		// Markers without a length field.
		if marker == 0x00 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD9) {
			continue
		}
		if pos+2 > len(data) {
			return Header{}, reject(FormatJPEG, InvalidHeader, "truncated segment length")
		}
		segmentLength := int(binary.BigEndian.Uint16(data[pos:]))
		if segmentLength < 2 {
			return Header{}, reject(FormatJPEG, InvalidHeader, "segment length < 2")
		}

		// SOF0 (baseline) or SOF2 (progressive) carries the dimensions.
		if marker == 0xC0 || marker == 0xC2 {
			if pos+7 > len(data) {
				return Header{}, reject(FormatJPEG, InvalidHeader, "truncated SOF")
			}
			height := uint32(binary.BigEndian.Uint16(data[pos+3:]))
			width := uint32(binary.BigEndian.Uint16(data[pos+5:]))
			if err := checkDimensions(FormatJPEG, width, height); err != nil {
				return Header{}, err
			}
			header := Header{Width: width, Height: height, Format: FormatJPEG}
			header.EstimatedMemory = header.OutputSize() + jpegDecodeOverhead
			return header, nil
		}

		// Other SOF variants (arithmetic, hierarchical) are recognized
		// but not decodable here.
		if marker >= 0xC1 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC {
			return Header{}, reject(FormatJPEG, UnsupportedVariant, fmt.Sprintf("SOF marker %#x", marker))
		}

		pos += segmentLength
	}
	return Header{}, reject(FormatJPEG, InvalidHeader, "no SOF marker")
}

// ValidatePNG checks the signature and the leading IHDR chunk.
func ValidatePNG(data []byte) (Header, error) {
	// Signature(8) + IHDR chunk header(8) + IHDR data(13) + CRC(4).
	if len(data) < 33 {
		return Header{}, reject(FormatPNG, TooSmall, fmt.Sprintf("%d bytes", len(data)))
	}
	if !bytes.Equal(data[:8], pngSignature) {
		return Header{}, reject(FormatPNG, InvalidMagic, "")
	}
	if binary.BigEndian.Uint32(data[8:]) != 13 {
		return Header{}, reject(FormatPNG, InvalidHeader, "IHDR length != 13")
	}
	if !bytes.Equal(data[12:16], []byte("IHDR")) {
		return Header{}, reject(FormatPNG, InvalidHeader, "first chunk is not IHDR")
	}

	width := binary.BigEndian.Uint32(data[16:])
	height := binary.BigEndian.Uint32(data[20:])
	bitDepth := data[24]
	colorType := data[25]
	compression := data[26]
	filter := data[27]
	interlace := data[28]

	if err := checkDimensions(FormatPNG, width, height); err != nil {
		return Header{}, err
	}
	if compression != 0 || filter != 0 {
		return Header{}, reject(FormatPNG, UnsupportedVariant, "nonstandard compression/filter")
	}
	switch bitDepth {
	case 1, 2, 4, 8, 16:
	default:
		return Header{}, reject(FormatPNG, UnsupportedVariant, fmt.Sprintf("bit depth %d", bitDepth))
	}
	switch colorType {
	case 0, 2, 3, 4, 6:
	default:
		return Header{}, reject(FormatPNG, UnsupportedVariant, fmt.Sprintf("color type %d", colorType))
	}

	header := Header{Width: width, Height: height, Format: FormatPNG}
	if interlace != 0 {
		// Adam7 needs a second full-size buffer during deinterlacing.
		header.EstimatedMemory = 2 * header.OutputSize()
	} else {
		header.EstimatedMemory = header.OutputSize() + pngDecodeOverhead
	}
	return header, nil
}

// ValidateBMP checks the BITMAPINFOHEADER dimensions. Height may be
// negative (top-down rows); the magnitude is what bounds memory.
func ValidateBMP(data []byte) (Header, error) {
	if len(data) < 26 {
		return Header{}, reject(FormatBMP, TooSmall, fmt.Sprintf("%d bytes", len(data)))
	}
	if data[0] != 'B' || data[1] != 'M' {
		return Header{}, reject(FormatBMP, InvalidMagic, "")
	}

	signedWidth := int32(binary.LittleEndian.Uint32(data[18:]))
	signedHeight := int32(binary.LittleEndian.Uint32(data[22:]))
	width := absUint32(signedWidth)
	height := absUint32(signedHeight)

	if err := checkDimensions(FormatBMP, width, height); err != nil {
		return Header{}, err
	}
	header := Header{Width: width, Height: height, Format: FormatBMP}
	// BMP rows decode in place; only the output buffer is needed.
	header.EstimatedMemory = header.OutputSize()
	return header, nil
}

// ValidateQOI checks the 14-byte QOI header.
func ValidateQOI(data []byte) (Header, error) {
	if len(data) < 14 {
		return Header{}, reject(FormatQOI, TooSmall, fmt.Sprintf("%d bytes", len(data)))
	}
	if !bytes.Equal(data[:4], []byte("qoif")) {
		return Header{}, reject(FormatQOI, InvalidMagic, "")
	}

	width := binary.BigEndian.Uint32(data[4:])
	height := binary.BigEndian.Uint32(data[8:])
	if err := checkDimensions(FormatQOI, width, height); err != nil {
		return Header{}, err
	}
	header := Header{Width: width, Height: height, Format: FormatQOI}
	header.EstimatedMemory = header.OutputSize() + qoiDecodeOverhead
	return header, nil
}

func absUint32(v int32) uint32 {
	if v < 0 {
		return uint32(-int64(v))
	}
	return uint32(v)
}
