// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/trustframe-foundation/trustframe/lib/admission"
)

// PixelFormat identifies the layout of the pixel payload following a
// frame header.
type PixelFormat uint32

const (
	// PixelRGBA32 is 4 bytes per pixel, R G B A byte order.
	PixelRGBA32 PixelFormat = 0
	// PixelRGB24 is 3 bytes per pixel, no alpha.
	PixelRGB24 PixelFormat = 1
	// PixelRGB565 is 2 bytes per pixel, packed little-endian.
	PixelRGB565 PixelFormat = 2
)

func (f PixelFormat) String() string {
	switch f {
	case PixelRGBA32:
		return "rgba32"
	case PixelRGB24:
		return "rgb24"
	case PixelRGB565:
		return "rgb565"
	default:
		return fmt.Sprintf("pixel format %d", uint32(f))
	}
}

// BytesPerPixel returns the payload stride for the format, or zero for
// an unrecognized value.
func (f PixelFormat) BytesPerPixel() uint64 {
	switch f {
	case PixelRGBA32:
		return 4
	case PixelRGB24:
		return 3
	case PixelRGB565:
		return 2
	default:
		return 0
	}
}

// FrameStatus is the handoff state of a frame region, written by the
// producer and polled by the consumer.
type FrameStatus uint32

const (
	// FrameEmpty: no frame present; the payload is undefined.
	FrameEmpty FrameStatus = 0
	// FrameLoading: the producer is writing the payload.
	FrameLoading FrameStatus = 1
	// FrameReady: the payload is complete and the header describes it.
	FrameReady FrameStatus = 2
	// FrameError: the decode failed; the payload is undefined.
	FrameError FrameStatus = 3
)

func (s FrameStatus) String() string {
	switch s {
	case FrameEmpty:
		return "empty"
	case FrameLoading:
		return "loading"
	case FrameReady:
		return "ready"
	case FrameError:
		return "error"
	default:
		return fmt.Sprintf("frame status %d", uint32(s))
	}
}

// FrameHeaderSize is the fixed byte length of an encoded FrameHeader at
// the start of a frame region. The payload begins at this offset.
const FrameHeaderSize = 32

// FrameHeader describes the pixel payload a producer has placed in a
// shared frame region. The consumer must treat every field as
// untrusted until [FrameHeader.Validate] has accepted it against the
// region's actual size.
type FrameHeader struct {
	// Width and Height are the frame dimensions in pixels.
	Width  uint32
	Height uint32
	// Format is the payload pixel layout.
	Format PixelFormat
	// Status is the handoff state; only FrameReady frames carry a
	// meaningful payload.
	Status FrameStatus
	// PhotoIndex is the slideshow position this frame was decoded for.
	PhotoIndex uint32
	// DataLength is the producer's declared payload length in bytes.
	DataLength uint32
	// Checksum is the CRC-32 (IEEE) of the payload.
	Checksum uint32
}

// PayloadSize returns the payload length implied by the dimensions and
// format, computed in 64 bits.
func (h FrameHeader) PayloadSize() uint64 {
	return uint64(h.Width) * uint64(h.Height) * h.Format.BytesPerPixel()
}

// Validate checks a header read from a shared region against the
// region's usable payload capacity. Every rule runs before any payload
// byte is trusted: dimensions within the deployment maxima, a known
// pixel format, and a declared length that matches both the dimensions
// and the region. The product and length arithmetic is 64-bit so no
// header value can overflow a check.
func (h FrameHeader) Validate(payloadCapacity uint64) error {
	if h.Format.BytesPerPixel() == 0 {
		return &admission.ValidationError{
			Kind:   admission.UnsupportedVariant,
			Detail: h.Format.String(),
		}
	}
	if h.Width == 0 || h.Height == 0 {
		return &admission.ValidationError{
			Kind:   admission.ZeroDimension,
			Detail: fmt.Sprintf("%dx%d", h.Width, h.Height),
		}
	}
	if h.Width > admission.MaxWidth || h.Height > admission.MaxHeight {
		return &admission.ValidationError{
			Kind:   admission.TooLarge,
			Detail: fmt.Sprintf("%dx%d", h.Width, h.Height),
		}
	}
	if uint64(h.Width)*uint64(h.Height) > admission.MaxUnits {
		return &admission.ValidationError{
			Kind:   admission.TooManyUnits,
			Detail: fmt.Sprintf("%dx%d", h.Width, h.Height),
		}
	}
	implied := h.PayloadSize()
	if uint64(h.DataLength) != implied {
		return &admission.ValidationError{
			Kind:   admission.LengthMismatch,
			Detail: fmt.Sprintf("declared %d, %dx%d %s implies %d", h.DataLength, h.Width, h.Height, h.Format, implied),
		}
	}
	if implied > payloadCapacity {
		return &admission.ValidationError{
			Kind:   admission.LengthMismatch,
			Detail: fmt.Sprintf("payload %d exceeds region capacity %d", implied, payloadCapacity),
		}
	}
	return nil
}

// EncodeFrameHeader writes the header into the first FrameHeaderSize
// bytes of a frame region. Fields are little-endian; one uint32 is
// reserved.
func EncodeFrameHeader(region []byte, h FrameHeader) error {
	if len(region) < FrameHeaderSize {
		return fmt.Errorf("encode frame header: region is %d bytes, need %d", len(region), FrameHeaderSize)
	}
	binary.LittleEndian.PutUint32(region[0:], h.Width)
	binary.LittleEndian.PutUint32(region[4:], h.Height)
	binary.LittleEndian.PutUint32(region[8:], uint32(h.Format))
	binary.LittleEndian.PutUint32(region[12:], uint32(h.Status))
	binary.LittleEndian.PutUint32(region[16:], h.PhotoIndex)
	binary.LittleEndian.PutUint32(region[20:], h.DataLength)
	binary.LittleEndian.PutUint32(region[24:], h.Checksum)
	binary.LittleEndian.PutUint32(region[28:], 0)
	return nil
}

// DecodeFrameHeader reads the header from the start of a frame region.
// The result is untrusted until Validate accepts it.
func DecodeFrameHeader(region []byte) (FrameHeader, error) {
	if len(region) < FrameHeaderSize {
		return FrameHeader{}, fmt.Errorf("decode frame header: region is %d bytes, need %d", len(region), FrameHeaderSize)
	}
	return FrameHeader{
		Width:      binary.LittleEndian.Uint32(region[0:]),
		Height:     binary.LittleEndian.Uint32(region[4:]),
		Format:     PixelFormat(binary.LittleEndian.Uint32(region[8:])),
		Status:     FrameStatus(binary.LittleEndian.Uint32(region[12:])),
		PhotoIndex: binary.LittleEndian.Uint32(region[16:]),
		DataLength: binary.LittleEndian.Uint32(region[20:]),
		Checksum:   binary.LittleEndian.Uint32(region[24:]),
	}, nil
}

// PayloadChecksum computes the CRC-32 (IEEE) over a frame payload, for
// the Checksum field.
func PayloadChecksum(payload []byte) uint32 {
	return crc32.ChecksumIEEE(payload)
}
