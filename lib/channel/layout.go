// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import "fmt"

// Region layout for a channel placed in one shared memory region:
//
//	offset 0x00: write_idx  u32   (written by producer only)
//	offset 0x04: read_idx   u32   (written by consumer only)
//	offset 0x08: capacity   u32   (set once at assembly)
//	offset 0x0c: reserved   u32
//	offset 0x10: entry[0] .. entry[capacity-1], each EntrySize bytes
//
// The layout is fixed at system assembly; size and location of the
// region are never negotiated at runtime.

// HeaderSize is the size of the channel region header in bytes.
const HeaderSize = 16

// Layout describes the in-region placement of one channel. The
// assembly tool computes layouts when sizing shared regions; the
// running core never reads them back.
type Layout struct {
	// EntrySize is the fixed size of one entry record in bytes.
	EntrySize int
	// Capacity is the slot count (usable capacity is Capacity-1).
	Capacity uint32
}

// RegionSize returns the total bytes the channel occupies in its
// shared region: the 16-byte header followed by Capacity entries.
func (l Layout) RegionSize() (int, error) {
	if l.EntrySize <= 0 {
		return 0, fmt.Errorf("channel layout: entry size must be positive, got %d", l.EntrySize)
	}
	if l.Capacity < 2 {
		return 0, fmt.Errorf("channel layout: capacity %d cannot hold any entry", l.Capacity)
	}
	return HeaderSize + l.EntrySize*int(l.Capacity), nil
}

// EntryOffset returns the byte offset of entry i within the region.
func (l Layout) EntryOffset(i uint32) (int, error) {
	if i >= l.Capacity {
		return 0, fmt.Errorf("channel layout: entry index %d out of range (capacity %d)", i, l.Capacity)
	}
	return HeaderSize + l.EntrySize*int(i), nil
}
