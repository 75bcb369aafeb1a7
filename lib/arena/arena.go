// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
)

// ErrOutOfMemory is returned by Allocate when the arena cannot satisfy
// a request. Exhaustion is an expected outcome, not a fault; callers
// match it with errors.Is.
var ErrOutOfMemory = errors.New("arena: out of memory")

// Arena is a fixed-capacity bump allocator. Allocation advances a
// single offset through a pool sized at construction; individual
// allocations are never freed, only the whole arena is reset between
// jobs. Allocate is safe for concurrent use; Reset is not and must be
// called with no allocations in flight.
type Arena struct {
	pool   []byte
	offset atomic.Uint64
	peak   atomic.Uint64

	failedAllocations atomic.Uint64
	exhausted         atomic.Bool
}

// New returns an arena backed by a zeroed pool of the given capacity.
func New(capacity uint64) (*Arena, error) {
	if capacity == 0 {
		return nil, errors.New("arena: capacity must be positive")
	}
	if capacity > math.MaxInt {
		return nil, fmt.Errorf("arena: capacity %d exceeds addressable memory", capacity)
	}
	return &Arena{pool: make([]byte, capacity)}, nil
}

// Allocate carves size bytes aligned to align (a power of two, or zero
// for byte alignment) out of the pool. The returned slice has both
// length and capacity equal to size, so a caller cannot append past its
// allocation into a neighbor's bytes.
//
// The offset arithmetic is overflow-checked: a hostile size cannot wrap
// the bump pointer back into granted memory.
func (a *Arena) Allocate(size, align uint64) ([]byte, error) {
	if size == 0 {
		return nil, errors.New("arena: zero-size allocation")
	}
	if align&(align-1) != 0 {
		return nil, fmt.Errorf("arena: alignment %d is not a power of two", align)
	}
	if align == 0 {
		align = 1
	}

	capacity := uint64(len(a.pool))
	for {
		current := a.offset.Load()

		aligned := alignUp(current, align)
		if aligned < current {
			return nil, a.fail()
		}
		end := aligned + size
		if end < aligned || end > capacity {
			return nil, a.fail()
		}

		if !a.offset.CompareAndSwap(current, end) {
			continue
		}
		a.recordPeak(end)
		return a.pool[aligned:end:end], nil
	}
}

func (a *Arena) fail() error {
	a.failedAllocations.Add(1)
	a.exhausted.Store(true)
	return ErrOutOfMemory
}

func (a *Arena) recordPeak(end uint64) {
	for {
		peak := a.peak.Load()
		if end <= peak || a.peak.CompareAndSwap(peak, end) {
			return
		}
	}
}

// Reset abandons every allocation and zeroes the pool, so data from
// one job cannot leak into the next. The exhaustion latch clears; the
// peak and failure counters survive resets for diagnostics.
//
// All slices handed out before the reset are invalidated. The caller
// must guarantee nothing holds one.
func (a *Arena) Reset() {
	clear(a.pool)
	a.offset.Store(0)
	a.exhausted.Store(false)
}

// Capacity returns the fixed pool size in bytes.
func (a *Arena) Capacity() uint64 { return uint64(len(a.pool)) }

// Usage returns the bytes consumed since the last reset, including
// alignment padding.
func (a *Arena) Usage() uint64 { return a.offset.Load() }

// PeakUsage returns the high-water mark across the arena's lifetime.
func (a *Arena) PeakUsage() uint64 { return a.peak.Load() }

// FailedAllocations returns the number of allocation requests denied
// since construction.
func (a *Arena) FailedAllocations() uint64 { return a.failedAllocations.Load() }

// Exhausted reports whether any allocation has failed since the last
// reset. Components poll this to decide a job cannot complete.
func (a *Arena) Exhausted() bool { return a.exhausted.Load() }

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}
