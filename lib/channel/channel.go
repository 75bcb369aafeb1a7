// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package channel

import (
	"fmt"
	"sync/atomic"
)

// Channel is a lock-free fixed-capacity single-producer/single-consumer
// ring. Exactly one goroutine may call TryPush and exactly one may call
// TryPop for the channel's lifetime; the roles are fixed at assembly
// and never reassigned.
//
// Full/empty disambiguation: one slot is reserved, so a channel created
// with capacity C holds at most C-1 entries. The alternative (an
// explicit occupancy counter) would add a second producer/consumer
// shared variable; the reserved slot keeps the header to the two
// indexes the region layout defines.
//
// The entry payload is written to its slot before the write index is
// published, and both indexes use atomic store/load (release/acquire on
// all supported targets), so the consumer never observes an index
// update without also observing the fully written entry.
type Channel[T any] struct {
	writeIndex atomic.Uint32
	readIndex  atomic.Uint32
	capacity   uint32
	slots      []T
	doorbell   *Doorbell
}

// New creates a channel with the given slot count. Usable capacity is
// capacity-1 (one slot reserved, see type comment). Capacity is fixed
// for the channel's lifetime. Returns an error for capacities that
// cannot hold a single entry.
func New[T any](capacity uint32) (*Channel[T], error) {
	if capacity < 2 {
		return nil, fmt.Errorf("channel: capacity %d cannot hold any entry (one slot is reserved)", capacity)
	}
	return &Channel[T]{
		capacity: capacity,
		slots:    make([]T, capacity),
		doorbell: NewDoorbell(),
	}, nil
}

// Capacity returns the slot count. Usable capacity is Capacity()-1.
func (c *Channel[T]) Capacity() uint32 { return c.capacity }

// Doorbell returns the channel's wake signal. The consumer waits on
// it; the producer rings it after a successful push. Correctness of
// the channel never depends on the doorbell — a consumer may poll
// TryPop instead.
func (c *Channel[T]) Doorbell() *Doorbell { return c.doorbell }

func (c *Channel[T]) advance(i uint32) uint32 {
	return (i + 1) % c.capacity
}

// TryPush writes entry into the next slot and publishes it. Returns
// false without mutating any state if the channel is full; the entry
// is dropped, not queued. Never blocks.
//
// Producer role only.
func (c *Channel[T]) TryPush(entry T) bool {
	write := c.writeIndex.Load()
	next := c.advance(write)
	if next == c.readIndex.Load() {
		return false
	}

	// Payload first, then publish. The atomic store orders the slot
	// write before the index becomes visible to the consumer.
	c.slots[write] = entry
	c.writeIndex.Store(next)
	c.doorbell.Ring()
	return true
}

// TryPop returns the oldest entry, or false if the channel is empty.
// Never blocks.
//
// Consumer role only.
func (c *Channel[T]) TryPop() (T, bool) {
	read := c.readIndex.Load()
	if c.writeIndex.Load() == read {
		var zero T
		return zero, false
	}

	entry := c.slots[read]
	c.readIndex.Store(c.advance(read))
	return entry, true
}

// Len returns the number of entries currently queued. Producer and
// consumer may race with this value; it is a diagnostic, not a
// synchronization primitive.
func (c *Channel[T]) Len() uint32 {
	write := c.writeIndex.Load()
	read := c.readIndex.Load()
	if write >= read {
		return write - read
	}
	return c.capacity - read + write
}
