// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package channel

// Doorbell is a one-bit, coalescing, payload-free wake signal. Any
// number of Ring calls between two Waits collapse into a single
// pending wake — the signal carries no count and no data, matching a
// microkernel notification object.
//
// Ring never blocks, so a slow or suspended consumer can never stall
// the producer through the doorbell.
type Doorbell struct {
	pending chan struct{}
}

// NewDoorbell creates a doorbell with no pending wake.
func NewDoorbell() *Doorbell {
	return &Doorbell{pending: make(chan struct{}, 1)}
}

// Ring marks the doorbell pending. If a wake is already pending the
// call coalesces into it. Never blocks.
func (d *Doorbell) Ring() {
	select {
	case d.pending <- struct{}{}:
	default:
	}
}

// Wait returns a channel that receives when the doorbell is rung. A
// receive consumes the pending wake. The consumer's dispatch loop
// selects on this alongside its other suspension sources.
func (d *Doorbell) Wait() <-chan struct{} {
	return d.pending
}

// TryConsume consumes a pending wake without blocking. Returns false
// if no wake is pending. Polling consumers use this between TryPop
// batches.
func (d *Doorbell) TryConsume() bool {
	select {
	case <-d.pending:
		return true
	default:
		return false
	}
}
