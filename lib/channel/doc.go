// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package channel provides the lock-free single-producer/
// single-consumer ring that carries data between isolated components.
//
// A [Channel] never blocks in either direction: TryPush on a full
// channel drops the entry and reports false, TryPop on an empty
// channel reports false. This is the property that keeps one
// compromised or slow component from stalling another — there is no
// operation a peer can refuse to complete.
//
// A [Doorbell] is the optional wake signal paired with a channel:
// one-bit, coalescing, payload-free. The consumer may wait on it or
// ignore it and poll; channel correctness never depends on doorbell
// delivery.
//
// [Layout] describes how a channel with fixed-size entries is placed
// inside one shared memory region (16-byte header plus the entry
// array), which the assembly tool uses to size regions at deployment
// time.
package channel
