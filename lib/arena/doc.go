// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package arena provides a fixed-capacity bump allocator for
// components that must run under a hard memory ceiling.
//
// An [Arena] never grows: a job whose allocations exceed the pool gets
// [ErrOutOfMemory] and is expected to abandon the job and [Arena.Reset]
// rather than degrade the rest of the system. Reset zeroes the pool so
// one job's data never survives into the next.
package arena
