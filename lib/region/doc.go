// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package region models the capability-based memory grant interface
// that the trust-boundary core consumes from the underlying
// microkernel.
//
// The core does not reimplement isolation — the kernel enforces it.
// What this package provides is the narrow contract the rest of the
// repository programs against: a [MemoryRegion] is granted once at
// system assembly, a [Capability] references it with a rights bitmask,
// and [Capability.Derive] can only ever shrink rights. Components hold
// capabilities, never regions, so a compromised component cannot reach
// memory it was not granted.
//
// Violations surface as [AccessError]; there is no recovery path for
// them in the core, matching the deployed system where the kernel
// simply denies the access.
package region
