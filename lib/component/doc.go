// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package component runs a trust-boundary component's dispatch loop.
//
// Components are isolated from each other and interact only through
// channels and shared frame regions; within a component, everything
// runs on one goroutine. [Loop.Run] waits for doorbell rings and
// invokes the matching handler sequentially, so component state is
// single-writer by construction. Rings are coalesced, and handlers
// drain their channels accordingly.
package component
