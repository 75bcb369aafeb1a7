// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package watchdog bounds the wall-clock time of component jobs.
//
// A decode of hostile input may loop forever without violating any
// memory bound. The [Watchdog] turns that into a recoverable event:
// the component arms it per job, the job polls the abort flag the
// expiry callback latches, and the component resets its arena after an
// expiry. Denial of progress, not preemption.
package watchdog
