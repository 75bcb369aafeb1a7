// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package measure implements the measured-boot state of a device: a
// bank of extend-only registers, the event log behind them, and the
// composites and policies a verifier checks them against.
//
// A register can never be set, only extended: the new value is the
// keyed BLAKE3 hash of the old value and the measurement, so a value
// is reachable only by extending the same measurements in the same
// order from reset. [Replay] recomputes register values from a log;
// [Bank.Composite] folds a [Selection] of registers into one digest;
// [Policy] pins the composite a known-good platform produces.
//
// All comparisons against expected digests are constant time.
package measure
