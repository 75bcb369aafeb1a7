// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package admission is the pre-parse gate in front of the untrusted
// image decoder.
//
// Before any decoder runs on attacker-controlled bytes, [Validate]
// inspects only the fixed-offset header fields of the supported
// formats (JPEG, PNG, BMP, QOI): dimensions must be nonzero, within
// the deployment maxima, and their product within [MaxUnits] with the
// arithmetic done in 64 bits so the check itself cannot overflow.
//
// A rejection is a typed [ValidationError] raised before any
// allocation occurs — the gate has no side effects and cannot itself
// be compromised by content it rejects. An accepted input yields a
// [Header] with a conservative decode-memory estimate, which the
// decoder component checks against its arena budget before starting.
package admission
