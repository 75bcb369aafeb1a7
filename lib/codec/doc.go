// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration for
// Trustframe wire formats.
//
// The attestation protocol (lib/attest) is the main consumer: requests
// and quotes cross a machine boundary and must encode identically on
// both sides so signatures verify over re-encoded bytes. The encoder
// therefore uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items.
//
// The decoder caps container sizes because attestation requests arrive
// from untrusted remote peers before any other validation has run.
//
// Types serialized through this package carry `cbor` struct tags.
package codec
