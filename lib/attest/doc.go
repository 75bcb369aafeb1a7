// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package attest implements the remote attestation exchange between a
// device and a verifier.
//
// The verifier issues a [Challenge] carrying a single-use nonce and a
// register selection. The device's [Prover] answers with a [Quote]:
// its register values, the event log behind them, and an Ed25519
// signature over the selection, values, and nonce, under a device key
// certified by the deployment root. [Verifier.Verify] checks the
// window, the nonce, the certificate chain, the signature, the log
// replay, and finally the policy allowlist, and concludes the exchange
// either way — a judged nonce is dead, so captured quotes cannot be
// replayed.
//
// Wire messages are CBOR structs with integer keys, encoded through
// lib/codec.
package attest
