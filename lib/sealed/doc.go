// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides age encryption for device key material.
//
// Two sealing paths exist. Provisioning bundles are encrypted to age
// x25519 recipients (the device's provisioning key plus the operator's
// escrow key). State-bound sealing wraps data under a passphrase
// derived from the measurement registers, so the plaintext is
// recoverable only on a device whose registers replay to the same
// values — the software that sealed it.
//
// Ciphertext is base64-encoded for storage in evidence records and
// deployment profiles. Private keys and unsealed plaintext are
// returned as *secret.Buffer values (mmap-backed, locked against swap,
// zeroed on close).
package sealed
