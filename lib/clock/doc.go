// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the pieces of the trust-boundary
// core that depend on wall-clock time: the attestation verifier's
// challenge validity window, the job deadline watchdog, and evidence
// log timestamps.
//
// Production code injects [Real]; tests inject [Fake] and drive time
// forward deterministically with Advance, so expiry paths (an expired
// attestation nonce, a decode job exceeding its budget) are tested
// without sleeping.
package clock
