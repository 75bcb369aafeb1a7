// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package attestlog persists attestation evidence in SQLite.
//
// Every exchange a verifier concludes is appended to the log: the
// verdict and the complete quote, so any verdict can be re-judged
// offline against a later policy set. The store uses WAL mode with a
// small connection pool; the verifier writes serially and readers
// never block it.
package attestlog
