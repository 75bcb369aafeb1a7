// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// Package assembly loads deployment profiles and constructs the
// runtime they describe.
//
// A [Profile] is a YAML file declaring the device's components, the
// shared regions between them, each component's grants and budgets,
// the channels, and the attestation policy allowlist. [Build] turns a
// validated profile into live objects: regions, capabilities, arenas,
// watchdogs, and channel layouts. Everything is fixed at build; no
// size, grant, or policy is negotiated at runtime.
package assembly
