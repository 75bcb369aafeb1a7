// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"errors"
	"fmt"
)

// FailureKind classifies why a quote was rejected. Every rejection is
// terminal for its exchange; the verifier must issue a fresh challenge
// to try again.
type FailureKind int

const (
	// NonceMismatch: the quote does not answer the outstanding
	// challenge, or answers one that was already consumed.
	NonceMismatch FailureKind = iota
	// Expired: the quote arrived after the challenge's validity window.
	Expired
	// BadSignature: the quote signature does not verify under the
	// device key.
	BadSignature
	// BadCertificate: the device key certificate is not signed by the
	// trusted root, or is outside its own validity period.
	BadCertificate
	// LogMismatch: the event log does not replay to the reported
	// register values.
	LogMismatch
	// PolicyViolation: the register values match no allowlisted policy.
	PolicyViolation
	// ProtocolState: a message arrived in a state that does not accept
	// it.
	ProtocolState
)

func (k FailureKind) String() string {
	switch k {
	case NonceMismatch:
		return "nonce mismatch"
	case Expired:
		return "challenge expired"
	case BadSignature:
		return "bad quote signature"
	case BadCertificate:
		return "bad key certificate"
	case LogMismatch:
		return "event log mismatch"
	case PolicyViolation:
		return "no matching policy"
	case ProtocolState:
		return "unexpected message for protocol state"
	default:
		return fmt.Sprintf("attestation failure %d", int(k))
	}
}

// A Failure is a typed attestation rejection.
type Failure struct {
	Kind   FailureKind
	Device string
	Detail string
}

func (e *Failure) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("attest: device %s: %s", e.Device, e.Kind)
	}
	return fmt.Sprintf("attest: device %s: %s (%s)", e.Device, e.Kind, e.Detail)
}

// IsFailure reports whether err is a *Failure of the given kind.
func IsFailure(err error, kind FailureKind) bool {
	var failure *Failure
	return errors.As(err, &failure) && failure.Kind == kind
}
