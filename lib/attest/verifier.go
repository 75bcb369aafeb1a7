// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/clock"
	"github.com/trustframe-foundation/trustframe/lib/measure"
)

// State is the verifier's position in one attestation exchange.
type State int

const (
	// StateIdle: no challenge outstanding.
	StateIdle State = iota
	// StateChallenged: a challenge was issued; a quote is awaited.
	StateChallenged
	// StateVerified: the last exchange accepted the device.
	StateVerified
	// StateRejected: the last exchange rejected the device.
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChallenged:
		return "challenged"
	case StateVerified:
		return "verified"
	case StateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("state %d", int(s))
	}
}

// DefaultChallengeWindow is how long an issued challenge accepts a
// quote. Long enough for a constrained device to sign; short enough
// that a captured quote is useless soon after.
const DefaultChallengeWindow = 30 * time.Second

// A Verifier judges device quotes against a trusted root key and a
// policy allowlist. One verifier handles one device; it walks
// Idle -> Challenged -> Verified|Rejected per exchange and returns to
// Idle on the next Challenge call.
//
// Nonces are single use. Once a quote has been judged — accepted or
// not — the nonce is dead, and a replay of the same quote is a
// NonceMismatch.
type Verifier struct {
	rootPublic ed25519.PublicKey
	policies   []measure.Policy
	clock      clock.Clock
	window     time.Duration

	mu        sync.Mutex
	state     State
	nonce     Nonce
	issuedAt  time.Time
	selection measure.Selection
}

// VerifierOption adjusts verifier construction.
type VerifierOption func(*Verifier)

// WithClock substitutes the time source, for tests.
func WithClock(c clock.Clock) VerifierOption {
	return func(v *Verifier) { v.clock = c }
}

// WithChallengeWindow overrides DefaultChallengeWindow.
func WithChallengeWindow(window time.Duration) VerifierOption {
	return func(v *Verifier) { v.window = window }
}

// NewVerifier builds a verifier trusting the given root key and
// accepting the given policies.
func NewVerifier(rootPublic ed25519.PublicKey, policies []measure.Policy, options ...VerifierOption) (*Verifier, error) {
	if len(rootPublic) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("attest: root public key is %d bytes, want %d", len(rootPublic), ed25519.PublicKeySize)
	}
	if len(policies) == 0 {
		return nil, fmt.Errorf("attest: verifier needs at least one policy")
	}
	v := &Verifier{
		rootPublic: rootPublic,
		policies:   append([]measure.Policy(nil), policies...),
		clock:      clock.Real(),
		window:     DefaultChallengeWindow,
	}
	for _, option := range options {
		option(v)
	}
	return v, nil
}

// State returns the verifier's current protocol state.
func (v *Verifier) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Challenge issues a fresh challenge for the given register selection,
// abandoning any outstanding one. The previous nonce dies with it.
func (v *Verifier) Challenge(selection measure.Selection) (Challenge, error) {
	if selection.Count() == 0 {
		return Challenge{}, fmt.Errorf("attest: empty register selection")
	}
	var nonce Nonce
	if _, err := rand.Read(nonce[:]); err != nil {
		return Challenge{}, fmt.Errorf("generating challenge nonce: %w", err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateChallenged
	v.nonce = nonce
	v.issuedAt = v.clock.Now()
	v.selection = selection
	return Challenge{Nonce: nonce, Selection: selection, IssuedAt: v.issuedAt}, nil
}

// Verify judges a quote against the outstanding challenge. On success
// the verdict names the matched policy. Either way the exchange is
// over: the nonce is consumed and a second Verify with the same quote
// fails.
//
// Checks run cheapest-reject-first: protocol state, window, nonce,
// certificate, signature, log replay, then policy.
func (v *Verifier) Verify(quote Quote) (Verdict, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.state != StateChallenged {
		return v.reject(quote, &Failure{Kind: ProtocolState, Device: quote.DeviceID,
			Detail: fmt.Sprintf("verify in state %v", v.state)})
	}
	// The exchange concludes now whatever happens below.
	now := v.clock.Now()
	if now.Sub(v.issuedAt) > v.window {
		return v.reject(quote, &Failure{Kind: Expired, Device: quote.DeviceID,
			Detail: fmt.Sprintf("quote arrived %v after challenge", now.Sub(v.issuedAt))})
	}
	if subtle.ConstantTimeCompare(quote.Nonce[:], v.nonce[:]) != 1 {
		return v.reject(quote, &Failure{Kind: NonceMismatch, Device: quote.DeviceID})
	}
	if quote.Selection != v.selection {
		return v.reject(quote, &Failure{Kind: NonceMismatch, Device: quote.DeviceID,
			Detail: "selection does not match challenge"})
	}
	if err := quote.Certificate.Verify(v.rootPublic, now); err != nil {
		return v.reject(quote, err)
	}
	if quote.Certificate.DeviceID != quote.DeviceID {
		return v.reject(quote, &Failure{Kind: BadCertificate, Device: quote.DeviceID,
			Detail: "certificate issued to " + quote.Certificate.DeviceID})
	}

	message := quoteMessage(quote.Selection, quote.Values, quote.Nonce)
	if !ed25519.Verify(ed25519.PublicKey(quote.Certificate.PublicKey), message, quote.Signature) {
		return v.reject(quote, &Failure{Kind: BadSignature, Device: quote.DeviceID})
	}

	if mismatch, err := measure.VerifyLog(quote.Log, quote.Values); err != nil {
		return v.reject(quote, &Failure{Kind: LogMismatch, Device: quote.DeviceID,
			Detail: fmt.Sprintf("register %d: %v", mismatch, err)})
	}

	policy, ok := measure.IsKnownGood(v.policies, quote.Values)
	if !ok {
		return v.reject(quote, &Failure{Kind: PolicyViolation, Device: quote.DeviceID})
	}

	v.state = StateVerified
	v.nonce = Nonce{}
	return Verdict{DeviceID: quote.DeviceID, Accepted: true, Policy: policy}, nil
}

// reject concludes the exchange, burns the nonce, and returns the
// failure as both verdict and error. Callers must hold v.mu.
func (v *Verifier) reject(quote Quote, err error) (Verdict, error) {
	// A quote judged in the wrong state must not disturb a concluded
	// exchange's outcome.
	if v.state == StateChallenged {
		v.state = StateRejected
		v.nonce = Nonce{}
	}
	return Verdict{DeviceID: quote.DeviceID, Accepted: false, Reason: err.Error()}, err
}
