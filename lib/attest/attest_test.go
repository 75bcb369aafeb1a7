// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/clock"
	"github.com/trustframe-foundation/trustframe/lib/codec"
	"github.com/trustframe-foundation/trustframe/lib/measure"
)

// testExchange wires a device (bank + prover) and a verifier that
// trusts the device's boot state, all on a fake clock.
type testExchange struct {
	bank      *measure.Bank
	prover    *Prover
	verifier  *Verifier
	clock     *clock.FakeClock
	selection measure.Selection
}

func newTestExchange(t *testing.T) *testExchange {
	t.Helper()

	bank := measure.NewBank()
	if _, err := bank.ExtendStage(measure.StageFirmware, []byte("fw v1"), "firmware"); err != nil {
		t.Fatalf("ExtendStage: %v", err)
	}
	if _, err := bank.ExtendStage(measure.StageKernel, []byte("krn v1"), "kernel"); err != nil {
		t.Fatalf("ExtendStage: %v", err)
	}

	rootPublic, rootKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	devicePublic, deviceKey, err := NewDeviceKey()
	if err != nil {
		t.Fatalf("NewDeviceKey: %v", err)
	}

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fake := clock.Fake(start)

	certificate, err := IssueCertificate(rootKey, "frame-01", devicePublic,
		start.Add(-time.Hour), start.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}

	prover, err := NewProver(bank, deviceKey, certificate)
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}

	selection, err := measure.Select(0, 1)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	policy, err := bank.PolicyFor("release-1", selection)
	if err != nil {
		t.Fatalf("PolicyFor: %v", err)
	}

	verifier, err := NewVerifier(rootPublic, []measure.Policy{policy}, WithClock(fake))
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	return &testExchange{
		bank:      bank,
		prover:    prover,
		verifier:  verifier,
		clock:     fake,
		selection: selection,
	}
}

func TestSuccessfulAttestation(t *testing.T) {
	ex := newTestExchange(t)

	challenge, err := ex.verifier.Challenge(ex.selection)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	if ex.verifier.State() != StateChallenged {
		t.Errorf("State() = %v, want %v", ex.verifier.State(), StateChallenged)
	}

	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	verdict, err := ex.verifier.Verify(quote)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !verdict.Accepted || verdict.Policy != "release-1" {
		t.Errorf("verdict = %+v, want accepted under release-1", verdict)
	}
	if ex.verifier.State() != StateVerified {
		t.Errorf("State() = %v, want %v", ex.verifier.State(), StateVerified)
	}
}

func TestQuoteSurvivesWireEncoding(t *testing.T) {
	ex := newTestExchange(t)
	challenge, err := ex.verifier.Challenge(ex.selection)
	if err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	wire, err := codec.Marshal(quote)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var received Quote
	if err := codec.Unmarshal(wire, &received); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	verdict, err := ex.verifier.Verify(received)
	if err != nil {
		t.Fatalf("Verify(decoded quote): %v", err)
	}
	if !verdict.Accepted {
		t.Errorf("verdict = %+v, want accepted", verdict)
	}
}

func TestReplayedQuoteRejected(t *testing.T) {
	ex := newTestExchange(t)
	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if _, err := ex.verifier.Verify(quote); err != nil {
		t.Fatalf("first Verify: %v", err)
	}

	// The nonce died with the first verdict. An attacker replaying the
	// captured quote against a new challenge fails on the nonce.
	if _, err := ex.verifier.Challenge(ex.selection); err != nil {
		t.Fatalf("Challenge: %v", err)
	}
	_, err = ex.verifier.Verify(quote)
	if !IsFailure(err, NonceMismatch) {
		t.Errorf("Verify(replayed quote) = %v, want NonceMismatch", err)
	}
}

func TestExpiredQuoteRejected(t *testing.T) {
	ex := newTestExchange(t)
	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}

	// The device answers, but the answer arrives after the window.
	ex.clock.Advance(DefaultChallengeWindow + time.Second)
	_, err = ex.verifier.Verify(quote)
	if !IsFailure(err, Expired) {
		t.Errorf("Verify(late quote) = %v, want Expired", err)
	}
	if ex.verifier.State() != StateRejected {
		t.Errorf("State() = %v, want %v", ex.verifier.State(), StateRejected)
	}
}

func TestVerifyWithoutChallenge(t *testing.T) {
	ex := newTestExchange(t)
	_, err := ex.verifier.Verify(Quote{DeviceID: "frame-01"})
	if !IsFailure(err, ProtocolState) {
		t.Errorf("Verify in idle state = %v, want ProtocolState", err)
	}
	if ex.verifier.State() != StateIdle {
		t.Errorf("State() = %v after idle Verify, want %v", ex.verifier.State(), StateIdle)
	}
}

func TestTamperedValuesRejected(t *testing.T) {
	ex := newTestExchange(t)
	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	quote.Values[0][0] ^= 1
	_, err = ex.verifier.Verify(quote)
	if !IsFailure(err, BadSignature) {
		t.Errorf("Verify(tampered values) = %v, want BadSignature", err)
	}
}

func TestForgedLogRejected(t *testing.T) {
	ex := newTestExchange(t)
	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	// Signature still verifies; the log no longer replays to the
	// signed values.
	quote.Log = quote.Log[:1]
	_, err = ex.verifier.Verify(quote)
	if !IsFailure(err, LogMismatch) {
		t.Errorf("Verify(truncated log) = %v, want LogMismatch", err)
	}
}

func TestCompromisedStateRejected(t *testing.T) {
	ex := newTestExchange(t)

	// A rogue artifact is measured after enrollment; the device can
	// still quote honestly, but matches no policy.
	if _, err := ex.bank.ExtendStage(measure.StageKernel, []byte("rogue module"), "unexpected"); err != nil {
		t.Fatalf("ExtendStage: %v", err)
	}
	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	verdict, err := ex.verifier.Verify(quote)
	if !IsFailure(err, PolicyViolation) {
		t.Errorf("Verify(compromised state) = %v, want PolicyViolation", err)
	}
	if verdict.Accepted {
		t.Error("verdict accepted a state matching no policy")
	}
}

func TestWrongRootRejected(t *testing.T) {
	ex := newTestExchange(t)

	// Re-certify the device under a different root; the verifier's
	// trust anchor does not change.
	_, otherRoot, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	devicePublic, deviceKey, _ := NewDeviceKey()
	now := ex.clock.Now()
	forgedCertificate, err := IssueCertificate(otherRoot, "frame-01", devicePublic, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("IssueCertificate: %v", err)
	}
	forgedProver, err := NewProver(ex.bank, deviceKey, forgedCertificate)
	if err != nil {
		t.Fatalf("NewProver: %v", err)
	}

	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := forgedProver.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	_, err = ex.verifier.Verify(quote)
	if !IsFailure(err, BadCertificate) {
		t.Errorf("Verify(foreign root) = %v, want BadCertificate", err)
	}
}

func TestExpiredCertificateRejected(t *testing.T) {
	ex := newTestExchange(t)

	// The certificate lapses; a challenge issued afterward gets a
	// prompt quote, so the failure is the certificate, not the window.
	ex.clock.Advance(25 * time.Hour)
	challenge, _ := ex.verifier.Challenge(ex.selection)
	quote, err := ex.prover.Quote(challenge)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	_, err = ex.verifier.Verify(quote)
	if !IsFailure(err, BadCertificate) {
		t.Errorf("Verify(lapsed certificate) = %v, want BadCertificate", err)
	}
}

func TestChallengeRequiresSelection(t *testing.T) {
	ex := newTestExchange(t)
	if _, err := ex.verifier.Challenge(0); err == nil {
		t.Error("Challenge(0) accepted an empty selection")
	}
}
