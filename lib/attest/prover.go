// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"fmt"

	"github.com/trustframe-foundation/trustframe/lib/measure"
)

// A Prover produces signed quotes for a device's measurement bank. It
// holds the device private key; on hardware this lives inside the
// measured boundary, and the rest of the system sees only quotes.
type Prover struct {
	bank        *measure.Bank
	privateKey  ed25519.PrivateKey
	certificate Certificate
}

// NewProver binds a prover to a bank, a device key, and the key's
// root-issued certificate.
func NewProver(bank *measure.Bank, privateKey ed25519.PrivateKey, certificate Certificate) (*Prover, error) {
	if len(privateKey) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("attest: device private key is %d bytes, want %d", len(privateKey), ed25519.PrivateKeySize)
	}
	if !privateKey.Public().(ed25519.PublicKey).Equal(ed25519.PublicKey(certificate.PublicKey)) {
		return nil, fmt.Errorf("attest: certificate public key does not match the private key")
	}
	return &Prover{bank: bank, privateKey: privateKey, certificate: certificate}, nil
}

// Quote answers a challenge with the bank's current state: the
// register values, the event log that produced them, and a signature
// binding both to the challenge nonce.
func (p *Prover) Quote(challenge Challenge) (Quote, error) {
	if challenge.Selection.Count() == 0 {
		return Quote{}, fmt.Errorf("attest: challenge selects no registers")
	}
	values := p.bank.Values()
	message := quoteMessage(challenge.Selection, values, challenge.Nonce)
	return Quote{
		DeviceID:    p.certificate.DeviceID,
		Selection:   challenge.Selection,
		Values:      values,
		Nonce:       challenge.Nonce,
		Log:         p.bank.Log(),
		Signature:   ed25519.Sign(p.privateKey, message),
		Certificate: p.certificate,
	}, nil
}
