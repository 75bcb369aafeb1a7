// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"time"

	"github.com/trustframe-foundation/trustframe/lib/measure"
)

// NonceSize is the size of a challenge nonce in bytes.
const NonceSize = 32

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = 64

// Nonce is a single-use random challenge value.
type Nonce [NonceSize]byte

// A Challenge asks a device to prove its measured state. The nonce is
// single use; the verifier refuses any quote answering a nonce it has
// already consumed or never issued.
type Challenge struct {
	// Nonce is the fresh random value the quote must embed.
	Nonce Nonce `cbor:"1,keyasint"`
	// Selection names the registers the quote must cover.
	Selection measure.Selection `cbor:"2,keyasint"`
	// IssuedAt is the verifier's issue time, informational for the
	// device; the verifier enforces the window from its own clock.
	IssuedAt time.Time `cbor:"3,keyasint"`
}

// A Quote is a device's signed report of its register values in answer
// to one challenge. The signature covers the selection, the values,
// and the nonce, so a quote cannot be replayed against a different
// challenge or reduced to a different register subset.
type Quote struct {
	// DeviceID names the quoting device.
	DeviceID string `cbor:"1,keyasint"`
	// Selection echoes the challenge's register selection.
	Selection measure.Selection `cbor:"2,keyasint"`
	// Values are the current register values.
	Values [measure.NumRegisters]measure.Digest `cbor:"3,keyasint"`
	// Nonce echoes the challenge nonce.
	Nonce Nonce `cbor:"4,keyasint"`
	// Log is the event log backing the values. The verifier replays it.
	Log []measure.LogEntry `cbor:"5,keyasint"`
	// Signature is the device key's Ed25519 signature over the quote
	// message (see quoteMessage).
	Signature []byte `cbor:"6,keyasint"`
	// Certificate carries the device public key under the root's
	// signature.
	Certificate Certificate `cbor:"7,keyasint"`
}

// A Verdict is the verifier's terminal answer for one exchange.
type Verdict struct {
	// DeviceID names the judged device.
	DeviceID string `cbor:"1,keyasint"`
	// Accepted reports whether the device's state matched a policy.
	Accepted bool `cbor:"2,keyasint"`
	// Policy is the name of the matched policy when Accepted.
	Policy string `cbor:"3,keyasint,omitempty"`
	// Reason is the failure classification when not Accepted.
	Reason string `cbor:"4,keyasint,omitempty"`
}

// quoteMessage builds the byte string the device signs: a fixed
// domain prefix, the selection, the selected register values in
// ascending order, and the nonce. Only selected values are signed;
// unselected registers are not attested.
func quoteMessage(selection measure.Selection, values [measure.NumRegisters]measure.Digest, nonce Nonce) []byte {
	message := make([]byte, 0, 16+4+selection.Count()*32+NonceSize)
	message = append(message, "trustframe.quote"...)
	message = append(message,
		byte(selection>>24), byte(selection>>16), byte(selection>>8), byte(selection))
	for _, register := range selection.Registers() {
		message = append(message, values[register][:]...)
	}
	message = append(message, nonce[:]...)
	return message
}
