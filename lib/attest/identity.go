// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attest

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"time"
)

// A Certificate binds a device's Ed25519 public key to its identity
// under the deployment root's signature. Devices present it with every
// quote; verifiers trust only the root key, never bare device keys.
type Certificate struct {
	// DeviceID is the certified device identity.
	DeviceID string `cbor:"1,keyasint"`
	// PublicKey is the device's Ed25519 public key.
	PublicKey []byte `cbor:"2,keyasint"`
	// NotBefore and NotAfter bound the certificate's validity.
	NotBefore time.Time `cbor:"3,keyasint"`
	NotAfter  time.Time `cbor:"4,keyasint"`
	// RootSignature is the root key's signature over the certified
	// fields (see certificateMessage).
	RootSignature []byte `cbor:"5,keyasint"`
}

func certificateMessage(deviceID string, publicKey []byte, notBefore, notAfter time.Time) []byte {
	message := make([]byte, 0, 15+len(deviceID)+len(publicKey)+16)
	message = append(message, "trustframe.cert"...)
	message = appendLengthPrefixed(message, []byte(deviceID))
	message = appendLengthPrefixed(message, publicKey)
	message = appendUnixSeconds(message, notBefore)
	message = appendUnixSeconds(message, notAfter)
	return message
}

// appendLengthPrefixed appends a 4-byte big-endian length then the
// bytes, so adjacent variable-length fields cannot be reinterpreted by
// shifting a boundary.
func appendLengthPrefixed(message, field []byte) []byte {
	n := uint32(len(field))
	message = append(message, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
	return append(message, field...)
}

func appendUnixSeconds(message []byte, t time.Time) []byte {
	s := uint64(t.Unix())
	return append(message,
		byte(s>>56), byte(s>>48), byte(s>>40), byte(s>>32),
		byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

// IssueCertificate signs a device public key with the root private
// key. This runs at provisioning time, never on the device.
func IssueCertificate(rootKey ed25519.PrivateKey, deviceID string, devicePublic ed25519.PublicKey, notBefore, notAfter time.Time) (Certificate, error) {
	if len(devicePublic) != ed25519.PublicKeySize {
		return Certificate{}, fmt.Errorf("attest: device public key is %d bytes, want %d", len(devicePublic), ed25519.PublicKeySize)
	}
	if !notAfter.After(notBefore) {
		return Certificate{}, fmt.Errorf("attest: certificate validity is empty: %v .. %v", notBefore, notAfter)
	}
	message := certificateMessage(deviceID, devicePublic, notBefore, notAfter)
	return Certificate{
		DeviceID:      deviceID,
		PublicKey:     append([]byte(nil), devicePublic...),
		NotBefore:     notBefore,
		NotAfter:      notAfter,
		RootSignature: ed25519.Sign(rootKey, message),
	}, nil
}

// Verify checks the certificate against the trusted root public key at
// the given time.
func (c Certificate) Verify(rootPublic ed25519.PublicKey, now time.Time) error {
	if len(c.PublicKey) != ed25519.PublicKeySize {
		return &Failure{Kind: BadCertificate, Device: c.DeviceID,
			Detail: fmt.Sprintf("public key is %d bytes", len(c.PublicKey))}
	}
	if now.Before(c.NotBefore) || now.After(c.NotAfter) {
		return &Failure{Kind: BadCertificate, Device: c.DeviceID, Detail: "outside validity period"}
	}
	message := certificateMessage(c.DeviceID, c.PublicKey, c.NotBefore, c.NotAfter)
	if !ed25519.Verify(rootPublic, message, c.RootSignature) {
		return &Failure{Kind: BadCertificate, Device: c.DeviceID, Detail: "root signature does not verify"}
	}
	return nil
}

// NewDeviceKey generates a fresh device signing keypair.
func NewDeviceKey() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("generating device key: %w", err)
	}
	return public, private, nil
}
