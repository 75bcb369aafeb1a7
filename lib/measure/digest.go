// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest. All measurements, register
// values, and composites are this size.
type Digest [32]byte

// domainKey is a 32-byte key for BLAKE3 keyed hashing. Domain
// separation keeps a measurement digest from ever colliding with an
// extend-chain digest or a composite over the same bytes.
type domainKey [32]byte

// Domain separation keys. Fixed constants; changing one invalidates
// every digest in that domain. The byte values are the ASCII domain
// name, zero-padded to 32 bytes, so the keys are inspectable in hex
// dumps.
var (
	measureDomainKey = domainKey{
		't', 'r', 'u', 's', 't', 'f', 'r', 'a', 'm', 'e', '.',
		'm', 'e', 'a', 's', 'u', 'r', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	extendDomainKey = domainKey{
		't', 'r', 'u', 's', 't', 'f', 'r', 'a', 'm', 'e', '.',
		'e', 'x', 't', 'e', 'n', 'd', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	compositeDomainKey = domainKey{
		't', 'r', 'u', 's', 't', 'f', 'r', 'a', 'm', 'e', '.',
		'c', 'o', 'm', 'p', 'o', 's', 'i', 't', 'e', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}

	sealDomainKey = domainKey{
		't', 'r', 'u', 's', 't', 'f', 'r', 'a', 'm', 'e', '.',
		's', 'e', 'a', 'l', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
)

// MeasureData computes the measurement digest of a boot artifact's
// bytes.
func MeasureData(data []byte) Digest {
	return keyedHash(measureDomainKey, data)
}

// extendChain computes the next register value from the previous value
// and a new measurement: H(previous || measurement) in the extend
// domain. Order matters; the chain encodes the full extension history.
func extendChain(previous, measurement Digest) Digest {
	var combined [64]byte
	copy(combined[:32], previous[:])
	copy(combined[32:], measurement[:])
	return keyedHash(extendDomainKey, combined[:])
}

// Equal compares two digests in constant time. All digest comparisons
// against expected values go through this, so a verifier cannot be
// timed byte by byte.
func Equal(a, b Digest) bool {
	return subtle.ConstantTimeCompare(a[:], b[:]) == 1
}

// FormatDigest returns the hex encoding of a digest, the canonical
// form for logs and CLI output.
func FormatDigest(d Digest) string {
	return hex.EncodeToString(d[:])
}

// ParseDigest parses a 64-character hex string into a Digest.
func ParseDigest(hexString string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != 32 {
		return d, fmt.Errorf("digest is %d bytes, want 32", len(decoded))
	}
	copy(d[:], decoded)
	return d, nil
}

func keyedHash(key domainKey, data []byte) Digest {
	// NewKeyed only fails for a wrong key length, which domainKey rules
	// out.
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("measure: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(data)
	var d Digest
	copy(d[:], hasher.Sum(nil))
	return d
}
