// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/trustframe-foundation/trustframe/lib/measure"
	"github.com/trustframe-foundation/trustframe/lib/secret"
)

// Keypair holds an age x25519 keypair for provisioning. The private
// key is stored in a secret.Buffer (mmap-backed, locked against swap,
// excluded from core dumps). The public key is a plain string, safe to
// publish in a deployment profile.
//
// The caller must call Close when the keypair is no longer needed.
type Keypair struct {
	// PrivateKey is the secret key in AGE-SECRET-KEY-1... format,
	// stored in mmap memory outside the Go heap. Must never be logged
	// or included in CLI arguments.
	PrivateKey *secret.Buffer

	// PublicKey is the corresponding public key in age1... format.
	PublicKey string
}

// Close releases the private key memory (zeros, unlocks, unmaps).
// Idempotent.
func (k *Keypair) Close() error {
	if k.PrivateKey != nil {
		return k.PrivateKey.Close()
	}
	return nil
}

// GenerateKeypair generates a new age x25519 keypair. The private key
// is returned in a secret.Buffer and should be sealed to the device's
// measured state immediately after generation.
//
// The caller must call Close on the returned Keypair when done.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating age keypair: %w", err)
	}

	// Move the private key string into mmap-backed memory immediately.
	// The identity's own string stays on the heap until GC'd —
	// unavoidable with the age API; the mmap buffer is the durable
	// copy.
	privateKey, err := secret.NewFromBytes([]byte(identity.String()))
	if err != nil {
		return nil, fmt.Errorf("protecting private key: %w", err)
	}

	return &Keypair{
		PrivateKey: privateKey,
		PublicKey:  identity.Recipient().String(),
	}, nil
}

// Encrypt encrypts plaintext to one or more age x25519 recipients and
// returns base64 ciphertext. Provisioning bundles are encrypted to the
// target device's key plus the operator's escrow key.
func Encrypt(plaintext []byte, recipientKeys []string) (string, error) {
	if len(recipientKeys) == 0 {
		return "", fmt.Errorf("at least one recipient is required")
	}

	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return "", fmt.Errorf("parsing recipient key %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	return encryptTo(plaintext, recipients...)
}

// Decrypt decrypts base64 ciphertext with the given private key and
// returns the plaintext in a secret.Buffer. The private key is
// borrowed, not closed. The caller must Close the returned buffer.
func Decrypt(ciphertext string, privateKey *secret.Buffer) (*secret.Buffer, error) {
	// The age API needs the identity as a string; the heap copy is
	// brief and request-scoped.
	identity, err := age.ParseX25519Identity(privateKey.String())
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return decryptWith(ciphertext, identity)
}

// SealToState encrypts plaintext under a passphrase derived from a
// measurement sealing key (see measure.Bank.SealingKey). Unsealing
// succeeds only with the same key digest, which exists only on a
// device whose selected registers hold the same values.
func SealToState(plaintext []byte, sealingKey measure.Digest) (string, error) {
	recipient, err := age.NewScryptRecipient(hex.EncodeToString(sealingKey[:]))
	if err != nil {
		return "", fmt.Errorf("deriving sealing recipient: %w", err)
	}
	return encryptTo(plaintext, recipient)
}

// UnsealFromState reverses SealToState. A device whose registers have
// moved derives a different key and gets a decryption error, not a
// wrong plaintext.
func UnsealFromState(ciphertext string, sealingKey measure.Digest) (*secret.Buffer, error) {
	identity, err := age.NewScryptIdentity(hex.EncodeToString(sealingKey[:]))
	if err != nil {
		return nil, fmt.Errorf("deriving sealing identity: %w", err)
	}
	return decryptWith(ciphertext, identity)
}

// ParsePublicKey validates an age public key string from a deployment
// profile before it is used as a recipient.
func ParsePublicKey(publicKey string) error {
	if _, err := age.ParseX25519Recipient(publicKey); err != nil {
		return fmt.Errorf("invalid age public key: %w", err)
	}
	return nil
}

// ParsePrivateKey validates an age private key held in a
// secret.Buffer.
func ParsePrivateKey(privateKey *secret.Buffer) error {
	if _, err := age.ParseX25519Identity(privateKey.String()); err != nil {
		return fmt.Errorf("invalid age private key: %w", err)
	}
	return nil
}

func encryptTo(plaintext []byte, recipients ...age.Recipient) (string, error) {
	var ciphertextBuffer bytes.Buffer
	writer, err := age.Encrypt(&ciphertextBuffer, recipients...)
	if err != nil {
		return "", fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return "", fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalizing age encryption: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertextBuffer.Bytes()), nil
}

func decryptWith(ciphertext string, identity age.Identity) (*secret.Buffer, error) {
	rawCiphertext, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decoding base64 ciphertext: %w", err)
	}

	reader, err := age.Decrypt(bytes.NewReader(rawCiphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}

	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted plaintext: %w", err)
	}
	if len(plaintext) == 0 {
		// age can produce empty plaintext (sealed empty input).
		return secret.New(1)
	}

	// Move the plaintext into mmap-backed memory; NewFromBytes zeros
	// the heap copy.
	buffer, err := secret.NewFromBytes(plaintext)
	if err != nil {
		secret.Zero(plaintext)
		return nil, fmt.Errorf("protecting decrypted plaintext: %w", err)
	}
	return buffer, nil
}
