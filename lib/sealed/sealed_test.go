// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"strings"
	"testing"

	"github.com/trustframe-foundation/trustframe/lib/measure"
)

func TestGenerateKeypair(t *testing.T) {
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer keypair.Close()

	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("public key %q does not have age1 prefix", keypair.PublicKey)
	}
	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("private key does not have AGE-SECRET-KEY-1 prefix")
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey: %v", err)
	}
	if err := ParsePrivateKey(keypair.PrivateKey); err != nil {
		t.Errorf("ParsePrivateKey: %v", err)
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	device, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer device.Close()
	escrow, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer escrow.Close()

	bundle := []byte(`{"device_id":"frame-01","attestation_key":"..."}`)
	ciphertext, err := Encrypt(bundle, []string{device.PublicKey, escrow.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	// Both recipients can open the bundle.
	for name, keypair := range map[string]*Keypair{"device": device, "escrow": escrow} {
		plaintext, err := Decrypt(ciphertext, keypair.PrivateKey)
		if err != nil {
			t.Fatalf("Decrypt with %s key: %v", name, err)
		}
		if plaintext.String() != string(bundle) {
			t.Errorf("%s decryption = %q, want %q", name, plaintext.String(), bundle)
		}
		plaintext.Close()
	}
}

func TestDecryptWithWrongKey(t *testing.T) {
	recipient, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer recipient.Close()
	stranger, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair: %v", err)
	}
	defer stranger.Close()

	ciphertext, err := Encrypt([]byte("for the device only"), []string{recipient.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if _, err := Decrypt(ciphertext, stranger.PrivateKey); err == nil {
		t.Error("Decrypt with a non-recipient key succeeded")
	}
}

func TestEncryptRequiresRecipients(t *testing.T) {
	if _, err := Encrypt([]byte("data"), nil); err == nil {
		t.Error("Encrypt with no recipients succeeded")
	}
	if _, err := Encrypt([]byte("data"), []string{"not-an-age-key"}); err == nil {
		t.Error("Encrypt with a malformed recipient succeeded")
	}
}

func TestSealToStateRoundTrip(t *testing.T) {
	bank := measure.NewBank()
	if _, err := bank.ExtendStage(measure.StageFirmware, []byte("fw v1"), ""); err != nil {
		t.Fatalf("ExtendStage: %v", err)
	}
	boot, err := measure.Select(0)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	sealingKey, err := bank.SealingKey(boot)
	if err != nil {
		t.Fatalf("SealingKey: %v", err)
	}

	ciphertext, err := SealToState([]byte("device attestation key"), sealingKey)
	if err != nil {
		t.Fatalf("SealToState: %v", err)
	}
	plaintext, err := UnsealFromState(ciphertext, sealingKey)
	if err != nil {
		t.Fatalf("UnsealFromState: %v", err)
	}
	defer plaintext.Close()
	if plaintext.String() != "device attestation key" {
		t.Errorf("unsealed = %q, want %q", plaintext.String(), "device attestation key")
	}
}

func TestUnsealFailsAfterStateChange(t *testing.T) {
	bank := measure.NewBank()
	if _, err := bank.ExtendStage(measure.StageFirmware, []byte("fw v1"), ""); err != nil {
		t.Fatalf("ExtendStage: %v", err)
	}
	boot, _ := measure.Select(0)
	sealingKey, _ := bank.SealingKey(boot)

	ciphertext, err := SealToState([]byte("bound to fw v1"), sealingKey)
	if err != nil {
		t.Fatalf("SealToState: %v", err)
	}

	// A different firmware measurement produces a different sealing
	// key; the ciphertext must not open.
	if _, err := bank.ExtendStage(measure.StageFirmware, []byte("fw v2"), ""); err != nil {
		t.Fatalf("ExtendStage: %v", err)
	}
	movedKey, _ := bank.SealingKey(boot)
	if _, err := UnsealFromState(ciphertext, movedKey); err == nil {
		t.Error("UnsealFromState succeeded after the registers moved")
	}
}
