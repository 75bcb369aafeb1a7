// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// trustframe-verify is the verifier side of the attestation exchange.
//
// It loads a deployment profile for the policy allowlist and register
// selection, issues a challenge on stdout as base64 CBOR, reads the
// device's quote from stdin, and prints the verdict. When the profile
// names an evidence database, every judged exchange is recorded there.
//
// Exit codes: 0 the device was accepted, 1 it was rejected, 2 error.
package main

import (
	"bufio"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/trustframe-foundation/trustframe/lib/assembly"
	"github.com/trustframe-foundation/trustframe/lib/attest"
	"github.com/trustframe-foundation/trustframe/lib/attestlog"
	"github.com/trustframe-foundation/trustframe/lib/codec"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		profilePath string
		rootPath    string
		quiet       bool
	)

	flagSet := pflag.NewFlagSet("trustframe-verify", pflag.ContinueOnError)
	flagSet.StringVar(&profilePath, "profile", "", "deployment profile (yaml)")
	flagSet.StringVar(&rootPath, "root", "", "root public key file, hex")
	flagSet.BoolVar(&quiet, "quiet", false, "suppress the verdict line; exit code only")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if profilePath == "" || rootPath == "" {
		fmt.Fprintln(os.Stderr, "error: --profile and --root are required")
		return 2
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	accepted, err := exchange(profilePath, rootPath, quiet, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 2
	}
	if !accepted {
		return 1
	}
	return 0
}

// exchange runs one full challenge/quote/verdict round over
// stdout/stdin.
func exchange(profilePath, rootPath string, quiet bool, logger *slog.Logger) (bool, error) {
	profile, err := assembly.LoadProfile(profilePath)
	if err != nil {
		return false, err
	}
	asm, err := assembly.Build(profile, nil, logger)
	if err != nil {
		return false, err
	}
	rootPublic, err := readPublicKey(rootPath)
	if err != nil {
		return false, fmt.Errorf("root key: %w", err)
	}
	verifier, err := asm.NewVerifier(rootPublic, nil)
	if err != nil {
		return false, err
	}

	var store *attestlog.Store
	if profile.Attestation.EvidenceDB != "" {
		store, err = attestlog.Open(attestlog.Config{
			Path:   profile.Attestation.EvidenceDB,
			Logger: logger,
		})
		if err != nil {
			return false, err
		}
		defer store.Close()
	}

	challenge, err := verifier.Challenge(asm.Selection)
	if err != nil {
		return false, err
	}
	encodedChallenge, err := codec.Marshal(challenge)
	if err != nil {
		return false, fmt.Errorf("encoding challenge: %w", err)
	}
	fmt.Println(base64.StdEncoding.EncodeToString(encodedChallenge))

	quote, err := readQuote()
	if err != nil {
		return false, err
	}

	// Verify returns the rejection as both verdict and error; the
	// verdict carries everything the exit code and log need.
	verdict, _ := verifier.Verify(quote)
	if store != nil {
		if err := store.Record(context.Background(), verdict, quote); err != nil {
			logger.Error("recording evidence failed", "error", err)
		}
	}

	if !quiet {
		if verdict.Accepted {
			fmt.Fprintf(os.Stderr, "accepted: device %s matches policy %s\n", verdict.DeviceID, verdict.Policy)
		} else {
			fmt.Fprintf(os.Stderr, "rejected: device %s: %s\n", verdict.DeviceID, verdict.Reason)
		}
	}
	return verdict.Accepted, nil
}

func readQuote() (attest.Quote, error) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return attest.Quote{}, fmt.Errorf("reading quote from stdin: %w", err)
		}
		return attest.Quote{}, fmt.Errorf("no quote on stdin")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return attest.Quote{}, fmt.Errorf("decoding base64 quote: %w", err)
	}
	var quote attest.Quote
	if err := codec.Unmarshal(raw, &quote); err != nil {
		return attest.Quote{}, fmt.Errorf("decoding CBOR quote: %w", err)
	}
	return quote, nil
}

func readPublicKey(path string) (ed25519.PublicKey, error) {
	line, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decoded, err := hex.DecodeString(strings.TrimSpace(string(line)))
	if err != nil {
		return nil, fmt.Errorf("decoding hex key: %w", err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", len(decoded), ed25519.PublicKeySize)
	}
	return ed25519.PublicKey(decoded), nil
}
