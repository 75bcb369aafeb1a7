// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

// trustframe-quote is the device side of the attestation exchange.
//
// Quote mode (default): rebuilds the measurement bank by measuring the
// boot artifacts listed with --measure (in order), reads a base64 CBOR
// challenge from stdin or --challenge, and writes a signed base64 CBOR
// quote to stdout.
//
// Provision mode (--provision): generates a device keypair, certifies
// it with the root key, and writes the key and certificate files. Runs
// at provisioning time on the operator's machine, not on the device.
package main

import (
	"bufio"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/trustframe-foundation/trustframe/lib/attest"
	"github.com/trustframe-foundation/trustframe/lib/codec"
	"github.com/trustframe-foundation/trustframe/lib/measure"
	"github.com/trustframe-foundation/trustframe/lib/secret"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		provision     bool
		deviceID      string
		rootKeyPath   string
		keyPath       string
		certPath      string
		challengePath string
		measureSpecs  []string
		validity      time.Duration
	)

	flagSet := pflag.NewFlagSet("trustframe-quote", pflag.ContinueOnError)
	flagSet.BoolVar(&provision, "provision", false, "generate and certify a device key instead of quoting")
	flagSet.StringVar(&deviceID, "device", "", "device identity (provision mode)")
	flagSet.StringVar(&rootKeyPath, "root-key", "", "root private key file, hex (provision mode)")
	flagSet.StringVar(&keyPath, "key", "", "device private key file, hex")
	flagSet.StringVar(&certPath, "cert", "", "device certificate file, base64 CBOR")
	flagSet.StringVar(&challengePath, "challenge", "-", "challenge file, base64 CBOR (- for stdin)")
	flagSet.StringArrayVar(&measureSpecs, "measure", nil, "boot artifact to measure, stage:path (repeatable, ordered)")
	flagSet.DurationVar(&validity, "validity", 365*24*time.Hour, "certificate validity (provision mode)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	if provision {
		return runProvision(deviceID, rootKeyPath, keyPath, certPath, validity)
	}
	return runQuote(keyPath, certPath, challengePath, measureSpecs)
}

func runProvision(deviceID, rootKeyPath, keyPath, certPath string, validity time.Duration) error {
	if deviceID == "" || rootKeyPath == "" || keyPath == "" || certPath == "" {
		return fmt.Errorf("provision mode requires --device, --root-key, --key, and --cert")
	}

	rootKey, err := readPrivateKey(rootKeyPath)
	if err != nil {
		return fmt.Errorf("root key: %w", err)
	}

	devicePublic, deviceKey, err := attest.NewDeviceKey()
	if err != nil {
		return err
	}
	now := time.Now()
	certificate, err := attest.IssueCertificate(rootKey, deviceID, devicePublic, now, now.Add(validity))
	if err != nil {
		return err
	}

	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(deviceKey)+"\n"), 0600); err != nil {
		return fmt.Errorf("writing device key: %w", err)
	}
	encodedCertificate, err := codec.Marshal(certificate)
	if err != nil {
		return fmt.Errorf("encoding certificate: %w", err)
	}
	certLine := base64.StdEncoding.EncodeToString(encodedCertificate) + "\n"
	if err := os.WriteFile(certPath, []byte(certLine), 0644); err != nil {
		return fmt.Errorf("writing certificate: %w", err)
	}

	fmt.Printf("provisioned %s: key %s, certificate %s (valid %v)\n", deviceID, keyPath, certPath, validity)
	return nil
}

func runQuote(keyPath, certPath, challengePath string, measureSpecs []string) error {
	if keyPath == "" || certPath == "" {
		return fmt.Errorf("quote mode requires --key and --cert")
	}

	deviceKey, err := readPrivateKey(keyPath)
	if err != nil {
		return fmt.Errorf("device key: %w", err)
	}
	certificate, err := readCertificate(certPath)
	if err != nil {
		return fmt.Errorf("certificate: %w", err)
	}

	bank := measure.NewBank()
	for _, spec := range measureSpecs {
		stage, path, err := parseMeasureSpec(spec)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading artifact %s: %w", path, err)
		}
		if _, err := bank.ExtendStage(stage, data, path); err != nil {
			return err
		}
	}

	challenge, err := readChallenge(challengePath)
	if err != nil {
		return fmt.Errorf("challenge: %w", err)
	}

	prover, err := attest.NewProver(bank, deviceKey, certificate)
	if err != nil {
		return err
	}
	quote, err := prover.Quote(challenge)
	if err != nil {
		return err
	}

	encodedQuote, err := codec.Marshal(quote)
	if err != nil {
		return fmt.Errorf("encoding quote: %w", err)
	}
	fmt.Println(base64.StdEncoding.EncodeToString(encodedQuote))
	return nil
}

var stageNames = map[string]measure.Stage{
	"firmware":    measure.StageFirmware,
	"kernel":      measure.StageKernel,
	"system":      measure.StageSystem,
	"image":       measure.StageImage,
	"runtime":     measure.StageRuntime,
	"secure-boot": measure.StageSecureBoot,
	"debug":       measure.StageDebug,
}

func parseMeasureSpec(spec string) (measure.Stage, string, error) {
	name, path, ok := strings.Cut(spec, ":")
	if !ok || path == "" {
		return 0, "", fmt.Errorf("--measure %q: want stage:path", spec)
	}
	stage, ok := stageNames[name]
	if !ok {
		return 0, "", fmt.Errorf("--measure %q: unknown stage %q", spec, name)
	}
	return stage, path, nil
}

// readPrivateKey reads a hex-encoded Ed25519 private key through a
// locked buffer so the hex copy never lingers on the heap.
func readPrivateKey(path string) (ed25519.PrivateKey, error) {
	buffer, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, err
	}
	defer buffer.Close()

	decoded := make([]byte, hex.DecodedLen(buffer.Len()))
	n, err := hex.Decode(decoded, buffer.Bytes())
	if err != nil {
		return nil, fmt.Errorf("decoding hex key: %w", err)
	}
	if n != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("key is %d bytes, want %d", n, ed25519.PrivateKeySize)
	}
	return ed25519.PrivateKey(decoded[:n]), nil
}

func readCertificate(path string) (attest.Certificate, error) {
	line, err := os.ReadFile(path)
	if err != nil {
		return attest.Certificate{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(line)))
	if err != nil {
		return attest.Certificate{}, fmt.Errorf("decoding base64: %w", err)
	}
	var certificate attest.Certificate
	if err := codec.Unmarshal(raw, &certificate); err != nil {
		return attest.Certificate{}, fmt.Errorf("decoding CBOR: %w", err)
	}
	return certificate, nil
}

func readChallenge(path string) (attest.Challenge, error) {
	var line []byte
	var err error
	if path == "-" {
		line, err = readStdinLine()
	} else {
		line, err = os.ReadFile(path)
	}
	if err != nil {
		return attest.Challenge{}, err
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(line)))
	if err != nil {
		return attest.Challenge{}, fmt.Errorf("decoding base64: %w", err)
	}
	var challenge attest.Challenge
	if err := codec.Unmarshal(raw, &challenge); err != nil {
		return attest.Challenge{}, fmt.Errorf("decoding CBOR: %w", err)
	}
	return challenge, nil
}

func readStdinLine() ([]byte, error) {
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return nil, fmt.Errorf("stdin is empty")
	}
	return scanner.Bytes(), nil
}
