// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package attestlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/attest"
	"github.com/trustframe-foundation/trustframe/lib/clock"
	"github.com/trustframe-foundation/trustframe/lib/measure"
)

func openTestStore(t *testing.T) (*Store, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store, err := Open(Config{
		Path:  filepath.Join(t.TempDir(), "evidence.db"),
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return store, fake
}

func testQuote(deviceID string, nonce byte) attest.Quote {
	quote := attest.Quote{
		DeviceID:  deviceID,
		Selection: 0b11,
		Log: []measure.LogEntry{
			{Register: 0, Stage: measure.StageFirmware, Measurement: measure.MeasureData([]byte{nonce})},
		},
		Signature: []byte{1, 2, 3},
		Certificate: attest.Certificate{
			DeviceID:  deviceID,
			PublicKey: make([]byte, 32),
			NotBefore: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			NotAfter:  time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	quote.Nonce[0] = nonce
	return quote
}

func TestRecordAndRecent(t *testing.T) {
	store, fake := openTestStore(t)
	ctx := context.Background()

	verdicts := []attest.Verdict{
		{DeviceID: "frame-01", Accepted: true, Policy: "release-1"},
		{DeviceID: "frame-01", Accepted: false, Reason: "nonce mismatch"},
		{DeviceID: "frame-02", Accepted: true, Policy: "release-1"},
	}
	for i, verdict := range verdicts {
		if err := store.Record(ctx, verdict, testQuote(verdict.DeviceID, byte(i))); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		fake.Advance(time.Minute)
	}

	records, err := store.Recent(ctx, "frame-01", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Recent(frame-01) returned %d records, want 2", len(records))
	}
	// Newest first.
	if records[0].Accepted || !records[1].Accepted {
		t.Errorf("record order = [accepted=%v, accepted=%v], want newest (rejected) first",
			records[0].Accepted, records[1].Accepted)
	}
	if records[1].Policy != "release-1" {
		t.Errorf("Policy = %q, want %q", records[1].Policy, "release-1")
	}
	if !records[0].RecordedAt.After(records[1].RecordedAt) {
		t.Error("timestamps not descending")
	}

	// The stored quote survives the round trip.
	if records[1].Quote.DeviceID != "frame-01" || records[1].Quote.Nonce[0] != 0 {
		t.Errorf("stored quote = %+v, want original device and nonce", records[1].Quote)
	}
	if len(records[1].Quote.Log) != 1 || records[1].Quote.Log[0].Stage != measure.StageFirmware {
		t.Errorf("stored quote log = %+v, want one firmware entry", records[1].Quote.Log)
	}
}

func TestRecentUnknownDevice(t *testing.T) {
	store, _ := openTestStore(t)
	records, err := store.Recent(context.Background(), "no-such-device", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Recent(unknown) returned %d records, want 0", len(records))
	}
}

func TestRejectionStreak(t *testing.T) {
	store, fake := openTestStore(t)
	ctx := context.Background()

	outcomes := []bool{true, false, false, false}
	for i, accepted := range outcomes {
		verdict := attest.Verdict{DeviceID: "frame-01", Accepted: accepted}
		if !accepted {
			verdict.Reason = "no matching policy"
		}
		if err := store.Record(ctx, verdict, testQuote("frame-01", byte(i))); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
		fake.Advance(time.Minute)
	}

	streak, err := store.RejectionStreak(ctx, "frame-01")
	if err != nil {
		t.Fatalf("RejectionStreak: %v", err)
	}
	if streak != 3 {
		t.Errorf("RejectionStreak = %d, want 3", streak)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("Open with empty path succeeded")
	}
}
