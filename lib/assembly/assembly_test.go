// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"strings"
	"testing"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/measure"
	"github.com/trustframe-foundation/trustframe/lib/region"
)

var testProfile = `
device_id: frame-01
regions:
  - name: frame-a
    size: 8388608
  - name: frame-b
    size: 8388608
components:
  - name: input
  - name: controller
  - name: decoder
    arena: 16777216
    job_timeout: 10s
    grants:
      - region: frame-a
        rights: rw
      - region: frame-b
        rights: rw
  - name: display
    grants:
      - region: frame-a
        rights: r
      - region: frame-b
        rights: r
channels:
  - name: input-events
    producer: input
    consumer: controller
    entry: input_event
    capacity: 16
  - name: decode-commands
    producer: controller
    consumer: decoder
    entry: command
    capacity: 8
attestation:
  selection: [0, 1, 2, 3]
  challenge_window: 45s
  evidence_db: /var/lib/trustframe/evidence.db
policies:
  - name: release-1
    selection: [0, 1]
    composite: ` + strings.Repeat("ab", 32) + `
`

func TestParseAndBuild(t *testing.T) {
	profile, err := ParseProfile([]byte(testProfile))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	asm, err := Build(profile, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if asm.DeviceID != "frame-01" {
		t.Errorf("DeviceID = %q, want frame-01", asm.DeviceID)
	}
	if len(asm.Regions) != 2 || asm.Regions["frame-a"].Size() != 8388608 {
		t.Errorf("regions = %v", asm.Regions)
	}

	// The decoder got read/write; the display read only.
	decoderCap := asm.Capabilities["decoder"]["frame-a"]
	if !decoderCap.Has(region.Read | region.Write) {
		t.Error("decoder capability lacks rw on frame-a")
	}
	displayCap := asm.Capabilities["display"]["frame-a"]
	if displayCap.Has(region.Write) {
		t.Error("display capability has write on frame-a")
	}
	if _, ok := asm.Capabilities["input"]["frame-a"]; ok {
		t.Error("input has a capability it was never granted")
	}

	if asm.Arenas["decoder"] == nil || asm.Arenas["decoder"].Capacity() != 16777216 {
		t.Errorf("decoder arena = %v", asm.Arenas["decoder"])
	}
	if _, ok := asm.Arenas["display"]; ok {
		t.Error("display has an arena it never declared")
	}
	if asm.Watchdogs["decoder"] == nil {
		t.Error("decoder watchdog missing")
	}

	layout := asm.Layouts["input-events"]
	size, err := layout.RegionSize()
	if err != nil {
		t.Fatalf("RegionSize: %v", err)
	}
	if size != 16+4*16 {
		t.Errorf("input-events region size = %d, want %d", size, 16+4*16)
	}

	wantSelection, _ := measure.Select(0, 1, 2, 3)
	if asm.Selection != wantSelection {
		t.Errorf("Selection = %v, want %v", asm.Selection, wantSelection)
	}
	if asm.ChallengeWindow != 45*time.Second {
		t.Errorf("ChallengeWindow = %v, want 45s", asm.ChallengeWindow)
	}
	if len(asm.Policies) != 1 || asm.Policies[0].Name != "release-1" {
		t.Errorf("Policies = %+v", asm.Policies)
	}
}

func TestBuildChannels(t *testing.T) {
	profile, err := ParseProfile([]byte(testProfile))
	if err != nil {
		t.Fatalf("ParseProfile: %v", err)
	}
	events, err := InputChannel(profile.Channels[0])
	if err != nil {
		t.Fatalf("InputChannel: %v", err)
	}
	if events.Capacity() != 16 {
		t.Errorf("capacity = %d, want 16", events.Capacity())
	}
	commands, err := CommandChannel(profile.Channels[1])
	if err != nil {
		t.Fatalf("CommandChannel: %v", err)
	}
	if commands.Capacity() != 8 {
		t.Errorf("capacity = %d, want 8", commands.Capacity())
	}

	// Entry type mismatches are refused, not coerced.
	if _, err := InputChannel(profile.Channels[1]); err == nil {
		t.Error("InputChannel accepted a command channel spec")
	}
}

func TestValidateCatchesBadProfiles(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(p *Profile)
		wantErr string
	}{
		{"missing device id", func(p *Profile) { p.DeviceID = "" }, "device_id"},
		{"duplicate region", func(p *Profile) { p.Regions = append(p.Regions, p.Regions[0]) }, "duplicate region"},
		{"zero region", func(p *Profile) { p.Regions[0].Size = 0 }, "zero size"},
		{"unknown grant region", func(p *Profile) { p.Components[2].Grants[0].Region = "ghost" }, "unknown region"},
		{"bad rights", func(p *Profile) { p.Components[2].Grants[0].Rights = "rz" }, "unknown right"},
		{"unknown producer", func(p *Profile) { p.Channels[0].Producer = "ghost" }, "unknown producer"},
		{"self channel", func(p *Profile) { p.Channels[0].Consumer = p.Channels[0].Producer }, "producer and consumer"},
		{"bad entry", func(p *Profile) { p.Channels[0].Entry = "frame" }, "unknown entry type"},
		{"tiny channel", func(p *Profile) { p.Channels[0].Capacity = 1 }, "cannot hold"},
		{"bad register", func(p *Profile) { p.Attestation.Selection = []int{24} }, "out of range"},
		{"bad window", func(p *Profile) { p.Attestation.ChallengeWindow = "soon" }, "challenge_window"},
		{"bad composite", func(p *Profile) { p.Policies[0].Composite = "xyz" }, "composite"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			profile, err := ParseProfile([]byte(testProfile))
			if err != nil {
				t.Fatalf("ParseProfile: %v", err)
			}
			tc.mutate(profile)
			err = profile.Validate()
			if err == nil {
				t.Fatal("Validate accepted the mutated profile")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate = %v, want mention of %q", err, tc.wantErr)
			}
		})
	}
}
