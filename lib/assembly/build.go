// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/arena"
	"github.com/trustframe-foundation/trustframe/lib/attest"
	"github.com/trustframe-foundation/trustframe/lib/channel"
	"github.com/trustframe-foundation/trustframe/lib/clock"
	"github.com/trustframe-foundation/trustframe/lib/measure"
	"github.com/trustframe-foundation/trustframe/lib/protocol"
	"github.com/trustframe-foundation/trustframe/lib/region"
	"github.com/trustframe-foundation/trustframe/lib/watchdog"
)

// An Assembly is the constructed runtime of a validated profile: the
// regions, the per-component capabilities and budgets, and the
// attestation policy set. Channels are built separately by entry type
// (see InputChannel and CommandChannel) because the ring is generic
// over its entry record.
type Assembly struct {
	DeviceID string

	// Regions by name.
	Regions map[string]*region.MemoryRegion

	// Capabilities maps component name to region name to the
	// component's capability on that region. Absent means no access.
	Capabilities map[string]map[string]region.Capability

	// Arenas maps component name to its allocation budget, for
	// components that declared one.
	Arenas map[string]*arena.Arena

	// Watchdogs maps component name to its job watchdog, for
	// components that declared a job timeout.
	Watchdogs map[string]*watchdog.Watchdog

	// Layouts maps channel name to its region layout, for sizing the
	// shared mapping behind each ring.
	Layouts map[string]channel.Layout

	// Selection is the register selection attestation challenges
	// cover.
	Selection measure.Selection

	// ChallengeWindow is the configured quote deadline, or zero for
	// the verifier default.
	ChallengeWindow time.Duration

	// Policies is the known-good allowlist.
	Policies []measure.Policy
}

// Build constructs the runtime objects a validated profile describes.
// Construction is deterministic: the same profile yields the same
// assembly shape on every boot.
func Build(profile *Profile, timeSource clock.Clock, logger *slog.Logger) (*Assembly, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if timeSource == nil {
		timeSource = clock.Real()
	}

	asm := &Assembly{
		DeviceID:     profile.DeviceID,
		Regions:      make(map[string]*region.MemoryRegion, len(profile.Regions)),
		Capabilities: make(map[string]map[string]region.Capability, len(profile.Components)),
		Arenas:       make(map[string]*arena.Arena),
		Watchdogs:    make(map[string]*watchdog.Watchdog),
		Layouts:      make(map[string]channel.Layout, len(profile.Channels)),
	}

	for _, spec := range profile.Regions {
		if spec.Size > math.MaxInt {
			return nil, fmt.Errorf("assembly: region %q: size %d exceeds addressable memory", spec.Name, spec.Size)
		}
		mem, err := region.NewMemoryRegion(spec.Name, int(spec.Size))
		if err != nil {
			return nil, fmt.Errorf("assembly: region %q: %w", spec.Name, err)
		}
		asm.Regions[spec.Name] = mem
	}

	for _, spec := range profile.Components {
		grants := make(map[string]region.Capability, len(spec.Grants))
		for _, grant := range spec.Grants {
			rights, err := parseRights(grant.Rights)
			if err != nil {
				return nil, fmt.Errorf("assembly: component %q: %w", spec.Name, err)
			}
			grants[grant.Region] = region.GrantRegion(asm.Regions[grant.Region], rights)
		}
		asm.Capabilities[spec.Name] = grants

		if spec.Arena > 0 {
			componentArena, err := arena.New(spec.Arena)
			if err != nil {
				return nil, fmt.Errorf("assembly: component %q: %w", spec.Name, err)
			}
			asm.Arenas[spec.Name] = componentArena
		}
		if spec.JobTimeout != "" {
			timeout, err := time.ParseDuration(spec.JobTimeout)
			if err != nil {
				return nil, fmt.Errorf("assembly: component %q: job_timeout: %w", spec.Name, err)
			}
			guard, err := watchdog.New(timeSource, timeout, logger)
			if err != nil {
				return nil, fmt.Errorf("assembly: component %q: %w", spec.Name, err)
			}
			asm.Watchdogs[spec.Name] = guard
		}
	}

	for _, spec := range profile.Channels {
		size, err := entrySize(spec.Entry)
		if err != nil {
			return nil, fmt.Errorf("assembly: channel %q: %w", spec.Name, err)
		}
		asm.Layouts[spec.Name] = channel.Layout{EntrySize: size, Capacity: spec.Capacity}
	}

	selection, err := measure.Select(profile.Attestation.Selection...)
	if err != nil {
		return nil, fmt.Errorf("assembly: attestation selection: %w", err)
	}
	asm.Selection = selection
	if profile.Attestation.ChallengeWindow != "" {
		window, err := time.ParseDuration(profile.Attestation.ChallengeWindow)
		if err != nil {
			return nil, fmt.Errorf("assembly: challenge_window: %w", err)
		}
		asm.ChallengeWindow = window
	}

	for _, spec := range profile.Policies {
		policySelection, err := measure.Select(spec.Selection...)
		if err != nil {
			return nil, fmt.Errorf("assembly: policy %q: %w", spec.Name, err)
		}
		composite, err := measure.ParseDigest(spec.Composite)
		if err != nil {
			return nil, fmt.Errorf("assembly: policy %q: %w", spec.Name, err)
		}
		asm.Policies = append(asm.Policies, measure.Policy{
			Name:      spec.Name,
			Selection: policySelection,
			Composite: composite,
		})
	}

	return asm, nil
}

// NewVerifier builds the verifier an assembly's attestation section
// describes.
func (a *Assembly) NewVerifier(rootPublic []byte, timeSource clock.Clock) (*attest.Verifier, error) {
	options := []attest.VerifierOption{}
	if timeSource != nil {
		options = append(options, attest.WithClock(timeSource))
	}
	if a.ChallengeWindow > 0 {
		options = append(options, attest.WithChallengeWindow(a.ChallengeWindow))
	}
	return attest.NewVerifier(rootPublic, a.Policies, options...)
}

// InputChannel builds the ring for an input_event channel spec.
func InputChannel(spec ChannelSpec) (*channel.Channel[protocol.InputEvent], error) {
	if spec.Entry != "input_event" {
		return nil, fmt.Errorf("assembly: channel %q carries %q, not input_event", spec.Name, spec.Entry)
	}
	return channel.New[protocol.InputEvent](spec.Capacity)
}

// CommandChannel builds the ring for a command channel spec.
func CommandChannel(spec ChannelSpec) (*channel.Channel[protocol.Command], error) {
	if spec.Entry != "command" {
		return nil, fmt.Errorf("assembly: channel %q carries %q, not command", spec.Name, spec.Entry)
	}
	return channel.New[protocol.Command](spec.Capacity)
}

func entrySize(entry string) (int, error) {
	switch entry {
	case "input_event":
		return protocol.InputEventSize, nil
	case "command":
		return protocol.CommandSize, nil
	default:
		return 0, fmt.Errorf("unknown entry type %q", entry)
	}
}

func parseRights(s string) (region.Rights, error) {
	if s == "" {
		return 0, fmt.Errorf("empty rights string")
	}
	var rights region.Rights
	for _, c := range s {
		switch c {
		case 'r':
			rights |= region.Read
		case 'w':
			rights |= region.Write
		case 'g':
			rights |= region.Grant
		case 'x':
			rights |= region.Execute
		default:
			return 0, fmt.Errorf("unknown right %q in %q", c, s)
		}
	}
	return rights, nil
}
