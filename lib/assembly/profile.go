// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trustframe-foundation/trustframe/lib/measure"
)

// Profile is a deployment profile: the static description of a
// device's components, shared regions, channels, and attestation
// policy. The profile is the single source of truth for the assembly;
// nothing is negotiated at runtime.
type Profile struct {
	// DeviceID is the device identity quotes are issued under.
	DeviceID string `yaml:"device_id"`

	// Regions are the shared memory regions of the assembly.
	Regions []RegionSpec `yaml:"regions"`

	// Components are the isolated components and their grants.
	Components []ComponentSpec `yaml:"components"`

	// Channels are the single-producer/single-consumer rings between
	// components.
	Channels []ChannelSpec `yaml:"channels"`

	// Attestation configures the verifier side.
	Attestation AttestationSpec `yaml:"attestation"`

	// Policies is the known-good allowlist.
	Policies []PolicySpec `yaml:"policies"`
}

// RegionSpec declares one shared memory region.
type RegionSpec struct {
	Name string `yaml:"name"`
	Size uint64 `yaml:"size"`
}

// ComponentSpec declares one component: its arena budget and the
// region access it is granted. A component has no access to anything
// not listed here.
type ComponentSpec struct {
	Name string `yaml:"name"`

	// Arena is the component's allocation budget in bytes; zero means
	// the component does no dynamic allocation.
	Arena uint64 `yaml:"arena"`

	// JobTimeout bounds a single job, for components that run a
	// watchdog. Parsed as a Go duration; empty means no watchdog.
	JobTimeout string `yaml:"job_timeout"`

	Grants []GrantSpec `yaml:"grants"`
}

// GrantSpec grants a component rights on a region. Rights is a subset
// of "rwgx" (read, write, grant, execute).
type GrantSpec struct {
	Region string `yaml:"region"`
	Rights string `yaml:"rights"`
}

// ChannelSpec declares one ring between a fixed producer and a fixed
// consumer.
type ChannelSpec struct {
	Name     string `yaml:"name"`
	Producer string `yaml:"producer"`
	Consumer string `yaml:"consumer"`

	// Entry is the entry record type: "input_event" or "command".
	Entry string `yaml:"entry"`

	// Capacity is the slot count; usable capacity is one less.
	Capacity uint32 `yaml:"capacity"`
}

// AttestationSpec configures the verifier.
type AttestationSpec struct {
	// Selection is the registers every challenge covers.
	Selection []int `yaml:"selection"`

	// ChallengeWindow is how long a challenge accepts a quote, as a Go
	// duration. Empty selects the verifier default.
	ChallengeWindow string `yaml:"challenge_window"`

	// EvidenceDB is the SQLite path for the evidence log.
	EvidenceDB string `yaml:"evidence_db"`
}

// PolicySpec is one known-good state: a register selection and the
// composite digest it must produce, hex encoded.
type PolicySpec struct {
	Name      string `yaml:"name"`
	Selection []int  `yaml:"selection"`
	Composite string `yaml:"composite"`
}

// LoadProfile reads and validates a profile file.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assembly: reading profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile parses and validates profile YAML.
func ParseProfile(data []byte) (*Profile, error) {
	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("assembly: parsing profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Validate checks the profile's internal consistency: unique names,
// references that resolve, parsable rights, durations, and digests.
func (p *Profile) Validate() error {
	var errs []error

	if p.DeviceID == "" {
		errs = append(errs, fmt.Errorf("device_id is required"))
	}

	regions := map[string]bool{}
	for _, region := range p.Regions {
		if region.Name == "" {
			errs = append(errs, fmt.Errorf("region with empty name"))
			continue
		}
		if regions[region.Name] {
			errs = append(errs, fmt.Errorf("duplicate region %q", region.Name))
		}
		regions[region.Name] = true
		if region.Size == 0 {
			errs = append(errs, fmt.Errorf("region %q has zero size", region.Name))
		}
	}

	components := map[string]bool{}
	for _, component := range p.Components {
		if component.Name == "" {
			errs = append(errs, fmt.Errorf("component with empty name"))
			continue
		}
		if components[component.Name] {
			errs = append(errs, fmt.Errorf("duplicate component %q", component.Name))
		}
		components[component.Name] = true

		if component.JobTimeout != "" {
			if _, err := time.ParseDuration(component.JobTimeout); err != nil {
				errs = append(errs, fmt.Errorf("component %q: job_timeout: %w", component.Name, err))
			}
		}
		for _, grant := range component.Grants {
			if !regions[grant.Region] {
				errs = append(errs, fmt.Errorf("component %q: grant on unknown region %q", component.Name, grant.Region))
			}
			if _, err := parseRights(grant.Rights); err != nil {
				errs = append(errs, fmt.Errorf("component %q: %w", component.Name, err))
			}
		}
	}

	channels := map[string]bool{}
	for _, ch := range p.Channels {
		if ch.Name == "" {
			errs = append(errs, fmt.Errorf("channel with empty name"))
			continue
		}
		if channels[ch.Name] {
			errs = append(errs, fmt.Errorf("duplicate channel %q", ch.Name))
		}
		channels[ch.Name] = true

		if !components[ch.Producer] {
			errs = append(errs, fmt.Errorf("channel %q: unknown producer %q", ch.Name, ch.Producer))
		}
		if !components[ch.Consumer] {
			errs = append(errs, fmt.Errorf("channel %q: unknown consumer %q", ch.Name, ch.Consumer))
		}
		if ch.Producer != "" && ch.Producer == ch.Consumer {
			errs = append(errs, fmt.Errorf("channel %q: producer and consumer are both %q", ch.Name, ch.Producer))
		}
		if _, err := entrySize(ch.Entry); err != nil {
			errs = append(errs, fmt.Errorf("channel %q: %w", ch.Name, err))
		}
		if ch.Capacity < 2 {
			errs = append(errs, fmt.Errorf("channel %q: capacity %d cannot hold any entry", ch.Name, ch.Capacity))
		}
	}

	for _, register := range p.Attestation.Selection {
		if register < 0 || register >= measure.NumRegisters {
			errs = append(errs, fmt.Errorf("attestation: register %d out of range", register))
		}
	}
	if p.Attestation.ChallengeWindow != "" {
		if _, err := time.ParseDuration(p.Attestation.ChallengeWindow); err != nil {
			errs = append(errs, fmt.Errorf("attestation: challenge_window: %w", err))
		}
	}

	policyNames := map[string]bool{}
	for _, policy := range p.Policies {
		if policy.Name == "" {
			errs = append(errs, fmt.Errorf("policy with empty name"))
			continue
		}
		if policyNames[policy.Name] {
			errs = append(errs, fmt.Errorf("duplicate policy %q", policy.Name))
		}
		policyNames[policy.Name] = true
		if len(policy.Selection) == 0 {
			errs = append(errs, fmt.Errorf("policy %q: empty selection", policy.Name))
		}
		if _, err := measure.ParseDigest(policy.Composite); err != nil {
			errs = append(errs, fmt.Errorf("policy %q: composite: %w", policy.Name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("assembly: invalid profile: %w", errors.Join(errs...))
	}
	return nil
}
