// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import "fmt"

// A Policy names a known-good platform state: the composite the
// selected registers must produce. Deployments carry one policy per
// accepted software version.
type Policy struct {
	// Name identifies the policy in logs and evidence records.
	Name string `cbor:"1,keyasint" yaml:"name"`
	// Selection names the registers the composite covers.
	Selection Selection `cbor:"2,keyasint" yaml:"selection"`
	// Composite is the expected composite digest.
	Composite Digest `cbor:"3,keyasint" yaml:"composite"`
}

// Satisfies reports whether reported register values match the policy.
// The comparison is constant time; which policy matched is not
// secret, but the digest bytes must not leak through timing.
func (p Policy) Satisfies(values [NumRegisters]Digest) bool {
	comp, err := CompositeOf(p.Selection, values)
	if err != nil {
		return false
	}
	return Equal(comp, p.Composite)
}

// IsKnownGood checks reported values against an allowlist of policies
// and returns the name of the first match. Every policy is evaluated
// even after a match, so the number of comparisons does not reveal
// which entry matched.
func IsKnownGood(policies []Policy, values [NumRegisters]Digest) (string, bool) {
	matched := ""
	found := false
	for _, p := range policies {
		if p.Satisfies(values) && !found {
			matched = p.Name
			found = true
		}
	}
	return matched, found
}

// PolicyFor captures the bank's current state as a policy, for
// enrolling a device's measured state as known good.
func (b *Bank) PolicyFor(name string, s Selection) (Policy, error) {
	comp, err := b.Composite(s)
	if err != nil {
		return Policy{}, fmt.Errorf("capturing policy %q: %w", name, err)
	}
	return Policy{Name: name, Selection: s, Composite: comp}, nil
}
