// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package region

import "fmt"

// Rights is a bitmask of access rights over a memory region. Rights on
// a derived capability are always a subset of the parent's rights —
// derivation can only remove bits, never add them.
type Rights uint64

const (
	// Read permits loads from the region.
	Read Rights = 1 << 0
	// Write permits stores to the region.
	Write Rights = 1 << 1
	// Grant permits delegating a capability to another component.
	Grant Rights = 1 << 2
	// Execute permits instruction fetch from the region.
	Execute Rights = 1 << 3
)

// String renders the rights as a compact "rwgx"-style set.
func (r Rights) String() string {
	flags := []struct {
		right Rights
		char  byte
	}{
		{Read, 'r'}, {Write, 'w'}, {Grant, 'g'}, {Execute, 'x'},
	}
	out := make([]byte, 0, len(flags))
	for _, f := range flags {
		if r&f.right != 0 {
			out = append(out, f.char)
		} else {
			out = append(out, '-')
		}
	}
	return string(out)
}

// MemoryRegion is a fixed span of memory assigned to the system at
// assembly time. The region owns its backing storage exclusively;
// components never hold the slice directly, only a Capability
// referencing it. Regions are never resized or reassigned after
// assembly.
type MemoryRegion struct {
	name string
	data []byte
}

// NewMemoryRegion allocates a region of the given size. Name is used
// in diagnostics only. Size is fixed for the region's lifetime.
func NewMemoryRegion(name string, size int) (*MemoryRegion, error) {
	if size <= 0 {
		return nil, fmt.Errorf("region %q: size must be positive, got %d", name, size)
	}
	return &MemoryRegion{
		name: name,
		data: make([]byte, size),
	}, nil
}

// Name returns the region's diagnostic name.
func (m *MemoryRegion) Name() string { return m.name }

// Size returns the region's fixed size in bytes.
func (m *MemoryRegion) Size() int { return len(m.data) }

// Capability is an unforgeable reference to a memory region together
// with the rights the holder may exercise over it. Capabilities are
// issued once per component at system assembly via [GrantRegion] and
// narrowed via [Capability.Derive].
//
// The zero Capability references nothing and holds no rights; every
// access through it fails.
type Capability struct {
	region *MemoryRegion
	rights Rights
}

// GrantRegion issues the root capability for a region. Performed once
// per region at system assembly; all other capabilities for the region
// descend from this one through Derive.
func GrantRegion(region *MemoryRegion, rights Rights) Capability {
	return Capability{region: region, rights: rights}
}

// Rights returns the rights held by this capability.
func (c Capability) Rights() Rights { return c.rights }

// Has reports whether the capability holds every right in the mask.
func (c Capability) Has(mask Rights) bool {
	return c.region != nil && c.rights&mask == mask
}

// Derive returns a child capability whose rights are the intersection
// of this capability's rights and the mask. Rights can only shrink
// across a derivation chain; no sequence of Derive calls can ever
// produce a capability with a right its ancestor lacked.
func (c Capability) Derive(mask Rights) Capability {
	return Capability{region: c.region, rights: c.rights & mask}
}

// AccessError reports a denied region access. In the deployed system
// the enforcement layer is the microkernel; this error models the
// denial for in-process use. A denied component has no recovery path —
// it is simply denied.
type AccessError struct {
	Region string
	Need   Rights
	Held   Rights
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("region %q: access denied: need %s, hold %s", e.Region, e.Need, e.Held)
}

// Bytes returns the region's backing bytes if the capability holds the
// required rights. Callers request the minimal rights they need
// (Read, or Read|Write); the returned slice must not outlive the
// component's use of the capability.
func (c Capability) Bytes(need Rights) ([]byte, error) {
	if c.region == nil {
		return nil, &AccessError{Region: "<none>", Need: need, Held: 0}
	}
	if c.rights&need != need {
		return nil, &AccessError{Region: c.region.name, Need: need, Held: c.rights}
	}
	return c.region.data, nil
}

// RegionSize returns the size of the referenced region, or 0 for the
// zero capability. Size queries require no rights: the size is part of
// the deployment layout, not the region contents.
func (c Capability) RegionSize() int {
	if c.region == nil {
		return 0
	}
	return len(c.region.data)
}
