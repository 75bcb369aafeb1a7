// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"fmt"
	"math/bits"
	"strings"
)

// Selection is a bitmap naming a subset of registers, bit i for
// register i. Only the low NumRegisters bits are meaningful.
type Selection uint32

// selectionMask keeps a Selection inside the register range.
const selectionMask Selection = (1 << NumRegisters) - 1

// Select builds a Selection from register indexes.
func Select(registers ...int) (Selection, error) {
	var s Selection
	for _, r := range registers {
		if r < 0 || r >= NumRegisters {
			return 0, fmt.Errorf("measure: register %d out of range [0,%d)", r, NumRegisters)
		}
		s |= 1 << r
	}
	return s, nil
}

// Has reports whether the selection includes the register.
func (s Selection) Has(register int) bool {
	return register >= 0 && register < NumRegisters && s&(1<<register) != 0
}

// Count returns the number of selected registers.
func (s Selection) Count() int {
	return bits.OnesCount32(uint32(s & selectionMask))
}

// Registers returns the selected indexes in ascending order.
func (s Selection) Registers() []int {
	registers := make([]int, 0, s.Count())
	for i := 0; i < NumRegisters; i++ {
		if s.Has(i) {
			registers = append(registers, i)
		}
	}
	return registers
}

func (s Selection) String() string {
	var b strings.Builder
	for i, r := range s.Registers() {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%d", r)
	}
	return b.String()
}

// Composite hashes the selected register values, ascending by index,
// into a single digest in the composite domain. The selection bitmap
// itself is folded in first, so the same values under a different
// selection produce a different composite.
func (b *Bank) Composite(s Selection) (Digest, error) {
	s &= selectionMask
	if s == 0 {
		return Digest{}, fmt.Errorf("measure: empty selection")
	}
	values := b.Values()
	return composite(s, values), nil
}

// CompositeOf computes the composite a verifier expects from reported
// register values.
func CompositeOf(s Selection, values [NumRegisters]Digest) (Digest, error) {
	s &= selectionMask
	if s == 0 {
		return Digest{}, fmt.Errorf("measure: empty selection")
	}
	return composite(s, values), nil
}

func composite(s Selection, values [NumRegisters]Digest) Digest {
	data := make([]byte, 4, 4+s.Count()*32)
	data[0] = byte(s >> 24)
	data[1] = byte(s >> 16)
	data[2] = byte(s >> 8)
	data[3] = byte(s)
	for _, r := range s.Registers() {
		data = append(data, values[r][:]...)
	}
	return keyedHash(compositeDomainKey, data)
}

// SealingKey derives key material bound to the selected registers'
// current values. Data sealed under it can only be recovered when the
// registers hold the same values again, which means the same
// measurements were extended in the same order.
func (b *Bank) SealingKey(s Selection) (Digest, error) {
	comp, err := b.Composite(s)
	if err != nil {
		return Digest{}, err
	}
	return keyedHash(sealDomainKey, comp[:]), nil
}
