// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSealed is returned by mutating bank operations after Seal.
var ErrSealed = errors.New("measure: bank is sealed")

// NumRegisters is the number of platform configuration registers in a
// bank.
const NumRegisters = 24

// DebugRegister is the only register that may be reset at runtime.
// Everything else is extend-only for the life of the bank.
const DebugRegister = 16

// Stage identifies a boot stage whose artifact is measured into a
// well-known register. The register assignment is fixed across builds;
// verifier policy depends on it.
type Stage int

// StageUnknown marks log entries from raw Extend calls that are not
// tied to a boot stage.
const StageUnknown Stage = -1

const (
	StageFirmware Stage = iota
	StageKernel
	StageSystem
	StageImage
	StageRuntime
	StageSecureBoot
	StageDebug
)

var stageRegisters = map[Stage]int{
	StageFirmware:   0,
	StageKernel:     1,
	StageSystem:     2,
	StageImage:      3,
	StageRuntime:    4,
	StageSecureBoot: 7,
	StageDebug:      DebugRegister,
}

// Register returns the register the stage's measurements extend into.
func (s Stage) Register() (int, error) {
	index, ok := stageRegisters[s]
	if !ok {
		return 0, fmt.Errorf("measure: unknown stage %d", int(s))
	}
	return index, nil
}

func (s Stage) String() string {
	switch s {
	case StageFirmware:
		return "firmware"
	case StageKernel:
		return "kernel"
	case StageSystem:
		return "system"
	case StageImage:
		return "image"
	case StageRuntime:
		return "runtime"
	case StageSecureBoot:
		return "secure-boot"
	case StageDebug:
		return "debug"
	case StageUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("stage %d", int(s))
	}
}

// A LogEntry records one extension: which register, what was measured,
// and a free-form description of the artifact. The log is the evidence
// that lets a verifier replay the register values.
type LogEntry struct {
	Register    int    `cbor:"1,keyasint"`
	Stage       Stage  `cbor:"2,keyasint"`
	Measurement Digest `cbor:"3,keyasint"`
	Description string `cbor:"4,keyasint"`
}

// Bank is a bank of extend-only measurement registers with an
// append-only event log. Registers start at zero; each extension folds
// a measurement into the register's hash chain. There is no operation
// that sets a register to an arbitrary value.
type Bank struct {
	mu        sync.Mutex
	registers [NumRegisters]Digest
	log       []LogEntry
	lastStage Stage
	sealed    bool
}

// NewBank returns a bank with all registers zero and an empty log.
func NewBank() *Bank {
	return &Bank{lastStage: StageUnknown}
}

// Extend folds a measurement into the given register and returns the
// new register value. The only way to reach a given value is to extend
// the same measurements in the same order from reset.
func (b *Bank) Extend(register int, measurement Digest) (Digest, error) {
	return b.extend(register, StageUnknown, measurement, "")
}

// ExtendStage measures an artifact's bytes and extends the stage's
// register, recording the description in the log.
func (b *Bank) ExtendStage(stage Stage, data []byte, description string) (Digest, error) {
	register, err := stage.Register()
	if err != nil {
		return Digest{}, err
	}
	return b.extend(register, stage, MeasureData(data), description)
}

func (b *Bank) extend(register int, stage Stage, measurement Digest, description string) (Digest, error) {
	if register < 0 || register >= NumRegisters {
		return Digest{}, fmt.Errorf("measure: register %d out of range [0,%d)", register, NumRegisters)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return Digest{}, ErrSealed
	}
	// Boot pipeline stages extend in pipeline order. A firmware
	// measurement arriving after the kernel was measured is not a
	// replayable boot; it is evidence of tampering.
	if stage >= StageFirmware && stage <= StageRuntime {
		if b.lastStage > stage {
			return Digest{}, fmt.Errorf("measure: stage %v measured after %v breaks boot order", stage, b.lastStage)
		}
		b.lastStage = stage
	}
	b.registers[register] = extendChain(b.registers[register], measurement)
	b.log = append(b.log, LogEntry{
		Register:    register,
		Stage:       stage,
		Measurement: measurement,
		Description: description,
	})
	return b.registers[register], nil
}

// ResetDebug zeroes the debug register. No other register can be
// reset, and a sealed bank cannot be reset at all.
func (b *Bank) ResetDebug() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sealed {
		return ErrSealed
	}
	b.registers[DebugRegister] = Digest{}
	return nil
}

// Seal closes the measurement chain. Every later Extend, ExtendStage,
// and ResetDebug fails with ErrSealed. Boot calls this once the
// runtime is measured, so nothing that runs afterward can rewrite the
// story the registers tell. Sealing is irreversible.
func (b *Bank) Seal() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sealed = true
}

// Sealed reports whether the chain has been sealed.
func (b *Bank) Sealed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sealed
}

// Value returns the current value of one register.
func (b *Bank) Value(register int) (Digest, error) {
	if register < 0 || register >= NumRegisters {
		return Digest{}, fmt.Errorf("measure: register %d out of range [0,%d)", register, NumRegisters)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registers[register], nil
}

// Values returns a snapshot of all registers.
func (b *Bank) Values() [NumRegisters]Digest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.registers
}

// Log returns a copy of the event log in extension order.
func (b *Bank) Log() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LogEntry(nil), b.log...)
}

// Replay recomputes register values from an event log alone. A
// verifier uses this to check that a reported log actually produces
// the reported register values.
func Replay(log []LogEntry) ([NumRegisters]Digest, error) {
	var registers [NumRegisters]Digest
	for i, entry := range log {
		if entry.Register < 0 || entry.Register >= NumRegisters {
			return registers, fmt.Errorf("measure: log entry %d: register %d out of range", i, entry.Register)
		}
		registers[entry.Register] = extendChain(registers[entry.Register], entry.Measurement)
	}
	return registers, nil
}

// VerifyLog replays a log and compares the result against reported
// register values, in constant time per register. It returns the
// index of the first mismatching register, or -1 if all match.
func VerifyLog(log []LogEntry, reported [NumRegisters]Digest) (int, error) {
	replayed, err := Replay(log)
	if err != nil {
		return -1, err
	}
	for i := range replayed {
		if !Equal(replayed[i], reported[i]) {
			return i, fmt.Errorf("measure: register %d does not match its log", i)
		}
	}
	return -1, nil
}
