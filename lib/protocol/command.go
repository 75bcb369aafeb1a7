// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// CommandType is the one-byte discriminator for coarse control
// messages between components.
type CommandType uint8

const (
	CmdNone CommandType = 0
	// CmdNext advances to the next photo.
	CmdNext CommandType = 1
	// CmdPrev returns to the previous photo.
	CmdPrev CommandType = 2
	// CmdPause suspends the slideshow timer.
	CmdPause CommandType = 3
	// CmdResume restarts the slideshow timer.
	CmdResume CommandType = 4
	// CmdGoto jumps to the photo at TargetIndex.
	CmdGoto CommandType = 5
	// CmdLoadComplete notifies that a decode finished and the frame
	// region holds a ready image.
	CmdLoadComplete CommandType = 6
	// CmdLoadError notifies that a decode was rejected or failed.
	CmdLoadError CommandType = 7
)

// ValidCommandType reports whether t is a known command discriminator.
func ValidCommandType(t CommandType) bool {
	return t <= CmdLoadError
}

// Command is the fixed 8-byte entry record for the command channel.
type Command struct {
	// Type is the command discriminator.
	Type CommandType
	// Flags is reserved.
	Flags uint8
	// TargetIndex is the photo index for CmdGoto; zero otherwise.
	TargetIndex uint16
	_           uint32
}

// CommandSize is the wire size of one command channel entry.
const CommandSize = 8

// NextCommand builds a CmdNext entry.
func NextCommand() Command { return Command{Type: CmdNext} }

// PrevCommand builds a CmdPrev entry.
func PrevCommand() Command { return Command{Type: CmdPrev} }

// GotoCommand builds a CmdGoto entry targeting the given photo index.
func GotoCommand(index uint16) Command {
	return Command{Type: CmdGoto, TargetIndex: index}
}

// LoadComplete builds a CmdLoadComplete entry.
func LoadComplete() Command { return Command{Type: CmdLoadComplete} }

// LoadError builds a CmdLoadError entry.
func LoadError() Command { return Command{Type: CmdLoadError} }
