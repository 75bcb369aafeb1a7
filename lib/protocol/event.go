// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package protocol

// EventType identifies the source of an input event.
type EventType uint8

const (
	// EventNone marks an empty slot.
	EventNone EventType = 0
	// EventKey is a keyboard key event.
	EventKey EventType = 1
	// EventRemote is an IR remote button event.
	EventRemote EventType = 2
)

// KeyState is the transition direction of a key event.
type KeyState uint8

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
)

// InputEvent is the fixed 4-byte entry record for the input channel.
// The producer writes every field before the slot is published.
type InputEvent struct {
	// Type is the event source (EventKey, EventRemote).
	Type EventType
	// Code is the key or button code.
	Code uint8
	// State is the key transition (KeyPressed, KeyReleased).
	State uint8
	// Modifiers is a bitmask of held modifier keys.
	Modifiers uint8
}

// InputEventSize is the wire size of one input channel entry.
const InputEventSize = 4

// KeyEvent builds a key event entry.
func KeyEvent(code uint8, state KeyState, modifiers uint8) InputEvent {
	return InputEvent{
		Type:      EventKey,
		Code:      code,
		State:     uint8(state),
		Modifiers: modifiers,
	}
}

// RemoteEvent builds an IR remote button entry.
func RemoteEvent(code uint8) InputEvent {
	return InputEvent{
		Type:  EventRemote,
		Code:  code,
		State: uint8(KeyPressed),
	}
}

// IsKeyPress reports whether the event is a key-down transition.
func (e InputEvent) IsKeyPress() bool {
	return e.Type == EventKey && e.State == uint8(KeyPressed)
}
