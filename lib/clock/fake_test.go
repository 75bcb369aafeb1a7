// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

func TestFakeNow(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	if got := fake.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	fake.Advance(90 * time.Second)
	if got := fake.Now(); !got.Equal(start.Add(90 * time.Second)) {
		t.Errorf("Now() after Advance = %v, want %v", got, start.Add(90*time.Second))
	}
}

func TestFakeAfterFiresInOrder(t *testing.T) {
	fake := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	first := fake.After(time.Second)
	second := fake.After(2 * time.Second)

	fake.Advance(3 * time.Second)

	firstTime := <-first
	secondTime := <-second
	if !firstTime.Before(secondTime) {
		t.Errorf("first waiter fired at %v, second at %v; want first earlier", firstTime, secondTime)
	}
}

func TestFakeAfterNotYetDue(t *testing.T) {
	fake := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	ch := fake.After(time.Minute)
	fake.Advance(30 * time.Second)

	select {
	case <-ch:
		t.Fatal("waiter fired before its deadline")
	default:
	}

	fake.Advance(30 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("waiter did not fire at its deadline")
	}
}

func TestFakeAfterFuncStop(t *testing.T) {
	fake := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	fired := false
	timer := fake.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Error("Stop() = false on an active timer, want true")
	}
	fake.Advance(2 * time.Second)
	if fired {
		t.Error("stopped AfterFunc callback still fired")
	}
}

func TestFakeAfterFuncImmediate(t *testing.T) {
	fake := Fake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	fired := false
	fake.AfterFunc(0, func() { fired = true })
	if !fired {
		t.Error("AfterFunc with zero duration did not run synchronously")
	}
}
