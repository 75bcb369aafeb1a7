// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/clock"
)

func newTestWatchdog(t *testing.T, timeout time.Duration) (*Watchdog, *clock.FakeClock) {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	w, err := New(fake, timeout, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return w, fake
}

func TestExpiryFiresOnce(t *testing.T) {
	w, fake := newTestWatchdog(t, time.Second)

	var fired atomic.Int32
	w.Arm("decode photo-3", func(job string) {
		if job != "decode photo-3" {
			t.Errorf("onExpire job = %q", job)
		}
		fired.Add(1)
	})

	fake.Advance(2 * time.Second)
	if fired.Load() != 1 {
		t.Fatalf("callback fired %d times, want 1", fired.Load())
	}
	if w.Expirations() != 1 {
		t.Errorf("Expirations() = %d, want 1", w.Expirations())
	}

	// A late Disarm reports that the deadline already fired.
	if w.Disarm() {
		t.Error("Disarm() = true after expiry")
	}
	fake.Advance(10 * time.Second)
	if fired.Load() != 1 {
		t.Errorf("callback fired %d times after further advance, want 1", fired.Load())
	}
}

func TestDisarmBeforeDeadline(t *testing.T) {
	w, fake := newTestWatchdog(t, time.Second)

	var fired atomic.Int32
	w.Arm("decode photo-0", func(string) { fired.Add(1) })
	if !w.Disarm() {
		t.Fatal("Disarm() = false with a pending deadline")
	}
	fake.Advance(5 * time.Second)
	if fired.Load() != 0 {
		t.Errorf("callback fired %d times after disarm, want 0", fired.Load())
	}
	if w.Expirations() != 0 {
		t.Errorf("Expirations() = %d, want 0", w.Expirations())
	}
}

func TestRearmReplacesDeadline(t *testing.T) {
	w, fake := newTestWatchdog(t, time.Second)

	var firstFired, secondFired atomic.Int32
	w.Arm("job-1", func(string) { firstFired.Add(1) })
	fake.Advance(500 * time.Millisecond)
	w.Arm("job-2", func(string) { secondFired.Add(1) })

	// The first deadline would have fired here; it was replaced.
	fake.Advance(700 * time.Millisecond)
	if firstFired.Load() != 0 {
		t.Errorf("replaced deadline fired %d times, want 0", firstFired.Load())
	}
	if secondFired.Load() != 0 {
		t.Errorf("second deadline fired %d times early, want 0", secondFired.Load())
	}

	fake.Advance(400 * time.Millisecond)
	if secondFired.Load() != 1 {
		t.Errorf("second deadline fired %d times, want 1", secondFired.Load())
	}
}

func TestNewRejectsBadTimeout(t *testing.T) {
	fake := clock.Fake(time.Unix(0, 0))
	if _, err := New(fake, 0, nil); err == nil {
		t.Error("New(timeout=0) succeeded")
	}
}
