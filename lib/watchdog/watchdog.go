// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package watchdog

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/trustframe-foundation/trustframe/lib/clock"
)

// A Watchdog bounds how long a single job may run. The component arms
// it before starting a job and disarms it on completion; if the
// deadline fires first, the expiry callback runs and the job is
// considered abandoned. The watchdog cannot preempt the job — it can
// only deny it further progress: the callback typically latches an
// abort flag the job polls, and the component resets the job's arena
// afterward.
//
// One watchdog guards one job at a time. Arming while armed replaces
// the previous deadline.
type Watchdog struct {
	clock   clock.Clock
	timeout time.Duration
	logger  *slog.Logger

	mu         sync.Mutex
	timer      *clock.Timer
	generation uint64
	armed      bool
	expired    uint64
}

// New builds a watchdog with the given per-job timeout.
func New(timeSource clock.Clock, timeout time.Duration, logger *slog.Logger) (*Watchdog, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("watchdog: timeout must be positive, got %v", timeout)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watchdog{clock: timeSource, timeout: timeout, logger: logger}, nil
}

// Arm starts the deadline for a job. If the deadline fires before
// Disarm, onExpire runs once with the job name. A second Arm replaces
// any outstanding deadline; the replaced deadline's callback will not
// fire.
func (w *Watchdog) Arm(job string, onExpire func(job string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.generation++
	w.armed = true
	generation := w.generation

	w.timer = w.clock.AfterFunc(w.timeout, func() {
		if !w.consume(generation) {
			return
		}
		w.logger.Warn("job deadline expired", "job", job, "timeout", w.timeout)
		onExpire(job)
	})
}

// consume claims the expiry for a generation. It returns false when
// the job was disarmed or replaced before the deadline fired.
func (w *Watchdog) consume(generation uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if generation != w.generation || !w.armed {
		return false
	}
	w.armed = false
	w.timer = nil
	w.expired++
	return true
}

// Disarm cancels the outstanding deadline. It reports whether a
// deadline was still pending: false means the watchdog already fired
// and the job must treat itself as abandoned even if it finished.
func (w *Watchdog) Disarm() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.armed {
		return false
	}
	w.armed = false
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.generation++
	return true
}

// Expirations returns how many jobs have been abandoned by deadline.
func (w *Watchdog) Expirations() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.expired
}
