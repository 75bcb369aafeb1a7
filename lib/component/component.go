// Copyright 2026 The Trustframe Authors
// SPDX-License-Identifier: Apache-2.0

package component

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trustframe-foundation/trustframe/lib/channel"
)

// A Handler drains one notification source. It runs on the loop
// goroutine: it must drain its channel with non-blocking pops and
// return, never block. Returning an error logs it and continues the
// loop; component state must stay consistent across handler errors.
type Handler func(ctx context.Context) error

type source struct {
	name     string
	doorbell *channel.Doorbell
	handle   Handler
}

// A Loop is a component's single-threaded dispatcher. All handlers run
// sequentially on the goroutine that calls Run, so component state
// needs no locking; the loop's select is the component's only
// suspension point. Producers in other components ring a source's
// doorbell after publishing work.
type Loop struct {
	name    string
	logger  *slog.Logger
	sources []source
	running bool
}

// NewLoop builds a dispatcher for the named component.
func NewLoop(name string, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Loop{name: name, logger: logger.With("component", name)}
}

// AddSource registers a notification source. All sources must be
// registered before Run.
func (l *Loop) AddSource(name string, doorbell *channel.Doorbell, handle Handler) error {
	if l.running {
		return fmt.Errorf("component %s: AddSource after Run", l.name)
	}
	if doorbell == nil || handle == nil {
		return fmt.Errorf("component %s: source %s needs a doorbell and a handler", l.name, name)
	}
	l.sources = append(l.sources, source{name: name, doorbell: doorbell, handle: handle})
	return nil
}

// Run dispatches notifications until ctx is cancelled. Each doorbell
// ring invokes the source's handler on this goroutine. Rings are
// coalesced: one ring covering several published entries is one
// handler call, which is why handlers drain rather than pop once.
func (l *Loop) Run(ctx context.Context) error {
	if len(l.sources) == 0 {
		return fmt.Errorf("component %s: no sources registered", l.name)
	}
	l.running = true
	l.logger.Info("component loop starting", "sources", len(l.sources))

	// Forwarders collapse the per-source doorbells onto one wake
	// channel. Handlers still run only on this goroutine.
	wake := make(chan int)
	forwarderCtx, stopForwarders := context.WithCancel(ctx)
	defer stopForwarders()
	for i := range l.sources {
		go func() {
			for {
				select {
				case <-forwarderCtx.Done():
					return
				case <-l.sources[i].doorbell.Wait():
					select {
					case <-forwarderCtx.Done():
						return
					case wake <- i:
					}
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("component loop stopping", "reason", ctx.Err())
			return ctx.Err()
		case i := <-wake:
			src := &l.sources[i]
			if err := src.handle(ctx); err != nil {
				l.logger.Error("handler failed", "source", src.name, "error", err)
			}
		}
	}
}
