// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/signet-chat/signet/lib/clock"
)

// DefaultPollInterval is how often the relay is polled for inbound
// envelopes when no interval is configured.
const DefaultPollInterval = 2 * time.Second

// Poller periodically polls a Relay and hands each envelope to a
// handler. Poll failures are logged and retried on the next tick; they
// never propagate. A tick arriving while a poll is still in flight is
// coalesced into the next loop iteration rather than starting a second
// concurrent poll.
type Poller struct {
	relay    Relay
	handler  func(Envelope)
	interval time.Duration
	clk      clock.Clock
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	stop    chan struct{}
	done    chan struct{}
}

// NewPoller creates a poller. The handler is invoked sequentially, one
// envelope at a time, from the poller's goroutine.
func NewPoller(relay Relay, handler func(Envelope), interval time.Duration, clk clock.Clock, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		relay:    relay,
		handler:  handler,
		interval: interval,
		clk:      clk,
		logger:   logger,
	}
}

// Start launches the poll loop. Calling Start on a running poller is a
// no-op: there is never more than one loop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}
	p.started = true
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.loop(ctx, p.stop, p.done)
}

// Stop terminates the loop and waits for it to exit, so no handler
// invocation can happen after Stop returns, including one whose tick
// had already fired. Safe to call multiple times and before Start.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	stop, done := p.stop, p.done
	p.mu.Unlock()

	close(stop)
	<-done
}

func (p *Poller) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := p.clk.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx, stop)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, stop <-chan struct{}) {
	envelopes, err := p.relay.Poll(ctx)
	if err != nil {
		p.logger.Warn("relay poll failed", "error", err)
		return
	}
	for _, envelope := range envelopes {
		// A Stop issued mid-batch drops the rest of the batch: the
		// relay has already discarded these envelopes, but teardown
		// wins over delivery.
		select {
		case <-stop:
			return
		default:
		}
		p.handler(envelope)
	}
}
