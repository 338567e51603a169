// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"sync"
	"time"
)

// MemoryHub is an in-process relay shared by several MemoryRelay
// endpoints. Tests and the demo connect two managers through one hub,
// bypassing HTTP entirely.
type MemoryHub struct {
	mu     sync.Mutex
	queues map[string][]Envelope
	ice    ICEServers

	// dropSends, when set, makes every Send fail with a DeliveryError.
	// Tests use it to exercise unreachable-relay behavior.
	dropSends bool
}

// NewMemoryHub creates an empty hub with no ICE servers (host
// candidates only).
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{queues: make(map[string][]Envelope)}
}

// SetICEServers configures what Endpoint.ICEServers returns.
func (h *MemoryHub) SetICEServers(servers ICEServers) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ice = servers
}

// SetDropSends toggles simulated relay unreachability.
func (h *MemoryHub) SetDropSends(drop bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropSends = drop
}

// Endpoint returns the hub viewed from one identity.
func (h *MemoryHub) Endpoint(localID string) *MemoryRelay {
	return &MemoryRelay{hub: h, localID: localID}
}

// MemoryRelay is one identity's view of a MemoryHub.
type MemoryRelay struct {
	hub     *MemoryHub
	localID string
}

// Compile-time interface check.
var _ Relay = (*MemoryRelay)(nil)

func (r *MemoryRelay) Send(_ context.Context, to string, kind Kind, payload string) error {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	if r.hub.dropSends {
		return &DeliveryError{To: to, Kind: kind, Err: context.DeadlineExceeded}
	}

	r.hub.queues[to] = append(r.hub.queues[to], Envelope{
		From:      r.localID,
		Kind:      kind,
		Payload:   payload,
		Timestamp: Stamp(time.Now()),
	})
	return nil
}

// Poll returns and discards every queued envelope for the local
// identity, matching the relay's poll-and-delete contract.
func (r *MemoryRelay) Poll(_ context.Context) ([]Envelope, error) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	delivered := r.hub.queues[r.localID]
	delete(r.hub.queues, r.localID)
	return delivered, nil
}

func (r *MemoryRelay) Clear(_ context.Context) (int, error) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()

	dropped := len(r.hub.queues[r.localID])
	delete(r.hub.queues, r.localID)
	return dropped, nil
}

func (r *MemoryRelay) ICEServers(_ context.Context) (ICEServers, error) {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	return r.hub.ice, nil
}
