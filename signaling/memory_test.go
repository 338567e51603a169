// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryHubRoutesBetweenEndpoints(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryHub()
	alice := hub.Endpoint("alice")
	bob := hub.Endpoint("bob")

	if err := alice.Send(ctx, "bob", KindOffer, "offer payload"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	envelopes, err := bob.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("Poll returned %d envelopes, want 1", len(envelopes))
	}
	if envelopes[0].From != "alice" || envelopes[0].Payload != "offer payload" {
		t.Errorf("envelope = %+v", envelopes[0])
	}

	// alice's own queue stays empty.
	envelopes, _ = alice.Poll(ctx)
	if len(envelopes) != 0 {
		t.Errorf("alice received %d envelopes, want 0", len(envelopes))
	}
}

func TestMemoryHubPollDrains(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryHub()
	hub.Endpoint("alice").Send(ctx, "bob", KindCandidate, "c1")

	bob := hub.Endpoint("bob")
	if envelopes, _ := bob.Poll(ctx); len(envelopes) != 1 {
		t.Fatalf("first Poll returned %d, want 1", len(envelopes))
	}
	if envelopes, _ := bob.Poll(ctx); len(envelopes) != 0 {
		t.Errorf("second Poll returned %d, want 0", len(envelopes))
	}
}

func TestMemoryHubDropSends(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryHub()
	hub.SetDropSends(true)

	err := hub.Endpoint("alice").Send(ctx, "bob", KindOffer, "lost")
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send error = %v, want *DeliveryError", err)
	}

	hub.SetDropSends(false)
	if err := hub.Endpoint("alice").Send(ctx, "bob", KindOffer, "kept"); err != nil {
		t.Fatalf("Send after re-enabling: %v", err)
	}
}

func TestMemoryHubICEServers(t *testing.T) {
	hub := NewMemoryHub()
	hub.SetICEServers(ICEServers{STUNServers: []string{"stun:local"}})

	ice, err := hub.Endpoint("alice").ICEServers(context.Background())
	if err != nil {
		t.Fatalf("ICEServers: %v", err)
	}
	if len(ice.STUNServers) != 1 || ice.STUNServers[0] != "stun:local" {
		t.Errorf("ICEServers = %+v", ice)
	}
}

func TestMemoryHubClear(t *testing.T) {
	ctx := context.Background()
	hub := NewMemoryHub()
	hub.Endpoint("alice").Send(ctx, "bob", KindCandidate, "c1")
	hub.Endpoint("alice").Send(ctx, "bob", KindCandidate, "c2")

	dropped, err := hub.Endpoint("bob").Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if dropped != 2 {
		t.Errorf("Clear = %d, want 2", dropped)
	}
}
