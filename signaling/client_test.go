// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRelay wires a Client to an in-process Server over httptest.
func newTestRelay(t *testing.T, localID string) (*Client, *Server) {
	t.Helper()

	server := NewServer(discardLogger())
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)

	client, err := NewClient(ClientConfig{
		RelayURL: httpServer.URL,
		LocalID:  localID,
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func TestSendThenPollDelivers(t *testing.T) {
	ctx := context.Background()
	alice, _ := newTestRelay(t, "alice")

	if err := alice.Send(ctx, "bob", KindOffer, `{"sdp":"v=0"}`); err != nil {
		t.Fatalf("Send: %v", err)
	}

	// Poll as bob against the same relay.
	bob, err := NewClient(ClientConfig{
		RelayURL: alice.baseURL,
		LocalID:  "bob",
		Logger:   discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	envelopes, err := bob.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(envelopes) != 1 {
		t.Fatalf("Poll returned %d envelopes, want 1", len(envelopes))
	}
	envelope := envelopes[0]
	if envelope.From != "alice" || envelope.Kind != KindOffer || envelope.Payload != `{"sdp":"v=0"}` {
		t.Errorf("envelope = %+v", envelope)
	}
	if envelope.Timestamp == "" {
		t.Error("envelope has no timestamp")
	}

	// Delivered envelopes are discarded relay-side.
	envelopes, err = bob.Poll(ctx)
	if err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if len(envelopes) != 0 {
		t.Errorf("second Poll returned %d envelopes, want 0", len(envelopes))
	}
}

func TestPollPreservesOrder(t *testing.T) {
	ctx := context.Background()
	alice, _ := newTestRelay(t, "alice")

	payloads := []string{"first", "second", "third"}
	for _, payload := range payloads {
		if err := alice.Send(ctx, "bob", KindCandidate, payload); err != nil {
			t.Fatalf("Send(%s): %v", payload, err)
		}
	}

	bob, err := NewClient(ClientConfig{RelayURL: alice.baseURL, LocalID: "bob", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	envelopes, err := bob.Poll(ctx)
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if len(envelopes) != len(payloads) {
		t.Fatalf("Poll returned %d envelopes, want %d", len(envelopes), len(payloads))
	}
	for index, payload := range payloads {
		if envelopes[index].Payload != payload {
			t.Errorf("envelope[%d].Payload = %s, want %s", index, envelopes[index].Payload, payload)
		}
	}
}

func TestClearReportsDroppedCount(t *testing.T) {
	ctx := context.Background()
	alice, _ := newTestRelay(t, "alice")

	for i := 0; i < 3; i++ {
		if err := alice.Send(ctx, "bob", KindCandidate, "c"); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}

	bob, err := NewClient(ClientConfig{RelayURL: alice.baseURL, LocalID: "bob", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	dropped, err := bob.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if dropped != 3 {
		t.Errorf("Clear = %d, want 3", dropped)
	}

	envelopes, _ := bob.Poll(ctx)
	if len(envelopes) != 0 {
		t.Errorf("Poll after Clear returned %d envelopes, want 0", len(envelopes))
	}
}

func TestICEServersRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, server := newTestRelay(t, "alice")

	want := ICEServers{
		STUNServers: []string{"stun:stun.example.net:3478"},
		TURNServers: []TURNServer{{
			URLs:       []string{"turn:turn.example.net:3478"},
			Username:   "u",
			Credential: "c",
		}},
	}
	server.SetICEServers(want)

	got, err := client.ICEServers(ctx)
	if err != nil {
		t.Fatalf("ICEServers: %v", err)
	}
	if len(got.STUNServers) != 1 || got.STUNServers[0] != want.STUNServers[0] {
		t.Errorf("STUNServers = %v, want %v", got.STUNServers, want.STUNServers)
	}
	if len(got.TURNServers) != 1 || got.TURNServers[0].Username != "u" {
		t.Errorf("TURNServers = %v, want %v", got.TURNServers, want.TURNServers)
	}
}

func TestSendReturnsDeliveryErrorOnServerFailure(t *testing.T) {
	httpServer := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		http.Error(writer, "relay on fire", http.StatusInternalServerError)
	}))
	defer httpServer.Close()

	client, err := NewClient(ClientConfig{RelayURL: httpServer.URL, LocalID: "alice", Logger: discardLogger()})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	err = client.Send(context.Background(), "bob", KindOffer, "{}")
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send error = %v, want *DeliveryError", err)
	}
	if deliveryErr.To != "bob" || deliveryErr.Kind != KindOffer {
		t.Errorf("DeliveryError = %+v", deliveryErr)
	}
}

func TestSendRejectedByValidation(t *testing.T) {
	client, _ := newTestRelay(t, "alice")

	// The server rejects unknown kinds; the client surfaces it as a
	// DeliveryError.
	err := client.Send(context.Background(), "bob", Kind("bogus"), "{}")
	var deliveryErr *DeliveryError
	if !errors.As(err, &deliveryErr) {
		t.Fatalf("Send error = %v, want *DeliveryError", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(ClientConfig{LocalID: "alice"}); err == nil {
		t.Error("NewClient without RelayURL succeeded")
	}
	if _, err := NewClient(ClientConfig{RelayURL: "http://relay"}); err == nil {
		t.Error("NewClient without LocalID succeeded")
	}
}

func TestKindValid(t *testing.T) {
	for _, kind := range []Kind{KindOffer, KindAnswer, KindCandidate} {
		if !kind.Valid() {
			t.Errorf("Kind(%s).Valid() = false, want true", kind)
		}
	}
	if Kind("chat").Valid() {
		t.Error(`Kind("chat").Valid() = true, want false`)
	}
}
