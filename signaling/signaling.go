// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"context"
	"fmt"
)

// Kind identifies what an envelope carries.
type Kind string

const (
	// KindOffer is a connection offer with an embedded session key.
	KindOffer Kind = "offer"
	// KindAnswer is the response to an offer.
	KindAnswer Kind = "answer"
	// KindCandidate is a network-path (ICE) candidate.
	KindCandidate Kind = "ice"
)

// Valid reports whether k is one of the three wire kinds.
func (k Kind) Valid() bool {
	return k == KindOffer || k == KindAnswer || k == KindCandidate
}

// Envelope is one unit of relay exchange. Payload is age-armored
// ciphertext when the sender knew the recipient's public key, plaintext
// JSON otherwise. The relay delivers each envelope at most once per
// poll and discards it server-side.
type Envelope struct {
	From      string `json:"from_user"`
	Kind      Kind   `json:"type"`
	Payload   string `json:"encrypted_payload"`
	Timestamp string `json:"timestamp"`
}

// ICEServers is the network-path discovery server list used to
// initialize every transport connection.
type ICEServers struct {
	STUNServers []string     `json:"stun_servers"`
	TURNServers []TURNServer `json:"turn_servers"`
}

// TURNServer is one TURN entry with its time-limited credential.
type TURNServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username"`
	Credential string   `json:"credential"`
}

// Relay delivers envelopes between identities. Implementations: Client
// (HTTP) and MemoryRelay (in-process).
type Relay interface {
	// Send queues an envelope for the recipient. Returns *DeliveryError
	// when the relay rejects or is unreachable.
	Send(ctx context.Context, to string, kind Kind, payload string) error

	// Poll returns the envelopes addressed to the local identity since
	// the previous poll. Delivered envelopes are discarded relay-side.
	// Never blocks beyond the request itself.
	Poll(ctx context.Context) ([]Envelope, error)

	// Clear discards all queued envelopes for the local identity and
	// returns how many were dropped.
	Clear(ctx context.Context) (int, error)

	// ICEServers returns the STUN/TURN server list.
	ICEServers(ctx context.Context) (ICEServers, error)
}

// DeliveryError reports a failed Send. Offer and answer sends are
// retryable by the caller; candidate sends are best-effort and callers
// swallow this error.
type DeliveryError struct {
	To   string
	Kind Kind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("signaling: delivering %s to %s: %v", e.Kind, e.To, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
