// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"encoding/json"

	"github.com/signet-chat/signet/lib/clock"
)

// State is the observable lifecycle of a peer session.
type State int

const (
	// StateIdle means no session exists for the peer.
	StateIdle State = iota
	// StateConnecting means negotiation is in progress.
	StateConnecting
	// StateConnected means the direct data channel is usable.
	StateConnected
	// StateFailed is terminal: negotiation or transport failed.
	StateFailed
	// StateDisconnected is terminal: the session was torn down.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
// A new Connect or inbound offer replaces a terminal session with a
// fresh one.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateDisconnected
}

// peerSession is the per-peer negotiation record. The Manager's mutex
// guards every field; the conn and channel handles are owned
// exclusively by this session and closed exactly once on teardown.
//
// Continuations of suspended operations (description application,
// relay sends, timer callbacks) re-check that the session is still the
// current entry for its peer before mutating it; effects of stale
// continuations are discarded.
type peerSession struct {
	peerID string
	conn   Conn

	// channel is nil until the local side creates it (initiator) or
	// the remote side offers it (responder).
	channel DataChannel

	state State

	// remoteApplied flips to true after the remote description has
	// been fully applied. Candidates arriving earlier wait in pending;
	// the queue is swap-drained so appends racing a drain land in the
	// next pass, never lost and never applied twice.
	remoteApplied bool
	pending       []json.RawMessage

	// peerKey is the peer's published public key, empty when the
	// directory lookup failed. Signaling payloads to this peer are
	// sent in clear when empty.
	peerKey string

	// timeout bounds time spent in StateConnecting. Nil when disabled
	// or already stopped.
	timeout *clock.Timer
}

// offerPayload is the pre-encryption connection-offer payload. The
// session key rides inside the offer; the answer never carries one.
type offerPayload struct {
	SDP    string `json:"sdp"`
	Type   string `json:"type"`
	AESKey string `json:"aesKey"`
}

// answerPayload is the pre-encryption connection-answer payload.
type answerPayload struct {
	SDP  string `json:"sdp"`
	Type string `json:"type"`
}
