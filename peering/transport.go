// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"encoding/json"

	"github.com/signet-chat/signet/signaling"
)

// ConnState is the transport connection's lifecycle state, as reported
// by the adapter's state-change callback.
type ConnState int

const (
	// ConnNew covers everything before connectivity is decided
	// (gathering, checking).
	ConnNew ConnState = iota
	// ConnConnected means a working network path exists.
	ConnConnected
	// ConnDisconnected means the path was lost or closed normally.
	ConnDisconnected
	// ConnFailed means connectivity could not be established or was
	// lost irrecoverably.
	ConnFailed
	// ConnClosed means Close was called locally.
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnNew:
		return "new"
	case ConnConnected:
		return "connected"
	case ConnDisconnected:
		return "disconnected"
	case ConnFailed:
		return "failed"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is the capability surface the negotiation state machine needs
// from a transport connection. The production implementation wraps a
// pion PeerConnection; MemoryNetwork provides an in-process double.
// Keeping the state machine against this interface keeps it independent
// of any concrete transport library.
//
// Callback registration must happen before the first offer/answer call;
// callbacks may fire from transport-internal goroutines.
type Conn interface {
	// CreateOffer builds a local description of kind "offer", applies
	// it locally (starting candidate discovery), and returns its SDP.
	CreateOffer(ctx context.Context) (string, error)

	// CreateAnswer builds and locally applies a description of kind
	// "answer" for a previously applied remote offer.
	CreateAnswer(ctx context.Context) (string, error)

	// SetRemoteDescription applies the peer's description. kind is
	// "offer" or "answer".
	SetRemoteDescription(ctx context.Context, kind, sdp string) error

	// AddCandidate applies a remote network-path candidate. The raw
	// bytes are the candidate structure as produced by the remote
	// side's OnCandidate, passed through opaquely.
	AddCandidate(candidate json.RawMessage) error

	// CreateDataChannel opens an outbound bidirectional channel.
	CreateDataChannel(label string) (DataChannel, error)

	// OnDataChannel registers the handler for channels opened by the
	// remote side.
	OnDataChannel(handler func(DataChannel))

	// OnCandidate registers the handler for locally discovered
	// network-path candidates.
	OnCandidate(handler func(json.RawMessage))

	// OnStateChange registers the connectivity state handler.
	OnStateChange(handler func(ConnState))

	// Close tears the connection down. Idempotent.
	Close() error
}

// DataChannel is a bidirectional ordered message channel atop an
// established Conn.
type DataChannel interface {
	// Label identifies the channel within its connection.
	Label() string

	// Send transmits one message. Fails when the channel is not open.
	Send(data []byte) error

	// OnOpen registers the handler fired when the channel becomes
	// usable.
	OnOpen(handler func())

	// OnMessage registers the inbound message handler.
	OnMessage(handler func(data []byte))

	// Open reports whether Send would currently succeed.
	Open() bool

	// Close closes the channel. Idempotent.
	Close() error
}

// Network creates transport connections. Injected into the Manager so
// tests swap the pion implementation for MemoryNetwork.
type Network interface {
	NewConn(ice signaling.ICEServers) (Conn, error)
}
