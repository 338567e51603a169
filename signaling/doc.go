// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package signaling moves opaque envelopes between two identities
// through an untrusted store-and-forward relay.
//
// The package defines the [Relay] interface (send, poll, clear, ICE
// server discovery) with two implementations: [Client] speaks the
// relay's HTTP API for production, and [MemoryRelay] exchanges
// envelopes through in-process queues for tests and the demo.
// [Server] is the relay side of the same HTTP API, embeddable in tests
// and served standalone by cmd/signet-relay.
//
// [Poller] drives periodic polling on an injected clock. Polls never
// overlap (a tick arriving while a poll is in flight is coalesced into
// the next iteration), poll errors are logged and swallowed, and Stop
// prevents any further handler invocation including one already
// scheduled.
//
// Envelope payloads are opaque here: encryption, decryption, and payload
// interpretation belong to the peering package.
package signaling
