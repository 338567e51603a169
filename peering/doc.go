// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

// Package peering establishes and runs direct encrypted sessions
// between users.
//
// The Manager is the entry point: it negotiates transport connections
// over a signaling relay (offer/answer plus trickled network-path
// candidates), bootstraps a per-peer AES-256-GCM session key carried
// inside the connection offer, and moves chat traffic over the
// resulting data channel. KeyStore holds session keys in volatile
// memory with zero-on-destroy semantics; Codec seals and opens the
// data-channel frames.
//
// The transport is abstracted behind Network, Conn, and DataChannel.
// WebRTCNetwork is the production implementation; MemoryNetwork is an
// in-process double for tests and demos.
package peering
