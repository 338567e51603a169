// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"errors"
	"fmt"
)

// ErrNoKey is returned by the codec when no session key is installed
// for the peer. Callers treat it as a valid state: outbound messages
// fall back to plaintext frames rather than being dropped.
var ErrNoKey = errors.New("peering: no session key installed for peer")

// AuthenticationError reports an AEAD tag verification failure on an
// inbound frame. The frame is dropped and the failure surfaced once via
// the error callback.
type AuthenticationError struct {
	Peer string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("peering: message authentication failed for %s", e.Peer)
}

// NegotiationError reports a failure while constructing, applying, or
// sending a description. It moves the session to StateFailed.
type NegotiationError struct {
	Peer  string
	Stage string
	Err   error
}

func (e *NegotiationError) Error() string {
	return fmt.Sprintf("peering: negotiation with %s failed at %s: %v", e.Peer, e.Stage, e.Err)
}

func (e *NegotiationError) Unwrap() error { return e.Err }

// DecodeError reports an inbound envelope whose payload could be
// neither decrypted nor parsed. Such envelopes are logged and dropped
// with no callback and no retry; the type exists so log lines carry a
// stable shape.
type DecodeError struct {
	Peer string
	Kind string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("peering: undecodable %s payload from %s: %v", e.Kind, e.Peer, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
