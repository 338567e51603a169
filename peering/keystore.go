// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/signet-chat/signet/identity"
)

// KeySize is the session key length: 32 bytes, AES-256.
const KeySize = 32

// KeyStore holds one symmetric session key per peer, in volatile memory
// only. Keys are never persisted. Destroy overwrites the key bytes with
// zeros before dropping the entry, so a slice captured from Get cannot
// leak key material past teardown.
//
// Get and Generate return the stored slice itself, not a copy: the
// zeroization guarantee depends on it. Callers must treat the slice as
// read-only and must not retain it past the session's lifetime.
type KeyStore struct {
	logger *slog.Logger

	mu   sync.Mutex
	keys map[string][]byte
}

// NewKeyStore creates an empty key store.
func NewKeyStore(logger *slog.Logger) *KeyStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &KeyStore{
		logger: logger,
		keys:   make(map[string][]byte),
	}
}

// Generate produces a fresh random session key for the peer,
// overwriting (and zeroing) any prior key. Returns the stored key.
func (s *KeyStore) Generate(peerID string) ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("peering: generating session key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(peerID, key)

	s.logger.Debug("session key generated",
		"peer", peerID,
		"key_fingerprint", identity.Fingerprint(key),
	)
	return key, nil
}

// Set installs externally supplied key material (received in a peer's
// offer), overwriting any prior key. The source slice is copied and
// then zeroed, so the caller's buffer no longer holds the secret.
func (s *KeyStore) Set(peerID string, key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("peering: session key must be %d bytes, got %d", KeySize, len(key))
	}

	stored := make([]byte, KeySize)
	copy(stored, key)
	zero(key)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(peerID, stored)

	s.logger.Debug("session key installed",
		"peer", peerID,
		"key_fingerprint", identity.Fingerprint(stored),
	)
	return nil
}

// Get returns the peer's session key, or false when none is installed.
// Absence is a valid state, not an error.
func (s *KeyStore) Get(peerID string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[peerID]
	return key, ok
}

// ExportEncoded returns the peer's key as base64 text for embedding in
// an offer payload, or false when none is installed.
func (s *KeyStore) ExportEncoded(peerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.keys[peerID]
	if !ok {
		return "", false
	}
	return base64.StdEncoding.EncodeToString(key), true
}

// Destroy zeroes the peer's key bytes and removes the entry. Called on
// every path that tears down a peer session. No-op for unknown peers.
func (s *KeyStore) Destroy(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.keys[peerID]
	if !ok {
		return
	}
	zero(key)
	delete(s.keys, peerID)
}

// DestroyAll zeroes and removes every stored key. Called on shutdown.
func (s *KeyStore) DestroyAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for peerID, key := range s.keys {
		zero(key)
		delete(s.keys, peerID)
	}
}

// replaceLocked installs key for peerID, zeroing any prior key first.
func (s *KeyStore) replaceLocked(peerID string, key []byte) {
	if previous, ok := s.keys[peerID]; ok {
		zero(previous)
	}
	s.keys[peerID] = key
}

func zero(buffer []byte) {
	for index := range buffer {
		buffer[index] = 0
	}
}
