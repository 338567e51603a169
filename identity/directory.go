// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Directory looks up peers in the account service. Registration, login,
// and password management live entirely in that service; the core only
// consumes public keys and presence.
type Directory interface {
	// PublicKey returns the peer's published age public key.
	PublicKey(ctx context.Context, peerID string) (string, error)

	// Online reports whether the peer is currently reachable through
	// the relay.
	Online(ctx context.Context, peerID string) (bool, error)
}

// HTTPDirectory queries the account service over HTTP.
type HTTPDirectory struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Directory = (*HTTPDirectory)(nil)

// NewHTTPDirectory creates a directory client. When httpClient is nil,
// http.DefaultClient is used.
func NewHTTPDirectory(baseURL string, httpClient *http.Client, logger *slog.Logger) (*HTTPDirectory, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("identity: directory base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("identity: invalid directory URL %q: %w", baseURL, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPDirectory{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (d *HTTPDirectory) PublicKey(ctx context.Context, peerID string) (string, error) {
	var response struct {
		PublicKey string `json:"public_key"`
	}
	if err := d.get(ctx, "/users/"+url.PathEscape(peerID)+"/key", &response); err != nil {
		return "", fmt.Errorf("looking up public key for %s: %w", peerID, err)
	}
	if err := ValidatePublicKey(response.PublicKey); err != nil {
		return "", fmt.Errorf("directory returned bad key for %s: %w", peerID, err)
	}
	return response.PublicKey, nil
}

func (d *HTTPDirectory) Online(ctx context.Context, peerID string) (bool, error) {
	var response struct {
		Online bool `json:"online"`
	}
	if err := d.get(ctx, "/users/"+url.PathEscape(peerID)+"/status", &response); err != nil {
		return false, fmt.Errorf("looking up status for %s: %w", peerID, err)
	}
	return response.Online, nil
}

func (d *HTTPDirectory) get(ctx context.Context, path string, out any) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return err
	}
	response, err := d.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 1<<20))
	if err != nil {
		return err
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("directory returned %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

// MemoryDirectory is an in-process Directory for tests and the demo
// binary. Peers are registered explicitly.
type MemoryDirectory struct {
	mu     sync.Mutex
	keys   map[string]string
	online map[string]bool
}

var _ Directory = (*MemoryDirectory)(nil)

// NewMemoryDirectory creates an empty in-process directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		keys:   make(map[string]string),
		online: make(map[string]bool),
	}
}

// Register publishes a peer's public key and marks it online.
func (d *MemoryDirectory) Register(peerID, publicKey string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[peerID] = publicKey
	d.online[peerID] = true
}

// SetOnline changes a peer's presence.
func (d *MemoryDirectory) SetOnline(peerID string, online bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.online[peerID] = online
}

func (d *MemoryDirectory) PublicKey(_ context.Context, peerID string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key, ok := d.keys[peerID]
	if !ok {
		return "", fmt.Errorf("identity: no public key registered for %s", peerID)
	}
	return key, nil
}

func (d *MemoryDirectory) Online(_ context.Context, peerID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online[peerID], nil
}
