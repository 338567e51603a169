// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Compile-time interface check.
var _ Relay = (*Client)(nil)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// RelayURL is the base URL of the signaling relay.
	RelayURL string
	// LocalID is the identity envelopes are addressed to and sent as.
	LocalID string
	// HTTPClient is used for all requests. If nil, http.DefaultClient.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default().
	Logger *slog.Logger
}

// Client speaks the relay's HTTP API:
//
//	POST   /signaling/send        {to_user, type, encrypted_payload}
//	GET    /signaling/poll        → {messages: [...]}
//	DELETE /signaling/clear       → {deleted: n}
//	GET    /signaling/ice-servers → {stun_servers, turn_servers}
type Client struct {
	baseURL    string
	localID    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a relay client for the given identity.
func NewClient(config ClientConfig) (*Client, error) {
	if config.RelayURL == "" {
		return nil, fmt.Errorf("signaling: RelayURL is required")
	}
	if config.LocalID == "" {
		return nil, fmt.Errorf("signaling: LocalID is required")
	}
	if _, err := url.Parse(config.RelayURL); err != nil {
		return nil, fmt.Errorf("signaling: invalid RelayURL %q: %w", config.RelayURL, err)
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(config.RelayURL, "/"),
		localID:    config.LocalID,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// sendRequest is the POST /signaling/send body. The production relay
// derives from_user from the caller's session; it is carried explicitly
// here so the embeddable Server can route without an auth layer.
type sendRequest struct {
	FromUser         string `json:"from_user"`
	ToUser           string `json:"to_user"`
	Type             Kind   `json:"type"`
	EncryptedPayload string `json:"encrypted_payload"`
}

func (c *Client) Send(ctx context.Context, to string, kind Kind, payload string) error {
	body, err := json.Marshal(sendRequest{
		FromUser:         c.localID,
		ToUser:           to,
		Type:             kind,
		EncryptedPayload: payload,
	})
	if err != nil {
		return &DeliveryError{To: to, Kind: kind, Err: err}
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signaling/send", bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{To: to, Kind: kind, Err: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return &DeliveryError{To: to, Kind: kind, Err: err}
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode != http.StatusOK {
		return &DeliveryError{To: to, Kind: kind, Err: fmt.Errorf("relay returned %d", response.StatusCode)}
	}
	return nil
}

func (c *Client) Poll(ctx context.Context) ([]Envelope, error) {
	var response struct {
		Messages []Envelope `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/signaling/poll?user="+url.QueryEscape(c.localID), &response); err != nil {
		return nil, fmt.Errorf("polling relay: %w", err)
	}
	return response.Messages, nil
}

func (c *Client) Clear(ctx context.Context) (int, error) {
	var response struct {
		Deleted int `json:"deleted"`
	}
	if err := c.do(ctx, http.MethodDelete, "/signaling/clear?user="+url.QueryEscape(c.localID), &response); err != nil {
		return 0, fmt.Errorf("clearing relay queue: %w", err)
	}
	return response.Deleted, nil
}

func (c *Client) ICEServers(ctx context.Context) (ICEServers, error) {
	var response ICEServers
	if err := c.do(ctx, http.MethodGet, "/signaling/ice-servers", &response); err != nil {
		return ICEServers{}, fmt.Errorf("fetching ICE servers: %w", err)
	}
	return response, nil
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 4<<20))
	if err != nil {
		return err
	}
	if response.StatusCode != http.StatusOK {
		return fmt.Errorf("relay returned %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.Unmarshal(body, out)
}

// Stamp returns an RFC 3339 timestamp for outbound envelopes.
func Stamp(now time.Time) string {
	return now.UTC().Format(time.RFC3339Nano)
}
