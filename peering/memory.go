// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/signet-chat/signet/signaling"
)

// Compile-time interface checks.
var (
	_ Network     = (*MemoryNetwork)(nil)
	_ Conn        = (*MemoryConn)(nil)
	_ DataChannel = (*MemoryChannel)(nil)
)

// MemoryNetwork is an in-process transport double for the negotiation
// state machine. Connections carry synthetic SDPs that embed the
// connection's identity; two connections become "connected" once each
// has applied the other's description, mirroring a successful
// offer/answer exchange without any real networking. Applied candidates
// are recorded in arrival order so tests can assert queueing behavior.
//
// Ships as a non-test file so the demo binary and other packages' tests
// can compose managers without WebRTC.
type MemoryNetwork struct {
	// FailOffers makes CreateOffer fail on every connection, for
	// exercising the initiator failure path.
	FailOffers bool

	mu     sync.Mutex
	conns  map[string]*MemoryConn
	nextID int
}

// NewMemoryNetwork creates an empty fake network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{conns: make(map[string]*MemoryConn)}
}

// NewConn creates a fake connection. The ICE configuration is recorded
// but otherwise ignored.
func (n *MemoryNetwork) NewConn(ice signaling.ICEServers) (Conn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	conn := &MemoryConn{
		id:      fmt.Sprintf("conn-%d", n.nextID),
		network: n,
		ice:     ice,
	}
	n.conns[conn.id] = conn
	return conn, nil
}

// LastConn returns the most recently created connection, for test
// assertions against manager-created connections.
func (n *MemoryNetwork) LastConn() *MemoryConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[fmt.Sprintf("conn-%d", n.nextID)]
}

// ConnCount returns how many connections have been created.
func (n *MemoryNetwork) ConnCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nextID
}

// maybeEstablish links a and its remote once both sides have applied
// each other's description. Fires state and data-channel callbacks
// outside the network lock.
func (n *MemoryNetwork) maybeEstablish(a *MemoryConn) {
	n.mu.Lock()
	b := n.conns[a.remoteOf()]
	if b == nil || b.remoteOf() != a.id {
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	a.establishWith(b)
	b.establishWith(a)

	// Channels created before establishment (the initiator's) get a
	// remote twin delivered to the other side.
	a.deliverChannelsTo(b)
	b.deliverChannelsTo(a)
}

// MemoryConn is one endpoint in a MemoryNetwork.
type MemoryConn struct {
	id      string
	network *MemoryNetwork
	ice     signaling.ICEServers

	mu            sync.Mutex
	remoteID      string
	remoteKind    string
	remoteApplies int
	applied       []string
	channels      []*MemoryChannel
	established   bool
	closed        bool

	onDataChannel func(DataChannel)
	onCandidate   func(json.RawMessage)
	onState       func(ConnState)
}

func (c *MemoryConn) CreateOffer(_ context.Context) (string, error) {
	if c.network.FailOffers {
		return "", fmt.Errorf("memory network: offers disabled")
	}
	return "v=memory " + c.id + " offer", nil
}

func (c *MemoryConn) CreateAnswer(_ context.Context) (string, error) {
	return "v=memory " + c.id + " answer", nil
}

func (c *MemoryConn) SetRemoteDescription(_ context.Context, kind, sdp string) error {
	remoteID, ok := parseMemorySDP(sdp)
	if !ok {
		return fmt.Errorf("memory network: unparseable SDP %q", sdp)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("memory network: connection closed")
	}
	c.remoteID = remoteID
	c.remoteKind = kind
	c.remoteApplies++
	c.mu.Unlock()

	c.network.maybeEstablish(c)
	return nil
}

func (c *MemoryConn) AddCandidate(candidate json.RawMessage) error {
	if !json.Valid(candidate) {
		return fmt.Errorf("memory network: candidate is not valid JSON")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("memory network: connection closed")
	}
	c.applied = append(c.applied, string(candidate))
	return nil
}

func (c *MemoryConn) CreateDataChannel(label string) (DataChannel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, fmt.Errorf("memory network: connection closed")
	}
	channel := &MemoryChannel{label: label}
	c.channels = append(c.channels, channel)
	return channel, nil
}

func (c *MemoryConn) OnDataChannel(handler func(DataChannel)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDataChannel = handler
}

func (c *MemoryConn) OnCandidate(handler func(json.RawMessage)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onCandidate = handler
}

func (c *MemoryConn) OnStateChange(handler func(ConnState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = handler
}

// Close marks the connection closed and reports ConnClosed to the
// state handler, matching the transport's behavior on local close.
func (c *MemoryConn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(ConnClosed)
	}
	return nil
}

// EmitCandidate simulates local candidate discovery: the raw candidate
// is handed to the registered OnCandidate handler.
func (c *MemoryConn) EmitCandidate(candidate json.RawMessage) {
	c.mu.Lock()
	handler := c.onCandidate
	c.mu.Unlock()
	if handler != nil {
		handler(candidate)
	}
}

// EmitState simulates a transport state transition.
func (c *MemoryConn) EmitState(state ConnState) {
	c.mu.Lock()
	handler := c.onState
	c.mu.Unlock()
	if handler != nil {
		handler(state)
	}
}

// AppliedCandidates returns the remote candidates applied so far, in
// application order.
func (c *MemoryConn) AppliedCandidates() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.applied...)
}

// RemoteApplies returns how many times a remote description has been
// applied. Duplicate-answer tolerance tests assert this stays at 1.
func (c *MemoryConn) RemoteApplies() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteApplies
}

// Closed reports whether Close has been called.
func (c *MemoryConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *MemoryConn) remoteOf() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remoteID
}

// establishWith flips the connection to connected and notifies the
// state handler, once.
func (c *MemoryConn) establishWith(_ *MemoryConn) {
	c.mu.Lock()
	if c.established || c.closed {
		c.mu.Unlock()
		return
	}
	c.established = true
	handler := c.onState
	c.mu.Unlock()

	if handler != nil {
		handler(ConnConnected)
	}
}

// deliverChannelsTo gives every locally created channel a remote twin
// on the peer connection, then opens both ends.
func (c *MemoryConn) deliverChannelsTo(peer *MemoryConn) {
	c.mu.Lock()
	local := append([]*MemoryChannel(nil), c.channels...)
	c.mu.Unlock()

	for _, channel := range local {
		if channel.hasPeer() {
			continue
		}
		twin := &MemoryChannel{label: channel.label}
		channel.link(twin)
		twin.link(channel)

		peer.mu.Lock()
		peer.channels = append(peer.channels, twin)
		deliver := peer.onDataChannel
		peer.mu.Unlock()

		if deliver != nil {
			deliver(twin)
		}
		channel.openUp()
		twin.openUp()
	}
}

func parseMemorySDP(sdp string) (string, bool) {
	var version, id, kind string
	if _, err := fmt.Sscanf(sdp, "%s %s %s", &version, &id, &kind); err != nil {
		return "", false
	}
	if version != "v=memory" {
		return "", false
	}
	return id, true
}

// MemoryChannel is one end of an in-process data channel pair.
type MemoryChannel struct {
	label string

	mu        sync.Mutex
	peer      *MemoryChannel
	open      bool
	closed    bool
	onOpen    func()
	onMessage func([]byte)
}

func (ch *MemoryChannel) Label() string { return ch.label }

func (ch *MemoryChannel) Send(data []byte) error {
	ch.mu.Lock()
	if !ch.open || ch.closed {
		ch.mu.Unlock()
		return fmt.Errorf("memory network: channel %s not open", ch.label)
	}
	peer := ch.peer
	ch.mu.Unlock()

	peer.mu.Lock()
	handler := peer.onMessage
	peer.mu.Unlock()

	if handler != nil {
		handler(append([]byte(nil), data...))
	}
	return nil
}

// OnOpen registers the open handler. If the channel is already open the
// handler fires immediately, so registration order does not matter.
func (ch *MemoryChannel) OnOpen(handler func()) {
	ch.mu.Lock()
	ch.onOpen = handler
	alreadyOpen := ch.open
	ch.mu.Unlock()

	if alreadyOpen && handler != nil {
		handler()
	}
}

func (ch *MemoryChannel) OnMessage(handler func([]byte)) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.onMessage = handler
}

func (ch *MemoryChannel) Open() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.open && !ch.closed
}

func (ch *MemoryChannel) Close() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.closed = true
	ch.open = false
	return nil
}

func (ch *MemoryChannel) hasPeer() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.peer != nil
}

func (ch *MemoryChannel) link(peer *MemoryChannel) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.peer = peer
}

func (ch *MemoryChannel) openUp() {
	ch.mu.Lock()
	if ch.open || ch.closed {
		ch.mu.Unlock()
		return
	}
	ch.open = true
	handler := ch.onOpen
	ch.mu.Unlock()

	if handler != nil {
		handler()
	}
}
