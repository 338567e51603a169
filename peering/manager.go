// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/signet-chat/signet/identity"
	"github.com/signet-chat/signet/lib/clock"
	"github.com/signet-chat/signet/signaling"
)

// DefaultConnectTimeout bounds how long a session may stay in
// StateConnecting before it is failed and torn down.
const DefaultConnectTimeout = 30 * time.Second

// Callbacks deliver session events to the application. All callbacks
// are optional and are invoked without the Manager's lock held, so they
// may call back into the Manager freely. They run on internal
// goroutines (poll loop, transport callbacks, timers).
type Callbacks struct {
	// OnStateChange fires on every session state transition.
	OnStateChange func(peerID string, state State)

	// OnMessage fires for every decoded inbound chat message.
	OnMessage func(peerID, text string)

	// OnError fires for per-peer failures worth surfacing to the user:
	// negotiation failures, authentication failures, undecryptable
	// traffic.
	OnError func(peerID, message string)
}

// ManagerConfig carries the Manager's dependencies. Relay, Network, and
// LocalID are required; everything else has a working default.
type ManagerConfig struct {
	// LocalID is this user's identifier on the relay. Collision
	// tie-breaks compare it lexicographically against the peer's.
	LocalID string

	// Relay carries signaling envelopes between users.
	Relay signaling.Relay

	// Network creates transport connections.
	Network Network

	// Directory resolves peers' published public keys for sealing
	// signaling payloads. Optional: without it signaling goes in clear.
	Directory identity.Directory

	// Sealer seals outbound signaling payloads and opens inbound ones.
	// Optional alongside Directory.
	Sealer *identity.Sealer

	// Keys holds per-peer session keys. A fresh store is created when
	// nil.
	Keys *KeyStore

	// Clock defaults to the real clock.
	Clock clock.Clock

	// PollInterval is the relay poll cadence, default
	// signaling.DefaultPollInterval.
	PollInterval time.Duration

	// ConnectTimeout bounds StateConnecting, default
	// DefaultConnectTimeout. Negative disables the timeout.
	ConnectTimeout time.Duration

	Logger *slog.Logger

	Callbacks Callbacks
}

// Manager owns every peer session: it drives offer/answer negotiation
// over the relay, installs session keys, encrypts chat traffic, and
// reports lifecycle events through Callbacks.
//
// One Manager serves one local user. All methods are safe for
// concurrent use.
type Manager struct {
	localID   string
	relay     signaling.Relay
	network   Network
	directory identity.Directory
	sealer    *identity.Sealer
	keys      *KeyStore
	codec     *Codec
	clk       clock.Clock
	logger    *slog.Logger
	callbacks Callbacks
	poller    *signaling.Poller

	connectTimeout time.Duration

	mu       sync.Mutex
	started  bool
	runCtx   context.Context
	ice      signaling.ICEServers
	sessions map[string]*peerSession
}

// NewManager wires a Manager from its dependencies. It does not touch
// the network; call Start to begin polling the relay.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.LocalID == "" {
		return nil, fmt.Errorf("peering: LocalID is required")
	}
	if cfg.Relay == nil {
		return nil, fmt.Errorf("peering: Relay is required")
	}
	if cfg.Network == nil {
		return nil, fmt.Errorf("peering: Network is required")
	}

	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	keys := cfg.Keys
	if keys == nil {
		keys = NewKeyStore(logger)
	}
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout == 0 {
		connectTimeout = DefaultConnectTimeout
	}

	m := &Manager{
		localID:        cfg.LocalID,
		relay:          cfg.Relay,
		network:        cfg.Network,
		directory:      cfg.Directory,
		sealer:         cfg.Sealer,
		keys:           keys,
		codec:          NewCodec(keys),
		clk:            clk,
		logger:         logger.With("local", cfg.LocalID),
		callbacks:      cfg.Callbacks,
		connectTimeout: connectTimeout,
		runCtx:         context.Background(),
		sessions:       make(map[string]*peerSession),
	}
	m.poller = signaling.NewPoller(cfg.Relay, func(envelope signaling.Envelope) {
		m.HandleSignal(m.ctx(), envelope)
	}, cfg.PollInterval, clk, logger)
	return m, nil
}

// Keys exposes the session key store, for composition roots that need
// to inspect or pre-install keys.
func (m *Manager) Keys() *KeyStore { return m.keys }

// Start fetches the relay's ICE configuration and begins polling for
// inbound signals. Idempotent; later calls are no-ops.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.runCtx = ctx
	m.mu.Unlock()

	// Best effort: without it sessions fall back to host candidates.
	ice, err := m.relay.ICEServers(ctx)
	if err != nil {
		m.logger.Warn("fetching ICE servers failed", "error", err)
	} else {
		m.mu.Lock()
		m.ice = ice
		m.mu.Unlock()
	}

	m.poller.Start(ctx)
}

// Close stops polling, tears down every session, and destroys all
// session keys. No callbacks fire for sessions torn down here.
func (m *Manager) Close() {
	m.poller.Stop()

	m.mu.Lock()
	sessions := make([]*peerSession, 0, len(m.sessions))
	for _, session := range m.sessions {
		sessions = append(sessions, session)
		session.state = StateDisconnected
	}
	m.sessions = make(map[string]*peerSession)
	m.mu.Unlock()

	for _, session := range sessions {
		m.stopTimeout(session)
		m.closeResources(session)
	}
	m.keys.DestroyAll()
	m.logger.Info("peering manager closed", "sessions", len(sessions))
}

// Connect starts negotiation with a peer: generates a session key,
// opens a transport connection and data channel, and sends an offer
// carrying the SDP and the session key through the relay. Returns nil
// immediately when a live session for the peer already exists.
func (m *Manager) Connect(ctx context.Context, peerID string) error {
	if peerID == m.localID {
		return fmt.Errorf("peering: cannot connect to self")
	}

	// Key generation, key export, and session registration share one
	// critical section. An offer from this peer arriving afterwards sees
	// the in-flight session, so the collision tie-break resolves against
	// it instead of racing the blocking work below.
	m.mu.Lock()
	if existing, ok := m.sessions[peerID]; ok && !existing.state.Terminal() {
		state := existing.state
		m.mu.Unlock()
		m.logger.Debug("connect skipped, session exists", "peer", peerID, "state", state)
		return nil
	}
	if _, err := m.keys.Generate(peerID); err != nil {
		m.mu.Unlock()
		return &NegotiationError{Peer: peerID, Stage: "generating session key", Err: err}
	}
	// Exported now, while the store still holds the key generated above.
	// The offer must never embed a key a concurrent inbound offer
	// installed.
	encodedKey, _ := m.keys.ExportEncoded(peerID)
	session := &peerSession{peerID: peerID, state: StateConnecting}
	m.sessions[peerID] = session
	m.mu.Unlock()

	m.armTimeout(session)
	m.emitState(peerID, StateConnecting)

	peerKey := m.lookupPeerKey(ctx, peerID)

	conn, err := m.network.NewConn(m.iceConfig())
	if err != nil {
		return m.failSession(session, "creating connection", err)
	}
	if !m.attachConn(session, conn, peerKey) {
		conn.Close()
		m.logger.Info("connect abandoned, session superseded", "peer", peerID)
		return nil
	}
	m.bindConn(session)

	channel, err := conn.CreateDataChannel("chat")
	if err != nil {
		return m.failSession(session, "creating data channel", err)
	}
	m.mu.Lock()
	if m.sessions[peerID] == session {
		session.channel = channel
	}
	m.mu.Unlock()
	m.bindChannel(session, channel)

	sdp, err := conn.CreateOffer(ctx)
	if err != nil {
		return m.failSession(session, "creating offer", err)
	}
	payload, err := json.Marshal(offerPayload{SDP: sdp, Type: "offer", AESKey: encodedKey})
	if err != nil {
		return m.failSession(session, "encoding offer", err)
	}

	if !m.sessionCurrent(session) {
		m.logger.Info("connect abandoned, session superseded", "peer", peerID)
		return nil
	}
	if err := m.relay.Send(ctx, peerID, signaling.KindOffer, m.sealPayload(peerID, peerKey, payload)); err != nil {
		return m.failSession(session, "sending offer", err)
	}

	m.logger.Info("offer sent", "peer", peerID)
	return nil
}

// Disconnect tears down the session with a peer, closing its transport
// and destroying its session key. Unknown peers are a no-op.
func (m *Manager) Disconnect(peerID string) {
	m.mu.Lock()
	session, ok := m.sessions[peerID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.sessions, peerID)
	alreadyTerminal := session.state.Terminal()
	session.state = StateDisconnected
	m.mu.Unlock()

	m.stopTimeout(session)
	m.closeResources(session)
	m.keys.Destroy(peerID)
	if !alreadyTerminal {
		m.emitState(peerID, StateDisconnected)
	}
	m.logger.Info("disconnected", "peer", peerID)
}

// ConnectionStatus reports the session state for a peer. Peers with no
// session are StateIdle.
func (m *Manager) ConnectionStatus(peerID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[peerID]
	if !ok {
		return StateIdle
	}
	return session.state
}

// SendMessage encrypts and sends one chat message over the peer's data
// channel. Reports false when no open channel exists or the send fails;
// the message is not queued.
func (m *Manager) SendMessage(peerID, text string) bool {
	m.mu.Lock()
	session, ok := m.sessions[peerID]
	var channel DataChannel
	if ok && !session.state.Terminal() {
		channel = session.channel
	}
	m.mu.Unlock()

	if channel == nil || !channel.Open() {
		return false
	}

	data, encrypted := m.codec.EncodeFrame(peerID, text)
	if !encrypted {
		m.logger.Warn("sending message in clear, no session key", "peer", peerID)
	}
	if err := channel.Send(data); err != nil {
		m.logger.Warn("data channel send failed", "peer", peerID, "error", err)
		return false
	}
	return true
}

// HandleSignal dispatches one inbound signaling envelope. Exposed so
// composition roots can inject signals outside the poll loop.
func (m *Manager) HandleSignal(ctx context.Context, envelope signaling.Envelope) {
	switch envelope.Kind {
	case signaling.KindOffer:
		m.handleOffer(ctx, envelope)
	case signaling.KindAnswer:
		m.handleAnswer(ctx, envelope)
	case signaling.KindCandidate:
		m.handleCandidate(envelope)
	default:
		m.logger.Warn("dropping signal of unknown kind",
			"from", envelope.From, "kind", envelope.Kind)
	}
}

// handleOffer answers an inbound connection offer: install the offered
// session key, apply the remote description, and return an answer.
//
// When both sides offered simultaneously, the lexicographically higher
// ID keeps its own offer and ignores the inbound one; the lower side
// discards its half-open attempt and answers as a fresh responder. Both
// sides converge on a single session initiated by the higher ID.
func (m *Manager) handleOffer(ctx context.Context, envelope signaling.Envelope) {
	from := envelope.From

	raw, err := m.decodePayload(envelope)
	if err != nil {
		m.reportDecodeError(from, envelope.Kind, err)
		return
	}
	var offer offerPayload
	if err := json.Unmarshal(raw, &offer); err != nil {
		m.reportDecodeError(from, envelope.Kind, err)
		return
	}
	if offer.Type != "offer" || offer.SDP == "" {
		m.reportDecodeError(from, envelope.Kind, fmt.Errorf("malformed offer payload"))
		return
	}
	keyBytes, err := base64.StdEncoding.DecodeString(offer.AESKey)
	if err != nil {
		m.reportDecodeError(from, envelope.Kind, fmt.Errorf("decoding session key: %w", err))
		return
	}

	// Collision resolution, key install, and session registration share
	// one critical section, mirroring Connect: a concurrent local
	// connect sees the responder session the moment it exists.
	m.mu.Lock()
	var replaced *peerSession
	if existing, ok := m.sessions[from]; ok && !existing.state.Terminal() {
		if m.localID > from {
			m.mu.Unlock()
			m.logger.Info("offer collision, keeping own offer", "peer", from)
			return
		}
		replaced = existing
	}
	if err := m.keys.Set(from, keyBytes); err != nil {
		m.mu.Unlock()
		m.reportDecodeError(from, envelope.Kind, err)
		return
	}
	session := &peerSession{peerID: from, state: StateConnecting}
	m.sessions[from] = session
	m.mu.Unlock()

	if replaced != nil {
		m.logger.Info("offer collision, yielding to peer's offer", "peer", from)
		m.stopTimeout(replaced)
		m.closeResources(replaced)
	}

	m.armTimeout(session)
	m.emitState(from, StateConnecting)

	peerKey := m.lookupPeerKey(ctx, from)

	conn, err := m.network.NewConn(m.iceConfig())
	if err != nil {
		m.failSession(session, "creating connection", err)
		return
	}
	if !m.attachConn(session, conn, peerKey) {
		conn.Close()
		m.logger.Info("answer abandoned, session superseded", "peer", from)
		return
	}
	m.bindConn(session)

	if err := conn.SetRemoteDescription(ctx, "offer", offer.SDP); err != nil {
		m.failSession(session, "applying remote offer", err)
		return
	}
	m.markRemoteApplied(session)

	answerSDP, err := conn.CreateAnswer(ctx)
	if err != nil {
		m.failSession(session, "creating answer", err)
		return
	}
	payload, err := json.Marshal(answerPayload{SDP: answerSDP, Type: "answer"})
	if err != nil {
		m.failSession(session, "encoding answer", err)
		return
	}
	if err := m.relay.Send(ctx, from, signaling.KindAnswer, m.sealPayload(from, peerKey, payload)); err != nil {
		m.failSession(session, "sending answer", err)
		return
	}

	m.logger.Info("answer sent", "peer", from)
}

// handleAnswer applies the peer's answer to our outstanding offer.
// Duplicate answers (relay redelivery) are dropped without touching the
// connection, so the transport sees exactly one remote description.
func (m *Manager) handleAnswer(ctx context.Context, envelope signaling.Envelope) {
	from := envelope.From

	m.mu.Lock()
	session, ok := m.sessions[from]
	if !ok || session.state.Terminal() {
		m.mu.Unlock()
		m.logger.Debug("dropping answer with no live session", "peer", from)
		return
	}
	if session.remoteApplied {
		m.mu.Unlock()
		m.logger.Debug("dropping duplicate answer", "peer", from)
		return
	}
	conn := session.conn
	m.mu.Unlock()

	raw, err := m.decodePayload(envelope)
	if err != nil {
		m.reportDecodeError(from, envelope.Kind, err)
		return
	}
	var answer answerPayload
	if err := json.Unmarshal(raw, &answer); err != nil {
		m.reportDecodeError(from, envelope.Kind, err)
		return
	}
	if answer.Type != "answer" || answer.SDP == "" {
		m.reportDecodeError(from, envelope.Kind, fmt.Errorf("malformed answer payload"))
		return
	}

	if err := conn.SetRemoteDescription(ctx, "answer", answer.SDP); err != nil {
		m.failSession(session, "applying remote answer", err)
		return
	}
	m.markRemoteApplied(session)
}

// handleCandidate applies a remote network-path candidate, or queues it
// when the remote description has not been applied yet. Individual
// candidate failures are logged and skipped; a bad candidate never
// fails the session.
func (m *Manager) handleCandidate(envelope signaling.Envelope) {
	from := envelope.From

	raw, err := m.decodePayload(envelope)
	if err != nil {
		m.reportDecodeError(from, envelope.Kind, err)
		return
	}

	m.mu.Lock()
	session, ok := m.sessions[from]
	if !ok || session.state.Terminal() {
		m.mu.Unlock()
		m.logger.Debug("dropping candidate with no live session", "peer", from)
		return
	}
	if !session.remoteApplied {
		session.pending = append(session.pending, json.RawMessage(raw))
		m.mu.Unlock()
		m.logger.Debug("queued candidate until remote description applies", "peer", from)
		return
	}
	conn := session.conn
	m.mu.Unlock()

	if err := conn.AddCandidate(json.RawMessage(raw)); err != nil {
		m.logger.Warn("applying candidate failed", "peer", from, "error", err)
	}
}

// markRemoteApplied records that the peer's description is in effect
// and drains any candidates that arrived early, in arrival order.
func (m *Manager) markRemoteApplied(session *peerSession) {
	m.mu.Lock()
	if m.sessions[session.peerID] != session {
		m.mu.Unlock()
		return
	}
	session.remoteApplied = true
	m.mu.Unlock()

	m.drainCandidates(session)
}

// drainCandidates repeatedly swaps out the pending queue and applies
// its contents. Candidates appended while a batch is being applied are
// picked up by the next pass.
func (m *Manager) drainCandidates(session *peerSession) {
	for {
		m.mu.Lock()
		if m.sessions[session.peerID] != session || len(session.pending) == 0 {
			m.mu.Unlock()
			return
		}
		batch := session.pending
		session.pending = nil
		m.mu.Unlock()

		for _, candidate := range batch {
			if err := session.conn.AddCandidate(candidate); err != nil {
				m.logger.Warn("applying queued candidate failed",
					"peer", session.peerID, "error", err)
			}
		}
	}
}

// bindConn registers the transport callbacks for a session. Local
// candidates are sealed and relayed as they surface; connectivity
// transitions drive the session state.
func (m *Manager) bindConn(session *peerSession) {
	session.conn.OnCandidate(func(candidate json.RawMessage) {
		m.sendLocalCandidate(session, candidate)
	})
	session.conn.OnStateChange(func(state ConnState) {
		m.handleConnState(session, state)
	})
	session.conn.OnDataChannel(func(channel DataChannel) {
		m.adoptChannel(session, channel)
	})
}

// sendLocalCandidate relays one locally discovered candidate to the
// peer. Best effort: a lost candidate narrows path selection but the
// remaining ones may still connect.
func (m *Manager) sendLocalCandidate(session *peerSession, candidate json.RawMessage) {
	m.mu.Lock()
	current := m.sessions[session.peerID] == session && !session.state.Terminal()
	m.mu.Unlock()
	if !current {
		return
	}

	payload := m.sealPayload(session.peerID, session.peerKey, candidate)
	if err := m.relay.Send(m.ctx(), session.peerID, signaling.KindCandidate, payload); err != nil {
		m.logger.Warn("sending candidate failed", "peer", session.peerID, "error", err)
	}
}

// handleConnState maps transport connectivity onto the session state.
func (m *Manager) handleConnState(session *peerSession, state ConnState) {
	switch state {
	case ConnConnected:
		m.declareConnected(session)
	case ConnDisconnected, ConnClosed:
		m.retire(session, StateDisconnected, "")
	case ConnFailed:
		m.retire(session, StateFailed, fmt.Sprintf("connection with %s failed", session.peerID))
	}
}

// adoptChannel takes ownership of a remotely opened data channel. The
// responder side receives its channel here; an initiator that somehow
// receives a second channel keeps its own and still binds the new one
// so inbound traffic is not lost.
func (m *Manager) adoptChannel(session *peerSession, channel DataChannel) {
	m.mu.Lock()
	if m.sessions[session.peerID] != session {
		m.mu.Unlock()
		channel.Close()
		return
	}
	if session.channel == nil {
		session.channel = channel
	}
	m.mu.Unlock()

	m.bindChannel(session, channel)
}

// bindChannel wires a data channel's callbacks into the session. An
// already-open channel declares the session connected immediately, so
// registration order relative to the open event does not matter.
func (m *Manager) bindChannel(session *peerSession, channel DataChannel) {
	channel.OnMessage(func(data []byte) {
		m.handleInbound(session, data)
	})
	channel.OnOpen(func() {
		m.declareConnected(session)
	})
	if channel.Open() {
		m.declareConnected(session)
	}
}

// handleInbound decodes one data-channel payload and delivers the
// message. Authentication failures and missing-key traffic surface
// through OnError; the payload is dropped either way.
func (m *Manager) handleInbound(session *peerSession, data []byte) {
	text, err := m.codec.DecodeFrame(session.peerID, data)
	if err != nil {
		var authErr *AuthenticationError
		switch {
		case errors.As(err, &authErr):
			m.emitError(session.peerID, authErr.Error())
		case errors.Is(err, ErrNoKey):
			m.emitError(session.peerID,
				fmt.Sprintf("received encrypted message from %s but no session key is installed", session.peerID))
		default:
			m.logger.Warn("dropping undecodable frame", "peer", session.peerID, "error", err)
		}
		return
	}
	m.emitMessage(session.peerID, text)
}

// declareConnected moves a connecting session to connected. Connected
// is declared by whichever signal lands first (transport state or
// channel open); the other is a no-op.
func (m *Manager) declareConnected(session *peerSession) {
	m.mu.Lock()
	if m.sessions[session.peerID] != session || session.state != StateConnecting {
		m.mu.Unlock()
		return
	}
	session.state = StateConnected
	m.mu.Unlock()

	m.stopTimeout(session)
	m.emitState(session.peerID, StateConnected)
	m.logger.Info("peer connected", "peer", session.peerID)
}

// failSession retires a session as failed and returns the wrapped
// negotiation error for callers on the request path.
func (m *Manager) failSession(session *peerSession, stage string, cause error) error {
	negErr := &NegotiationError{Peer: session.peerID, Stage: stage, Err: cause}
	m.retire(session, StateFailed, negErr.Error())
	return negErr
}

// retire moves a session to a terminal state, closes its resources, and
// destroys its key. The entry stays in the session map so
// ConnectionStatus keeps reporting the terminal state until the peer is
// reconnected or explicitly disconnected. No-op when the session was
// already replaced or terminal.
func (m *Manager) retire(session *peerSession, final State, errorMessage string) {
	m.mu.Lock()
	if m.sessions[session.peerID] != session || session.state.Terminal() {
		m.mu.Unlock()
		return
	}
	session.state = final
	m.mu.Unlock()

	m.stopTimeout(session)
	m.closeResources(session)
	m.keys.Destroy(session.peerID)
	if errorMessage != "" {
		m.emitError(session.peerID, errorMessage)
	}
	m.emitState(session.peerID, final)
	m.logger.Info("session retired", "peer", session.peerID, "state", final)
}

// armTimeout starts the negotiation deadline. The callback fires only
// while this exact session is still connecting.
func (m *Manager) armTimeout(session *peerSession) {
	if m.connectTimeout <= 0 {
		return
	}
	timer := m.clk.AfterFunc(m.connectTimeout, func() {
		m.mu.Lock()
		stillConnecting := m.sessions[session.peerID] == session && session.state == StateConnecting
		m.mu.Unlock()
		if !stillConnecting {
			return
		}
		m.retire(session, StateFailed,
			fmt.Sprintf("negotiation with %s timed out after %s", session.peerID, m.connectTimeout))
	})

	m.mu.Lock()
	if m.sessions[session.peerID] == session {
		session.timeout = timer
		timer = nil
	}
	m.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// attachConn hands a freshly created transport to the session, unless
// the session was replaced or left StateConnecting while the caller was
// off-lock. Reports whether the session took the connection.
func (m *Manager) attachConn(session *peerSession, conn Conn, peerKey string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[session.peerID] != session || session.state != StateConnecting {
		return false
	}
	session.conn = conn
	session.peerKey = peerKey
	return true
}

// sessionCurrent reports whether the session is still the live entry
// for its peer.
func (m *Manager) sessionCurrent(session *peerSession) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[session.peerID] == session && !session.state.Terminal()
}

func (m *Manager) stopTimeout(session *peerSession) {
	m.mu.Lock()
	timer := session.timeout
	session.timeout = nil
	m.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// closeResources closes the session's channel and connection. The
// transport's close notification is absorbed by retire's stale-session
// check, since the caller already moved the session to a terminal
// state.
func (m *Manager) closeResources(session *peerSession) {
	m.mu.Lock()
	channel := session.channel
	conn := session.conn
	m.mu.Unlock()

	if channel != nil {
		channel.Close()
	}
	if conn != nil {
		conn.Close()
	}
}

// lookupPeerKey resolves the peer's published public key, empty when no
// directory is configured or the lookup fails. A missing key downgrades
// signaling for this session to plaintext, which the relay protocol
// tolerates.
func (m *Manager) lookupPeerKey(ctx context.Context, peerID string) string {
	if m.directory == nil {
		return ""
	}
	key, err := m.directory.PublicKey(ctx, peerID)
	if err != nil {
		m.logger.Warn("peer key lookup failed, signaling in clear", "peer", peerID, "error", err)
		return ""
	}
	return key
}

// sealPayload seals a signaling payload for the peer when a recipient
// key and sealer are available, and falls back to plaintext otherwise.
// The armor header marks sealed payloads, so receivers never guess.
func (m *Manager) sealPayload(peerID, peerKey string, payload []byte) string {
	if peerKey == "" || m.sealer == nil {
		return string(payload)
	}
	sealed, err := m.sealer.EncryptForRecipient(payload, peerKey)
	if err != nil {
		m.logger.Warn("sealing signaling payload failed, sending in clear",
			"peer", peerID, "error", err)
		return string(payload)
	}
	return sealed
}

// decodePayload opens an inbound signaling payload: armored payloads
// are decrypted with the local identity, anything else passes through
// as plaintext.
func (m *Manager) decodePayload(envelope signaling.Envelope) ([]byte, error) {
	if !identity.IsArmored(envelope.Payload) {
		return []byte(envelope.Payload), nil
	}
	if m.sealer == nil {
		return nil, fmt.Errorf("sealed payload but no local identity configured")
	}
	return m.sealer.DecryptOwn(envelope.Payload)
}

// reportDecodeError logs and drops an undecodable envelope. No error
// callback fires: the sender gets no acknowledgement at this layer and
// the application can do nothing useful with a payload that never
// parsed.
func (m *Manager) reportDecodeError(peerID string, kind signaling.Kind, err error) {
	decodeErr := &DecodeError{Peer: peerID, Kind: string(kind), Err: err}
	m.logger.Warn("dropping undecodable signal", "error", decodeErr)
}

func (m *Manager) iceConfig() signaling.ICEServers {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ice
}

func (m *Manager) ctx() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCtx
}

func (m *Manager) emitState(peerID string, state State) {
	if m.callbacks.OnStateChange != nil {
		m.callbacks.OnStateChange(peerID, state)
	}
}

func (m *Manager) emitMessage(peerID, text string) {
	if m.callbacks.OnMessage != nil {
		m.callbacks.OnMessage(peerID, text)
	}
}

func (m *Manager) emitError(peerID, message string) {
	if m.callbacks.OnError != nil {
		m.callbacks.OnError(peerID, message)
	}
}
