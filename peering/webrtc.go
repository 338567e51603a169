// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package peering

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pion/webrtc/v4"

	"github.com/signet-chat/signet/signaling"
)

// Compile-time interface checks.
var (
	_ Network     = (*WebRTCNetwork)(nil)
	_ Conn        = (*webrtcConn)(nil)
	_ DataChannel = (*webrtcChannel)(nil)
)

// WebRTCNetwork creates pion-backed transport connections using trickle
// ICE: candidates surface individually through OnCandidate as they are
// discovered and are signaled to the peer one by one, rather than being
// gathered up front into the SDP.
type WebRTCNetwork struct {
	logger *slog.Logger
}

// NewWebRTCNetwork creates the production transport factory.
func NewWebRTCNetwork(logger *slog.Logger) *WebRTCNetwork {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebRTCNetwork{logger: logger}
}

// NewConn creates a PeerConnection configured with the relay's
// discovery servers. Loopback candidates are enabled so same-machine
// sessions and test environments work without a STUN server.
func (n *WebRTCNetwork) NewConn(ice signaling.ICEServers) (Conn, error) {
	settingEngine := webrtc.SettingEngine{}
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: pionICEServers(ice),
	})
	if err != nil {
		return nil, fmt.Errorf("peering: creating PeerConnection: %w", err)
	}
	return &webrtcConn{pc: pc, logger: n.logger}, nil
}

// pionICEServers converts the relay's discovery list into pion entries.
func pionICEServers(ice signaling.ICEServers) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if len(ice.STUNServers) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: ice.STUNServers})
	}
	for _, turn := range ice.TURNServers {
		servers = append(servers, webrtc.ICEServer{
			URLs:       turn.URLs,
			Username:   turn.Username,
			Credential: turn.Credential,
		})
	}
	return servers
}

type webrtcConn struct {
	pc     *webrtc.PeerConnection
	logger *slog.Logger
}

func (c *webrtcConn) CreateOffer(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", fmt.Errorf("creating offer: %w", err)
	}
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}
	return offer.SDP, nil
}

func (c *webrtcConn) CreateAnswer(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("creating answer: %w", err)
	}
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}
	return answer.SDP, nil
}

func (c *webrtcConn) SetRemoteDescription(ctx context.Context, kind, sdp string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	description := webrtc.SessionDescription{
		Type: webrtc.NewSDPType(kind),
		SDP:  sdp,
	}
	if err := c.pc.SetRemoteDescription(description); err != nil {
		return fmt.Errorf("setting remote %s: %w", kind, err)
	}
	return nil
}

func (c *webrtcConn) AddCandidate(candidate json.RawMessage) error {
	var init webrtc.ICECandidateInit
	if err := json.Unmarshal(candidate, &init); err != nil {
		return fmt.Errorf("parsing candidate: %w", err)
	}
	if err := c.pc.AddICECandidate(init); err != nil {
		return fmt.Errorf("applying candidate: %w", err)
	}
	return nil
}

func (c *webrtcConn) CreateDataChannel(label string) (DataChannel, error) {
	ordered := true
	dc, err := c.pc.CreateDataChannel(label, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return nil, fmt.Errorf("creating data channel %s: %w", label, err)
	}
	return &webrtcChannel{dc: dc}, nil
}

func (c *webrtcConn) OnDataChannel(handler func(DataChannel)) {
	c.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		handler(&webrtcChannel{dc: dc})
	})
}

func (c *webrtcConn) OnCandidate(handler func(json.RawMessage)) {
	c.pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		// nil marks end of gathering; there is nothing to signal.
		if candidate == nil {
			return
		}
		raw, err := json.Marshal(candidate.ToJSON())
		if err != nil {
			c.logger.Warn("marshaling local candidate failed", "error", err)
			return
		}
		handler(raw)
	})
}

func (c *webrtcConn) OnStateChange(handler func(ConnState)) {
	c.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		handler(mapConnState(state))
	})
}

func (c *webrtcConn) Close() error {
	return c.pc.Close()
}

func mapConnState(state webrtc.PeerConnectionState) ConnState {
	switch state {
	case webrtc.PeerConnectionStateConnected:
		return ConnConnected
	case webrtc.PeerConnectionStateDisconnected:
		return ConnDisconnected
	case webrtc.PeerConnectionStateFailed:
		return ConnFailed
	case webrtc.PeerConnectionStateClosed:
		return ConnClosed
	default:
		return ConnNew
	}
}

type webrtcChannel struct {
	dc *webrtc.DataChannel
}

func (ch *webrtcChannel) Label() string { return ch.dc.Label() }

func (ch *webrtcChannel) Send(data []byte) error {
	return ch.dc.Send(data)
}

func (ch *webrtcChannel) OnOpen(handler func()) {
	ch.dc.OnOpen(handler)
}

func (ch *webrtcChannel) OnMessage(handler func([]byte)) {
	ch.dc.OnMessage(func(message webrtc.DataChannelMessage) {
		handler(message.Data)
	})
}

func (ch *webrtcChannel) Open() bool {
	return ch.dc.ReadyState() == webrtc.DataChannelStateOpen
}

func (ch *webrtcChannel) Close() error {
	return ch.dc.Close()
}
