// Copyright 2026 The Signet Authors
// SPDX-License-Identifier: Apache-2.0

package signaling

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Server is the relay side of the signaling HTTP API, backed by
// in-memory per-user queues. Queued envelopes are returned once by poll
// and deleted server-side. cmd/signet-relay serves it standalone;
// tests embed it behind httptest.
//
// The relay is untrusted by design: it sees only armored payloads and
// never holds key material.
type Server struct {
	logger *slog.Logger

	mu     sync.Mutex
	queues map[string][]Envelope
	ice    ICEServers
}

// NewServer creates an empty relay server.
func NewServer(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		queues: make(map[string][]Envelope),
	}
}

// SetICEServers configures the list returned by /signaling/ice-servers.
func (s *Server) SetICEServers(servers ICEServers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ice = servers
}

// Handler returns the HTTP handler for the four relay endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /signaling/send", s.handleSend)
	mux.HandleFunc("GET /signaling/poll", s.handlePoll)
	mux.HandleFunc("DELETE /signaling/clear", s.handleClear)
	mux.HandleFunc("GET /signaling/ice-servers", s.handleICEServers)
	return mux
}

func (s *Server) handleSend(writer http.ResponseWriter, request *http.Request) {
	var body sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(writer, request.Body, 4<<20)).Decode(&body); err != nil {
		http.Error(writer, "malformed body", http.StatusBadRequest)
		return
	}
	if body.ToUser == "" || body.FromUser == "" || !body.Type.Valid() {
		http.Error(writer, "missing to_user, from_user, or type", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.queues[body.ToUser] = append(s.queues[body.ToUser], Envelope{
		From:      body.FromUser,
		Kind:      body.Type,
		Payload:   body.EncryptedPayload,
		Timestamp: Stamp(time.Now()),
	})
	queued := len(s.queues[body.ToUser])
	s.mu.Unlock()

	s.logger.Debug("envelope queued",
		"from", body.FromUser,
		"to", body.ToUser,
		"kind", body.Type,
		"queue_depth", queued,
	)
	writeJSON(writer, map[string]string{"status": "accepted"})
}

func (s *Server) handlePoll(writer http.ResponseWriter, request *http.Request) {
	user := request.URL.Query().Get("user")
	if user == "" {
		http.Error(writer, "user query parameter required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	delivered := s.queues[user]
	delete(s.queues, user)
	s.mu.Unlock()

	if delivered == nil {
		delivered = []Envelope{}
	}
	writeJSON(writer, map[string][]Envelope{"messages": delivered})
}

func (s *Server) handleClear(writer http.ResponseWriter, request *http.Request) {
	user := request.URL.Query().Get("user")
	if user == "" {
		http.Error(writer, "user query parameter required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	dropped := len(s.queues[user])
	delete(s.queues, user)
	s.mu.Unlock()

	writeJSON(writer, map[string]int{"deleted": dropped})
}

func (s *Server) handleICEServers(writer http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	ice := s.ice
	s.mu.Unlock()

	if ice.STUNServers == nil {
		ice.STUNServers = []string{}
	}
	if ice.TURNServers == nil {
		ice.TURNServers = []TURNServer{}
	}
	writeJSON(writer, ice)
}

func writeJSON(writer http.ResponseWriter, value any) {
	writer.Header().Set("Content-Type", "application/json")
	json.NewEncoder(writer).Encode(value)
}
