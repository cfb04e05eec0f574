// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package signaling exposes the HTTP signalling surface: POST /offer,
// PATCH /offer (ICE trickle), GET /health. Both are idempotent
// per the spec's own wording, and never block on pipeline work — they only
// negotiate the peer connection and hand it off.
package signaling

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	pionwebrtc "github.com/pion/webrtc/v4"

	"github.com/rapidaai/voicegraph/internal/transport/webrtc"
	"github.com/rapidaai/voicegraph/pkg/logging"
)

var validate = validator.New()

// OfferRequest is the POST /offer body.
type OfferRequest struct {
	SDP  string `json:"sdp" validate:"required"`
	Type string `json:"type" validate:"required,eq=offer"`
}

// OfferResponse is the POST /offer success body.
type OfferResponse struct {
	SDP       string `json:"sdp"`
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// ICECandidateDTO mirrors one trickled candidate.
type ICECandidateDTO struct {
	Candidate     string `json:"candidate" validate:"required"`
	SDPMid        string `json:"sdp_mid"`
	SDPMLineIndex int    `json:"sdp_mline_index"`
}

// TrickleRequest is the PATCH /offer body.
type TrickleRequest struct {
	SessionID  string            `json:"session_id" validate:"required"`
	Candidates []ICECandidateDTO `json:"candidates" validate:"required,dive"`
}

// HealthResponse is the GET /health body. It also reports the gRPC
// signalling listener and configured backends.
type HealthResponse struct {
	Status           string `json:"status"`
	ActiveSessions   int    `json:"active_sessions"`
	GRPCSignalling   bool   `json:"grpc_signalling"`
	MemoryBackend    string `json:"memory_backend"`
	GateBackend      string `json:"gate_backend"`
	MaxSessions      int    `json:"max_sessions"`
}

// SessionFactory builds and wires a full pipeline for one newly negotiated
// peer, returning the Peer so the handler can complete SDP negotiation.
// Closing over cmd/voicegraphd's assembly logic keeps this package free of
// provider-specific wiring.
type SessionFactory func(sessionID string) (*webrtc.Peer, error)

// Server exposes the three endpoints over a *gin.Engine.
type Server struct {
	logger      logging.Logger
	newSession  SessionFactory
	maxSessions int
	jwtSecret   string

	grpcSignallingUp bool
	memoryBackend    string
	gateBackend      string

	mu       sync.Mutex
	sessions map[string]*webrtc.Peer
}

func NewServer(logger logging.Logger, newSession SessionFactory, maxSessions int, jwtSecret string) *Server {
	return &Server{
		logger:      logger,
		newSession:  newSession,
		maxSessions: maxSessions,
		jwtSecret:   jwtSecret,
		sessions:    make(map[string]*webrtc.Peer),
	}
}

// WithBackendStatus records what GET /health reports for the observability
// beyond the baseline offer/trickle contract.
func (s *Server) WithBackendStatus(grpcUp bool, memoryBackend, gateBackend string) {
	s.grpcSignallingUp = grpcUp
	s.memoryBackend = memoryBackend
	s.gateBackend = gateBackend
}

// Register wires the three routes onto engine, with bearer-token auth
// middleware on /offer when a JWT secret is configured.
func (s *Server) Register(engine *gin.Engine) {
	group := engine.Group("")
	if s.jwtSecret != "" {
		group.Use(s.authMiddleware())
	}
	group.POST("/offer", s.handleOffer)
	group.PATCH("/offer", s.handleTrickle)
	engine.GET("/health", s.handleHealth)
}

func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		tokenStr := header[len(prefix):]
		_, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.jwtSecret), nil
		})
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Next()
	}
}

// handleOffer implements POST /offer: creates a session, returns the answer.
// Errors: 400 bad_offer, 409 too_many_sessions, 500 init_error.
func (s *Server) handleOffer(c *gin.Context) {
	var req OfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_offer"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_offer"})
		return
	}

	s.mu.Lock()
	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "too_many_sessions"})
		return
	}
	s.mu.Unlock()

	sessionID := uuid.New().String()
	peer, err := s.newSession(sessionID)
	if err != nil {
		s.logger.Errorw("signaling: session init failed", "error", err, "session", sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "init_error"})
		return
	}

	answer, err := peer.Offer(req.SDP)
	if err != nil {
		peer.Close()
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_offer"})
		return
	}

	s.mu.Lock()
	s.sessions[sessionID] = peer
	s.mu.Unlock()

	peer.OnICEFailed(func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
	})

	c.JSON(http.StatusOK, OfferResponse{SDP: answer, Type: "answer", SessionID: sessionID})
}

// handleTrickle implements PATCH /offer: adds remote ICE candidates.
// Unknown session_id -> 404 not_found.
func (s *Server) handleTrickle(c *gin.Context) {
	var req TrickleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}
	if err := validate.Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	s.mu.Lock()
	peer, ok := s.sessions[req.SessionID]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}

	candidates := make([]pionwebrtc.ICECandidateInit, len(req.Candidates))
	for i, cand := range req.Candidates {
		mid := cand.SDPMid
		idx := uint16(cand.SDPMLineIndex)
		candidates[i] = pionwebrtc.ICECandidateInit{Candidate: cand.Candidate, SDPMid: &mid, SDPMLineIndex: &idx}
	}
	if err := peer.Trickle(candidates); err != nil {
		s.logger.Warnw("signaling: trickle failed", "error", err, "session", req.SessionID)
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	active := len(s.sessions)
	s.mu.Unlock()

	c.JSON(http.StatusOK, HealthResponse{
		Status:         "ok",
		ActiveSessions: active,
		GRPCSignalling: s.grpcSignallingUp,
		MemoryBackend:  s.memoryBackend,
		GateBackend:    s.gateBackend,
		MaxSessions:    s.maxSessions,
	})
}

// RemoveSession evicts a session once its pipeline has torn down, so
// GET /health's active_sessions count stays accurate.
func (s *Server) RemoveSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
