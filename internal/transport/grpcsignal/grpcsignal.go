// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package grpcsignal implements the robot-native gRPC bidi-stream signalling
// path, additive to the HTTP contract, for peers (embedded robot firmware)
// that cannot run the browser WebRTC
// stack. It shares one listening port with the HTTP signalling server via
// cmux, and is wrapped for browser grpc-web clients.
package grpcsignal

import (
	"context"
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/improbable-eng/grpc-web/go/grpcweb"
	pionwebrtc "github.com/pion/webrtc/v4"
	"github.com/soheilhy/cmux"
	"google.golang.org/grpc"

	"github.com/rapidaai/voicegraph/internal/transport/grpcsignal/pb"
	"github.com/rapidaai/voicegraph/internal/transport/webrtc"
	"github.com/rapidaai/voicegraph/pkg/logging"
)

// Service implements pb.SignalServer, bridging each incoming stream to a
// newly negotiated webrtc.Peer via the same SessionFactory the HTTP
// signalling server uses, so both transports produce identical pipelines.
type Service struct {
	logger     logging.Logger
	newSession func(sessionID string) (*webrtc.Peer, error)
}

func NewService(logger logging.Logger, newSession func(sessionID string) (*webrtc.Peer, error)) *Service {
	return &Service{logger: logger, newSession: newSession}
}

// Signal drives one bidi stream: the first message must be an offer, after
// which the client's ICE candidates are added to the peer until a
// disconnect message or the end of the stream. The server sends only the
// answer; it sends no ICE candidates of its own on the stream.
func (s *Service) Signal(stream pb.SignalService_SignalServer) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.GetType() != pb.MsgOffer {
		return grpcBadOffer()
	}

	sessionID := first.GetSessionID()
	if sessionID == "" {
		sessionID = randomID()
	}

	peer, err := s.newSession(sessionID)
	if err != nil {
		return err
	}
	defer peer.Close()

	answerSDP, err := peer.Offer(first.GetSDP())
	if err != nil {
		return err
	}
	if err := stream.Send(pb.NewSignalMessage(sessionID, pb.MsgAnswer, map[string]interface{}{"sdp": answerSDP})); err != nil {
		return err
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			return nil
		}
		switch msg.GetType() {
		case pb.MsgICE:
			mid := msg.GetSDPMid()
			idx := uint16(msg.GetSDPMLineIndex())
			if err := peer.Trickle([]pionwebrtc.ICECandidateInit{{Candidate: msg.GetCandidate(), SDPMid: &mid, SDPMLineIndex: &idx}}); err != nil {
				s.logger.Warnw("grpcsignal: trickle failed", "error", err, "session", sessionID)
			}
		case pb.MsgDisconnect:
			return nil
		}
	}
}

func grpcBadOffer() error {
	return errBadOffer{}
}

type errBadOffer struct{}

func (errBadOffer) Error() string { return "grpcsignal: first message must be an offer" }

func randomID() string {
	// Used when the caller omits a session id on the offer.
	return "grpcsignal-" + uuid.New().String()
}

// Listener wraps a net.Listener with cmux so the HTTP signalling server and
// this gRPC service share one port, multiplexed on the same listening port.
type Listener struct {
	GRPC cmux.CMux
	HTTP net.Listener
	grpc net.Listener
}

// Mux splits l into an HTTP matcher and a gRPC (+ grpc-web) matcher.
func Mux(l net.Listener) *Listener {
	m := cmux.New(l)
	grpcL := m.MatchWithWriters(cmux.HTTP2MatchHeaderFieldSendSettings("content-type", "application/grpc"))
	httpL := m.Match(cmux.Any())
	return &Listener{GRPC: m, HTTP: httpL, grpc: grpcL}
}

// GRPCListener returns the gRPC-matched sub-listener to pass to grpc.Server.Serve.
func (l *Listener) GRPCListener() net.Listener { return l.grpc }

// Serve runs cmux's accept loop; blocks until the underlying listener closes.
func (l *Listener) Serve() error { return l.GRPC.Serve() }

// WrapGRPCWeb wraps a *grpc.Server so browser grpc-web clients (which cannot
// speak raw HTTP/2 gRPC framing) can call Signal too.
func WrapGRPCWeb(server *grpc.Server) http.Handler {
	wrapped := grpcweb.WrapServer(server, grpcweb.WithOriginFunc(func(string) bool { return true }))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wrapped.IsGrpcWebRequest(r) || wrapped.IsAcceptableGrpcCorsRequest(r) {
			wrapped.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
	})
}

// ServerOptions returns the standard per-call interceptor chain (panic
// recovery) used by the gRPC server, grounded on grpc-ecosystem middleware
// the same way the teacher wires its own gRPC server in api/.
func ServerOptions(logger logging.Logger) []grpc.ServerOption {
	recoveryHandler := func(ctx context.Context, p interface{}) error {
		logger.Errorw("grpcsignal: recovered panic", "panic", p)
		return errPanicRecovered{}
	}
	return []grpc.ServerOption{
		grpc.ChainStreamInterceptor(recovery.StreamServerInterceptor(recovery.WithRecoveryHandlerContext(recoveryHandler))),
		grpc.ChainUnaryInterceptor(recovery.UnaryServerInterceptor(recovery.WithRecoveryHandlerContext(recoveryHandler))),
	}
}

type errPanicRecovered struct{}

func (errPanicRecovered) Error() string { return "grpcsignal: internal error" }
