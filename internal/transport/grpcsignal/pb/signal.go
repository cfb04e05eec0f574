// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package pb declares the wire contract for the robot-native signalling
// service: a single bidirectional-streaming RPC carrying the same
// offer/answer/ICE exchange the HTTP surface uses, for peers that cannot
// run the WebRTC JS stack. As with
// internal/hardware/pb, there is no .proto source to generate from, so
// messages are typed wrappers over structpb.Struct — real protobuf wire
// types — registered on a hand-built grpc.ServiceDesc instead of
// protoc-gen-go-grpc output.
package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	serviceName = "voicegraph.transport.Signal"
	methodName  = "Signal"
)

// MessageType discriminates the SignalMessage payload.
type MessageType string

const (
	MsgOffer     MessageType = "offer"
	MsgAnswer    MessageType = "answer"
	MsgICE       MessageType = "ice_candidate"
	MsgReady     MessageType = "ready"
	MsgClear     MessageType = "clear"
	MsgDisconnect MessageType = "disconnect"
)

// SignalMessage is one frame of the bidi Signal stream.
type SignalMessage struct{ *structpb.Struct }

func NewSignalMessage(sessionID string, typ MessageType, fields map[string]interface{}) *SignalMessage {
	merged := map[string]interface{}{"session_id": sessionID, "type": string(typ)}
	for k, v := range fields {
		merged[k] = v
	}
	s, _ := structpb.NewStruct(merged)
	return &SignalMessage{s}
}

func (m *SignalMessage) GetSessionID() string { return stringField(m.GetFields()["session_id"]) }
func (m *SignalMessage) GetType() MessageType { return MessageType(stringField(m.GetFields()["type"])) }
func (m *SignalMessage) GetSDP() string       { return stringField(m.GetFields()["sdp"]) }
func (m *SignalMessage) GetCandidate() string { return stringField(m.GetFields()["candidate"]) }
func (m *SignalMessage) GetSDPMid() string    { return stringField(m.GetFields()["sdp_mid"]) }
func (m *SignalMessage) GetSDPMLineIndex() int {
	if v, ok := m.GetFields()["sdp_mline_index"]; ok {
		return int(v.GetNumberValue())
	}
	return 0
}

func stringField(v *structpb.Value) string {
	if v == nil {
		return ""
	}
	return v.GetStringValue()
}

// SignalServer is implemented by the grpcsignal package's service handler.
type SignalServer interface {
	Signal(SignalService_SignalServer) error
}

// SignalService_SignalServer is the server-side handle for one bidi stream,
// matching the shape protoc-gen-go-grpc would generate for a bidi RPC.
type SignalService_SignalServer interface {
	Send(*SignalMessage) error
	Recv() (*SignalMessage, error)
	grpc.ServerStream
}

type signalServerStream struct{ grpc.ServerStream }

func (s *signalServerStream) Send(m *SignalMessage) error {
	return s.ServerStream.SendMsg(m.Struct)
}
func (s *signalServerStream) Recv() (*SignalMessage, error) {
	m := &structpb.Struct{}
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return &SignalMessage{m}, nil
}

func signalHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(SignalServer).Signal(&signalServerStream{stream})
}

// ServiceDesc is registered on the grpc.Server in cmd/voicegraphd.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*SignalServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodName,
			Handler:       signalHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "voicegraph/transport/grpcsignal",
}

// SignalClient is the hand-rolled client stub, for test/tooling use and for
// the grpc-web wrapped browser path.
type SignalClient interface {
	Signal(ctx context.Context, opts ...grpc.CallOption) (Signal_SignalClient, error)
}

type Signal_SignalClient interface {
	Send(*SignalMessage) error
	Recv() (*SignalMessage, error)
	grpc.ClientStream
}

type signalClient struct{ cc *grpc.ClientConn }

func NewSignalClient(cc *grpc.ClientConn) SignalClient { return &signalClient{cc: cc} }

func (c *signalClient) Signal(ctx context.Context, opts ...grpc.CallOption) (Signal_SignalClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/"+serviceName+"/"+methodName, opts...)
	if err != nil {
		return nil, err
	}
	return &signalClientStream{stream}, nil
}

type signalClientStream struct{ grpc.ClientStream }

func (s *signalClientStream) Send(m *SignalMessage) error {
	return s.ClientStream.SendMsg(m.Struct)
}
func (s *signalClientStream) Recv() (*SignalMessage, error) {
	m := &structpb.Struct{}
	if err := s.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return &SignalMessage{m}, nil
}
