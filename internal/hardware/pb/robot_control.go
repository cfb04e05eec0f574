// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package pb declares the wire contract for the robot hardware daemon's
// RobotControl gRPC service. There is no .proto source for this internal,
// single-consumer service; messages are typed wrappers over
// google.golang.org/protobuf's structpb.Struct (already-generated protobuf
// types shipped with the protobuf module), which lets the client use real
// protobuf wire encoding over grpc.ClientConn without a protoc step. See
// DESIGN.md for why this was chosen over hand-authored generated code.
package pb

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const serviceName = "voicegraph.hardware.RobotControl"

// ExecuteMovementRequest carries the gesture list for execute_movement.
type ExecuteMovementRequest struct{ *structpb.Struct }

func NewExecuteMovementRequest(gestures []string) *ExecuteMovementRequest {
	vals := make([]interface{}, len(gestures))
	for i, g := range gestures {
		vals[i] = g
	}
	s, _ := structpb.NewStruct(map[string]interface{}{"gestures": vals})
	return &ExecuteMovementRequest{s}
}

func (r *ExecuteMovementRequest) GetGestures() []string {
	return stringList(r.GetFields()["gestures"])
}

type ExecuteMovementResponse struct{ *structpb.Struct }

// SetEmotionRequest carries the target emotion name.
type SetEmotionRequest struct{ *structpb.Struct }

func NewSetEmotionRequest(name string) *SetEmotionRequest {
	s, _ := structpb.NewStruct(map[string]interface{}{"name": name})
	return &SetEmotionRequest{s}
}

func (r *SetEmotionRequest) GetName() string { return stringField(r.GetFields()["name"]) }

type SetEmotionResponse struct{ *structpb.Struct }

// SetEyeStateRequest carries the target eye-state name.
type SetEyeStateRequest struct{ *structpb.Struct }

func NewSetEyeStateRequest(name string) *SetEyeStateRequest {
	s, _ := structpb.NewStruct(map[string]interface{}{"name": name})
	return &SetEyeStateRequest{s}
}

func (r *SetEyeStateRequest) GetName() string { return stringField(r.GetFields()["name"]) }

type SetEyeStateResponse struct{ *structpb.Struct }

type CaptureCameraViewRequest struct{ *structpb.Struct }

func (r *CaptureCameraViewRequest) isNil() bool { return r == nil || r.Struct == nil }

type CaptureCameraViewResponse struct{ *structpb.Struct }

// NewCaptureCameraViewResponse wraps a captured JPEG for the wire, matching
// the base64 encoding GetJpeg expects back out. Used by the daemon side and
// by tests standing in for it.
func NewCaptureCameraViewResponse(jpeg []byte) *CaptureCameraViewResponse {
	s, _ := structpb.NewStruct(map[string]interface{}{
		"jpeg_base64": base64.StdEncoding.EncodeToString(jpeg),
	})
	return &CaptureCameraViewResponse{s}
}

func (r *CaptureCameraViewResponse) GetJpeg() []byte {
	encoded := stringField(r.GetFields()["jpeg_base64"])
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return decoded
}

type GetRobotStatusRequest struct{ *structpb.Struct }

type GetRobotStatusResponse struct{ *structpb.Struct }

func (r *GetRobotStatusResponse) GetBattery() float64 {
	if v, ok := r.GetFields()["battery"]; ok {
		return v.GetNumberValue()
	}
	return 0
}
func (r *GetRobotStatusResponse) GetEmotion() string  { return stringField(r.GetFields()["emotion"]) }
func (r *GetRobotStatusResponse) GetEyeState() string { return stringField(r.GetFields()["eye_state"]) }
func (r *GetRobotStatusResponse) GetConnected() bool {
	if v, ok := r.GetFields()["connected"]; ok {
		return v.GetBoolValue()
	}
	return false
}

func stringField(v *structpb.Value) string {
	if v == nil {
		return ""
	}
	return v.GetStringValue()
}

func stringList(v *structpb.Value) []string {
	if v == nil {
		return nil
	}
	items := v.GetListValue().GetValues()
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.GetStringValue()
	}
	return out
}

// RobotControlClient is the hand-rolled client stub for the daemon service.
type RobotControlClient interface {
	ExecuteMovement(ctx context.Context, req *ExecuteMovementRequest, opts ...grpc.CallOption) (*ExecuteMovementResponse, error)
	SetEmotion(ctx context.Context, req *SetEmotionRequest, opts ...grpc.CallOption) (*SetEmotionResponse, error)
	SetEyeState(ctx context.Context, req *SetEyeStateRequest, opts ...grpc.CallOption) (*SetEyeStateResponse, error)
	CaptureCameraView(ctx context.Context, req *CaptureCameraViewRequest, opts ...grpc.CallOption) (*CaptureCameraViewResponse, error)
	GetRobotStatus(ctx context.Context, req *GetRobotStatusRequest, opts ...grpc.CallOption) (*GetRobotStatusResponse, error)
}

type robotControlClient struct{ cc *grpc.ClientConn }

func NewRobotControlClient(cc *grpc.ClientConn) RobotControlClient {
	return &robotControlClient{cc: cc}
}

func (c *robotControlClient) ExecuteMovement(ctx context.Context, req *ExecuteMovementRequest, opts ...grpc.CallOption) (*ExecuteMovementResponse, error) {
	out := &ExecuteMovementResponse{&structpb.Struct{}}
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/ExecuteMovement", serviceName), req.Struct, out.Struct, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *robotControlClient) SetEmotion(ctx context.Context, req *SetEmotionRequest, opts ...grpc.CallOption) (*SetEmotionResponse, error) {
	out := &SetEmotionResponse{&structpb.Struct{}}
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/SetEmotion", serviceName), req.Struct, out.Struct, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *robotControlClient) SetEyeState(ctx context.Context, req *SetEyeStateRequest, opts ...grpc.CallOption) (*SetEyeStateResponse, error) {
	out := &SetEyeStateResponse{&structpb.Struct{}}
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/SetEyeState", serviceName), req.Struct, out.Struct, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *robotControlClient) CaptureCameraView(ctx context.Context, req *CaptureCameraViewRequest, opts ...grpc.CallOption) (*CaptureCameraViewResponse, error) {
	in := req.Struct
	if req.isNil() {
		in = &structpb.Struct{}
	}
	out := &CaptureCameraViewResponse{&structpb.Struct{}}
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/CaptureCameraView", serviceName), in, out.Struct, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *robotControlClient) GetRobotStatus(ctx context.Context, req *GetRobotStatusRequest, opts ...grpc.CallOption) (*GetRobotStatusResponse, error) {
	out := &GetRobotStatusResponse{&structpb.Struct{}}
	if err := c.cc.Invoke(ctx, fmt.Sprintf("/%s/GetRobotStatus", serviceName), &structpb.Struct{}, out.Struct, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
