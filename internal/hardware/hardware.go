// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package hardware is a thin gRPC client adapter onto a robot hardware
// daemon: movement, emotion, eye state, camera capture, and status. It is
// absent in browser-only sessions.
package hardware

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	hardwarepb "github.com/rapidaai/voicegraph/internal/hardware/pb"
)

// Command deadlines for the hardware daemon's RPCs.
const (
	CommandTimeout = 300 * time.Millisecond
	CaptureTimeout = 1 * time.Second
)

// Status reports the robot daemon's self-reported health.
type Status struct {
	Battery   float64
	Emotion   string
	EyeState  string
	Connected bool
}

// Adapter is the narrow tool surface the LLM's ToolDispatcher invokes.
type Adapter interface {
	ExecuteMovement(ctx context.Context, gestures []string) error
	SetEmotion(ctx context.Context, name string) error
	SetEyeState(ctx context.Context, name string) error
	CaptureCameraView(ctx context.Context) ([]byte, error)
	GetRobotStatus(ctx context.Context) (Status, error)
	Close() error
}

// GRPCAdapter implements Adapter over a gRPC connection to the hardware
// daemon. One instance per session that declares robot.enabled.
type GRPCAdapter struct {
	conn   *grpc.ClientConn
	client hardwarepb.RobotControlClient
}

// Dial connects to the hardware daemon at addr. Uses insecure transport
// credentials because the daemon is expected to run on a loopback or
// otherwise trusted link local to the robot; deployments that expose it
// beyond that boundary must front it with mTLS at the network layer.
func Dial(ctx context.Context, addr string) (*GRPCAdapter, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("hardware: dial %s: %w", addr, err)
	}
	return &GRPCAdapter{conn: conn, client: hardwarepb.NewRobotControlClient(conn)}, nil
}

func (a *GRPCAdapter) ExecuteMovement(ctx context.Context, gestures []string) error {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	_, err := a.client.ExecuteMovement(ctx, &hardwarepb.ExecuteMovementRequest{Gestures: gestures})
	if err != nil {
		return fmt.Errorf("hardware: execute_movement: %w", err)
	}
	return nil
}

func (a *GRPCAdapter) SetEmotion(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	_, err := a.client.SetEmotion(ctx, &hardwarepb.SetEmotionRequest{Name: name})
	if err != nil {
		return fmt.Errorf("hardware: set_emotion: %w", err)
	}
	return nil
}

func (a *GRPCAdapter) SetEyeState(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	_, err := a.client.SetEyeState(ctx, &hardwarepb.SetEyeStateRequest{Name: name})
	if err != nil {
		return fmt.Errorf("hardware: set_eye_state: %w", err)
	}
	return nil
}

func (a *GRPCAdapter) CaptureCameraView(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, CaptureTimeout)
	defer cancel()
	resp, err := a.client.CaptureCameraView(ctx, &hardwarepb.CaptureCameraViewRequest{})
	if err != nil {
		return nil, fmt.Errorf("hardware: capture_camera_view: %w", err)
	}
	return resp.GetJpeg(), nil
}

func (a *GRPCAdapter) GetRobotStatus(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()
	resp, err := a.client.GetRobotStatus(ctx, &hardwarepb.GetRobotStatusRequest{})
	if err != nil {
		return Status{}, fmt.Errorf("hardware: get_robot_status: %w", err)
	}
	return Status{
		Battery:   resp.GetBattery(),
		Emotion:   resp.GetEmotion(),
		EyeState:  resp.GetEyeState(),
		Connected: resp.GetConnected(),
	}, nil
}

func (a *GRPCAdapter) Close() error { return a.conn.Close() }
