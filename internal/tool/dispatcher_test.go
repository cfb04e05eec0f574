// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/hardware"
)

type fakeHardware struct {
	moveErr error
	status  hardware.Status
}

func (f *fakeHardware) ExecuteMovement(context.Context, []string) error { return f.moveErr }
func (f *fakeHardware) SetEmotion(context.Context, string) error        { return nil }
func (f *fakeHardware) SetEyeState(context.Context, string) error       { return nil }
func (f *fakeHardware) CaptureCameraView(context.Context) ([]byte, error) {
	return []byte("jpeg-bytes"), nil
}
func (f *fakeHardware) GetRobotStatus(context.Context) (hardware.Status, error) {
	return f.status, nil
}
func (f *fakeHardware) Close() error { return nil }

func TestDispatchExecuteMovementSuccess(t *testing.T) {
	d := &Dispatcher{Hardware: &fakeHardware{}}
	call := frame.NewToolCall(1, ToolExecuteMovement, "call-1", map[string]interface{}{"gestures": []string{"wave_right"}})
	res := d.Dispatch(context.Background(), call)
	require.Equal(t, "call-1", res.CallID)
	require.Equal(t, "ok", res.Value)
	require.Empty(t, res.Err)
}

func TestDispatchExecuteMovementFailureDoesNotEndSession(t *testing.T) {
	d := &Dispatcher{Hardware: &fakeHardware{moveErr: errors.New("servo fault")}}
	call := frame.NewToolCall(1, ToolExecuteMovement, "call-2", map[string]interface{}{"gestures": []string{"wave_right"}})
	res := d.Dispatch(context.Background(), call)
	require.NotEmpty(t, res.Err)
	require.Empty(t, res.Value)
}

func TestDispatchHardwareAbsentInBrowserOnlySession(t *testing.T) {
	d := &Dispatcher{}
	call := frame.NewToolCall(1, ToolSetEmotion, "call-3", map[string]interface{}{"name": "happy"})
	res := d.Dispatch(context.Background(), call)
	require.Contains(t, res.Err, "not configured")
}

func TestDispatchUnknownMCPToolWithoutServer(t *testing.T) {
	d := &Dispatcher{}
	call := frame.NewToolCall(1, "search_calendar", "call-4", nil)
	res := d.Dispatch(context.Background(), call)
	require.Contains(t, res.Err, "no mcp tool server")
}

type fakeVision struct {
	description string
	err         error
	lastPrompt  string
}

func (f *fakeVision) Analyse(ctx context.Context, jpeg []byte, prompt string) (string, error) {
	f.lastPrompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.description, nil
}

func TestDispatchCaptureCameraViewWithoutVisionReportsByteCount(t *testing.T) {
	d := &Dispatcher{Hardware: &fakeHardware{}}
	call := frame.NewToolCall(1, ToolCaptureCameraView, "call-5", nil)
	res := d.Dispatch(context.Background(), call)
	require.Equal(t, "captured 10 bytes", res.Value)
}

func TestDispatchCaptureCameraViewWithVisionDescribesFrame(t *testing.T) {
	vis := &fakeVision{description: "a hallway with a closed door"}
	d := &Dispatcher{Hardware: &fakeHardware{}, Vision: vis}
	call := frame.NewToolCall(1, ToolCaptureCameraView, "call-6", map[string]interface{}{"prompt": "what room is this?"})
	res := d.Dispatch(context.Background(), call)
	require.Equal(t, "a hallway with a closed door", res.Value)
	require.Equal(t, "what room is this?", vis.lastPrompt)
}

func TestDispatchCaptureCameraViewVisionErrorDoesNotEndSession(t *testing.T) {
	vis := &fakeVision{err: errors.New("model unavailable")}
	d := &Dispatcher{Hardware: &fakeHardware{}, Vision: vis}
	call := frame.NewToolCall(1, ToolCaptureCameraView, "call-7", nil)
	res := d.Dispatch(context.Background(), call)
	require.NotEmpty(t, res.Err)
	require.Empty(t, res.Value)
}
