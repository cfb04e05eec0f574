// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package pb

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"
)

func TestExecuteMovementRequestRoundTrips(t *testing.T) {
	req := NewExecuteMovementRequest([]string{"wave_right", "nod"})
	require.Equal(t, []string{"wave_right", "nod"}, req.GetGestures())
}

func TestSetEmotionRequestRoundTrips(t *testing.T) {
	req := NewSetEmotionRequest("happy")
	require.Equal(t, "happy", req.GetName())
}

func TestSetEyeStateRequestRoundTrips(t *testing.T) {
	req := NewSetEyeStateRequest("curious")
	require.Equal(t, "curious", req.GetName())
}

func TestCaptureCameraViewResponseRoundTripsBase64(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10}
	resp := NewCaptureCameraViewResponse(jpeg)
	require.Equal(t, jpeg, resp.GetJpeg())
}

func TestCaptureCameraViewResponseGetJpegHandlesMissingField(t *testing.T) {
	resp := &CaptureCameraViewResponse{&structpb.Struct{}}
	require.Nil(t, resp.GetJpeg())
}

func TestGetRobotStatusResponseFields(t *testing.T) {
	s, err := structpb.NewStruct(map[string]interface{}{
		"battery":   0.82,
		"emotion":   "curious",
		"eye_state": "wide",
		"connected": true,
	})
	require.NoError(t, err)
	resp := &GetRobotStatusResponse{s}

	require.Equal(t, 0.82, resp.GetBattery())
	require.Equal(t, "curious", resp.GetEmotion())
	require.Equal(t, "wide", resp.GetEyeState())
	require.True(t, resp.GetConnected())
}

func TestGetRobotStatusResponseDefaultsOnEmptyStruct(t *testing.T) {
	resp := &GetRobotStatusResponse{&structpb.Struct{}}
	require.Equal(t, 0.0, resp.GetBattery())
	require.Equal(t, "", resp.GetEmotion())
	require.False(t, resp.GetConnected())
}
