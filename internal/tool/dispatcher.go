// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package tool routes ToolCall frames to the hardware adapter or to an MCP
// tool server, resolving exactly one ToolResult per call.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/hardware"
	"github.com/rapidaai/voicegraph/internal/vision"
)

// Hardware tool names, matching the hardware adapter's narrow LLM-facing surface.
const (
	ToolExecuteMovement   = "execute_movement"
	ToolSetEmotion        = "set_emotion"
	ToolSetEyeState       = "set_eye_state"
	ToolCaptureCameraView = "capture_camera_view"
	ToolGetRobotStatus    = "get_robot_status"
)

var hardwareTools = map[string]bool{
	ToolExecuteMovement:   true,
	ToolSetEmotion:        true,
	ToolSetEyeState:       true,
	ToolCaptureCameraView: true,
	ToolGetRobotStatus:    true,
}

// Dispatcher resolves ToolCall frames. Hardware is nil in browser-only
// sessions, in which case hardware tool calls resolve to an error result
// rather than panicking, and hardware tool schemas should not have been
// registered in the LLM context to begin with.
type Dispatcher struct {
	Hardware hardware.Adapter
	MCP      *mcpclient.Client

	// Vision, when configured, turns a captured camera frame into a natural
	// language description instead of just reporting its byte size.
	Vision vision.Adapter
}

// Dispatch executes call and returns its resolving ToolResult. Never
// returns a Go error for a tool-side failure — those become ToolResult{Err}
// so the session can continue rather than ending it.
func (d *Dispatcher) Dispatch(ctx context.Context, call *frame.ToolCall) *frame.ToolResult {
	if hardwareTools[call.Name] {
		return d.dispatchHardware(ctx, call)
	}
	return d.dispatchMCP(ctx, call)
}

func (d *Dispatcher) dispatchHardware(ctx context.Context, call *frame.ToolCall) *frame.ToolResult {
	if d.Hardware == nil {
		return frame.NewToolResultError(call.TurnID(), call.CallID, "hardware adapter not configured for this session")
	}
	switch call.Name {
	case ToolExecuteMovement:
		gestures, _ := call.Args["gestures"].([]string)
		if gestures == nil {
			if raw, ok := call.Args["gestures"].([]interface{}); ok {
				for _, g := range raw {
					if s, ok := g.(string); ok {
						gestures = append(gestures, s)
					}
				}
			}
		}
		if err := d.Hardware.ExecuteMovement(ctx, gestures); err != nil {
			return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
		}
		return frame.NewToolResult(call.TurnID(), call.CallID, "ok")

	case ToolSetEmotion:
		name, _ := call.Args["name"].(string)
		if err := d.Hardware.SetEmotion(ctx, name); err != nil {
			return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
		}
		return frame.NewToolResult(call.TurnID(), call.CallID, "ok")

	case ToolSetEyeState:
		name, _ := call.Args["name"].(string)
		if err := d.Hardware.SetEyeState(ctx, name); err != nil {
			return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
		}
		return frame.NewToolResult(call.TurnID(), call.CallID, "ok")

	case ToolCaptureCameraView:
		jpeg, err := d.Hardware.CaptureCameraView(ctx)
		if err != nil {
			return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
		}
		if d.Vision != nil {
			prompt, _ := call.Args["prompt"].(string)
			description, err := d.Vision.Analyse(ctx, jpeg, prompt)
			if err != nil {
				return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
			}
			return frame.NewToolResult(call.TurnID(), call.CallID, description)
		}
		return frame.NewToolResult(call.TurnID(), call.CallID, fmt.Sprintf("captured %d bytes", len(jpeg)))

	case ToolGetRobotStatus:
		status, err := d.Hardware.GetRobotStatus(ctx)
		if err != nil {
			return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
		}
		encoded, _ := json.Marshal(status)
		return frame.NewToolResult(call.TurnID(), call.CallID, string(encoded))

	default:
		return frame.NewToolResultError(call.TurnID(), call.CallID, "unknown hardware tool: "+call.Name)
	}
}

func (d *Dispatcher) dispatchMCP(ctx context.Context, call *frame.ToolCall) *frame.ToolResult {
	if d.MCP == nil {
		return frame.NewToolResultError(call.TurnID(), call.CallID, "no mcp tool server configured")
	}
	res, err := d.MCP.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: call.Name, Arguments: call.Args},
	})
	if err != nil {
		return frame.NewToolResultError(call.TurnID(), call.CallID, err.Error())
	}
	if res.IsError {
		return frame.NewToolResultError(call.TurnID(), call.CallID, textOf(res))
	}
	return frame.NewToolResult(call.TurnID(), call.CallID, textOf(res))
}

func textOf(res *mcp.CallToolResult) string {
	for _, c := range res.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}
