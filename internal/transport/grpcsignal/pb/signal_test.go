// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package pb

import "testing"

func TestNewSignalMessageRoundTrip(t *testing.T) {
	msg := NewSignalMessage("sess-1", MsgOffer, map[string]interface{}{"sdp": "v=0..."})
	if msg.GetSessionID() != "sess-1" {
		t.Fatalf("expected session_id sess-1, got %q", msg.GetSessionID())
	}
	if msg.GetType() != MsgOffer {
		t.Fatalf("expected type offer, got %q", msg.GetType())
	}
	if msg.GetSDP() != "v=0..." {
		t.Fatalf("expected sdp echoed back, got %q", msg.GetSDP())
	}
}

func TestNewSignalMessageICEFields(t *testing.T) {
	msg := NewSignalMessage("sess-2", MsgICE, map[string]interface{}{
		"candidate":       "candidate:1 1 UDP 1 1.1.1.1 1 typ host",
		"sdp_mid":         "0",
		"sdp_mline_index": 0,
	})
	if msg.GetCandidate() == "" {
		t.Fatal("expected candidate field to round-trip")
	}
	if msg.GetSDPMid() != "0" {
		t.Fatalf("expected sdp_mid 0, got %q", msg.GetSDPMid())
	}
}
