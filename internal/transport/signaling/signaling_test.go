// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package signaling

import "testing"

func TestOfferRequestValidation(t *testing.T) {
	cases := []struct {
		name    string
		req     OfferRequest
		wantErr bool
	}{
		{"valid", OfferRequest{SDP: "v=0...", Type: "offer"}, false},
		{"missing sdp", OfferRequest{Type: "offer"}, true},
		{"wrong type", OfferRequest{SDP: "v=0...", Type: "answer"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validate.Struct(tc.req)
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate.Struct(%+v) error = %v, wantErr %v", tc.req, err, tc.wantErr)
			}
		})
	}
}

func TestTrickleRequestValidation(t *testing.T) {
	req := TrickleRequest{
		SessionID:  "abc",
		Candidates: []ICECandidateDTO{{Candidate: "candidate:1 1 UDP 1 1.1.1.1 1 typ host"}},
	}
	if err := validate.Struct(req); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	empty := TrickleRequest{SessionID: "abc"}
	if err := validate.Struct(empty); err == nil {
		t.Fatal("expected validation error for missing candidates")
	}
}
