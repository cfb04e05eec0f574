// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package webrtc negotiates one peer connection per session: one
// bidirectional audio transceiver, an optional video receive track, and one
// ordered reliable data channel. Audio decoded off the remote
// track is pushed onto the session's inbound queue.Edge; frames read off the
// outbound edge are encoded and written to the local track or the data
// channel depending on kind.
package webrtc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	pionwebrtc "github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"

	"github.com/rapidaai/voicegraph/internal/audio"
	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/observer"
	"github.com/rapidaai/voicegraph/internal/queue"
	"github.com/rapidaai/voicegraph/pkg/logging"
)

const (
	OpusSampleRate   = 48000
	OpusChannels     = 2
	OpusPayloadType  = 111
	OpusSDPFmtpLine  = "minptime=10;useinbandfec=1"
	InternalRate     = 16000
	InternalChannels = 1

	// OpusFrameMs matches the spec's 20ms audio chunk unit (queue.AudioChunkMs).
	OpusFrameMs = queue.AudioChunkMs

	// FailedGraceDefault is the default bounded grace period allowed for a
	// connection stuck in the "failed" ICE state.
	FailedGraceDefault = 5 * time.Second

	rtpBufferSize        = 1500
	maxConsecutiveErrors = 50
)

// Config carries the ICE server list and transport policy for new peer
// connections.
type Config struct {
	ICEServers         []ICEServer
	ICETransportPolicy string // "all" | "relay"
	FailedGrace        time.Duration

	// ForwardPartialsDuringTTS controls whether STTInterim hypotheses still
	// reach the client while a reply is being spoken. Off by default so a
	// barge-in attempt doesn't race a stale partial onto the data channel.
	ForwardPartialsDuringTTS bool
}

type ICEServer struct {
	URLs       []string
	Username   string
	Credential string
}

func DefaultConfig() Config {
	return Config{
		ICEServers:  []ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}},
		FailedGrace: FailedGraceDefault,
	}
}

// Wire messages sent over the data channel. Every frame kind the client
// needs to see maps onto exactly one of these literal shapes; anything else
// arriving on the outbound edge (tool calls, deltas meant only for TTS,
// metrics consumed by the observer) is dropped silently by sendData.
type transcriptionMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

type partialMessage struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	SpeakerID string `json:"speaker_id,omitempty"`
}

type ttsStateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
}

type systemMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type snapshotMessage struct {
	Type string `json:"type"`
	observer.Snapshot
}

// frameSource is anything Peer.Run can pull frames from — satisfied
// structurally by both *queue.Edge and *stage.FanIn, so this package never
// needs to import the stage package to accept a merged source.
type frameSource interface {
	Recv(ctx context.Context) (frame.Frame, error)
}

// Peer owns one negotiated WebRTC connection for one session.
type Peer struct {
	mu sync.Mutex

	logger logging.Logger
	cfg    Config

	pc         *pionwebrtc.PeerConnection
	localTrack *pionwebrtc.TrackLocalStaticSample
	dataCh     *pionwebrtc.DataChannel
	opus       *audio.OpusCodec

	in  *queue.Edge // decoded PCM16 AudioInput frames, pushed toward the pipeline
	out frameSource // frames the pipeline produced, written to track/data channel

	sessionID   string
	closed      bool
	onICEFailed func()
	ttsActive   bool
}

// New negotiates nothing yet; it only constructs the peer connection and
// local track so an SDP offer can be created by Offer.
func New(logger logging.Logger, cfg Config, sessionID string, in *queue.Edge, out frameSource) (*Peer, error) {
	mediaEngine := &pionwebrtc.MediaEngine{}
	if err := mediaEngine.RegisterCodec(pionwebrtc.RTPCodecParameters{
		RTPCodecCapability: pionwebrtc.RTPCodecCapability{
			MimeType:    pionwebrtc.MimeTypeOpus,
			ClockRate:   OpusSampleRate,
			Channels:    OpusChannels,
			SDPFmtpLine: OpusSDPFmtpLine,
		},
		PayloadType: OpusPayloadType,
	}, pionwebrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("webrtc: register opus: %w", err)
	}
	if err := mediaEngine.RegisterCodec(pionwebrtc.RTPCodecParameters{
		RTPCodecCapability: pionwebrtc.RTPCodecCapability{
			MimeType:  pionwebrtc.MimeTypeH264,
			ClockRate: 90000,
		},
		PayloadType: 102,
	}, pionwebrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("webrtc: register h264: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := pionwebrtc.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("webrtc: register interceptors: %w", err)
	}

	api := pionwebrtc.NewAPI(pionwebrtc.WithMediaEngine(mediaEngine), pionwebrtc.WithInterceptorRegistry(registry))

	iceServers := make([]pionwebrtc.ICEServer, len(cfg.ICEServers))
	for i, s := range cfg.ICEServers {
		iceServers[i] = pionwebrtc.ICEServer{URLs: s.URLs, Username: s.Username, Credential: s.Credential}
	}
	pcConfig := pionwebrtc.Configuration{ICEServers: iceServers}
	if cfg.ICETransportPolicy == "relay" {
		pcConfig.ICETransportPolicy = pionwebrtc.ICETransportPolicyRelay
	}

	pc, err := api.NewPeerConnection(pcConfig)
	if err != nil {
		return nil, fmt.Errorf("webrtc: new peer connection: %w", err)
	}

	// The codec itself runs mono: the outbound path feeds it mono PCM16.
	opusCodec, err := audio.NewOpusCodec(OpusSampleRate, 1)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtc: new opus codec: %w", err)
	}

	p := &Peer{
		logger:    logger,
		cfg:       cfg,
		pc:        pc,
		opus:      opusCodec,
		in:        in,
		out:       out,
		sessionID: sessionID,
	}

	if _, err := pc.AddTransceiverFromKind(pionwebrtc.RTPCodecTypeAudio, pionwebrtc.RTPTransceiverInit{
		Direction: pionwebrtc.RTPTransceiverDirectionSendrecv,
	}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtc: add audio transceiver: %w", err)
	}
	if _, err := pc.AddTransceiverFromKind(pionwebrtc.RTPCodecTypeVideo, pionwebrtc.RTPTransceiverInit{
		Direction: pionwebrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtc: add video transceiver: %w", err)
	}

	dataCh, err := pc.CreateDataChannel("voicegraph", &pionwebrtc.DataChannelInit{Ordered: boolPtr(true)})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtc: create data channel: %w", err)
	}
	p.dataCh = dataCh

	localTrack, err := pionwebrtc.NewTrackLocalStaticSample(
		pionwebrtc.RTPCodecCapability{MimeType: pionwebrtc.MimeTypeOpus, ClockRate: OpusSampleRate, Channels: OpusChannels},
		"audio", "voicegraph",
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtc: new local track: %w", err)
	}
	if _, err := pc.AddTrack(localTrack); err != nil {
		pc.Close()
		return nil, fmt.Errorf("webrtc: add track: %w", err)
	}
	p.localTrack = localTrack

	p.setupEventHandlers()
	return p, nil
}

func boolPtr(b bool) *bool { return &b }

// OnICEFailed registers a callback invoked after the ICE failure grace
// period elapses with the connection still failed.
func (p *Peer) OnICEFailed(fn func()) { p.onICEFailed = fn }

func (p *Peer) setupEventHandlers() {
	p.pc.OnTrack(func(track *pionwebrtc.TrackRemote, _ *pionwebrtc.RTPReceiver) {
		if track.Kind() != pionwebrtc.RTPCodecTypeAudio {
			return
		}
		go p.readRemoteAudio(track)
	})

	p.pc.OnICEConnectionStateChange(func(state pionwebrtc.ICEConnectionState) {
		if state != pionwebrtc.ICEConnectionStateFailed {
			return
		}
		grace := p.cfg.FailedGrace
		if grace <= 0 {
			grace = FailedGraceDefault
		}
		time.AfterFunc(grace, func() {
			p.mu.Lock()
			stillFailed := p.pc.ICEConnectionState() == pionwebrtc.ICEConnectionStateFailed
			p.mu.Unlock()
			if stillFailed {
				p.logger.Warnw("webrtc: ICE failed grace period elapsed, closing", "session", p.sessionID)
				p.Close()
				if p.onICEFailed != nil {
					p.onICEFailed()
				}
			}
		})
	})
}

// Offer creates the SDP answer for a client-initiated offer (this transport
// adapter always answers, it never offers).
func (p *Peer) Offer(sdp string) (answer string, err error) {
	if err := p.pc.SetRemoteDescription(pionwebrtc.SessionDescription{
		Type: pionwebrtc.SDPTypeOffer, SDP: sdp,
	}); err != nil {
		return "", fmt.Errorf("webrtc: set remote description: %w", err)
	}

	ans, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", fmt.Errorf("webrtc: create answer: %w", err)
	}
	if err := p.pc.SetLocalDescription(ans); err != nil {
		return "", fmt.Errorf("webrtc: set local description: %w", err)
	}
	return ans.SDP, nil
}

// Trickle adds remote ICE candidates.
func (p *Peer) Trickle(candidates []pionwebrtc.ICECandidateInit) error {
	for _, c := range candidates {
		if err := p.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("webrtc: add ice candidate: %w", err)
		}
	}
	return nil
}

func (p *Peer) readRemoteAudio(track *pionwebrtc.TrackRemote) {
	// Mono decoder output matches the single-channel Resample call below.
	dec, err := audio.NewOpusCodec(OpusSampleRate, 1)
	if err != nil {
		p.logger.Errorw("webrtc: new opus decoder", "error", err)
		return
	}

	buf := make([]byte, rtpBufferSize)
	consecutiveErrors := 0
	var turnID uint64

	for {
		n, _, err := track.Read(buf)
		if err != nil {
			return
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil || len(pkt.Payload) == 0 {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutiveErrors {
				return
			}
			continue
		}
		consecutiveErrors = 0

		pcm48, err := dec.Decode(pkt.Payload)
		if err != nil {
			continue
		}
		pcm16, err := audio.Resample(pcm48, OpusSampleRate, InternalRate, 1)
		if err != nil {
			continue
		}

		f := frame.NewAudioInput(turnID, pcm16, InternalRate, InternalChannels)
		if err := p.in.Send(context.Background(), f); err != nil {
			return
		}
	}
}

// Run drains the outbound source and dispatches by frame kind: AudioOutput
// is resampled, Opus-encoded and written to the local track; every other
// frame goes to sendData.
func (p *Peer) Run() error {
	pending := new(bytes.Buffer)
	frameBytes := (OpusSampleRate / 1000) * OpusFrameMs * 2 // PCM16 bytes per 20ms frame @ 48kHz mono

	for {
		f, err := p.out.Recv(context.Background())
		if err != nil {
			return nil
		}
		switch v := f.(type) {
		case *frame.AudioOutput:
			resampled, err := audio.Resample(v.PCM16, v.SampleRate, OpusSampleRate, 1)
			if err != nil {
				p.logger.Debugw("webrtc: resample output failed", "error", err)
				continue
			}
			pending.Write(resampled)
			for pending.Len() >= frameBytes {
				chunk := make([]byte, frameBytes)
				pending.Read(chunk)
				encoded, err := p.opus.Encode(chunk)
				if err != nil {
					p.logger.Debugw("webrtc: opus encode failed", "error", err)
					continue
				}
				if err := p.localTrack.WriteSample(media.Sample{Data: encoded, Duration: time.Duration(OpusFrameMs) * time.Millisecond}); err != nil {
					p.logger.Debugw("webrtc: write sample failed", "error", err)
				}
			}
		default:
			p.sendData(f)
		}
	}
}

// dataMessageFor maps a pipeline frame onto its wire message, applying the
// partial-forwarding gate. The returned bool is false when the frame has no
// client-facing representation (e.g. it was meant only for another stage)
// or is suppressed by the gate.
func dataMessageFor(f frame.Frame, ttsActive, forwardPartialsDuringTTS bool) (interface{}, bool) {
	switch v := f.(type) {
	case *frame.Transcription:
		return transcriptionMessage{Type: "transcription", Text: v.Text, SpeakerID: v.SpeakerID}, true
	case *frame.STTInterim:
		if ttsActive && !forwardPartialsDuringTTS {
			return nil, false
		}
		return partialMessage{Type: "partial", Text: v.Text, SpeakerID: v.SpeakerID}, true
	case *frame.TTSStarted:
		return ttsStateMessage{Type: "tts_state", State: "started"}, true
	case *frame.TTSStopped:
		return ttsStateMessage{Type: "tts_state", State: "stopped"}, true
	case *frame.SystemNote:
		return systemMessage{Type: "system", Message: v.Message}, true
	case *frame.Error:
		return errorMessage{Type: "error", Code: string(v.Kind_), Message: v.Detail}, true
	default:
		return nil, false
	}
}

func (p *Peer) sendData(f frame.Frame) {
	payload, ok := dataMessageFor(f, p.ttsActive, p.cfg.ForwardPartialsDuringTTS)
	if !ok {
		return
	}
	switch f.(type) {
	case *frame.TTSStarted:
		p.ttsActive = true
	case *frame.TTSStopped:
		p.ttsActive = false
	}

	msg, err := json.Marshal(payload)
	if err != nil {
		p.logger.Warnw("webrtc: marshal data message", "error", err, "kind", f.Kind())
		return
	}
	if err := p.dataCh.SendText(string(msg)); err != nil {
		p.logger.Debugw("webrtc: data channel send failed", "error", err)
	}
}

// PublishSnapshot implements observer.SnapshotPublisher by writing the
// metrics snapshot onto the same data channel as other client-bound
// messages.
func (p *Peer) PublishSnapshot(ctx context.Context, s observer.Snapshot) error {
	msg, err := json.Marshal(snapshotMessage{Type: "metrics_snapshot", Snapshot: s})
	if err != nil {
		return fmt.Errorf("webrtc: marshal snapshot: %w", err)
	}
	if err := p.dataCh.SendText(string(msg)); err != nil {
		return fmt.Errorf("webrtc: send snapshot: %w", err)
	}
	return nil
}

// Close tears down the peer connection. Idempotent.
func (p *Peer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.pc.Close()
}
