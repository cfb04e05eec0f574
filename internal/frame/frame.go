// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

// Package frame defines the tagged-union message taxonomy that flows between
// pipeline stages. Variants are plain structs
// implementing Frame; stages switch on Kind() rather than relying on an
// inheritance hierarchy.
package frame

import "time"

// Kind identifies a Frame variant.
type Kind string

const (
	KindAudioInput          Kind = "audio_input"
	KindAudioOutput         Kind = "audio_output"
	KindUserSpeechStarted   Kind = "user_speech_started"
	KindUserSpeechStopped   Kind = "user_speech_stopped"
	KindSTTInterim          Kind = "stt_interim"
	KindSTTFinal            Kind = "stt_final"
	KindAssistantTextDelta  Kind = "assistant_text_delta"
	KindAssistantTextFinal  Kind = "assistant_text_final"
	KindTTSStarted          Kind = "tts_started"
	KindTTSStopped          Kind = "tts_stopped"
	KindToolCall            Kind = "tool_call"
	KindToolResult          Kind = "tool_result"
	KindInterrupt           Kind = "interrupt"
	KindMetric              Kind = "metric"
	KindError               Kind = "error"
	KindTranscription       Kind = "transcription"
	KindSystemNote          Kind = "system"
	KindEnd                 Kind = "end"
)

// Frame is the interface every variant implements. Turn and Time let stage
// runtime and observers reason about ordering without type-switching twice.
type Frame interface {
	Kind() Kind
	// TurnID is the turn this frame belongs to, or 0 for session-scoped frames
	// (e.g. a frame produced before any turn has opened).
	TurnID() uint64
	// At is the producer-side timestamp, used for TTFB and ordering diagnostics.
	At() time.Time
}

// base is embedded by every concrete frame to provide Turn/At without
// repeating the boilerplate accessor methods.
type base struct {
	Turn uint64
	T    time.Time
}

func (b base) TurnID() uint64 { return b.Turn }
func (b base) At() time.Time  { return b.T }

func newBase(turnID uint64) base {
	return base{Turn: turnID, T: time.Now()}
}

// AudioInput carries one chunk of captured microphone audio, downstream-bound.
type AudioInput struct {
	base
	PCM16      []byte
	SampleRate int
	Channels   int
	TCapture   time.Time
}

func NewAudioInput(turnID uint64, pcm16 []byte, sampleRate, channels int) *AudioInput {
	return &AudioInput{base: newBase(turnID), PCM16: pcm16, SampleRate: sampleRate, Channels: channels, TCapture: time.Now()}
}
func (*AudioInput) Kind() Kind { return KindAudioInput }

// AudioOutput carries one chunk of synthesized audio, upstream-bound to the peer.
type AudioOutput struct {
	base
	PCM16      []byte
	SampleRate int
	Channels   int
	TEmit      time.Time
}

func NewAudioOutput(turnID uint64, pcm16 []byte, sampleRate, channels int) *AudioOutput {
	return &AudioOutput{base: newBase(turnID), PCM16: pcm16, SampleRate: sampleRate, Channels: channels, TEmit: time.Now()}
}
func (*AudioOutput) Kind() Kind { return KindAudioOutput }

// UserSpeechStarted marks VAD detecting the onset of user speech.
type UserSpeechStarted struct{ base }

func NewUserSpeechStarted(turnID uint64) *UserSpeechStarted {
	return &UserSpeechStarted{base: newBase(turnID)}
}
func (*UserSpeechStarted) Kind() Kind { return KindUserSpeechStarted }

// UserSpeechStopped marks VAD detecting the end of user speech (silence hangover elapsed).
type UserSpeechStopped struct{ base }

func NewUserSpeechStopped(turnID uint64) *UserSpeechStopped {
	return &UserSpeechStopped{base: newBase(turnID)}
}
func (*UserSpeechStopped) Kind() Kind { return KindUserSpeechStopped }

// STTInterim is a provisional transcription hypothesis.
type STTInterim struct {
	base
	Text      string
	SpeakerID string // opaque, empty if unknown
}

func NewSTTInterim(turnID uint64, text, speakerID string) *STTInterim {
	return &STTInterim{base: newBase(turnID), Text: text, SpeakerID: speakerID}
}
func (*STTInterim) Kind() Kind { return KindSTTInterim }

// STTFinal is the aggregator's single settled transcription for a turn.
type STTFinal struct {
	base
	Text      string
	SpeakerID string
}

func NewSTTFinal(turnID uint64, text, speakerID string) *STTFinal {
	return &STTFinal{base: newBase(turnID), Text: text, SpeakerID: speakerID}
}
func (*STTFinal) Kind() Kind { return KindSTTFinal }

// AssistantTextDelta is one streamed token/fragment of the assistant's reply.
type AssistantTextDelta struct {
	base
	Text string
}

func NewAssistantTextDelta(turnID uint64, text string) *AssistantTextDelta {
	return &AssistantTextDelta{base: newBase(turnID), Text: text}
}
func (*AssistantTextDelta) Kind() Kind { return KindAssistantTextDelta }

// AssistantTextFinal is the fully assembled assistant reply text for a turn.
type AssistantTextFinal struct {
	base
	Text string
}

func NewAssistantTextFinal(turnID uint64, text string) *AssistantTextFinal {
	return &AssistantTextFinal{base: newBase(turnID), Text: text}
}
func (*AssistantTextFinal) Kind() Kind { return KindAssistantTextFinal }

// TTSStarted is emitted at the first outgoing audio frame of a synthesis unit.
type TTSStarted struct{ base }

func NewTTSStarted(turnID uint64) *TTSStarted { return &TTSStarted{base: newBase(turnID)} }
func (*TTSStarted) Kind() Kind                { return KindTTSStarted }

// TTSStopped is emitted when the last frame of a synthesis unit has been flushed.
type TTSStopped struct{ base }

func NewTTSStopped(turnID uint64) *TTSStopped { return &TTSStopped{base: newBase(turnID)} }
func (*TTSStopped) Kind() Kind                { return KindTTSStopped }

// ToolCall is a structured function-invocation request emitted by the LLM adapter.
type ToolCall struct {
	base
	Name   string
	Args   map[string]interface{}
	CallID string
}

func NewToolCall(turnID uint64, name, callID string, args map[string]interface{}) *ToolCall {
	return &ToolCall{base: newBase(turnID), Name: name, Args: args, CallID: callID}
}
func (*ToolCall) Kind() Kind { return KindToolCall }

// ToolResult resolves exactly one ToolCall by CallID.
type ToolResult struct {
	base
	CallID string
	Value  string
	Err    string // mutually exclusive with Value
}

func NewToolResult(turnID uint64, callID, value string) *ToolResult {
	return &ToolResult{base: newBase(turnID), CallID: callID, Value: value}
}
func NewToolResultError(turnID uint64, callID, errMsg string) *ToolResult {
	return &ToolResult{base: newBase(turnID), CallID: callID, Err: errMsg}
}
func (*ToolResult) Kind() Kind { return KindToolResult }

// InterruptReason names why an Interrupt frame was raised.
type InterruptReason string

const (
	InterruptBargeIn    InterruptReason = "barge_in"
	InterruptClientStop InterruptReason = "client_stop"
	InterruptToolEnd    InterruptReason = "tool_end_conversation"
)

// Interrupt preempts downstream output for the current turn. Idempotent
// within a turn: redelivery after the first has no effect,
// enforced by the consuming stage, not by this type.
type Interrupt struct {
	base
	Reason InterruptReason
}

func NewInterrupt(turnID uint64, reason InterruptReason) *Interrupt {
	return &Interrupt{base: newBase(turnID), Reason: reason}
}
func (*Interrupt) Kind() Kind { return KindInterrupt }

// MetricKind enumerates the metric kinds the pipeline records.
type MetricKind string

const (
	MetricSTTTTFB      MetricKind = "stt_ttfb_ms"
	MetricMemoryTTFB   MetricKind = "memory_ttfb_ms"
	MetricLLMTTFB      MetricKind = "llm_ttfb_ms"
	MetricTTSTTFB      MetricKind = "tts_ttfb_ms"
	MetricTotal        MetricKind = "total_ms"
	MetricGateSuppress MetricKind = "gate_suppress"
	MetricDrop         MetricKind = "drop"
)

// Metric reports a stage timing or event for a turn. Absence of a Metric
// frame for a (stage, turn) pair means the measurement never happened —
// never a fabricated zero.
type Metric struct {
	base
	Stage string
	Kind_ MetricKind
	Value float64
}

func NewMetric(turnID uint64, stage string, kind MetricKind, value float64) *Metric {
	return &Metric{base: newBase(turnID), Stage: stage, Kind_: kind, Value: value}
}
func (*Metric) Kind() Kind { return KindMetric }

// ErrorKind enumerates the stage failure taxonomy.
type ErrorKind string

const (
	ErrTransientNetwork    ErrorKind = "transient_network"
	ErrProviderUnavailable ErrorKind = "provider_unavailable"
	ErrBadInput            ErrorKind = "bad_input"
	ErrPolicyViolation     ErrorKind = "policy_violation"
	ErrDeadlineExceeded    ErrorKind = "deadline_exceeded"
	ErrInternalInvariant   ErrorKind = "internal_invariant"
)

// Error reports a stage-level failure, mapped onto a data-channel error message.
type Error struct {
	base
	Stage  string
	Kind_  ErrorKind
	Detail string
}

func NewError(turnID uint64, stage string, kind ErrorKind, detail string) *Error {
	return &Error{base: newBase(turnID), Stage: stage, Kind_: kind, Detail: detail}
}
func (*Error) Kind() Kind { return KindError }

// Transcription is the client-facing record of a settled turn's recognized
// speech, emitted once the turn has cleared any gating and is about to be
// answered.
type Transcription struct {
	base
	Text      string
	SpeakerID string
}

func NewTranscription(turnID uint64, text, speakerID string) *Transcription {
	return &Transcription{base: newBase(turnID), Text: text, SpeakerID: speakerID}
}
func (*Transcription) Kind() Kind { return KindTranscription }

// SystemNote is a short human-readable annotation surfaced to the client
// out-of-band from the audio/text exchange, e.g. why a turn was suppressed.
type SystemNote struct {
	base
	Message string
}

func NewSystemNote(turnID uint64, message string) *SystemNote {
	return &SystemNote{base: newBase(turnID), Message: message}
}
func (*SystemNote) Kind() Kind { return KindSystemNote }

// End marks the definitive end of a stream (session teardown).
type End struct{ base }

func NewEnd(turnID uint64) *End { return &End{base: newBase(turnID)} }
func (*End) Kind() Kind         { return KindEnd }
