// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package vad

import (
	"context"
	"time"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/queue"
)

// AggregatorConfig controls when a held interim settles into a final.
type AggregatorConfig struct {
	StabiliseMs    time.Duration // default 300ms
	HardDeadlineMs time.Duration // default 1.5s
}

func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{StabiliseMs: 300 * time.Millisecond, HardDeadlineMs: 1500 * time.Millisecond}
}

// Aggregator holds STTInterim frames until speech stops and one of the two
// settle conditions fires, then emits exactly one STTFinal. It also raises
// Interrupt{barge_in} if speech resumes while the assistant is speaking.
type Aggregator struct {
	cfg AggregatorConfig

	held          *frame.STTInterim
	speechStopped bool
	assistantTTS  bool

	stabiliseTimer *time.Timer
	deadlineTimer  *time.Timer
	settleCh       chan struct{}
}

func NewAggregator(cfg AggregatorConfig) *Aggregator {
	return &Aggregator{cfg: cfg, settleCh: make(chan struct{}, 1)}
}

func (a *Aggregator) Name() string                { return "turn_aggregator" }
func (a *Aggregator) Start(context.Context) error { return nil }
func (a *Aggregator) Stop(error) error {
	a.stopTimers()
	return nil
}

func (a *Aggregator) stopTimers() {
	if a.stabiliseTimer != nil {
		a.stabiliseTimer.Stop()
	}
	if a.deadlineTimer != nil {
		a.deadlineTimer.Stop()
	}
}

func (a *Aggregator) Process(ctx context.Context, in frame.Frame) ([]frame.Frame, error) {
	switch f := in.(type) {
	case *frame.UserSpeechStarted:
		if a.assistantTTS {
			return []frame.Frame{frame.NewInterrupt(f.TurnID(), frame.InterruptBargeIn)}, nil
		}
		a.speechStopped = false
		return nil, nil

	case *frame.UserSpeechStopped:
		a.speechStopped = true
		a.armDeadline(f.TurnID())
		return nil, nil

	case *frame.STTInterim:
		a.held = f
		if a.speechStopped {
			a.armStabilise(f.TurnID())
		}
		return nil, nil

	case *frame.TTSStarted:
		a.assistantTTS = true
		return nil, nil

	case *frame.TTSStopped:
		a.assistantTTS = false
		return nil, nil

	default:
		return nil, nil
	}
}

// armStabilise restarts the stabilise timer; called every time a new
// interim arrives after speech has stopped, so only an unchanging final
// interim actually settles after StabiliseMs.
func (a *Aggregator) armStabilise(turnID uint64) {
	if a.stabiliseTimer != nil {
		a.stabiliseTimer.Stop()
	}
	a.stabiliseTimer = time.AfterFunc(a.cfg.StabiliseMs, func() { a.settle(turnID) })
}

func (a *Aggregator) armDeadline(turnID uint64) {
	if a.deadlineTimer != nil {
		a.deadlineTimer.Stop()
	}
	a.deadlineTimer = time.AfterFunc(a.cfg.HardDeadlineMs, func() { a.settle(turnID) })
}

func (a *Aggregator) settle(turnID uint64) {
	select {
	case a.settleCh <- struct{}{}:
	default:
	}
}

func (a *Aggregator) drainSettled() (*frame.STTFinal, bool) {
	if a.held == nil {
		return nil, false
	}
	a.stopTimers()
	final := frame.NewSTTFinal(a.held.TurnID(), a.held.Text, a.held.SpeakerID)
	a.held = nil
	a.speechStopped = false
	return final, true
}

// Run drives the aggregator directly instead of going through
// stage.Runner: settlement is timer-driven as well as frame-driven (a
// stabilise window OR a hard deadline, whichever fires first), which the generic
// Process(ctx, one-frame) contract can't express on its own. Run selects
// across the input edge and the internal settle signal so a settle can fire
// between frame arrivals.
func (a *Aggregator) Run(ctx context.Context, in *queue.Edge, out ...*queue.Edge) error {
	defer a.stopTimers()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-a.settleCh:
			if final, ok := a.drainSettled(); ok {
				for _, edge := range out {
					if err := edge.Send(ctx, final); err != nil {
						return nil
					}
				}
			}
		default:
		}

		select {
		case <-ctx.Done():
			return nil
		case <-a.settleCh:
			if final, ok := a.drainSettled(); ok {
				for _, edge := range out {
					if err := edge.Send(ctx, final); err != nil {
						return nil
					}
				}
			}
		case f, ok := <-in.Chan():
			if !ok {
				return nil
			}
			outs, err := a.Process(ctx, f)
			if err != nil {
				continue
			}
			for _, o := range outs {
				for _, edge := range out {
					if err := edge.Send(ctx, o); err != nil {
						return nil
					}
				}
			}
		}
	}
}
