// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package stage

import (
	"context"
	"math/rand/v2"
	"reflect"

	"github.com/rapidaai/voicegraph/internal/frame"
	"github.com/rapidaai/voicegraph/internal/queue"
)

// FanIn merges N upstream edges into one logical input, selecting fairly so
// no single input can starve the others, bounded by at most N·capacity
// delay for N inputs. Fairness comes from shuffling the branch
// order passed to reflect.Select on every call, so a busy edge cannot
// permanently win ties against an idle one.
type FanIn struct {
	edges []*queue.Edge
}

func NewFanIn(edges ...*queue.Edge) *FanIn {
	return &FanIn{edges: edges}
}

// Recv returns the next available frame across all inputs, or ctx.Err() if
// ctx is cancelled first.
func (f *FanIn) Recv(ctx context.Context) (frame.Frame, error) {
	order := rand.Perm(len(f.edges))

	cases := make([]reflect.SelectCase, 0, len(order)+1)
	for _, idx := range order {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(f.edges[idx].Chan()),
		})
	}
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})

	chosen, recv, recvOK := reflect.Select(cases)
	if chosen == len(cases)-1 {
		return nil, ctx.Err()
	}
	if !recvOK {
		return nil, context.Canceled
	}
	return recv.Interface().(frame.Frame), nil
}
