// Copyright 2023 RisingWave Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stream

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/artorias1024/risingwave/pkg/errorx"
)

type ActorState int32

const (
	ActorInitializing ActorState = iota
	ActorRunning
	ActorStopped
)

func (s ActorState) String() string {
	switch s {
	case ActorInitializing:
		return "initializing"
	case ActorRunning:
		return "running"
	case ActorStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Actor runs one fragment's operator chain as an independently scheduled
// unit: pull from the merger, apply the chain, push through the dispatcher.
type Actor struct {
	actorID    ActorID
	fragmentID FragmentID
	merger     *Merger
	// dispatcher is nil for a pure sink fragment.
	dispatcher *Dispatcher
	chain      *OperatorChain
	state      atomic.Int32
	logger     *logrus.Entry
}

func (a *Actor) State() ActorState {
	return ActorState(a.state.Load())
}

func (a *Actor) FragmentID() FragmentID {
	return a.fragmentID
}

// run is the actor's message pump. It returns nil on a clean Stop and a
// fatal error otherwise. A cancelled context means some other actor failed
// and the graph is being torn down; that is not this actor's error.
func (a *Actor) run(ctx context.Context) error {
	a.merger.open(ctx)
	a.logger.Debugf("actor %d started", a.actorID)
	for {
		select {
		case msg, ok := <-a.merger.Output():
			if !ok {
				return nil
			}
			if a.State() == ActorInitializing {
				a.state.Store(int32(ActorRunning))
			}
			out, err := a.chain.Apply(msg)
			if err != nil {
				GetStreamMetrics().ActorErrors.WithLabelValues(strconv.Itoa(int(a.fragmentID))).Inc()
				return errorx.Newf(errorx.RUNTIME_ERR, "operator chain of fragment %d: %v", a.fragmentID, err)
			}
			if b, isBarrier := out.AsBarrier(); isBarrier && b.IsStop() {
				if a.dispatcher != nil {
					if err := a.dispatcher.Dispatch(ctx, out); err != nil {
						GetStreamMetrics().ActorErrors.WithLabelValues(strconv.Itoa(int(a.fragmentID))).Inc()
						return err
					}
				}
				a.state.Store(int32(ActorStopped))
				a.logger.Debugf("actor %d stopped", a.actorID)
				return nil
			}
			if a.dispatcher != nil {
				if err := a.dispatcher.Dispatch(ctx, out); err != nil {
					GetStreamMetrics().ActorErrors.WithLabelValues(strconv.Itoa(int(a.fragmentID))).Inc()
					return err
				}
			}
		case <-ctx.Done():
			return nil
		}
	}
}
