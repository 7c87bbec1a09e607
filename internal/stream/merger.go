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

	"github.com/sirupsen/logrus"

	"github.com/artorias1024/risingwave/pkg/infra"
)

type mergeInput struct {
	from FragmentID
	ch   <-chan Message
	// resume releases the input pump after an alignment round completes.
	// Closed on the terminal round.
	resume    chan struct{}
	lastEpoch Epoch
	sawEpoch  bool
}

// reachedBarrier reports that one upstream channel delivered its barrier for
// the current alignment round.
type reachedBarrier struct {
	from    FragmentID
	barrier Barrier
}

// Merger fans N upstream channels into one ordered stream for the owning
// actor. Chunks pass through immediately; a barrier is emitted downstream
// only once every upstream channel has delivered it. After a channel reaches
// the barrier the merger stops pulling from it until the round completes,
// which is what throttles fast producers behind slow ones.
type Merger struct {
	owner     FragmentID
	inputs    []*mergeInput
	output    chan Message
	barrierCh chan reachedBarrier
	logger    *logrus.Entry
}

func newMerger(owner FragmentID, upstreams []FragmentID, channels []<-chan Message, capacity int, logger *logrus.Entry) *Merger {
	m := &Merger{
		owner:     owner,
		output:    make(chan Message, capacity),
		barrierCh: make(chan reachedBarrier, len(upstreams)),
		logger:    logger,
	}
	for i, up := range upstreams {
		m.inputs = append(m.inputs, &mergeInput{
			from:   up,
			ch:     channels[i],
			resume: make(chan struct{}, 1),
		})
	}
	return m
}

// Output is the single merged stream consumed by the owning actor. It is
// closed after the merged Stop barrier has been emitted.
func (m *Merger) Output() <-chan Message {
	return m.output
}

func (m *Merger) open(ctx context.Context) {
	for _, in := range m.inputs {
		in := in
		go func() {
			_ = infra.SafeRun(func() error {
				m.pump(ctx, in)
				return nil
			})
		}()
	}
	go func() {
		_ = infra.SafeRun(func() error {
			m.align(ctx)
			return nil
		})
	}()
}

// pump forwards one upstream channel. Chunks go straight to the merged
// output; a barrier is handed to the aligner and the pump parks until the
// alignment round completes.
func (m *Merger) pump(ctx context.Context, in *mergeInput) {
	for {
		select {
		case msg, ok := <-in.ch:
			if !ok {
				return
			}
			b, isBarrier := msg.AsBarrier()
			if !isBarrier {
				select {
				case m.output <- msg:
				case <-ctx.Done():
					return
				}
				continue
			}
			// the epoch of a Stop barrier is not significant
			if !b.IsStop() {
				if in.sawEpoch && b.Epoch < in.lastEpoch {
					m.logger.Errorf("epoch regression on channel %d->%d: %d after %d", in.from, m.owner, b.Epoch, in.lastEpoch)
					GetStreamMetrics().EpochViolations.WithLabelValues(strconv.Itoa(int(m.owner))).Inc()
				}
				in.lastEpoch = b.Epoch
				in.sawEpoch = true
			}
			select {
			case m.barrierCh <- reachedBarrier{from: in.from, barrier: b}:
			case <-ctx.Done():
				return
			}
			select {
			case _, again := <-in.resume:
				if !again {
					// terminal round, channel is done
					return
				}
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// align collects one barrier per upstream channel, emits the merged barrier
// and releases the pumps for the next round. A Stop round closes the merged
// output and terminates the merger.
func (m *Merger) align(ctx context.Context) {
	n := len(m.inputs)
	for {
		var first Barrier
		seen := 0
		for seen < n {
			select {
			case r := <-m.barrierCh:
				if seen == 0 {
					first = r.barrier
				} else if r.barrier.Epoch != first.Epoch || r.barrier.IsStop() != first.IsStop() {
					m.logger.Errorf("misaligned barrier from channel %d->%d: got %+v while aligning %+v", r.from, m.owner, r.barrier, first)
					GetStreamMetrics().BarrierMisalignments.WithLabelValues(strconv.Itoa(int(m.owner))).Inc()
				}
				seen++
			case <-ctx.Done():
				return
			}
		}
		select {
		case m.output <- NewBarrierMessage(first):
		case <-ctx.Done():
			return
		}
		if first.IsStop() {
			for _, in := range m.inputs {
				close(in.resume)
			}
			close(m.output)
			return
		}
		for _, in := range m.inputs {
			in.resume <- struct{}{}
		}
	}
}
