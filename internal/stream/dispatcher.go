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
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/artorias1024/risingwave/pkg/errorx"
)

// output is one downstream edge owned by a dispatcher.
type output struct {
	to FragmentID
	ch chan<- Message
}

// Dispatcher fans an actor's outgoing messages across its downstream
// channels. Routing is resolved from the DispatcherSpec at build time.
// Barriers are never split: every dispatch type broadcasts them to all
// outputs unmodified.
type Dispatcher struct {
	typ       DispatcherType
	columnIdx int
	outputs   []output
	rrCursor  int
}

func NewDispatcher(spec DispatcherSpec, outputs []output) (*Dispatcher, error) {
	switch spec.Type {
	case DispatcherHash, DispatcherRoundRobin:
		if len(outputs) < 1 {
			return nil, errorx.Newf(errorx.BUILD_ERR, "%s dispatch requires at least one output", spec.Type)
		}
	case DispatcherSimple:
	default:
		return nil, errorx.Newf(errorx.BUILD_ERR, "unknown dispatcher type %d", int(spec.Type))
	}
	return &Dispatcher{
		typ:       spec.Type,
		columnIdx: spec.ColumnIdx,
		outputs:   outputs,
	}, nil
}

// Dispatch routes one message downstream. A send blocks while the receiver
// is at capacity; that backpressure is intentional. Context cancellation
// during a send means the peer is gone, which is fatal for the owning actor.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	if msg.IsBarrier() {
		return d.broadcast(ctx, msg)
	}
	switch d.typ {
	case DispatcherSimple:
		return d.broadcast(ctx, msg)
	case DispatcherHash:
		return d.dispatchHash(ctx, msg.AsChunk())
	case DispatcherRoundRobin:
		out := d.outputs[d.rrCursor]
		d.rrCursor = (d.rrCursor + 1) % len(d.outputs)
		return d.send(ctx, out, msg)
	}
	return errorx.Newf(errorx.RUNTIME_ERR, "unreachable dispatcher type %d", int(d.typ))
}

func (d *Dispatcher) broadcast(ctx context.Context, msg Message) error {
	for _, out := range d.outputs {
		if err := d.send(ctx, out, msg); err != nil {
			return err
		}
	}
	return nil
}

// dispatchHash splits a chunk into per-destination sub-chunks by the hash of
// the partition column. Only non-empty sub-chunks are sent; row order within
// a destination is preserved.
func (d *Dispatcher) dispatchHash(ctx context.Context, chunk *Chunk) error {
	parts := make([][][]int64, len(d.outputs))
	for _, row := range chunk.Rows {
		if d.columnIdx < 0 || d.columnIdx >= len(row) {
			return errorx.Newf(errorx.RUNTIME_ERR, "hash column %d out of range for row of width %d", d.columnIdx, len(row))
		}
		idx := hashPartition(row[d.columnIdx], len(d.outputs))
		parts[idx] = append(parts[idx], row)
	}
	for i, rows := range parts {
		if len(rows) == 0 {
			continue
		}
		if err := d.send(ctx, d.outputs[i], NewChunkMessage(&Chunk{Rows: rows})); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) send(ctx context.Context, out output, msg Message) error {
	select {
	case out.ch <- msg:
		return nil
	case <-ctx.Done():
		return errorx.Newf(errorx.RUNTIME_ERR, "send to fragment %d aborted: %v", out.to, ctx.Err())
	}
}

func hashPartition(v int64, buckets int) int {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return int(xxhash.Sum64(b[:]) % uint64(buckets))
}
