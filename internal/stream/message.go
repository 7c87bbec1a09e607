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

import "fmt"

type (
	// ActorID identifies one running actor instance.
	ActorID uint32
	// FragmentID identifies one logical fragment of the execution graph.
	FragmentID uint32
	// Epoch is the logical checkpoint counter carried by barriers. It is
	// non-decreasing on every channel.
	Epoch uint64
)

// Mutation is the control payload carried by a barrier.
type Mutation int

const (
	MutationNothing Mutation = iota
	// MutationStop is the terminal marker of a channel. No message may
	// follow it.
	MutationStop
	// MutationUpdate carries a membership change for the actor registry.
	MutationUpdate
)

func (m Mutation) String() string {
	switch m {
	case MutationNothing:
		return "nothing"
	case MutationStop:
		return "stop"
	case MutationUpdate:
		return "update"
	default:
		return fmt.Sprintf("mutation(%d)", int(m))
	}
}

// Barrier delimits a checkpoint on its channel. The epoch of a Stop barrier
// has no significance beyond the barrier being the terminal marker.
type Barrier struct {
	Epoch    Epoch
	Mutation Mutation
	// Update is set only when Mutation is MutationUpdate.
	Update []ActorInfo
}

func (b Barrier) IsStop() bool {
	return b.Mutation == MutationStop
}

// Chunk is a batch of rows. Columnar encodings are an external concern; the
// core only needs addressable column values for hash partitioning.
type Chunk struct {
	Rows [][]int64
}

func (c *Chunk) Cardinality() int {
	return len(c.Rows)
}

// Message is a closed tagged union of Chunk and Barrier. Exactly one of the
// two fields is set; use the constructors.
type Message struct {
	chunk   *Chunk
	barrier *Barrier
}

func NewChunkMessage(c *Chunk) Message {
	return Message{chunk: c}
}

func NewBarrierMessage(b Barrier) Message {
	return Message{barrier: &b}
}

func (m Message) IsBarrier() bool {
	return m.barrier != nil
}

func (m Message) AsChunk() *Chunk {
	return m.chunk
}

func (m Message) AsBarrier() (Barrier, bool) {
	if m.barrier == nil {
		return Barrier{}, false
	}
	return *m.barrier, true
}

func (m Message) String() string {
	if m.barrier != nil {
		return fmt.Sprintf("barrier{epoch=%d, mutation=%s}", m.barrier.Epoch, m.barrier.Mutation)
	}
	if m.chunk != nil {
		return fmt.Sprintf("chunk{rows=%d}", m.chunk.Cardinality())
	}
	return "empty"
}
