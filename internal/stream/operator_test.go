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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectPassThrough(t *testing.T) {
	chain, err := compileChain(&StreamNode{Op: OperatorSpec{Kind: OpProject}})
	require.NoError(t, err)

	chunk := &Chunk{Rows: [][]int64{{1, 2, 3}}}
	out, err := chain.Apply(NewChunkMessage(chunk))
	require.NoError(t, err)
	// identity projection forwards the chunk untouched
	assert.Same(t, chunk, out.AsChunk())
}

func TestProjectColumns(t *testing.T) {
	chain, err := compileChain(&StreamNode{Op: OperatorSpec{Kind: OpProject, Columns: []int{2, 0}}})
	require.NoError(t, err)

	out, err := chain.Apply(NewChunkMessage(&Chunk{Rows: [][]int64{{1, 2, 3}, {4, 5, 6}}}))
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{3, 1}, {6, 4}}, out.AsChunk().Rows)
}

func TestFilterKeepsNonZero(t *testing.T) {
	chain, err := compileChain(&StreamNode{Op: OperatorSpec{Kind: OpFilter, FilterColumn: 1}})
	require.NoError(t, err)

	out, err := chain.Apply(NewChunkMessage(&Chunk{Rows: [][]int64{{1, 0}, {2, 1}, {3, 0}, {4, 7}}}))
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{2, 1}, {4, 7}}, out.AsChunk().Rows)
}

func TestChainedOperators(t *testing.T) {
	// filter on column 1, then project column 0: innermost node runs first
	chain, err := compileChain(&StreamNode{
		Op: OperatorSpec{Kind: OpProject, Columns: []int{0}},
		Input: &StreamNode{
			Op: OperatorSpec{Kind: OpFilter, FilterColumn: 1},
		},
	})
	require.NoError(t, err)

	out, err := chain.Apply(NewChunkMessage(&Chunk{Rows: [][]int64{{1, 0}, {2, 1}}}))
	require.NoError(t, err)
	assert.Equal(t, [][]int64{{2}}, out.AsChunk().Rows)
}

func TestBarriersBypassOperators(t *testing.T) {
	chain, err := compileChain(&StreamNode{Op: OperatorSpec{Kind: OpProject, Columns: []int{9}}})
	require.NoError(t, err)

	msg := NewBarrierMessage(Barrier{Epoch: 5, Mutation: MutationUpdate, Update: []ActorInfo{{ActorID: 1}}})
	out, err := chain.Apply(msg)
	require.NoError(t, err)
	b, ok := out.AsBarrier()
	require.True(t, ok)
	assert.Equal(t, Epoch(5), b.Epoch)
	assert.Equal(t, MutationUpdate, b.Mutation)
	assert.Len(t, b.Update, 1)
}

func TestOperatorErrors(t *testing.T) {
	chain, err := compileChain(&StreamNode{Op: OperatorSpec{Kind: OpProject, Columns: []int{5}}})
	require.NoError(t, err)
	_, err = chain.Apply(NewChunkMessage(&Chunk{Rows: [][]int64{{1}}}))
	assert.Error(t, err)

	_, err = compileChain(&StreamNode{Op: OperatorSpec{Kind: OperatorKind(99)}})
	assert.Error(t, err)
}
