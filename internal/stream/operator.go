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
	"github.com/artorias1024/risingwave/pkg/errorx"
)

// OperatorKind is the closed set of local operators an actor can run.
type OperatorKind int

const (
	// OpProject projects the listed columns; with no columns it passes
	// rows through unchanged.
	OpProject OperatorKind = iota
	// OpFilter keeps rows whose predicate column is non-zero.
	OpFilter
)

// OperatorSpec describes one operator of a fragment's chain.
type OperatorSpec struct {
	Kind OperatorKind
	// Columns are the projected column indexes for OpProject.
	Columns []int
	// FilterColumn is the predicate column index for OpFilter.
	FilterColumn int
}

// operatorFn transforms a chunk. Barriers never enter operator functions.
type operatorFn func(*Chunk) (*Chunk, error)

// OperatorChain is a fragment's compiled operator chain. It is resolved once
// at graph-build time from the StreamNode tree, innermost operator first.
type OperatorChain struct {
	fns []operatorFn
}

func compileChain(node *StreamNode) (*OperatorChain, error) {
	var fns []operatorFn
	// the StreamNode tree nests inputs, so walk to the leaf and compile
	// back out
	var nodes []*StreamNode
	for n := node; n != nil; n = n.Input {
		nodes = append(nodes, n)
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		fn, err := compileOperator(nodes[i].Op)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return &OperatorChain{fns: fns}, nil
}

func compileOperator(spec OperatorSpec) (operatorFn, error) {
	switch spec.Kind {
	case OpProject:
		columns := spec.Columns
		if len(columns) == 0 {
			return func(c *Chunk) (*Chunk, error) { return c, nil }, nil
		}
		return func(c *Chunk) (*Chunk, error) {
			rows := make([][]int64, 0, len(c.Rows))
			for _, row := range c.Rows {
				projected := make([]int64, len(columns))
				for i, col := range columns {
					if col < 0 || col >= len(row) {
						return nil, errorx.Newf(errorx.RUNTIME_ERR, "project column %d out of range for row of width %d", col, len(row))
					}
					projected[i] = row[col]
				}
				rows = append(rows, projected)
			}
			return &Chunk{Rows: rows}, nil
		}, nil
	case OpFilter:
		col := spec.FilterColumn
		return func(c *Chunk) (*Chunk, error) {
			rows := make([][]int64, 0, len(c.Rows))
			for _, row := range c.Rows {
				if col < 0 || col >= len(row) {
					return nil, errorx.Newf(errorx.RUNTIME_ERR, "filter column %d out of range for row of width %d", col, len(row))
				}
				if row[col] != 0 {
					rows = append(rows, row)
				}
			}
			return &Chunk{Rows: rows}, nil
		}, nil
	default:
		return nil, errorx.Newf(errorx.BUILD_ERR, "unknown operator kind %d", int(spec.Kind))
	}
}

// Apply runs the chain over a message. Barriers pass through untouched.
func (oc *OperatorChain) Apply(msg Message) (Message, error) {
	if msg.IsBarrier() {
		return msg, nil
	}
	chunk := msg.AsChunk()
	for _, fn := range oc.fns {
		out, err := fn(chunk)
		if err != nil {
			return Message{}, err
		}
		chunk = out
	}
	return NewChunkMessage(chunk), nil
}
