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

// ExternalFragmentID marks an upstream edge fed from outside the graph,
// e.g. by the data injection endpoint of the manager.
const ExternalFragmentID FragmentID = 0

// DispatcherType selects the fan-out strategy of a fragment's dispatcher.
// The set is closed; routing is resolved at graph-build time.
type DispatcherType int

const (
	// DispatcherSimple sends every message to every registered output. It
	// serves both single-consumer pass-through and true broadcast.
	DispatcherSimple DispatcherType = iota
	DispatcherHash
	DispatcherRoundRobin
)

func (t DispatcherType) String() string {
	switch t {
	case DispatcherSimple:
		return "simple"
	case DispatcherHash:
		return "hash"
	case DispatcherRoundRobin:
		return "roundrobin"
	default:
		return "unknown"
	}
}

// DispatcherSpec describes a fragment's outgoing dispatcher. ColumnIdx is
// only meaningful for hash dispatch.
type DispatcherSpec struct {
	Type      DispatcherType
	ColumnIdx int
}

// MergeNode declares the fan-in point of a fragment: the upstream fragments
// it consumes from and the expected input width.
type MergeNode struct {
	UpstreamFragmentIDs []FragmentID
	InputColumnCount    int
}

// StreamNode is one node of a fragment's local operator chain. The chain is
// a tree with at most one MergeNode leaf.
type StreamNode struct {
	Op    OperatorSpec
	Merge *MergeNode
	Input *StreamNode
}

// Fragment is the logical unit of the execution graph before actor
// instantiation. It is created once at graph-build time and read-only
// thereafter.
type Fragment struct {
	FragmentID            FragmentID
	Node                  *StreamNode
	Dispatcher            *DispatcherSpec
	DownstreamFragmentIDs []FragmentID
}

// mergeNode walks the operator tree and returns its merge point, if any.
func (f *Fragment) mergeNode() *MergeNode {
	for n := f.Node; n != nil; n = n.Input {
		if n.Merge != nil {
			return n.Merge
		}
	}
	return nil
}

func (f *Fragment) validate() error {
	if f.FragmentID == ExternalFragmentID {
		return errorx.Newf(errorx.BUILD_ERR, "fragment id %d is reserved for external edges", ExternalFragmentID)
	}
	if f.Node == nil {
		return errorx.Newf(errorx.BUILD_ERR, "fragment %d has no operator chain", f.FragmentID)
	}
	if f.Dispatcher != nil {
		switch f.Dispatcher.Type {
		case DispatcherHash, DispatcherRoundRobin:
			if len(f.DownstreamFragmentIDs) < 1 {
				return errorx.Newf(errorx.BUILD_ERR, "fragment %d: %s dispatch requires at least one downstream fragment",
					f.FragmentID, f.Dispatcher.Type)
			}
		case DispatcherSimple:
		default:
			return errorx.Newf(errorx.BUILD_ERR, "fragment %d: unknown dispatcher type %d", f.FragmentID, int(f.Dispatcher.Type))
		}
	}
	return nil
}
