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
	"errors"
	"fmt"
	"sync"

	"github.com/artorias1024/risingwave/internal/conf"
	"github.com/artorias1024/risingwave/pkg/errorx"
	"github.com/artorias1024/risingwave/pkg/infra"
)

// Edge is one directed channel between two fragments.
type Edge struct {
	Up   FragmentID
	Down FragmentID
}

// Manager owns the local actor graph: the registry snapshot, the fragment
// table, the channels between actors and the actors themselves.
type Manager struct {
	mu        sync.Mutex
	registry  *Registry
	fragments map[FragmentID]*Fragment
	built     map[FragmentID]bool
	channels  map[Edge]chan Message
	// sourceEdges are external injection edges in build order.
	sourceEdges []Edge
	actors      map[FragmentID]*Actor
	chanCap     int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errMu  sync.Mutex
	errs   []error
}

func NewManager(c *conf.StreamConf) *Manager {
	if c == nil {
		c = conf.DefaultConf()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		registry:  NewRegistry(),
		fragments: make(map[FragmentID]*Fragment),
		built:     make(map[FragmentID]bool),
		channels:  make(map[Edge]chan Message),
		actors:    make(map[FragmentID]*Actor),
		chanCap:   c.ChannelCapacity,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// UpdateActorInfo replaces the whole actor location table, typically from a
// broadcast of the current cluster membership.
func (m *Manager) UpdateActorInfo(infos []ActorInfo) {
	m.registry.Update(infos)
}

// UpdateFragments registers fragment descriptors for a later build. A
// duplicate fragment id is rejected.
func (m *Manager) UpdateFragments(fragments []*Fragment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range fragments {
		if err := f.validate(); err != nil {
			return err
		}
		if _, ok := m.fragments[f.FragmentID]; ok {
			return errorx.Newf(errorx.BUILD_ERR, "fragment %d is already registered", f.FragmentID)
		}
	}
	for _, f := range fragments {
		m.fragments[f.FragmentID] = f
	}
	return nil
}

// BuildFragments instantiates and starts the actors for the given fragment
// ids. The build is two-phase: every reference is resolved before anything
// is wired, so an unresolved id fails the whole batch with no partial graph
// left behind. Rebuilding a built fragment id is rejected, as is the same id
// twice in one batch: a fragment gets exactly one actor on its channels.
func (m *Manager) BuildFragments(ids []FragmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// phase 1: resolve everything
	seen := make(map[FragmentID]bool, len(ids))
	for _, id := range ids {
		f, ok := m.fragments[id]
		if !ok {
			return errorx.Newf(errorx.BUILD_ERR, "fragment %d is not registered", id)
		}
		if m.built[id] {
			return errorx.Newf(errorx.BUILD_ERR, "fragment %d is already built", id)
		}
		if seen[id] {
			return errorx.Newf(errorx.BUILD_ERR, "fragment %d appears twice in one build", id)
		}
		seen[id] = true
		if len(m.registry.ActorsOfFragment(id)) == 0 {
			return errorx.Newf(errorx.BUILD_ERR, "no actor registered for fragment %d", id)
		}
		if mn := f.mergeNode(); mn != nil {
			for _, up := range mn.UpstreamFragmentIDs {
				if up == ExternalFragmentID {
					continue
				}
				if len(m.registry.ActorsOfFragment(up)) == 0 {
					return errorx.Newf(errorx.BUILD_ERR, "fragment %d: unresolved upstream fragment %d", id, up)
				}
			}
		}
		for _, down := range f.DownstreamFragmentIDs {
			if len(m.registry.ActorsOfFragment(down)) == 0 {
				return errorx.Newf(errorx.BUILD_ERR, "fragment %d: unresolved downstream fragment %d", id, down)
			}
		}
		if _, err := compileChain(f.Node); err != nil {
			return err
		}
	}

	// phase 2: wire mergers, dispatchers and actors
	newActors := make([]*Actor, 0, len(ids))
	for _, id := range ids {
		f := m.fragments[id]
		actor, err := m.buildActor(f)
		if err != nil {
			return err
		}
		newActors = append(newActors, actor)
	}

	// phase 3: nothing can fail past this point, start everything
	for _, actor := range newActors {
		m.built[actor.fragmentID] = true
		m.actors[actor.fragmentID] = actor
		m.startActor(actor)
	}
	return nil
}

func (m *Manager) buildActor(f *Fragment) (*Actor, error) {
	info := m.registry.ActorsOfFragment(f.FragmentID)[0]
	logger := conf.Log.WithField("fragment", f.FragmentID)

	upstreams := []FragmentID{ExternalFragmentID}
	if mn := f.mergeNode(); mn != nil {
		upstreams = mn.UpstreamFragmentIDs
	}
	inputs := make([]<-chan Message, 0, len(upstreams))
	for _, up := range upstreams {
		e := Edge{Up: up, Down: f.FragmentID}
		inputs = append(inputs, m.channel(e))
		if up == ExternalFragmentID {
			m.sourceEdges = append(m.sourceEdges, e)
		}
	}
	merger := newMerger(f.FragmentID, upstreams, inputs, m.chanCap, logger)

	var dispatcher *Dispatcher
	if f.Dispatcher != nil && len(f.DownstreamFragmentIDs) > 0 {
		outputs := make([]output, 0, len(f.DownstreamFragmentIDs))
		for _, down := range f.DownstreamFragmentIDs {
			outputs = append(outputs, output{to: down, ch: m.channel(Edge{Up: f.FragmentID, Down: down})})
		}
		d, err := NewDispatcher(*f.Dispatcher, outputs)
		if err != nil {
			return nil, err
		}
		dispatcher = d
	}

	chain, err := compileChain(f.Node)
	if err != nil {
		return nil, err
	}

	return &Actor{
		actorID:    info.ActorID,
		fragmentID: f.FragmentID,
		merger:     merger,
		dispatcher: dispatcher,
		chain:      chain,
		logger:     logger,
	}, nil
}

func (m *Manager) startActor(actor *Actor) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := infra.SafeRun(func() error {
			return actor.run(m.ctx)
		})
		if err != nil {
			actor.logger.Errorf("actor %d failed: %v", actor.actorID, err)
			m.errMu.Lock()
			m.errs = append(m.errs, fmt.Errorf("fragment %d: %w", actor.fragmentID, err))
			m.errMu.Unlock()
			// unblock the rest of the graph so WaitAll can return
			m.cancel()
		}
	}()
}

func (m *Manager) channel(e Edge) chan Message {
	if ch, ok := m.channels[e]; ok {
		return ch
	}
	ch := make(chan Message, m.chanCap)
	m.channels[e] = ch
	return ch
}

// TakeSource returns the send side of the first external injection edge.
// Valid only after a successful build of a fragment with an external
// upstream.
func (m *Manager) TakeSource() (chan<- Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sourceEdges) == 0 {
		return nil, false
	}
	return m.channels[m.sourceEdges[0]], true
}

// TakeSink returns the receive side of the channel for edge e. The
// downstream end of the edge need not be built locally; this is how the
// terminal output of the local graph is consumed.
func (m *Manager) TakeSink(e Edge) <-chan Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channel(e)
}

// ActorState reports the lifecycle state of a built fragment's actor.
func (m *Manager) ActorState(id FragmentID) (ActorState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	actor, ok := m.actors[id]
	if !ok {
		return ActorInitializing, false
	}
	return actor.State(), true
}

// WaitAll joins every started actor and reports their collected failures.
// The deadline, if any, is the caller's via ctx.
func (m *Manager) WaitAll(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return errors.Join(m.errs...)
}

// Cancel tears the local graph down. Idempotent.
func (m *Manager) Cancel() {
	m.cancel()
}
