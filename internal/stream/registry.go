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

import "sync"

// ActorInfo locates one actor in the cluster. It is immutable once
// registered; registry updates replace the whole table.
type ActorInfo struct {
	ActorID    ActorID
	FragmentID FragmentID
	Host       string
}

// Registry maps actor ids to their fragment and network location. It is
// replaced wholesale by membership broadcasts and read during graph builds.
type Registry struct {
	mu         sync.RWMutex
	byActor    map[ActorID]ActorInfo
	byFragment map[FragmentID][]ActorInfo
}

func NewRegistry() *Registry {
	return &Registry{
		byActor:    make(map[ActorID]ActorInfo),
		byFragment: make(map[FragmentID][]ActorInfo),
	}
}

// Update atomically replaces the whole actor table. Readers observe either
// the previous table or the new one, never a mix.
func (r *Registry) Update(infos []ActorInfo) {
	byActor := make(map[ActorID]ActorInfo, len(infos))
	byFragment := make(map[FragmentID][]ActorInfo)
	for _, info := range infos {
		byActor[info.ActorID] = info
		byFragment[info.FragmentID] = append(byFragment[info.FragmentID], info)
	}
	r.mu.Lock()
	r.byActor = byActor
	r.byFragment = byFragment
	r.mu.Unlock()
}

func (r *Registry) Lookup(id ActorID) (ActorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.byActor[id]
	return info, ok
}

// ActorsOfFragment returns the actors registered for a fragment id.
func (r *Registry) ActorsOfFragment(id FragmentID) []ActorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byFragment[id]
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byActor)
}
