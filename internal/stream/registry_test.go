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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBulkReplace(t *testing.T) {
	r := NewRegistry()
	r.Update([]ActorInfo{
		{ActorID: 1, FragmentID: 1, Host: "10.0.0.1:5688"},
		{ActorID: 2, FragmentID: 1, Host: "10.0.0.2:5688"},
		{ActorID: 3, FragmentID: 3, Host: "10.0.0.1:5688"},
	})
	require.Equal(t, 3, r.Len())
	assert.Len(t, r.ActorsOfFragment(1), 2)

	info, ok := r.Lookup(3)
	require.True(t, ok)
	assert.Equal(t, FragmentID(3), info.FragmentID)

	// an update replaces the table wholesale
	r.Update([]ActorInfo{{ActorID: 9, FragmentID: 9, Host: "10.0.0.9:5688"}})
	require.Equal(t, 1, r.Len())
	_, ok = r.Lookup(1)
	assert.False(t, ok)
	assert.Empty(t, r.ActorsOfFragment(1))
}

func TestRegistryConcurrentReaders(t *testing.T) {
	r := NewRegistry()
	r.Update([]ActorInfo{{ActorID: 1, FragmentID: 1, Host: "a"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				info, ok := r.Lookup(1)
				// readers see the old or the new table, never a mix
				if ok {
					assert.Equal(t, FragmentID(1), info.FragmentID)
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		r.Update([]ActorInfo{{ActorID: 1, FragmentID: 1, Host: "b"}})
	}
	wg.Wait()
}
