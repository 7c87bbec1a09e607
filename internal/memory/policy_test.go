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

package memory

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artorias1024/risingwave/pkg/timex"
)

func applyOnce(t *testing.T, p *StepPolicy, usage int64, prev Stats, watermark *atomic.Uint64) (Stats, *fakeOwner, *fakeOwner) {
	t.Helper()
	prev.AllocatorResidentBytes = usage
	batch := &fakeOwner{}
	stream := &fakeOwner{}
	next := p.Apply(1000, 100, prev, batch, stream, watermark)
	return next, batch, stream
}

func TestStepPolicyBelowGraceful(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Hour)
	watermark := new(atomic.Uint64)

	next, batch, stream := applyOnce(t, NewStepPolicy(), 500, Stats{}, watermark)
	assert.Equal(t, int64(0), next.WatermarkStep)
	assert.Equal(t, int64(0), next.WatermarkTimeMs)
	assert.Empty(t, batch.evictedBelow)
	assert.Empty(t, stream.evictedBelow)
}

func TestStepPolicyGracefulHoldsStep(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Hour)
	watermark := new(atomic.Uint64)
	p := NewStepPolicy()

	next, _, _ := applyOnce(t, p, 750, Stats{}, watermark)
	assert.Equal(t, int64(1), next.WatermarkStep)
	assert.Equal(t, int64(100), next.WatermarkTimeMs)

	next, _, _ = applyOnce(t, p, 750, next, watermark)
	assert.Equal(t, int64(1), next.WatermarkStep)
	assert.Equal(t, int64(200), next.WatermarkTimeMs)
}

func TestStepPolicyStopDoublesStep(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Hour)
	watermark := new(atomic.Uint64)
	p := NewStepPolicy()

	next, batch, stream := applyOnce(t, p, 950, Stats{}, watermark)
	assert.Equal(t, int64(1), next.WatermarkStep)
	assert.Equal(t, int64(100), next.WatermarkTimeMs)
	require.Len(t, batch.evictedBelow, 1)
	assert.Equal(t, int64(100), batch.evictedBelow[0])
	require.Len(t, stream.evictedBelow, 1)

	next, _, _ = applyOnce(t, p, 950, next, watermark)
	assert.Equal(t, int64(2), next.WatermarkStep)
	assert.Equal(t, int64(300), next.WatermarkTimeMs)

	next, _, _ = applyOnce(t, p, 950, next, watermark)
	assert.Equal(t, int64(4), next.WatermarkStep)
	assert.Equal(t, int64(700), next.WatermarkTimeMs)
	assert.Equal(t, uint64(700), watermark.Load())
}

func TestStepPolicyStepBoundedAtWallClock(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Second)
	watermark := new(atomic.Uint64)
	p := NewStepPolicy()

	// once the watermark caught the wall clock, doubling stops
	now := timex.GetNowInMilli()
	prev := Stats{WatermarkStep: 8, WatermarkTimeMs: now, PhysicalNowMs: now}
	next, _, _ := applyOnce(t, p, 950, prev, watermark)
	assert.Equal(t, int64(8), next.WatermarkStep)
	assert.Equal(t, now, next.WatermarkTimeMs)

	// sustained pressure never overflows the step
	prev = Stats{}
	for i := 0; i < 200; i++ {
		prev, _, _ = applyOnce(t, p, 950, prev, watermark)
	}
	assert.Equal(t, int64(8), prev.WatermarkStep)
	assert.Equal(t, now, prev.WatermarkTimeMs)
}

func TestStepPolicyWatermarkCappedAtNow(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Second)
	watermark := new(atomic.Uint64)
	p := NewStepPolicy()

	// one huge step cannot push the watermark past the wall clock
	next, _, _ := applyOnce(t, p, 950, Stats{WatermarkStep: 1 << 40}, watermark)
	assert.Equal(t, timex.GetNowInMilli(), next.WatermarkTimeMs)
}

func TestStepPolicyWatermarkNeverDecreases(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Hour)
	watermark := new(atomic.Uint64)
	watermark.Store(500)
	p := NewStepPolicy()

	// pressure dropping does not pull the shared counter back
	next, _, _ := applyOnce(t, p, 100, Stats{WatermarkStep: 4, WatermarkTimeMs: 400}, watermark)
	assert.Equal(t, int64(0), next.WatermarkStep)
	assert.Equal(t, int64(400), next.WatermarkTimeMs)
	assert.Equal(t, uint64(500), watermark.Load())
}

func TestStepPolicyFallsBackToOwnerUsage(t *testing.T) {
	timex.InitClock()
	timex.Add(time.Hour)
	watermark := new(atomic.Uint64)
	p := NewStepPolicy()

	// no allocator sample: batch + streaming usage drive the decision
	prev := Stats{BatchMemoryUsageBytes: 600, StreamingMemoryUsageBytes: 400}
	batch := &fakeOwner{}
	stream := &fakeOwner{}
	next := p.Apply(1000, 100, prev, batch, stream, watermark)
	assert.Equal(t, int64(1), next.WatermarkStep)
}
