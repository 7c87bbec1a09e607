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
	"fmt"
	"sync/atomic"

	"github.com/artorias1024/risingwave/pkg/timex"
)

// ControlPolicy converts one memory sample into an updated watermark. The
// policy is pluggable; any implementation must keep the watermark
// non-decreasing under non-decreasing pressure. It may evict from the
// memory owners directly and is expected to advance the shared watermark
// counter as a side effect.
type ControlPolicy interface {
	Apply(totalMemoryBytes int64, barrierIntervalMs int, prev Stats, batch, stream MemoryOwner, watermark *atomic.Uint64) Stats
	Describe(totalMemoryBytes int64) string
}

// StepPolicy is the default eviction policy: above the stop threshold the
// watermark step doubles every tick until the watermark reaches the wall
// clock, above the graceful threshold it holds, below it the step resets
// and the watermark stays put.
type StepPolicy struct {
	GracefulRatio float64
	StopRatio     float64
}

func NewStepPolicy() *StepPolicy {
	return &StepPolicy{GracefulRatio: 0.7, StopRatio: 0.9}
}

func (p *StepPolicy) Describe(totalMemoryBytes int64) string {
	return fmt.Sprintf("step policy: graceful at %d bytes, stop at %d bytes",
		int64(p.GracefulRatio*float64(totalMemoryBytes)), int64(p.StopRatio*float64(totalMemoryBytes)))
}

func (p *StepPolicy) Apply(totalMemoryBytes int64, barrierIntervalMs int, prev Stats, batch, stream MemoryOwner, watermark *atomic.Uint64) Stats {
	next := prev
	next.PhysicalNowMs = timex.GetNowInMilli()

	usage := next.AllocatorResidentBytes
	if usage == 0 {
		usage = next.BatchMemoryUsageBytes + next.StreamingMemoryUsageBytes
	}
	switch {
	case float64(usage) > p.StopRatio*float64(totalMemoryBytes):
		switch {
		case next.WatermarkStep == 0:
			next.WatermarkStep = 1
		case prev.WatermarkTimeMs >= prev.PhysicalNowMs:
			// the watermark already reached the wall clock last tick; the
			// step holds instead of doubling without bound
		default:
			next.WatermarkStep *= 2
		}
	case float64(usage) > p.GracefulRatio*float64(totalMemoryBytes):
		if next.WatermarkStep == 0 {
			next.WatermarkStep = 1
		}
	default:
		next.WatermarkStep = 0
	}

	if next.WatermarkStep > 0 {
		advanced := prev.WatermarkTimeMs + next.WatermarkStep*int64(barrierIntervalMs)
		if advanced > next.PhysicalNowMs {
			advanced = next.PhysicalNowMs
		}
		// the watermark never moves backwards
		if advanced > next.WatermarkTimeMs {
			next.WatermarkTimeMs = advanced
		}
		batch.EvictOlderThan(next.WatermarkTimeMs)
		stream.EvictOlderThan(next.WatermarkTimeMs)
	}
	if wm := uint64(next.WatermarkTimeMs); wm > watermark.Load() {
		watermark.Store(wm)
	}
	return next
}
