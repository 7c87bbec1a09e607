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
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artorias1024/risingwave/internal/conf"
	"github.com/artorias1024/risingwave/pkg/infra"
	"github.com/artorias1024/risingwave/pkg/timex"
)

const (
	// tickInterval is the control loop cadence. It is independent of the
	// barrier interval, which is a policy input only.
	tickInterval = 50 * time.Millisecond
	// minBarrierIntervalMs guards against a degenerate near-zero interval.
	minBarrierIntervalMs = 10
)

// Manager limits the memory usage of the whole process: a single control
// loop samples the batch and streaming memory owners and advances a shared
// eviction watermark that every state-holding operator consults.
type Manager struct {
	// watermarkEpoch has exactly one writer, the control loop via the
	// policy. All cached data before the watermark should be evicted.
	watermarkEpoch    *atomic.Uint64
	totalMemoryBytes  int64
	barrierIntervalMs int
	policy            ControlPolicy

	statsMu sync.RWMutex
	stats   Stats
}

func NewManager(totalMemoryBytes int64, barrierIntervalMs int, policy ControlPolicy) *Manager {
	if barrierIntervalMs < minBarrierIntervalMs {
		barrierIntervalMs = minBarrierIntervalMs
	}
	conf.Log.Debugf("memory control policy: %s", policy.Describe(totalMemoryBytes))
	return &Manager{
		watermarkEpoch:    new(atomic.Uint64),
		totalMemoryBytes:  totalMemoryBytes,
		barrierIntervalMs: barrierIntervalMs,
		policy:            policy,
	}
}

// WatermarkEpoch is the shared eviction watermark: single writer, many
// readers, never regresses while the process runs.
func (m *Manager) WatermarkEpoch() *atomic.Uint64 {
	return m.watermarkEpoch
}

// Stats returns the latest control-loop sample.
func (m *Manager) Stats() Stats {
	m.statsMu.RLock()
	defer m.statsMu.RUnlock()
	return m.stats
}

// Run drives the control loop until ctx is cancelled. The loop has no error
// path: a failed sample counts as zero and is only logged.
func (m *Manager) Run(ctx context.Context, batch, stream MemoryOwner) {
	_ = infra.SafeRun(func() error {
		ticker := timex.GetTicker(tickInterval)
		defer ticker.Stop()

		metrics := GetMemoryMetrics()
		stats := Stats{
			WatermarkTimeMs: timex.GetNowInMilli(),
			PhysicalNowMs:   timex.GetNowInMilli(),
		}
		m.publish(stats, metrics)

		for {
			select {
			case <-ticker.C:
				stats.BatchMemoryUsageBytes = sampleUsage(batch, "batch")
				stats.StreamingMemoryUsageBytes = sampleUsage(stream, "streaming")
				stats.AllocatorResidentBytes = allocatorResidentBytes()
				stats = m.policy.Apply(m.totalMemoryBytes, m.barrierIntervalMs, stats, batch, stream, m.watermarkEpoch)
				m.publish(stats, metrics)
				metrics.LoopCount.Inc()
			case <-ctx.Done():
				return nil
			}
		}
	})
}

func (m *Manager) publish(stats Stats, metrics *MemoryMetrics) {
	m.statsMu.Lock()
	m.stats = stats
	m.statsMu.Unlock()

	metrics.BatchMemoryUsageBytes.Set(float64(stats.BatchMemoryUsageBytes))
	metrics.StreamingMemoryUsageBytes.Set(float64(stats.StreamingMemoryUsageBytes))
	metrics.AllocatorResidentBytes.Set(float64(stats.AllocatorResidentBytes))
	metrics.WatermarkStep.Set(float64(stats.WatermarkStep))
	metrics.WatermarkTimeMs.Set(float64(stats.WatermarkTimeMs))
	metrics.PhysicalNowMs.Set(float64(stats.PhysicalNowMs))
}

func sampleUsage(owner MemoryOwner, kind string) int64 {
	usage, err := owner.MemoryUsageBytes()
	if err != nil {
		conf.Log.Warnf("fail to sample %s memory usage, treat as zero: %v", kind, err)
		return 0
	}
	return usage
}

func allocatorResidentBytes() int64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return int64(ms.HeapInuse)
}
