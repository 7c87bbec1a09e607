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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	memoryMetrics *MemoryMetrics
	metricsMutex  sync.Mutex
)

// MemoryMetrics are the point-in-time gauges republished by the control
// loop every tick.
type MemoryMetrics struct {
	BatchMemoryUsageBytes     prometheus.Gauge
	StreamingMemoryUsageBytes prometheus.Gauge
	AllocatorResidentBytes    prometheus.Gauge
	WatermarkStep             prometheus.Gauge
	WatermarkTimeMs           prometheus.Gauge
	PhysicalNowMs             prometheus.Gauge
	LoopCount                 prometheus.Counter
}

func GetMemoryMetrics() *MemoryMetrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	if memoryMetrics == nil {
		memoryMetrics = newMemoryMetrics()
	}
	return memoryMetrics
}

func newMemoryMetrics() *MemoryMetrics {
	m := &MemoryMetrics{
		BatchMemoryUsageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_batch_usage_bytes",
			Help: "Memory usage reported by the batch memory owner",
		}),
		StreamingMemoryUsageBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_streaming_usage_bytes",
			Help: "Memory usage reported by the streaming memory owner",
		}),
		AllocatorResidentBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_allocator_resident_bytes",
			Help: "Resident bytes reported by the allocator",
		}),
		WatermarkStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_lru_watermark_step",
			Help: "Current eviction watermark step",
		}),
		WatermarkTimeMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_lru_watermark_time_ms",
			Help: "Eviction watermark time in epoch milliseconds",
		}),
		PhysicalNowMs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "memory_lru_physical_now_ms",
			Help: "Wall clock time of the last control loop sample",
		}),
		LoopCount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "memory_lru_runtime_loop_count",
			Help: "Total number of control loop ticks",
		}),
	}
	prometheus.MustRegister(m.BatchMemoryUsageBytes, m.StreamingMemoryUsageBytes, m.AllocatorResidentBytes,
		m.WatermarkStep, m.WatermarkTimeMs, m.PhysicalNowMs, m.LoopCount)
	return m
}
