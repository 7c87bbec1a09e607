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

	"github.com/prometheus/client_golang/prometheus"
)

var (
	streamMetrics *StreamMetrics
	metricsMutex  sync.Mutex
)

type StreamMetrics struct {
	// EpochViolations counts barriers whose epoch regressed on a channel.
	EpochViolations *prometheus.CounterVec
	// BarrierMisalignments counts alignment rounds that observed barriers
	// with differing epochs or mutations across channels.
	BarrierMisalignments *prometheus.CounterVec
	ActorErrors          *prometheus.CounterVec
}

func GetStreamMetrics() *StreamMetrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()
	if streamMetrics == nil {
		streamMetrics = newStreamMetrics()
	}
	return streamMetrics
}

func newStreamMetrics() *StreamMetrics {
	labelNames := []string{"fragment"}
	epochViolations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_epoch_violations_total",
		Help: "Total number of barrier epoch regressions observed per fragment",
	}, labelNames)
	barrierMisalignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_barrier_misalignments_total",
		Help: "Total number of alignment rounds with inconsistent barriers per fragment",
	}, labelNames)
	actorErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_actor_errors_total",
		Help: "Total number of fatal actor errors per fragment",
	}, labelNames)
	prometheus.MustRegister(epochViolations, barrierMisalignments, actorErrors)
	return &StreamMetrics{
		EpochViolations:      epochViolations,
		BarrierMisalignments: barrierMisalignments,
		ActorErrors:          actorErrors,
	}
}
