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

// Stats is one sample of the memory control loop. It is mutated only by the
// manager's control loop and read by metrics export.
type Stats struct {
	// BatchMemoryUsageBytes and StreamingMemoryUsageBytes come from the two
	// external memory owners.
	BatchMemoryUsageBytes     int64
	StreamingMemoryUsageBytes int64
	// AllocatorResidentBytes is the Go heap in-use size reported by the
	// runtime.
	AllocatorResidentBytes int64
	// WatermarkStep is the current eviction aggressiveness: how many barrier
	// intervals the watermark advances per tick.
	WatermarkStep int64
	// WatermarkTimeMs is the cutoff below which cached entries are stale.
	WatermarkTimeMs int64
	// PhysicalNowMs is the wall-clock time of the sample.
	PhysicalNowMs int64
}

// MemoryOwner is one of the two external owners of computing memory (batch
// or streaming). A failed usage sample is treated as zero by the control
// loop, never propagated.
type MemoryOwner interface {
	// MemoryUsageBytes reports the owner's current memory consumption.
	MemoryUsageBytes() (int64, error)
	// EvictOlderThan requests eviction of cached entries older than the
	// watermark time.
	EvictOlderThan(watermarkTimeMs int64)
}
