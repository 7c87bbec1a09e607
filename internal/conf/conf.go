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

package conf

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const ConfFileName = "stream.yaml"

const (
	DefaultChannelCapacity   = 16
	DefaultBarrierIntervalMs = 1000
	// MinBarrierIntervalMs guards against a degenerate near-zero interval.
	MinBarrierIntervalMs    = 10
	DefaultTotalMemoryBytes = 4 << 30
)

var Config *StreamConf

type MemoryConf struct {
	// TotalMemoryBytes is the budget for all computing tasks, batch and
	// streaming together.
	TotalMemoryBytes  int64 `json:"totalMemoryBytes" yaml:"totalMemoryBytes"`
	BarrierIntervalMs int   `json:"barrierIntervalMs" yaml:"barrierIntervalMs"`
}

func (mc *MemoryConf) Validate() error {
	var errs error
	if mc.TotalMemoryBytes <= 0 {
		mc.TotalMemoryBytes = DefaultTotalMemoryBytes
		Log.Warnf("totalMemoryBytes is not positive, set to %d", int64(DefaultTotalMemoryBytes))
		errs = errors.Join(errs, errors.New("totalMemoryBytes:totalMemoryBytes must be positive"))
	}
	if mc.BarrierIntervalMs < MinBarrierIntervalMs {
		Log.Warnf("barrierIntervalMs %d is below the minimum, set to %d", mc.BarrierIntervalMs, MinBarrierIntervalMs)
		mc.BarrierIntervalMs = MinBarrierIntervalMs
	}
	return errs
}

type StreamConf struct {
	// ChannelCapacity bounds every actor-to-actor channel. Backpressure
	// relies on this being finite.
	ChannelCapacity int        `json:"channelCapacity" yaml:"channelCapacity"`
	Memory          MemoryConf `json:"memory" yaml:"memory"`
}

func (sc *StreamConf) Validate() error {
	var errs error
	if sc.ChannelCapacity <= 0 {
		sc.ChannelCapacity = DefaultChannelCapacity
		Log.Warnf("channelCapacity is not positive, set to %d", DefaultChannelCapacity)
		errs = errors.Join(errs, errors.New("channelCapacity:channelCapacity must be positive"))
	}
	errs = errors.Join(errs, sc.Memory.Validate())
	return errs
}

func DefaultConf() *StreamConf {
	return &StreamConf{
		ChannelCapacity: DefaultChannelCapacity,
		Memory: MemoryConf{
			TotalMemoryBytes:  DefaultTotalMemoryBytes,
			BarrierIntervalMs: DefaultBarrierIntervalMs,
		},
	}
}

// InitConf loads the yaml configuration from path, falling back to the
// defaults when the file does not exist.
func InitConf(path string) error {
	c := DefaultConf()
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			Config = c
			return nil
		}
		return fmt.Errorf("fail to load configuration file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("fail to parse configuration file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		Log.Warnf("configuration validation: %v", err)
	}
	Config = c
	return nil
}
