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

package infra

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeRun(t *testing.T) {
	tests := []struct {
		fn       func() error
		expected error
	}{
		{
			func() error {
				return nil
			},
			nil,
		},
		{
			func() error {
				return errors.New("actor error")
			},
			errors.New("actor error"),
		},
		{
			func() error {
				panic("panic in operator chain")
			},
			errors.New("panic in operator chain"),
		},
		{
			func() error {
				panic(42)
			},
			fmt.Errorf("%#v", 42),
		},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SafeRun(tt.fn))
	}
}

func TestDrainError(t *testing.T) {
	errCh := make(chan error, 1)
	err := errors.New("fatal actor error")

	go DrainError(context.Background(), err, errCh)
	assert.Equal(t, err, <-errCh)
}
