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

package errorx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	e := New("plain")
	assert.Equal(t, "plain", e.Error())
	assert.Equal(t, GENERAL_ERR, e.Code())

	e = NewWithCode(BUILD_ERR, "unresolved fragment 7")
	assert.Equal(t, BUILD_ERR, e.Code())

	e = Newf(RUNTIME_ERR, "fragment %d failed", 13)
	assert.Equal(t, "fragment 13 failed", e.Error())
	assert.Equal(t, RUNTIME_ERR, e.Code())

	var _ ErrorWithCode = e
}
