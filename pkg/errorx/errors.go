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

import "fmt"

type ErrorCode int

const (
	GENERAL_ERR ErrorCode = iota
	// BUILD_ERR is returned when the fragment graph cannot be wired, e.g. an
	// unresolved actor reference or a duplicate fragment build.
	BUILD_ERR
	// RUNTIME_ERR is a fatal actor failure: operator chain error or a send
	// into a channel whose peer is gone.
	RUNTIME_ERR
)

type Error struct {
	msg  string
	code ErrorCode
}

func New(message string) *Error {
	return &Error{message, GENERAL_ERR}
}

func NewWithCode(code ErrorCode, message string) *Error {
	return &Error{message, code}
}

func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{fmt.Sprintf(format, args...), code}
}

func (e *Error) Error() string {
	return e.msg
}

func (e *Error) Code() ErrorCode {
	return e.code
}

type ErrorWithCode interface {
	Error() string
	Code() ErrorCode
}
