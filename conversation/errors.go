// Copyright 2025 Poiesic Systems
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


package conversation

import "errors"

var (
	// ErrSessionIDRequired indicates that a session id was not provided.
	ErrSessionIDRequired = errors.New("session id required")

	// ErrStoreClosed indicates that the store has been closed.
	ErrStoreClosed = errors.New("conversation store is closed")

	// ErrSerializationFailed indicates a turn could not be encoded or decoded.
	ErrSerializationFailed = errors.New("serialization failed")
)
