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


// Package conversation defines the store that holds per-session question and
// answer history.
//
// The store is owned by the caller and passed into each request alongside a
// session id, so separate sessions never observe each other's turns. The
// badger subpackage provides a durable implementation that can also run
// purely in memory for tests.
package conversation
