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


// Package index provisions the vector index used by similarity retrieval.
//
// Provisioner.EnsureIndex attaches to an index that already exists and only
// falls back to building one when the database reports that the name is
// unknown. A build embeds the text of every node with the configured label
// that has no vector yet, writes the vectors back, then creates the index and
// attaches to it.
//
// Usage:
//
//	p, err := index.NewProvisioner(db, embedder, index.WithProgress(os.Stderr, 100))
//	if err != nil {
//	    return err
//	}
//	handle, err := p.EnsureIndex(ctx, core.DefaultIndexSpec())
//
// Concurrent callers asking for the same index name share one attach or build.
// The resulting handle, or the error of a failed build, is kept until Reset.
package index
