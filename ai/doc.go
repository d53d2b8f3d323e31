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


// Package ai declares the model services graphqa depends on.
//
// The structured pipeline needs a LanguageModel to write Cypher and, when
// asked, to narrate result rows. The similarity pipeline and the index
// provisioner need an Embedder. The fusion orchestrator needs the
// LanguageModel again to merge the two answers. An AIProvider hands out both
// from one Config.
//
// ai/openai talks to any OpenAI-compatible server (OpenAI, Ollama, vLLM).
// ai/mock holds deterministic doubles whose constructors return concrete
// types so tests can script replies and count calls:
//
//	model := mock.NewMockLanguageModel()
//	model.Reply = "MATCH (c:Company) RETURN count(c)"
//	...
//	assert.Equal(t, 1, model.CallCount())
package ai
