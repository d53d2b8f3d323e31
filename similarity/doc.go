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


// Package similarity answers questions from text passages retrieved through
// a vector index.
//
// The question is embedded, the k nearest passages are fetched and as many
// as fit the token budget are handed to the language model in rank order.
// The model is instructed to answer only from those passages. When nothing
// is retrieved, or the model finds nothing relevant, the pipeline returns
// the no-answer sentinel rather than an error.
//
// Token counting uses a tiktoken encoding when one is configured:
//
//	counter, err := similarity.NewTiktokenCounter(similarity.DefaultEncoding)
//	p, err := similarity.NewPipeline(embedder, db, model, similarity.WithTokenCounter(counter))
//	res, err := p.Answer(ctx, "What does Apple say about lithium?", handle, 4, 2000, core.RetrieveOptions{})
package similarity
