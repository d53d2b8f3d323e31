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


// Package fusion routes a question to the structured pipeline, the
// similarity pipeline or both, and reconciles their answers.
//
// In fused mode both retrievals are submitted to a worker pool and the
// orchestrator waits for both. An outright failure of either cancels the
// other and is reported as core.ErrFusionInputMissing; a single-source
// answer is only ever produced when the caller asks for that mode. The
// fusion prompt is told which source found nothing and is asked to point
// out any disagreement between the sources.
//
// Basic usage:
//
//	o, err := fusion.NewOrchestrator(structuredRetriever, similarityRetriever, model)
//	defer o.Release()
//	answer, err := o.Select(ctx, fusion.Request{Question: "How many companies filed?"})
package fusion
