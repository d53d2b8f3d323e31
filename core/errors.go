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


package core

import (
	"errors"
	"fmt"
)

// Error kinds reported to callers. Every *Error matches exactly one of these
// with errors.Is.
var (
	// ErrIndexUnavailable indicates the similarity index could not be attached or built.
	ErrIndexUnavailable = errors.New("similarity index unavailable")

	// ErrQueryGeneration indicates a generated graph query failed schema validation.
	ErrQueryGeneration = errors.New("query generation failed")

	// ErrDatabaseConnection indicates an authentication or connectivity failure.
	ErrDatabaseConnection = errors.New("database connection failed")

	// ErrQueryExecution indicates a validated query failed inside the database.
	ErrQueryExecution = errors.New("query execution failed")

	// ErrModelInvocation indicates the language model failed or returned unusable output.
	ErrModelInvocation = errors.New("model invocation failed")

	// ErrFusionInputMissing indicates a retrieval failed outright under fused mode.
	ErrFusionInputMissing = errors.New("fusion input missing")

	// ErrInvalidRequest indicates the caller supplied an unusable request.
	ErrInvalidRequest = errors.New("invalid request")
)

// Causes carried inside a database connection error.
var (
	// ErrAuthentication indicates the database rejected the credentials.
	ErrAuthentication = errors.New("authentication failed")

	// ErrServiceUnavailable indicates the database could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// Request validation errors
var (
	// ErrEmptyQuestion indicates the question is empty or whitespace.
	ErrEmptyQuestion = errors.New("question cannot be empty")

	// ErrInvalidMode indicates an unknown retrieval mode.
	ErrInvalidMode = errors.New("invalid mode")

	// ErrInvalidIndexSpec indicates an index specification that cannot be used.
	ErrInvalidIndexSpec = errors.New("invalid index spec")
)

// Kind classifies an error for reporting.
type Kind int

const (
	KindUnknown Kind = iota
	KindIndexUnavailable
	KindQueryGeneration
	KindDatabaseConnection
	KindQueryExecution
	KindModelInvocation
	KindFusionInputMissing
	KindInvalidRequest
)

var kindNames = map[Kind]string{
	KindUnknown:            "unknown",
	KindIndexUnavailable:   "index_unavailable",
	KindQueryGeneration:    "query_generation",
	KindDatabaseConnection: "database_connection",
	KindQueryExecution:     "query_execution",
	KindModelInvocation:    "model_invocation",
	KindFusionInputMissing: "fusion_input_missing",
	KindInvalidRequest:     "invalid_request",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) sentinel() error {
	switch k {
	case KindIndexUnavailable:
		return ErrIndexUnavailable
	case KindQueryGeneration:
		return ErrQueryGeneration
	case KindDatabaseConnection:
		return ErrDatabaseConnection
	case KindQueryExecution:
		return ErrQueryExecution
	case KindModelInvocation:
		return ErrModelInvocation
	case KindFusionInputMissing:
		return ErrFusionInputMissing
	case KindInvalidRequest:
		return ErrInvalidRequest
	}
	return nil
}

// Error is the structured error surfaced by pipelines and the orchestrator.
// Pipeline is empty when the failure is not tied to a single retrieval path.
type Error struct {
	Kind     Kind
	Pipeline Pipeline
	Op       string
	Err      error
}

// NewError builds an *Error. err may be nil.
func NewError(kind Kind, pipeline Pipeline, op string, err error) *Error {
	return &Error{Kind: kind, Pipeline: pipeline, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if s := e.Kind.sentinel(); s != nil {
		msg = s.Error()
	}
	if e.Pipeline != "" {
		msg = string(e.Pipeline) + ": " + msg
	}
	if e.Op != "" {
		msg = msg + " (" + e.Op + ")"
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CauseKind returns the kind of the innermost *Error in err's chain that
// names one. It differs from KindOf when one failure was wrapped as another,
// as fused requests do with a failed pipeline.
func CauseKind(err error) Kind {
	kind := KindUnknown
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		if e.Kind != KindUnknown {
			kind = e.Kind
		}
		err = e.Err
	}
	return kind
}

// PipelineOf returns the pipeline attached to the outermost *Error that names one.
func PipelineOf(err error) Pipeline {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return ""
		}
		if e.Pipeline != "" {
			return e.Pipeline
		}
		err = e.Err
	}
	return ""
}

// WithPipeline returns err tagged with pipeline. An *Error keeps its kind;
// anything else is wrapped as KindUnknown.
func WithPipeline(err error, pipeline Pipeline) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e.Pipeline == "" {
		cp := *e
		cp.Pipeline = pipeline
		return &cp
	}
	if e != nil {
		return err
	}
	return &Error{Kind: KindUnknown, Pipeline: pipeline, Err: err}
}

// IsTransient reports whether err is worth retrying: model failures and an
// unreachable database.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrModelInvocation) {
		return true
	}
	return errors.Is(err, ErrDatabaseConnection) && errors.Is(err, ErrServiceUnavailable)
}
