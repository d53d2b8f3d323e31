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
	"fmt"
	"strings"
)

// ValidateQuestion rejects questions that carry no text. The question is
// otherwise passed through verbatim.
func ValidateQuestion(question string) error {
	if strings.TrimSpace(question) == "" {
		return NewError(KindInvalidRequest, "", "validate", ErrEmptyQuestion)
	}
	return nil
}

// ParseMode maps a caller-supplied mode to a Mode. The empty string selects
// ModeFused.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeFused:
		return ModeFused, nil
	case ModeStructured:
		return ModeStructured, nil
	case ModeSimilarity:
		return ModeSimilarity, nil
	}
	return "", NewError(KindInvalidRequest, "", "parse mode", fmt.Errorf("%w: %q", ErrInvalidMode, s))
}

// ValidateIndexSpec validates an IndexSpec according to domain rules.
//
// Validation rules:
//   - Name, NodeLabel, TextProperty and EmbeddingProperty must be identifiers
//   - Dimensions must not be negative
//   - Similarity must be cosine or euclidean
func ValidateIndexSpec(spec IndexSpec) error {
	fields := []struct{ name, value string }{
		{"name", spec.Name},
		{"node label", spec.NodeLabel},
		{"text property", spec.TextProperty},
		{"embedding property", spec.EmbeddingProperty},
	}
	for _, f := range fields {
		if !IsIdentifier(f.value) {
			return fmt.Errorf("%w: %s %q is not an identifier", ErrInvalidIndexSpec, f.name, f.value)
		}
	}
	if spec.Dimensions < 0 {
		return fmt.Errorf("%w: dimensions %d", ErrInvalidIndexSpec, spec.Dimensions)
	}
	switch spec.Similarity {
	case "cosine", "euclidean":
	default:
		return fmt.Errorf("%w: similarity %q", ErrInvalidIndexSpec, spec.Similarity)
	}
	return nil
}

// IsIdentifier reports whether s is safe to splice into a query as a label,
// property or index name.
func IsIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
