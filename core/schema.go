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
	"slices"
	"strings"
	"time"
)

// Property is a property name and its reported type.
type Property struct {
	Name string
	Type string
}

// RelationshipTriple is a (start)-[type]->(end) pattern present in the graph.
type RelationshipTriple struct {
	Start string
	Type  string
	End   string
}

func (t RelationshipTriple) String() string {
	return fmt.Sprintf("(:%s)-[:%s]->(:%s)", t.Start, t.Type, t.End)
}

// GraphSchema is a snapshot of the labels, relationship types and properties
// present in the graph database. It is read-only once built.
type GraphSchema struct {
	NodeProperties         map[string][]Property
	RelationshipProperties map[string][]Property
	Relationships          []RelationshipTriple
	RefreshedAt            time.Time
}

// NewGraphSchema returns an empty schema stamped with the current time.
func NewGraphSchema() *GraphSchema {
	return &GraphSchema{
		NodeProperties:         make(map[string][]Property),
		RelationshipProperties: make(map[string][]Property),
		RefreshedAt:            time.Now(),
	}
}

// HasLabel reports whether label is a known node label.
func (s *GraphSchema) HasLabel(label string) bool {
	if _, ok := s.NodeProperties[label]; ok {
		return true
	}
	for _, t := range s.Relationships {
		if t.Start == label || t.End == label {
			return true
		}
	}
	return false
}

// HasRelationshipType reports whether relType is a known relationship type.
func (s *GraphSchema) HasRelationshipType(relType string) bool {
	if _, ok := s.RelationshipProperties[relType]; ok {
		return true
	}
	for _, t := range s.Relationships {
		if t.Type == relType {
			return true
		}
	}
	return false
}

// HasNodeProperty reports whether nodes labelled label carry prop.
func (s *GraphSchema) HasNodeProperty(label, prop string) bool {
	return hasProperty(s.NodeProperties[label], prop)
}

// HasRelationshipProperty reports whether relationships of relType carry prop.
func (s *GraphSchema) HasRelationshipProperty(relType, prop string) bool {
	return hasProperty(s.RelationshipProperties[relType], prop)
}

// HasAnyProperty reports whether prop exists on any node label or relationship type.
func (s *GraphSchema) HasAnyProperty(prop string) bool {
	for _, props := range s.NodeProperties {
		if hasProperty(props, prop) {
			return true
		}
	}
	for _, props := range s.RelationshipProperties {
		if hasProperty(props, prop) {
			return true
		}
	}
	return false
}

// HasTriple reports whether (start)-[relType]->(end) exists. An empty start
// or end matches any label.
func (s *GraphSchema) HasTriple(start, relType, end string) bool {
	for _, t := range s.Relationships {
		if t.Type != relType {
			continue
		}
		if (start == "" || t.Start == start) && (end == "" || t.End == end) {
			return true
		}
	}
	return false
}

// Labels returns the known node labels in sorted order.
func (s *GraphSchema) Labels() []string {
	seen := make(map[string]struct{})
	for l := range s.NodeProperties {
		seen[l] = struct{}{}
	}
	for _, t := range s.Relationships {
		seen[t.Start] = struct{}{}
		seen[t.End] = struct{}{}
	}
	return sortedKeys(seen)
}

// RelationshipTypes returns the known relationship types in sorted order.
func (s *GraphSchema) RelationshipTypes() []string {
	seen := make(map[string]struct{})
	for r := range s.RelationshipProperties {
		seen[r] = struct{}{}
	}
	for _, t := range s.Relationships {
		seen[t.Type] = struct{}{}
	}
	return sortedKeys(seen)
}

// String renders the schema in the form handed to the language model.
func (s *GraphSchema) String() string {
	var b strings.Builder
	b.WriteString("Node properties are the following:\n")
	for _, label := range sortedMapKeys(s.NodeProperties) {
		fmt.Fprintf(&b, "%s {%s}\n", label, renderProperties(s.NodeProperties[label]))
	}
	b.WriteString("Relationship properties are the following:\n")
	for _, rel := range sortedMapKeys(s.RelationshipProperties) {
		if len(s.RelationshipProperties[rel]) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s {%s}\n", rel, renderProperties(s.RelationshipProperties[rel]))
	}
	b.WriteString("The relationships are the following:\n")
	triples := slices.Clone(s.Relationships)
	slices.SortFunc(triples, func(a, b RelationshipTriple) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, t := range triples {
		b.WriteString(t.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func hasProperty(props []Property, name string) bool {
	for _, p := range props {
		if p.Name == name {
			return true
		}
	}
	return false
}

func renderProperties(props []Property) string {
	parts := make([]string, 0, len(props))
	for _, p := range props {
		parts = append(parts, p.Name+": "+p.Type)
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func sortedMapKeys(m map[string][]Property) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
