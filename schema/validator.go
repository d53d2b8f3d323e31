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


package schema

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/poiesic/graphqa/core"
)

const ident = "(?:`[^`]+`|[A-Za-z_][A-Za-z0-9_]*)"

var (
	identRe = regexp.MustCompile(ident)

	writeClauseRe = regexp.MustCompile(`(?i)(?:^|[^.\w$])(CREATE|MERGE|DELETE|DETACH|SET|REMOVE|DROP|FOREACH|LOAD\s+CSV|GRANT|REVOKE|DENY|ALTER|RENAME)\b`)

	writeProcedureRe = regexp.MustCompile(`(?i)\bCALL\s+(dbms\.|apoc\.(?:create|merge|refactor|periodic|nodes\.delete|do\.|cypher\.(?:doit|runwrite|runschema))|db\.(?:create|drop|index\.vector\.createnodeindex))`)

	nodeRe = regexp.MustCompile(nodePattern(""))

	pathRe = regexp.MustCompile(nodePattern("l") + `\s*(?P<rel>` + relPattern + `)\s*(?P<rnode>` + nodePattern("r") + `)`)

	propertyAccessRe = regexp.MustCompile(`(?:^|[^.\w$])([A-Za-z_][A-Za-z0-9_]*)\s*\.\s*(` + ident + `)`)

	mapKeyRe = regexp.MustCompile(`(` + ident + `)\s*:`)

	whereRe = regexp.MustCompile(`(?i)\bWHERE\b`)
)

const relPattern = `(?P<in><)?-\s*(?:\[\s*(?P<relvar>[A-Za-z_][A-Za-z0-9_]*)?\s*(?P<types>:\s*` + ident +
	`(?:\s*\|\s*:?\s*` + ident + `)*)?\s*(?:\*[0-9.\s]*)?\s*(?P<relprops>\{[^}]*\})?\s*\])?\s*-(?P<out>>)?`

func nodePattern(prefix string) string {
	return `\(\s*(?P<` + prefix + `var>[A-Za-z_][A-Za-z0-9_]*)?\s*(?P<` + prefix + `labels>(?:[:|&]\s*` + ident +
		`\s*)*)(?P<` + prefix + `props>\{[^}]*\})?\s*\)`
}

// Validator checks generated statements against a graph schema.
type Validator struct {
	correctDirection bool
	logger           *slog.Logger
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithDirectionCorrection enables or disables reversing relationship patterns
// that only exist in the opposite direction. Enabled by default.
func WithDirectionCorrection(enabled bool) ValidatorOption {
	return func(v *Validator) {
		v.correctDirection = enabled
	}
}

// WithValidatorLogger sets a custom logger.
// Default is slog.Default().
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		if logger == nil {
			logger = slog.Default()
		}
		v.logger = logger
	}
}

// NewValidator creates a Validator.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		correctDirection: true,
		logger:           slog.Default().With("component", "schema-validator"),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type segment struct {
	leftVar, rightVar       string
	leftLabels, rightLabels []string
	types                   []string
	relVar                  string
	relStart, relEnd        int
	in, out                 bool
}

// Validate checks statement against graphSchema and returns the statement
// to execute, which differs from the input only when a relationship
// direction was corrected. Every failure is a core.ErrQueryGeneration.
func (v *Validator) Validate(statement string, graphSchema *core.GraphSchema) (string, error) {
	if graphSchema == nil {
		return "", fail(errors.New("no schema available"))
	}
	statement = strings.TrimSpace(statement)
	statement = strings.TrimSpace(strings.TrimSuffix(statement, ";"))
	if statement == "" {
		return "", fail(ErrEmptyStatement)
	}

	masked := maskStrings(statement)
	if strings.Contains(masked, ";") {
		return "", fail(ErrMultipleStatements)
	}

	bare := maskBackticks(masked)
	if m := writeClauseRe.FindStringSubmatch(bare); m != nil {
		return "", fail(fmt.Errorf("%w: %s", ErrWriteClause, strings.ToUpper(m[1])))
	}
	if m := writeProcedureRe.FindStringSubmatch(bare); m != nil {
		return "", fail(fmt.Errorf("%w: CALL %s", ErrWriteClause, m[1]))
	}

	patterns := maskInlineWhere(masked, bare)
	nodes := bindNodes(patterns)
	for _, labels := range nodes {
		for _, label := range labels {
			if !graphSchema.HasLabel(label) {
				return "", fail(fmt.Errorf("%w: %s", ErrUnknownLabel, label))
			}
		}
	}
	if err := checkMapKeys(patterns, graphSchema); err != nil {
		return "", fail(err)
	}

	segments := findSegments(patterns)
	rels := make(map[string][]string)
	for _, seg := range segments {
		for _, t := range seg.types {
			if !graphSchema.HasRelationshipType(t) {
				return "", fail(fmt.Errorf("%w: %s", ErrUnknownRelationshipType, t))
			}
		}
		if seg.relVar != "" && len(seg.types) > 0 {
			rels[seg.relVar] = appendUnique(rels[seg.relVar], seg.types...)
		}
	}

	if err := checkPropertyAccess(masked, nodes, rels, graphSchema); err != nil {
		return "", fail(err)
	}

	corrected, err := v.checkDirections(statement, segments, nodes, graphSchema)
	if err != nil {
		return "", fail(err)
	}
	if corrected != statement {
		v.logger.Debug("corrected relationship direction", "from", statement, "to", corrected)
	}
	return corrected, nil
}

func fail(err error) error {
	return core.NewError(core.KindQueryGeneration, core.PipelineStructured, "validate", err)
}

// bindNodes maps every variable declared in a node pattern to its labels.
// Anonymous labelled nodes are recorded under the empty variable name.
func bindNodes(masked string) map[string][]string {
	nodes := make(map[string][]string)
	varIdx := nodeRe.SubexpIndex("var")
	labelsIdx := nodeRe.SubexpIndex("labels")
	for _, m := range nodeRe.FindAllStringSubmatch(masked, -1) {
		labels := splitIdents(m[labelsIdx])
		name := m[varIdx]
		if name == "" && len(labels) == 0 {
			continue
		}
		nodes[name] = appendUnique(nodes[name], labels...)
	}
	return nodes
}

func checkMapKeys(masked string, graphSchema *core.GraphSchema) error {
	labelsIdx := nodeRe.SubexpIndex("labels")
	propsIdx := nodeRe.SubexpIndex("props")
	for _, m := range nodeRe.FindAllStringSubmatch(masked, -1) {
		labels := splitIdents(m[labelsIdx])
		if len(labels) == 0 || m[propsIdx] == "" {
			continue
		}
		for _, km := range mapKeyRe.FindAllStringSubmatch(m[propsIdx], -1) {
			key := strings.Trim(km[1], "`")
			if !anyLabelHas(graphSchema, labels, key) {
				return fmt.Errorf("%w: %s on %s", ErrUnknownProperty, key, strings.Join(labels, "|"))
			}
		}
	}
	return nil
}

func checkPropertyAccess(masked string, nodes, rels map[string][]string, graphSchema *core.GraphSchema) error {
	for _, m := range propertyAccessRe.FindAllStringSubmatch(masked, -1) {
		name, prop := m[1], strings.Trim(m[2], "`")
		if labels := nodes[name]; name != "" && len(labels) > 0 {
			if !anyLabelHas(graphSchema, labels, prop) {
				return fmt.Errorf("%w: %s.%s on %s", ErrUnknownProperty, name, prop, strings.Join(labels, "|"))
			}
			continue
		}
		if types := rels[name]; len(types) > 0 {
			ok := slices.ContainsFunc(types, func(t string) bool {
				return graphSchema.HasRelationshipProperty(t, prop)
			})
			if !ok {
				return fmt.Errorf("%w: %s.%s on %s", ErrUnknownProperty, name, prop, strings.Join(types, "|"))
			}
		}
	}
	return nil
}

func anyLabelHas(graphSchema *core.GraphSchema, labels []string, prop string) bool {
	return slices.ContainsFunc(labels, func(l string) bool {
		return graphSchema.HasNodeProperty(l, prop)
	})
}

// findSegments returns every node-relationship-node step of every path.
// Consecutive steps share their middle node.
func findSegments(masked string) []segment {
	idx := func(name string) int { return pathRe.SubexpIndex(name) }
	var (
		lvar, llabels       = idx("lvar"), idx("llabels")
		rvar, rlabels       = idx("rvar"), idx("rlabels")
		rel, relvar, types  = idx("rel"), idx("relvar"), idx("types")
		in, out, rnodeStart = idx("in"), idx("out"), idx("rnode")
	)
	group := func(loc []int, base, i int) string {
		if loc[2*i] < 0 {
			return ""
		}
		return masked[base+loc[2*i] : base+loc[2*i+1]]
	}

	var segments []segment
	pos := 0
	for pos < len(masked) {
		loc := pathRe.FindStringSubmatchIndex(masked[pos:])
		if loc == nil {
			break
		}
		segments = append(segments, segment{
			leftVar:     group(loc, pos, lvar),
			leftLabels:  splitIdents(group(loc, pos, llabels)),
			rightVar:    group(loc, pos, rvar),
			rightLabels: splitIdents(group(loc, pos, rlabels)),
			relVar:      group(loc, pos, relvar),
			types:       splitIdents(group(loc, pos, types)),
			relStart:    pos + loc[2*rel],
			relEnd:      pos + loc[2*rel+1],
			in:          loc[2*in] >= 0,
			out:         loc[2*out] >= 0,
		})
		pos += loc[2*rnodeStart]
	}
	return segments
}

func (v *Validator) checkDirections(statement string, segments []segment, nodes map[string][]string, graphSchema *core.GraphSchema) (string, error) {
	if len(graphSchema.Relationships) == 0 {
		return statement, nil
	}

	type edit struct {
		start, end int
		text       string
	}
	var edits []edit

	for _, seg := range segments {
		if len(seg.types) == 0 || seg.in == seg.out {
			continue
		}
		left := resolveLabels(seg.leftVar, seg.leftLabels, nodes)
		right := resolveLabels(seg.rightVar, seg.rightLabels, nodes)
		start, end := left, right
		if seg.in {
			start, end = right, left
		}
		if matchesTriple(graphSchema, start, seg.types, end) {
			continue
		}
		if v.correctDirection && matchesTriple(graphSchema, end, seg.types, start) {
			text := statement[seg.relStart:seg.relEnd]
			if seg.out {
				text = "<" + strings.TrimSuffix(text, ">")
			} else {
				text = strings.TrimPrefix(text, "<") + ">"
			}
			edits = append(edits, edit{start: seg.relStart, end: seg.relEnd, text: text})
			continue
		}
		return "", fmt.Errorf("%w: (:%s)-[:%s]->(:%s)", ErrInvalidPattern,
			strings.Join(start, "|"), strings.Join(seg.types, "|"), strings.Join(end, "|"))
	}

	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		statement = statement[:e.start] + e.text + statement[e.end:]
	}
	return statement, nil
}

func resolveLabels(name string, labels []string, nodes map[string][]string) []string {
	if len(labels) > 0 || name == "" {
		return labels
	}
	return nodes[name]
}

func matchesTriple(graphSchema *core.GraphSchema, starts, types, ends []string) bool {
	if len(starts) == 0 {
		starts = []string{""}
	}
	if len(ends) == 0 {
		ends = []string{""}
	}
	for _, s := range starts {
		for _, t := range types {
			for _, e := range ends {
				if graphSchema.HasTriple(s, t, e) {
					return true
				}
			}
		}
	}
	return false
}

func splitIdents(s string) []string {
	if s == "" {
		return nil
	}
	found := identRe.FindAllString(s, -1)
	out := make([]string, 0, len(found))
	for _, f := range found {
		out = append(out, strings.Trim(f, "`"))
	}
	return out
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}

// maskStrings blanks the contents of string literals and line comments so
// that keywords and punctuation inside them are ignored. Byte offsets are
// preserved.
func maskStrings(s string) string {
	b := []byte(s)
	var quote byte
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case quote != 0:
			if c == '\\' && i+1 < len(b) {
				b[i], b[i+1] = ' ', ' '
				i++
				continue
			}
			if c == quote {
				quote = 0
				continue
			}
			b[i] = ' '
		case c == '\'' || c == '"':
			quote = c
		case c == '`':
			// identifiers may contain quote characters
			if j := strings.IndexByte(s[i+1:], '`'); j >= 0 {
				i += j + 1
			}
		case c == '/' && i+1 < len(b) && b[i+1] == '/':
			for i < len(b) && b[i] != '\n' {
				b[i] = ' '
				i++
			}
		}
	}
	return string(b)
}

// maskInlineWhere blanks the predicate of every WHERE written inside a node
// or relationship pattern, such as (m:Manager WHERE m.x > 1), so that the
// pattern expressions see only variables, labels, types and properties.
// The predicate runs up to the bracket that encloses the WHERE. Byte
// offsets are preserved.
func maskInlineWhere(masked, bare string) string {
	starts := make(map[int]bool)
	for _, loc := range whereRe.FindAllStringIndex(bare, -1) {
		if loc[0] > 0 && bare[loc[0]-1] == '.' {
			continue
		}
		starts[loc[0]] = true
	}
	if len(starts) == 0 {
		return masked
	}

	type open struct {
		bracket byte
		where   int
	}
	var stack []open
	b := []byte(masked)
	for i := 0; i < len(bare); i++ {
		switch c := bare[i]; {
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, open{bracket: c, where: -1})
		case c == ')' || c == ']' || c == '}':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.where >= 0 && top.bracket != '{' {
				for j := top.where; j < i; j++ {
					b[j] = ' '
				}
			}
		case starts[i] && len(stack) > 0 && stack[len(stack)-1].where < 0:
			stack[len(stack)-1].where = i
		}
	}
	return string(b)
}

// maskBackticks blanks the contents of quoted identifiers.
func maskBackticks(s string) string {
	b := []byte(s)
	in := false
	for i, c := range b {
		if c == '`' {
			in = !in
			continue
		}
		if in {
			b[i] = ' '
		}
	}
	return string(b)
}
