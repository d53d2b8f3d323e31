package structured

import (
	"regexp"
	"strings"
)

var (
	fenceRe = regexp.MustCompile("(?s)```(?:[A-Za-z]+)?\\s*(.*?)```")

	// Statements the generator may legitimately begin with.
	leadingClauseRe = regexp.MustCompile(`(?i)^(MATCH|OPTIONAL\s+MATCH|WITH|UNWIND|CALL|RETURN|USE)\b`)
)

// extractStatement pulls the Cypher statement out of a model reply. It
// reports false when the reply is not a statement, such as an apology or a
// refusal.
func extractStatement(reply string) (string, bool) {
	s := strings.TrimSpace(reply)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if len(s) >= 6 && strings.EqualFold(s[:6], "cypher") {
		s = strings.TrimSpace(s[6:])
		s = strings.TrimSpace(strings.TrimPrefix(s, ":"))
	}
	if s == "" || !leadingClauseRe.MatchString(s) {
		return "", false
	}
	return s, true
}
