package sqlguard

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var limitClause = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)\b`)

// applyRowLimit rewrites the accepted query so its effective LIMIT never
// exceeds rowCap. The rewrite works on the comment-stripped view: what was
// validated is what runs. Applying it again with the same cap is a no-op.
func applyRowLimit(nq *normalizedQuery, rowCap int) *Result {
	m := limitClause.FindStringSubmatch(nq.CommentFree)
	if m == nil {
		return &Result{
			SafeQuery: strings.TrimRight(nq.CommentFree, ";") + fmt.Sprintf(" LIMIT %d", rowCap),
			Message:   fmt.Sprintf("Added LIMIT %d for safety", rowCap),
		}
	}

	existing, err := strconv.Atoi(m[1])
	if err == nil && existing <= rowCap {
		return &Result{SafeQuery: nq.CommentFree, Message: "Query is safe"}
	}

	// Overflowing digits are certainly past the cap. Every LIMIT clause is
	// replaced, not just the first, so none can slip through in a subquery.
	shown := m[1]
	if err == nil {
		shown = strconv.Itoa(existing)
	}
	return &Result{
		SafeQuery: limitClause.ReplaceAllString(nq.CommentFree, "LIMIT "+strconv.Itoa(rowCap)),
		Message:   fmt.Sprintf("Query limit reduced from %s to %d for safety", shown, rowCap),
	}
}
