package sqlguard

import (
	"fmt"
	"regexp"
	"unicode/utf8"
)

var joinKeyword = regexp.MustCompile(`\bJOIN\b`)

// checkComplexity enforces the structural bounds on the comment-stripped
// query: length in characters, parenthesis nesting depth and JOIN count.
// Depths and counts at the bound pass; one past it fails.
func checkComplexity(nq *normalizedQuery) error {
	if utf8.RuneCountInString(nq.CommentFree) > MaxQueryLength {
		return &ValidationError{
			Kind:    KindTooComplex,
			Message: "Query is too long. Maximum query length is 10,000 characters.",
		}
	}

	depth, maxDepth := 0, 0
	for _, r := range nq.CommentFree {
		switch r {
		case '(':
			depth++
			if depth > maxDepth {
				maxDepth = depth
			}
		case ')':
			depth--
		}
	}
	if maxDepth > MaxNestingDepth {
		return &ValidationError{
			Kind:    KindTooComplex,
			Message: "Query has too many nested parentheses. Maximum nesting depth is 10.",
		}
	}

	if n := len(joinKeyword.FindAllString(nq.CommentFreeUpper, -1)); n > MaxJoinCount {
		return &ValidationError{
			Kind:    KindTooComplex,
			Message: fmt.Sprintf("Query has too many JOINs (%d). Maximum allowed is %d.", n, MaxJoinCount),
		}
	}

	if fam := matchSignature(restrictedFeatures, nq.CommentFreeUpper); fam != "" {
		return &ValidationError{
			Kind:    KindTooComplex,
			Family:  fam,
			Message: "Query contains restricted SQL feature. Complex operations are not allowed.",
		}
	}

	return nil
}
