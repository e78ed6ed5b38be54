package sqlguard

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	lineCommentPattern = regexp.MustCompile(`(?m)--.*?$`)
	whitespaceRuns     = regexp.MustCompile(`\s+`)
)

// normalizedQuery carries every derived view of a query so the pipeline
// stages all analyze the same text. Views are computed once, up front.
type normalizedQuery struct {
	// Raw is the trimmed input, before any normalization.
	Raw string
	// Normalized is the NFKC form of Raw. Fullwidth and other compatibility
	// characters fold to their ASCII equivalents here.
	Normalized      string
	NormalizedUpper string
	// CommentFree is Normalized with comments stripped and whitespace
	// collapsed. Accepted queries are rewritten from this view.
	CommentFree      string
	CommentFreeUpper string
	// No-whitespace variants, for spotting keywords split across comments.
	NormalizedUpperNoSpace  string
	CommentFreeUpperNoSpace string
}

func newNormalizedQuery(raw string) *normalizedQuery {
	normalized := norm.NFKC.String(raw)
	normalizedUpper := strings.ToUpper(normalized)
	commentFree := StripComments(normalized)
	commentFreeUpper := strings.ToUpper(commentFree)
	return &normalizedQuery{
		Raw:                     raw,
		Normalized:              normalized,
		NormalizedUpper:         normalizedUpper,
		CommentFree:             commentFree,
		CommentFreeUpper:        commentFreeUpper,
		NormalizedUpperNoSpace:  whitespaceRuns.ReplaceAllString(normalizedUpper, ""),
		CommentFreeUpperNoSpace: whitespaceRuns.ReplaceAllString(commentFreeUpper, ""),
	}
}

// StripComments removes line and block comments and collapses whitespace
// runs to single spaces. Block comments are replaced by a space so adjacent
// tokens cannot fuse into a new one. An unterminated block comment truncates
// the text at its opener, which discards a trailing injection payload
// instead of executing it.
func StripComments(text string) string {
	text = lineCommentPattern.ReplaceAllString(text, "")

	for {
		start := strings.Index(text, "/*")
		if start == -1 {
			break
		}
		end := strings.Index(text[start+2:], "*/")
		if end == -1 {
			text = text[:start]
			break
		}
		text = text[:start] + " " + text[start+2+end+2:]
	}

	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
}
