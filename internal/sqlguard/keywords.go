package sqlguard

import (
	"regexp"
	"strings"
)

// forbiddenKeywords is everything a read-only analytics query has no
// business containing: DML, DDL, session and account control, stored code,
// stage and data-movement verbs. Order is significant; the first hit is
// reported. Matching is whole-word against the uppercased query.
var forbiddenKeywords = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "CREATE", "ALTER",
	"TRUNCATE", "MERGE", "REPLACE", "SWAP",
	"GRANT", "REVOKE", "EXECUTE", "CALL",
	"COPY", "PUT", "GET", "REMOVE", "LIST",
	"SHOW GRANTS", "SHOW ROLES", "USE ROLE", "USE WAREHOUSE",
	"SET", "UNSET",
	"BEGIN", "COMMIT", "ROLLBACK",
	"PROCEDURE", "FUNCTION", "TASK", "STREAM", "STAGE",
	"LOAD", "UNLOAD",
	"$", "SYSTEM$",
	"CURRENT_ROLE", "CURRENT_USER",
}

// splittableKeywords are the statements attackers hide by splitting across
// comments, e.g. UNI/**/ON. Detected by comparing the comment-stripped text
// against the original: a keyword present only after stripping was split.
var splittableKeywords = []string{
	"UNION", "SELECT", "INSERT", "UPDATE", "DELETE", "DROP", "CREATE",
	"ALTER", "GRANT", "REVOKE", "EXECUTE", "CALL", "TRUNCATE", "MERGE",
}

var forbiddenKeywordPatterns = compileKeywordPatterns(forbiddenKeywords)

var (
	leadingBlockComments = regexp.MustCompile(`(?s)^\s*(/\*.*?\*/\s*)*`)
	leadingLineComments  = regexp.MustCompile(`(?m)^\s*--.*?\n\s*`)
	selectPrefix         = regexp.MustCompile(`(?i)^\s*SELECT\s+`)
)

func compileKeywordPatterns(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		patterns[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return patterns
}

// findForbiddenKeyword returns the first denylisted keyword found in the
// uppercased query, or "" if none match. Note "$" only matches between word
// characters under \b; bare dollar signs in string literals pass, while
// Snowflake variable syntax like $1 does not.
func findForbiddenKeyword(upper string) string {
	for i, pat := range forbiddenKeywordPatterns {
		if pat.MatchString(upper) {
			return forbiddenKeywords[i]
		}
	}
	return ""
}

// startsWithSelect reports whether the query begins with SELECT once leading
// comments are peeled off.
func startsWithSelect(query string) bool {
	cleaned := leadingBlockComments.ReplaceAllString(query, "")
	cleaned = leadingLineComments.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	return selectPrefix.MatchString(cleaned)
}

// reconstructedKeyword returns the first dangerous keyword that appears in
// the comment-stripped query but not in the original, meaning comments were
// used to split it. Both spaced and whitespace-free views are compared, so
// UNI/**/ON and UNI /**/ ON are caught alike.
func reconstructedKeyword(nq *normalizedQuery) string {
	for _, kw := range splittableKeywords {
		after := strings.Contains(nq.CommentFreeUpper, kw) ||
			strings.Contains(nq.CommentFreeUpperNoSpace, kw)
		before := strings.Contains(nq.NormalizedUpper, kw) ||
			strings.Contains(nq.NormalizedUpperNoSpace, kw)
		if after && !before {
			return kw
		}
	}
	return ""
}
