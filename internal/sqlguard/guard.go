// Package sqlguard decides, using static text analysis only, whether a
// user-supplied SQL string is safe to execute, and rewrites accepted
// queries into a bounded, schema-restricted form.
package sqlguard

import (
	"fmt"
	"strings"
)

// Gate limits. These are deliberate compile-time constants, not
// configuration: callers must not be able to widen them.
const (
	MaxQueriesPerMinute = 30
	HardRowCap          = 10000
	MaxQueryLength      = 10000
	MaxNestingDepth     = 10
	MaxJoinCount        = 5
)

// Kind classifies why the gate rejected a query.
type Kind string

const (
	KindRateLimited       Kind = "rate_limited"
	KindEmptyQuery        Kind = "empty_query"
	KindWrongShape        Kind = "wrong_shape"
	KindForbiddenKeyword  Kind = "forbidden_keyword"
	KindInjection         Kind = "injection_signature"
	KindSuspiciousUnicode Kind = "suspicious_unicode"
	KindTooComplex        Kind = "too_complex"
	KindSchemaNotAllowed  Kind = "schema_not_allowed"
)

// ValidationError is returned for every gate rejection.
type ValidationError struct {
	Kind    Kind
	Message string
	// Family names the matched signature family for security events.
	// It is meant for audit logs and is never echoed to callers.
	Family string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// SecurityEvent reports whether the rejection looks like an attack attempt
// rather than an ordinary input mistake, so it can be audited distinctly.
func (e *ValidationError) SecurityEvent() bool {
	return e.Kind == KindInjection || e.Kind == KindSuspiciousUnicode
}

// Result is the outcome of a successful validation. SafeQuery is the only
// string that may ever be handed to an executor.
type Result struct {
	SafeQuery string `json:"safe_query"`
	Message   string `json:"message"`
}

// Guard runs the validation pipeline. The zero value is not usable; use New.
type Guard struct {
	limiter Limiter
}

// New creates a Guard admitting queries through the given limiter. A nil
// limiter gets the default in-process sliding window.
func New(limiter Limiter) *Guard {
	if limiter == nil {
		limiter = NewSlidingWindowLimiter(MaxQueriesPerMinute, rateWindow, nil)
	}
	return &Guard{limiter: limiter}
}

// Admit consults the rate limiter. It must be called before ValidateAndPrepare
// on the execution path; rejected attempts must not proceed to validation.
func (g *Guard) Admit() error {
	if g.limiter.Admit() {
		return nil
	}
	return &ValidationError{
		Kind:    KindRateLimited,
		Message: fmt.Sprintf("Rate limit exceeded. Maximum %d queries per minute allowed.", MaxQueriesPerMinute),
	}
}

// ValidateAndPrepare runs the full validation pipeline and, on acceptance,
// returns the rewritten query with an effective LIMIT of at most
// min(maxRows, HardRowCap). The pipeline short-circuits on the first failure.
func (g *Guard) ValidateAndPrepare(sql string, maxRows int) (*Result, error) {
	sql = strings.TrimSpace(sql)
	if sql == "" {
		return nil, &ValidationError{Kind: KindEmptyQuery, Message: "Empty query provided"}
	}

	rowCap := maxRows
	if rowCap > HardRowCap {
		rowCap = HardRowCap
	}

	// Keyword and shape checks run on the text as received; normalization
	// happens inside the deeper security checks.
	upper := strings.ToUpper(sql)
	if kw := findForbiddenKeyword(upper); kw != "" {
		return nil, &ValidationError{
			Kind:    KindForbiddenKeyword,
			Message: fmt.Sprintf("Query contains forbidden keyword: %s. Only SELECT statements are allowed.", kw),
		}
	}
	if !startsWithSelect(sql) {
		return nil, &ValidationError{
			Kind:    KindWrongShape,
			Message: "Query must start with SELECT. Data modification statements are not allowed.",
		}
	}

	nq, err := securityChecks(sql)
	if err != nil {
		return nil, err
	}

	return applyRowLimit(nq, rowCap), nil
}

// securityChecks is the deep half of the pipeline: Unicode screening,
// comment stripping with keyword-reconstruction detection, the injection
// signature battery, structural complexity bounds and schema allowlisting.
// On success it returns the derived views the row-limit rewrite works on.
func securityChecks(raw string) (*normalizedQuery, error) {
	// Homoglyph screening reads the raw text: normalization would fold the
	// very characters it is looking for.
	if containsSuspiciousUnicode(raw) {
		return nil, &ValidationError{
			Kind:    KindSuspiciousUnicode,
			Message: "Query contains suspicious Unicode characters that may be attempts to bypass security. ASCII-only SQL keywords are required.",
		}
	}

	nq := newNormalizedQuery(raw)

	// These signatures depend on comment syntax and must run before the
	// stripper destroys the evidence.
	if fam := matchSignature(preStripSignatures, nq.Normalized); fam != "" {
		return nil, maliciousPattern(fam)
	}

	if kw := reconstructedKeyword(nq); kw != "" {
		return nil, &ValidationError{
			Kind:    KindInjection,
			Family:  "keyword-reconstruction",
			Message: fmt.Sprintf("Query appears to use comments to split dangerous keyword '%s'. This is not allowed.", kw),
		}
	}

	if fam := matchSignature(injectionSignatures, nq.CommentFreeUpper); fam != "" {
		return nil, maliciousPattern(fam)
	}

	if err := checkComplexity(nq); err != nil {
		return nil, err
	}

	if err := checkSchemaAccess(nq.CommentFreeUpper); err != nil {
		return nil, err
	}

	if fam := matchSignature(externalRefSignatures, nq.CommentFreeUpper); fam != "" {
		return nil, &ValidationError{
			Kind:    KindSchemaNotAllowed,
			Family:  fam,
			Message: "File operations and external references are not allowed.",
		}
	}

	return nq, nil
}

// maliciousPattern builds the deliberately generic injection rejection. The
// matched family goes to the audit log, never to the caller.
func maliciousPattern(family string) *ValidationError {
	return &ValidationError{
		Kind:    KindInjection,
		Family:  family,
		Message: "Query contains potentially malicious pattern. SQL injection attempts are not allowed.",
	}
}
