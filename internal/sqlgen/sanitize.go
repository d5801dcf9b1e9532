package sqlgen

import (
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/errors"
)

var (
	forbiddenKeywordRe = regexp.MustCompile(`(?i)\b(INSERT|UPDATE|DELETE|DROP|ALTER|CREATE|TRUNCATE|RENAME|GRANT|REVOKE)\b`)
	selectPrefixRe     = regexp.MustCompile(`(?i)^\s*SELECT\b`)

	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`--.*`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// Sanitize enforces the read-only SQL policy and normalizes the statement.
// The forbidden-keyword check runs before comment stripping so a statement
// cannot smuggle DML past it inside comment syntax.
func Sanitize(sql string) (string, error) {
	if match := forbiddenKeywordRe.FindString(sql); match != "" {
		return "", errors.Newf(errors.ErrTypePolicy, "forbidden SQL keyword detected: %s", strings.ToUpper(match)).
			WithKind(errors.KindForbiddenSQLKeyword).
			WithSuggestion("Only read-only SELECT queries are allowed")
	}

	if !selectPrefixRe.MatchString(sql) {
		return "", errors.New(errors.ErrTypePolicy, "only SELECT queries are allowed").
			WithKind(errors.KindForbiddenSQLKeyword)
	}

	sql = blockCommentRe.ReplaceAllString(sql, "")
	sql = lineCommentRe.ReplaceAllString(sql, "")
	sql = strings.TrimSpace(whitespaceRe.ReplaceAllString(sql, " "))

	return sql, nil
}
