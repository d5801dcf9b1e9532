package sqlgen

import (
	"fmt"
	"regexp"
	"strings"
)

// RewriteRule is one schema-specific text rewrite applied to generated SQL.
// Rules patch known model hallucinations against the fixed schemas and run
// in order; each must be a no-op on SQL it does not apply to.
type RewriteRule struct {
	Name  string
	Apply func(sql string) string
}

// DefaultRewriteRules returns the rewrite pipeline in application order
func DefaultRewriteRules() []RewriteRule {
	return []RewriteRule{
		{
			Name:  "stripInvalidEntityPropertyDeletedAt",
			Apply: stripInvalidEntityPropertyDeletedAt,
		},
	}
}

// ApplyRewriteRules runs every rule over the SQL in order
func ApplyRewriteRules(sql string, rules []RewriteRule) string {
	for _, rule := range rules {
		sql = rule.Apply(sql)
	}

	return sql
}

var entityPropertyAliasRe = regexp.MustCompile(`(?i)\bentity_property\b(?:\s+AS)?\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Keywords that can follow a table reference and must not be read as aliases
var notAnAlias = map[string]bool{
	"on": true, "where": true, "join": true, "inner": true, "left": true,
	"right": true, "outer": true, "cross": true, "group": true, "order": true,
	"having": true, "limit": true, "union": true, "set": true, "using": true,
	"and": true, "or": true, "as": true,
}

var (
	where1eq1AndRe   = regexp.MustCompile(`(?i)\bWHERE\s+1=1\s+AND\s+`)
	and1eq1Re        = regexp.MustCompile(`(?i)\s+AND\s+1=1\b`)
	trailingWhere1Re = regexp.MustCompile(`(?i)\s+WHERE\s+1=1\s*$`)
	interiorWhere1Re = regexp.MustCompile(`(?i)\s+WHERE\s+1=1\s+(GROUP|ORDER|LIMIT|HAVING)\b`)
)

// stripInvalidEntityPropertyDeletedAt removes `<alias>.deleted_at IS NULL`
// filters where the alias is bound to entity_property, which has no
// deleted_at column. The filter becomes `1=1` and the tautology is then
// collapsed out of the WHERE clause.
func stripInvalidEntityPropertyDeletedAt(sql string) string {
	aliases := entityPropertyAliases(sql)
	if len(aliases) == 0 {
		return sql
	}

	for _, alias := range aliases {
		pattern := regexp.MustCompile(fmt.Sprintf(`(?i)\b%s\.deleted_at\s+IS\s+NULL\b`, regexp.QuoteMeta(alias)))
		sql = pattern.ReplaceAllString(sql, "1=1")
	}

	sql = where1eq1AndRe.ReplaceAllString(sql, "WHERE ")
	sql = and1eq1Re.ReplaceAllString(sql, "")
	sql = interiorWhere1Re.ReplaceAllString(sql, " $1")
	sql = trailingWhere1Re.ReplaceAllString(sql, "")

	return strings.TrimSpace(sql)
}

// entityPropertyAliases collects aliases bound to entity_property, including
// the bare table name used as its own qualifier
func entityPropertyAliases(sql string) []string {
	if !strings.Contains(strings.ToLower(sql), "entity_property") {
		return nil
	}

	aliases := []string{"entity_property"}
	for _, match := range entityPropertyAliasRe.FindAllStringSubmatch(sql, -1) {
		candidate := match[1]
		if notAnAlias[strings.ToLower(candidate)] {
			continue
		}
		aliases = append(aliases, candidate)
	}

	return aliases
}
