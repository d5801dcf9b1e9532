package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripInvalidEntityPropertyDeletedAt(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "filter before another condition",
			in:   "SELECT ep.property_value FROM entity_property ep WHERE ep.deleted_at IS NULL AND ep.property_id = 'phone'",
			want: "SELECT ep.property_value FROM entity_property ep WHERE ep.property_id = 'phone'",
		},
		{
			name: "filter after another condition",
			in:   "SELECT ep.property_value FROM entity_property ep WHERE ep.property_id = 'phone' AND ep.deleted_at IS NULL",
			want: "SELECT ep.property_value FROM entity_property ep WHERE ep.property_id = 'phone'",
		},
		{
			name: "filter is the whole where clause",
			in:   "SELECT ep.property_value FROM entity_property ep WHERE ep.deleted_at IS NULL",
			want: "SELECT ep.property_value FROM entity_property ep",
		},
		{
			name: "filter between conditions",
			in:   "SELECT ep.entity_id FROM entity_property ep WHERE ep.is_primary = 1 AND ep.deleted_at IS NULL AND ep.property_id = 'email'",
			want: "SELECT ep.entity_id FROM entity_property ep WHERE ep.is_primary = 1 AND ep.property_id = 'email'",
		},
		{
			name: "where clause followed by order by",
			in:   "SELECT ep.property_value FROM entity_property ep WHERE ep.deleted_at IS NULL ORDER BY ep.entity_id",
			want: "SELECT ep.property_value FROM entity_property ep ORDER BY ep.entity_id",
		},
		{
			name: "explicit AS alias",
			in:   "SELECT x.property_value FROM entity_property AS x WHERE x.deleted_at IS NULL AND x.property_id = 'mobile'",
			want: "SELECT x.property_value FROM entity_property AS x WHERE x.property_id = 'mobile'",
		},
		{
			name: "bare table name as qualifier",
			in:   "SELECT property_value FROM entity_property WHERE entity_property.deleted_at IS NULL AND entity_property.property_id = 'phone'",
			want: "SELECT property_value FROM entity_property WHERE entity_property.property_id = 'phone'",
		},
		{
			name: "joined with entity",
			in:   "SELECT e.name, ep.property_value FROM entity e JOIN entity_property ep ON ep.entity_id = e.entity_id WHERE e.is_deleted = 0 AND ep.deleted_at IS NULL",
			want: "SELECT e.name, ep.property_value FROM entity e JOIN entity_property ep ON ep.entity_id = e.entity_id WHERE e.is_deleted = 0",
		},
		{
			name: "other table's deleted_at untouched",
			in:   "SELECT p.first_name FROM people p JOIN entity_property ep ON ep.entity_id = p.entity_id WHERE p.deleted_at IS NULL",
			want: "SELECT p.first_name FROM people p JOIN entity_property ep ON ep.entity_id = p.entity_id WHERE p.deleted_at IS NULL",
		},
		{
			name: "no entity_property at all",
			in:   "SELECT a.city FROM address a WHERE a.deleted_at IS NULL",
			want: "SELECT a.city FROM address a WHERE a.deleted_at IS NULL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripInvalidEntityPropertyDeletedAt(tt.in))
		})
	}
}

func TestApplyRewriteRulesOrder(t *testing.T) {
	calls := []string{}
	rules := []RewriteRule{
		{Name: "first", Apply: func(sql string) string {
			calls = append(calls, "first")
			return sql + " A"
		}},
		{Name: "second", Apply: func(sql string) string {
			calls = append(calls, "second")
			return sql + " B"
		}},
	}

	out := ApplyRewriteRules("SELECT 1", rules)
	assert.Equal(t, "SELECT 1 A B", out)
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestEntityPropertyAliases(t *testing.T) {
	aliases := entityPropertyAliases("SELECT 1 FROM entity_property ep JOIN entity e ON 1=1")
	assert.Contains(t, aliases, "entity_property")
	assert.Contains(t, aliases, "ep")

	// JOIN keyword after the table name is not an alias
	aliases = entityPropertyAliases("SELECT 1 FROM entity_property JOIN entity e ON 1=1")
	assert.Equal(t, []string{"entity_property"}, aliases)
}
