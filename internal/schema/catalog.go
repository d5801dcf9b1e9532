package schema

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/errors"
)

// Target identifies one of the two fixed databases a question can route to
type Target string

const (
	TargetEntities Target = "entities"
	TargetDMS      Target = "dms"
	TargetUnknown  Target = "unknown"
)

// Catalog holds the parsed table and column names for one database
type Catalog struct {
	Tables         []string
	ColumnsByTable map[string][]string
}

// Catalogs bundles the catalogs for both targets
type Catalogs struct {
	Entities Catalog
	DMS      Catalog
}

// ByTarget returns the catalog for the given target; unknown falls back to entities
func (c Catalogs) ByTarget(target Target) Catalog {
	if target == TargetDMS {
		return c.DMS
	}

	return c.Entities
}

const (
	defaultMaxTables          = 200
	defaultMaxColumnsPerTable = 50
)

var (
	modelBlockRe = regexp.MustCompile(`(?s)model\s+(\w+)\s+\{(.*?)\}`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Load reads and parses both schema definition files. Each path is tried
// with a .txt/.ttxt extension fallback in either direction before failing.
func Load(entitiesPath, dmsPath string) (Catalogs, error) {
	entitiesRaw, err := ReadSchemaFile(entitiesPath)
	if err != nil {
		return Catalogs{}, err
	}

	dmsRaw, err := ReadSchemaFile(dmsPath)
	if err != nil {
		return Catalogs{}, err
	}

	return Catalogs{
		Entities: Parse(string(entitiesRaw)),
		DMS:      Parse(string(dmsRaw)),
	}, nil
}

// ReadSchemaFile reads a schema definition file, trying the alternate
// extension (.txt <-> .ttxt) when the named file does not exist.
func ReadSchemaFile(path string) ([]byte, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		resolved = path
	}

	candidates := []string{resolved}

	switch {
	case strings.HasSuffix(resolved, ".txt"):
		candidates = append(candidates, strings.TrimSuffix(resolved, ".txt")+".ttxt")
	case strings.HasSuffix(resolved, ".ttxt"):
		candidates = append(candidates, strings.TrimSuffix(resolved, ".ttxt")+".txt")
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err == nil {
			return data, nil
		}
	}

	return nil, errors.Newf(errors.ErrTypeSchema, "schema file not found: %s", resolved).
		WithKind(errors.KindSchemaFileNotFound).
		WithSuggestion("Set ASKDB_ENTITIES_SCHEMA_PATH and ASKDB_DMS_SCHEMA_PATH to the definition files")
}

// Parse extracts table names and their declared field names from a
// block-structured model definition. Each table is a `model name { ... }`
// block; each non-annotation, non-comment line's leading token is a
// candidate column name, accepted only if it is a plain identifier.
func Parse(raw string) Catalog {
	catalog := Catalog{
		ColumnsByTable: make(map[string][]string),
	}

	for _, match := range modelBlockRe.FindAllStringSubmatch(raw, -1) {
		table := match[1]
		body := match[2]

		var columns []string

		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "@@") ||
				strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") ||
				strings.HasPrefix(line, "}") {
				continue
			}

			name := strings.Fields(line)[0]
			if identifierRe.MatchString(name) {
				columns = append(columns, name)
			}
		}

		catalog.Tables = append(catalog.Tables, table)
		catalog.ColumnsByTable[table] = columns
	}

	return catalog
}

// Summarize renders a bounded, deterministic, prompt-ready listing of the
// catalog, truncated at the default table and column caps.
func Summarize(catalog Catalog) string {
	return SummarizeWithLimits(catalog, defaultMaxTables, defaultMaxColumnsPerTable)
}

// SummarizeWithLimits renders `- table: col1, col2, ...` lines with explicit caps
func SummarizeWithLimits(catalog Catalog, maxTables, maxColumnsPerTable int) string {
	tables := catalog.Tables
	if len(tables) > maxTables {
		tables = tables[:maxTables]
	}

	var sb strings.Builder

	for i, table := range tables {
		if i > 0 {
			sb.WriteString("\n")
		}

		cols := catalog.ColumnsByTable[table]
		if len(cols) > maxColumnsPerTable {
			cols = cols[:maxColumnsPerTable]
		}

		sb.WriteString("- ")
		sb.WriteString(table)
		sb.WriteString(": ")
		sb.WriteString(strings.Join(cols, ", "))
	}

	return sb.String()
}

// HasTable reports whether the catalog declares the named table (case-insensitive)
func (c Catalog) HasTable(name string) bool {
	for _, table := range c.Tables {
		if strings.EqualFold(table, name) {
			return true
		}
	}

	return false
}
