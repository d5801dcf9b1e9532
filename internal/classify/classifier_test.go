package classify

import (
	"testing"

	"github.com/askdb/askdb/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalogs() schema.Catalogs {
	return schema.Catalogs{
		Entities: schema.Catalog{
			Tables: []string{"entity", "people", "address", "entity_property", "buy"},
			ColumnsByTable: map[string][]string{
				"entity": {"entity_id", "name"},
			},
		},
		DMS: schema.Catalog{
			Tables: []string{"leads_tickets", "leads_notes", "email_history"},
			ColumnsByTable: map[string][]string{
				"leads_tickets": {"id", "ticket_number"},
			},
		},
	}
}

func TestClassifyEntitiesKeywords(t *testing.T) {
	result := Classify("list all organisations in Germany", testCatalogs())

	assert.Equal(t, schema.TargetEntities, result.Target)
	assert.Equal(t, "Entities keywords matched", result.Reason)
	assert.Equal(t, entitiesCandidates, result.CandidateTables)
	assert.Greater(t, result.Confidence, 0.6)
}

func TestClassifyDMSKeywords(t *testing.T) {
	result := Classify("list tickets assigned to John with TK188089", testCatalogs())

	assert.Equal(t, schema.TargetDMS, result.Target)
	assert.Equal(t, "DMS keywords matched", result.Reason)
	assert.Equal(t, dmsCandidates, result.CandidateTables)
}

func TestClassifyKeywordConfidenceCapped(t *testing.T) {
	question := "entities people person users address organisation company bank " +
		"iban swift role debtor creditor risk rating country"

	result := Classify(question, testCatalogs())

	assert.Equal(t, schema.TargetEntities, result.Target)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}

func TestClassifyKeywordTieFavorsEntities(t *testing.T) {
	// "company" scores 1 for entities, "ticket" scores 1 for DMS.
	result := Classify("company ticket", testCatalogs())

	assert.Equal(t, schema.TargetEntities, result.Target)
}

func TestClassifyTableOverlap(t *testing.T) {
	result := Classify("sum face_value from buy", testCatalogs())

	require.Equal(t, schema.TargetEntities, result.Target)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
	assert.Equal(t, []string{"buy"}, result.CandidateTables)
	assert.Equal(t, "Matched table buy", result.Reason)
}

func TestClassifyTableOverlapDMS(t *testing.T) {
	result := Classify("latest rows in email_history", testCatalogs())

	assert.Equal(t, schema.TargetDMS, result.Target)
	assert.Equal(t, []string{"email_history"}, result.CandidateTables)
}

func TestClassifyDefaultTieBreak(t *testing.T) {
	// No keywords from either set, no table token overlap.
	result := Classify("what is the weather today", testCatalogs())

	assert.Equal(t, schema.TargetEntities, result.Target)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
	assert.Equal(t, "Defaulted to Entities (no keyword/table hit)", result.Reason)
	assert.Empty(t, result.CandidateTables)
}

func TestClassifyBothTablesMatchDefaults(t *testing.T) {
	// A token from each catalog: ambiguous, so entities wins at 0.6.
	result := Classify("compare buy with email_history", testCatalogs())

	assert.Equal(t, schema.TargetEntities, result.Target)
	assert.InDelta(t, 0.6, result.Confidence, 1e-9)
}

func TestClassifyIdempotent(t *testing.T) {
	catalogs := testCatalogs()
	question := "show top 5 organisations by name"

	first := Classify(question, catalogs)
	for range 5 {
		assert.Equal(t, first, Classify(question, catalogs))
	}
}

func TestClassifyChunksMajority(t *testing.T) {
	result := ClassifyChunks([]schema.Target{
		schema.TargetDMS, schema.TargetDMS, schema.TargetDMS,
		schema.TargetEntities, schema.TargetEntities,
	})

	assert.Equal(t, schema.TargetDMS, result.Target)
}

func TestClassifyChunksTieFavorsEntities(t *testing.T) {
	result := ClassifyChunks([]schema.Target{schema.TargetDMS, schema.TargetEntities})

	assert.Equal(t, schema.TargetEntities, result.Target)
}

func TestClassifyChunksEmpty(t *testing.T) {
	result := ClassifyChunks(nil)

	assert.Equal(t, schema.TargetEntities, result.Target)
}
