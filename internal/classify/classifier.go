package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdb/askdb/internal/schema"
)

// Result describes which database a question targets and why
type Result struct {
	Target          schema.Target `json:"target"`
	Confidence      float64       `json:"confidence"`
	Reason          string        `json:"reason"`
	CandidateTables []string      `json:"candidateTables"`
}

// Keyword sets per domain. Business nouns, matched as substrings of the
// lower-cased question, mirroring how users actually phrase questions
// ("organisations", "tickets assigned to ...").
var (
	entitiesKeywords = []string{
		"entity", "entities", "people", "person", "user", "users",
		"address", "addresses", "organisation", "organization",
		"organisations", "organizations", "company", "companies",
		"bank", "iban", "swift", "bic", "role", "debtor", "creditor",
		"originator", "risk", "rating", "credit limit", "param_country",
		"country", "countries",
	}

	dmsKeywords = []string{
		"ticket", "tickets", "tk", "note", "notes", "tag", "tags",
		"reminder", "reminders", "leads", "leads_transactions",
		"leads_notes", "leads_tickets", "assigned", "deadline",
		"status", "statuses", "report", "reports",
	}

	// Representative tables returned on a keyword hit; fixed per domain,
	// not derived from the match.
	entitiesCandidates = []string{"entity", "people", "address", "entity_property", "param_country"}
	dmsCandidates      = []string{"leads_tickets", "leads_notes", "users"}

	tokenSplitRe = regexp.MustCompile(`[^a-z0-9_]+`)
)

const (
	baseConfidence       = 0.6
	tableMatchConfidence = 0.7
	keywordStep          = 0.1
)

// Classify decides which database a question targets. It is a pure function
// of the question and the catalogs: keyword scoring first, then table-name
// token overlap, then a documented default. Ties and total misses both
// resolve to entities.
func Classify(question string, catalogs schema.Catalogs) Result {
	q := strings.ToLower(question)

	entitiesScore := countKeywords(q, entitiesKeywords)
	dmsScore := countKeywords(q, dmsKeywords)

	if entitiesScore == 0 && dmsScore == 0 {
		return classifyByTableOverlap(q, catalogs)
	}

	if entitiesScore >= dmsScore {
		return Result{
			Target:          schema.TargetEntities,
			Confidence:      keywordConfidence(entitiesScore),
			Reason:          "Entities keywords matched",
			CandidateTables: entitiesCandidates,
		}
	}

	return Result{
		Target:          schema.TargetDMS,
		Confidence:      keywordConfidence(dmsScore),
		Reason:          "DMS keywords matched",
		CandidateTables: dmsCandidates,
	}
}

// ClassifyChunks is the retrieval-based variant: the target is whichever
// database contributed the majority of the top-K chunks. Ties favor entities.
func ClassifyChunks(sources []schema.Target) Result {
	var entitiesHits, dmsHits int

	for _, source := range sources {
		switch source {
		case schema.TargetEntities:
			entitiesHits++
		case schema.TargetDMS:
			dmsHits++
		}
	}

	if dmsHits > entitiesHits {
		return Result{
			Target:     schema.TargetDMS,
			Confidence: tableMatchConfidence,
			Reason:     fmt.Sprintf("Majority of retrieved chunks (%d of %d) are DMS", dmsHits, len(sources)),
		}
	}

	return Result{
		Target:     schema.TargetEntities,
		Confidence: tableMatchConfidence,
		Reason:     fmt.Sprintf("Majority of retrieved chunks (%d of %d) are Entities", entitiesHits, len(sources)),
	}
}

func countKeywords(q string, keywords []string) int {
	score := 0

	for _, kw := range keywords {
		if strings.Contains(q, kw) {
			score++
		}
	}

	return score
}

func keywordConfidence(score int) float64 {
	confidence := baseConfidence + keywordStep*float64(score)
	if confidence > 1 {
		return 1
	}

	return confidence
}

func classifyByTableOverlap(q string, catalogs schema.Catalogs) Result {
	tokens := make(map[string]bool)
	for _, token := range tokenSplitRe.Split(q, -1) {
		if token != "" {
			tokens[token] = true
		}
	}

	entitiesTable := findTableToken(tokens, catalogs.Entities)
	dmsTable := findTableToken(tokens, catalogs.DMS)

	switch {
	case entitiesTable != "" && dmsTable == "":
		return Result{
			Target:          schema.TargetEntities,
			Confidence:      tableMatchConfidence,
			Reason:          fmt.Sprintf("Matched table %s", entitiesTable),
			CandidateTables: []string{entitiesTable},
		}
	case dmsTable != "" && entitiesTable == "":
		return Result{
			Target:          schema.TargetDMS,
			Confidence:      tableMatchConfidence,
			Reason:          fmt.Sprintf("Matched table %s", dmsTable),
			CandidateTables: []string{dmsTable},
		}
	default:
		// Ties and total misses both land here.
		return Result{
			Target:          schema.TargetEntities,
			Confidence:      baseConfidence,
			Reason:          "Defaulted to Entities (no keyword/table hit)",
			CandidateTables: []string{},
		}
	}
}

func findTableToken(tokens map[string]bool, catalog schema.Catalog) string {
	for _, table := range catalog.Tables {
		if tokens[strings.ToLower(table)] {
			return table
		}
	}

	return ""
}
