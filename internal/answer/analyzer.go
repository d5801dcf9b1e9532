package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/retrieve"
	"github.com/askdb/askdb/internal/schema"
)

const (
	analysisTemperature = 0.2
	analysisMaxTokens   = 600
	analysisTopK        = 5
)

// Plan is the minimal sketch of how the answer would be assembled
type Plan struct {
	Target  schema.Target `json:"target"`
	Tables  []string      `json:"tables"`
	Filters []string      `json:"filters"`
}

// Result is a natural-language answer outline for one question
type Result struct {
	DBName    schema.Target `json:"db_name"`
	Answer    string        `json:"answer"`
	Rationale string        `json:"rationale"`
	Plan      Plan          `json:"plan"`
}

// Searcher is the slice of the retrieval index the analyzer uses
type Searcher interface {
	Search(ctx context.Context, question string, topK int) ([]retrieve.Hit, error)
}

// Analyzer decides which database answers a question and sketches how.
// With embeddings available it reasons over retrieved schema chunks;
// otherwise it falls back to the full schema summaries.
type Analyzer struct {
	service  llm.Service
	index    Searcher
	catalogs schema.Catalogs
	embedded bool
}

// NewAnalyzer creates an analyzer. Pass embedded=false to force the
// summary-based path regardless of index state.
func NewAnalyzer(service llm.Service, index Searcher, catalogs schema.Catalogs, embedded bool) *Analyzer {
	return &Analyzer{
		service:  service,
		index:    index,
		catalogs: catalogs,
		embedded: embedded,
	}
}

// Analyze produces an answer outline for the question
func (a *Analyzer) Analyze(ctx context.Context, question string) (Result, error) {
	if !a.service.Configured() {
		return Result{}, errors.New(errors.ErrTypeConfig,
			"AI not configured: set ASKDB_AZURE_OPENAI_KEY, ASKDB_AZURE_OPENAI_ENDPOINT, ASKDB_AZURE_OPENAI_DEPLOYMENT").
			WithKind(errors.KindAIServiceNotConfigured)
	}

	var messages []llm.Message
	if a.embedded {
		hits, err := a.index.Search(ctx, question, analysisTopK)
		if err != nil {
			return Result{}, err
		}
		messages = buildChunkMessages(question, hits)
	} else {
		messages = buildSummaryMessages(question, a.catalogs)
	}

	content, err := a.service.Chat(ctx, messages, llm.Options{
		Temperature: analysisTemperature,
		MaxTokens:   analysisMaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		return Result{}, err
	}

	return parseAnalysis(content)
}

type rawAnalysis struct {
	DBName    string `json:"db_name"`
	Answer    string `json:"answer"`
	Rationale string `json:"rationale"`
	Plan      *struct {
		Tables  []string `json:"tables"`
		Filters []string `json:"filters"`
	} `json:"plan"`
}

// parseAnalysis decodes the model reply, defaulting db_name to entities for
// anything that is not exactly "dms"
func parseAnalysis(content string) (Result, error) {
	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Result{}, errors.Wrap(err, errors.ErrTypeModelOutput, "AI returned invalid JSON").
			WithKind(errors.KindInvalidAIJSON)
	}

	dbName := schema.TargetEntities
	if parsed.DBName == string(schema.TargetDMS) {
		dbName = schema.TargetDMS
	}

	plan := Plan{Target: dbName, Tables: []string{}, Filters: []string{}}
	if parsed.Plan != nil {
		if parsed.Plan.Tables != nil {
			plan.Tables = parsed.Plan.Tables
		}
		if parsed.Plan.Filters != nil {
			plan.Filters = parsed.Plan.Filters
		}
	}

	return Result{
		DBName:    dbName,
		Answer:    parsed.Answer,
		Rationale: parsed.Rationale,
		Plan:      plan,
	}, nil
}

func buildSummaryMessages(question string, catalogs schema.Catalogs) []llm.Message {
	system := `You are an expert data analyst. You will read two database schema summaries (ENTITIES and DMS) and decide which database best contains the information to answer the user's question. Then provide a concise natural language answer outline and a short rationale, plus a minimal plan indicating the target database and likely tables/filters. Respond ONLY in JSON with fields db_name ("entities"|"dms"), answer, rationale, and plan { target, tables, filters }.`

	user := fmt.Sprintf("# Question\n%s\n\n# ENTITIES SCHEMA (truncated)\n%s\n\n# DMS SCHEMA (truncated)\n%s",
		question,
		schema.Summarize(catalogs.Entities),
		schema.Summarize(catalogs.DMS))

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}

func buildChunkMessages(question string, hits []retrieve.Hit) []llm.Message {
	system := `You are an expert data analyst. Based ONLY on the provided schema CHUNKs, decide which database (ENTITIES or DMS) best answers the question. Provide a concise natural-language answer outline and rationale, plus a minimal plan indicating target tables/filters. Respond ONLY in JSON with fields db_name ("entities"|"dms"), answer, rationale, and plan { target, tables, filters }.`

	parts := make([]string, len(hits))
	for i, hit := range hits {
		parts[i] = fmt.Sprintf("# CHUNK %d [%s]\n%s", i+1, strings.ToUpper(string(hit.Chunk.Source)), hit.Chunk.Content)
	}

	user := fmt.Sprintf("# Question\n%s\n\n# SCHEMA CHUNKS (top-%d)\n%s",
		question, analysisTopK, strings.Join(parts, "\n\n"))

	return []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}
}
