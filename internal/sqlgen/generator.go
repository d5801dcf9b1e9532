package sqlgen

import (
	"context"
	"encoding/json"
	"regexp"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/schema"
)

// Generation parameters. Low temperature keeps SQL output stable; the token
// budget bounds worst-case response size.
const (
	generationTemperature = 0.2
	generationMaxTokens   = 700
)

var limitKeywordRe = regexp.MustCompile(`(?i)\bLIMIT\b`)

// Plan is a generated, sanitized query plan for one question
type Plan struct {
	SQL         string `json:"sql"`
	Explanation string `json:"explanation"`
	AllowsLimit bool   `json:"allowsLimit"`
}

// Generator turns a natural language question into a single SELECT plan
type Generator struct {
	service llm.Service
	rules   []RewriteRule
}

// NewGenerator creates a Generator using the default rewrite rules
func NewGenerator(service llm.Service) *Generator {
	return &Generator{
		service: service,
		rules:   DefaultRewriteRules(),
	}
}

type rawPlan struct {
	SQL         *string `json:"sql"`
	Explanation *string `json:"explanation"`
}

// Generate produces a sanitized query plan for the question against the
// given target's schema summary
func (g *Generator) Generate(ctx context.Context, question string, target schema.Target, schemaSummary string) (Plan, error) {
	logger := logging.GetLogger()

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildSystemPrompt(target, schemaSummary)},
		{Role: llm.RoleUser, Content: BuildUserPrompt(question)},
	}

	content, err := g.service.Chat(ctx, messages, llm.Options{
		Temperature: generationTemperature,
		MaxTokens:   generationMaxTokens,
		ForceJSON:   true,
	})
	if err != nil {
		return Plan{}, err
	}

	var parsed rawPlan
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Plan{}, errors.Wrap(err, errors.ErrTypeModelOutput, "AI returned invalid JSON").
			WithKind(errors.KindInvalidAIJSON)
	}

	if parsed.SQL == nil || parsed.Explanation == nil {
		return Plan{}, errors.New(errors.ErrTypeModelOutput, "missing fields in AI response: sql and explanation are required").
			WithKind(errors.KindMissingResponseFields)
	}

	sql, err := Sanitize(*parsed.SQL)
	if err != nil {
		return Plan{}, err
	}

	rewritten := ApplyRewriteRules(sql, g.rules)
	if rewritten != sql {
		logger.WithFields(map[string]interface{}{
			"target": string(target),
			"before": sql,
			"after":  rewritten,
		}).Debug("Rewrite rules patched generated SQL")
		sql = rewritten
	}

	return Plan{
		SQL:         sql,
		Explanation: *parsed.Explanation,
		AllowsLimit: limitKeywordRe.MatchString(sql),
	}, nil
}
