package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/retrieve"
	"github.com/askdb/askdb/internal/sqlgen"
)

// Policy decides what happens when the validator flags a plan as invalid
type Policy string

const (
	// PolicyAdvisory substitutes the corrected SQL when offered but never
	// blocks execution of a flagged plan without a correction
	PolicyAdvisory Policy = "advisory"

	// PolicyStrict refuses to pass through a plan the validator flagged
	// as invalid unless it also supplied a correction
	PolicyStrict Policy = "strict"
)

// maxSchemaChunks bounds how much schema context the validation prompt carries
const maxSchemaChunks = 5

const (
	validationTemperature = 0
	validationMaxTokens   = 800
)

// Result is the semantic validation verdict for one generated plan
type Result struct {
	IsValid         bool          `json:"is_valid"`
	Reason          string        `json:"reason,omitempty"`
	CorrectedSQL    string        `json:"corrected_sql,omitempty"`
	CorrectedParams []interface{} `json:"corrected_params,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// Validator runs a second model pass judging whether generated SQL actually
// answers the question. It fails open: when the model is unconfigured or
// returns garbage, the plan is assumed valid with an explanatory note.
type Validator struct {
	service llm.Service
	policy  Policy
}

// NewValidator creates a validator with the given pass-through policy
func NewValidator(service llm.Service, policy Policy) *Validator {
	if policy != PolicyStrict {
		policy = PolicyAdvisory
	}

	return &Validator{service: service, policy: policy}
}

// Policy returns the configured pass-through policy
func (v *Validator) Policy() Policy {
	return v.policy
}

// Validate judges the generated SQL against the question and schema context
func (v *Validator) Validate(ctx context.Context, question string, chunks []retrieve.Chunk, plan sqlgen.Plan) Result {
	if !v.service.Configured() {
		return Result{IsValid: true, Notes: "Validator not configured; skipping validation."}
	}

	content, err := v.service.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: buildValidationPrompt(question, chunks, plan)},
	}, llm.Options{
		Temperature: validationTemperature,
		MaxTokens:   validationMaxTokens,
		ForceJSON:   true,
	})
	if err != nil || strings.TrimSpace(content) == "" {
		return Result{IsValid: true, Notes: "Empty validator response; assuming valid."}
	}

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Result{IsValid: true, Notes: "Validator returned non-JSON; assuming valid."}
	}

	return result
}

// EffectiveSQL resolves what should actually run given the verdict and the
// configured policy. The ok return is false only under PolicyStrict when the
// plan was flagged invalid without a usable correction.
func (v *Validator) EffectiveSQL(plan sqlgen.Plan, result Result) (sql string, params []interface{}, ok bool) {
	if result.IsValid {
		return plan.SQL, nil, true
	}

	if result.CorrectedSQL != "" {
		// Corrections go through the same read-only policy as generated SQL
		corrected, err := sqlgen.Sanitize(result.CorrectedSQL)
		if err == nil {
			return corrected, result.CorrectedParams, true
		}

		logging.GetLogger().WithError(err).Warn("Validator correction rejected by sanitizer")
	}

	if v.policy == PolicyStrict {
		return "", nil, false
	}

	return plan.SQL, nil, true
}

func buildValidationPrompt(question string, chunks []retrieve.Chunk, plan sqlgen.Plan) string {
	if len(chunks) > maxSchemaChunks {
		chunks = chunks[:maxSchemaChunks]
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		parts[i] = fmt.Sprintf("FILE: %s_%d\n%s", chunk.Source, chunk.Index, chunk.Content)
	}

	generated, _ := json.MarshalIndent(map[string]interface{}{
		"sql":    plan.SQL,
		"params": []interface{}{},
	}, "", "  ")

	return fmt.Sprintf(`You are an SQL validation agent.
User question:
%q

Schema snippets:
%s

Generated SQL JSON:
%s

Tasks:
- Confirm whether the SQL answers the question.
- If there is a semantic or logical issue that could return wrong results (like wrong column, missed join, wrong date usage, missing soft-delete filter), provide a corrected SQL and params.
Answer only as JSON in the format:
{ "is_valid": true|false, "reason": "...", "corrected_sql": "...", "corrected_params": [...], "notes": "..." }`,
		question, strings.Join(parts, "\n\n"), string(generated))
}
