package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/sqlgen"
)

// State names one phase of the plan generation loop
type State string

const (
	StateGenerating       State = "generating"
	StateValidating       State = "validating"
	StateSucceeded        State = "succeeded"
	StateRetryableFailure State = "retryable_failure"
	StateTerminalFailure  State = "terminal_failure"
)

const (
	// DefaultMaxRetries is the retry budget beyond the first attempt
	DefaultMaxRetries = 3

	// MaxEffectiveLimit caps how many rows a plan may request
	MaxEffectiveLimit = 100

	planTemperature = 0.2
	planMaxTokens   = 600
)

// QueryPlan is the orchestrator's output artifact. Limit is positive
// exactly when SQL carries a LIMIT ? placeholder to bind it to.
type QueryPlan struct {
	SQL           string `json:"sql"`
	Explanation   string `json:"explanation"`
	AllowsLimit   bool   `json:"allowsLimit"`
	Limit         int    `json:"limit"`
	SuccessStatus bool   `json:"successStatus"`
	ShouldRetry   bool   `json:"shouldRetry"`
}

// CorrectionFeedback records a prior failed execution so the model sees
// exactly what failed and why
type CorrectionFeedback struct {
	SQL   string `json:"sql"`
	Error string `json:"error"`
}

// Orchestrator drives the self-correcting generation loop
type Orchestrator struct {
	service    llm.Service
	rules      []sqlgen.RewriteRule
	maxRetries int
}

// NewOrchestrator creates an orchestrator with the given retry budget.
// A negative maxRetries falls back to DefaultMaxRetries.
func NewOrchestrator(service llm.Service, maxRetries int) *Orchestrator {
	if maxRetries < 0 {
		maxRetries = DefaultMaxRetries
	}

	return &Orchestrator{
		service:    service,
		rules:      sqlgen.DefaultRewriteRules(),
		maxRetries: maxRetries,
	}
}

// rawQueryPlan is the strictly decoded model response. Pointer fields
// distinguish absent from zero-valued.
type rawQueryPlan struct {
	SQL           *string `json:"sql"`
	Explanation   *string `json:"explanation"`
	AllowsLimit   *bool   `json:"allowsLimit"`
	SuccessStatus *bool   `json:"successStatus"`
	ShouldRetry   *bool   `json:"shouldRetry"`
}

// GenerateQueryPlan runs the bounded retry loop: generate, validate, feed
// rejections back as conversation turns. It always terminates within
// maxRetries+1 attempts and always returns a plan; the terminal fallback
// plan carries SuccessStatus=false.
func (o *Orchestrator) GenerateQueryPlan(ctx context.Context, question string, corrections []CorrectionFeedback) (QueryPlan, error) {
	logger := logging.GetLogger()

	if !o.service.Configured() {
		return QueryPlan{}, errors.New(errors.ErrTypeConfig,
			"AI not configured: set ASKDB_AZURE_OPENAI_KEY, ASKDB_AZURE_OPENAI_ENDPOINT, ASKDB_AZURE_OPENAI_DEPLOYMENT").
			WithKind(errors.KindAIServiceNotConfigured)
	}

	conversation := []llm.Message{
		{Role: llm.RoleSystem, Content: buildSystemPrompt()},
		{Role: llm.RoleUser, Content: buildUserPrompt(question, corrections)},
	}

	state := StateGenerating

	for attempt := 0; attempt <= o.maxRetries; attempt++ {
		state = StateGenerating

		content, err := o.service.Chat(ctx, conversation, llm.Options{
			Temperature: planTemperature,
			MaxTokens:   planMaxTokens,
			ForceJSON:   true,
		})
		if err != nil {
			if ctx.Err() != nil {
				return QueryPlan{}, ctx.Err()
			}

			state = StateRetryableFailure
			logger.WithField("attempt", attempt+1).Warnf("Plan generation attempt failed: %v", err)

			if attempt == o.maxRetries {
				break
			}

			conversation = append(conversation, llm.Message{
				Role:    llm.RoleUser,
				Content: fmt.Sprintf("Your response was rejected: %s. Fix the JSON or query and respond only in valid JSON format.", err.Error()),
			})

			continue
		}

		state = StateValidating

		plan, verr := o.validateAndSanitize(content)
		if verr == nil {
			if plan.SuccessStatus {
				state = StateSucceeded
			} else {
				// Model declined the request; do not burn retries on it
				state = StateTerminalFailure
			}

			logger.WithFields(map[string]interface{}{
				"attempt": attempt + 1,
				"state":   string(state),
			}).Debug("Plan generation finished")

			return plan, nil
		}

		state = StateRetryableFailure
		logger.WithField("attempt", attempt+1).Warnf("Plan rejected: %v", verr)

		if attempt == o.maxRetries {
			break
		}

		conversation = append(conversation,
			llm.Message{Role: llm.RoleAssistant, Content: content},
			llm.Message{Role: llm.RoleUser, Content: buildFeedback(content, verr.Error(), corrections)},
		)
	}

	state = StateTerminalFailure
	logger.WithField("state", string(state)).Warn("Plan generation budget exhausted")

	return buildFallbackQueryPlan(
		fmt.Sprintf("Failed after %d attempts. Please rephrase your question.", o.maxRetries+1),
		false,
	), nil
}

var (
	limitLiteralRe     = regexp.MustCompile(`(?i)\bLIMIT\s+(\d+)`)
	limitPlaceholderRe = regexp.MustCompile(`(?i)\bLIMIT\s+\?`)
)

// validateAndSanitize enforces the structured response contract and the
// read-only SQL policy on one model reply
func (o *Orchestrator) validateAndSanitize(content string) (QueryPlan, error) {
	var parsed rawQueryPlan
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return QueryPlan{}, errors.Wrap(err, errors.ErrTypeModelOutput, "AI returned invalid JSON").
			WithKind(errors.KindInvalidAIJSON)
	}

	if parsed.SQL == nil || *parsed.SQL == "" ||
		parsed.Explanation == nil ||
		parsed.AllowsLimit == nil ||
		parsed.SuccessStatus == nil {
		return QueryPlan{}, errors.New(errors.ErrTypeModelOutput,
			"missing or invalid fields: sql, explanation, allowsLimit, or successStatus").
			WithKind(errors.KindMissingResponseFields)
	}

	shouldRetry := parsed.ShouldRetry != nil && *parsed.ShouldRetry

	if !*parsed.SuccessStatus && !shouldRetry {
		return QueryPlan{
			SQL:           *parsed.SQL,
			Explanation:   *parsed.Explanation,
			AllowsLimit:   false,
			Limit:         0,
			SuccessStatus: false,
			ShouldRetry:   false,
		}, nil
	}

	sql, err := sqlgen.Sanitize(*parsed.SQL)
	if err != nil {
		return QueryPlan{}, err
	}
	sql = sqlgen.ApplyRewriteRules(sql, o.rules)

	// Normalize LIMIT so that Limit > 0 exactly when the SQL carries a
	// LIMIT ? placeholder; executors bind the value without re-parsing
	// the statement.
	limit := 0
	if match := limitLiteralRe.FindStringSubmatch(sql); match != nil {
		limit, _ = strconv.Atoi(match[1])
		if limit > MaxEffectiveLimit {
			limit = MaxEffectiveLimit
		}
		sql = limitLiteralRe.ReplaceAllString(sql, "LIMIT ?")
	} else if limitPlaceholderRe.MatchString(sql) {
		limit = MaxEffectiveLimit
	}

	return QueryPlan{
		SQL:           sql,
		Explanation:   strings.TrimSpace(*parsed.Explanation),
		AllowsLimit:   *parsed.AllowsLimit,
		Limit:         limit,
		SuccessStatus: true,
		ShouldRetry:   false,
	}, nil
}

func buildFallbackQueryPlan(reason string, shouldRetry bool) QueryPlan {
	return QueryPlan{
		SQL:           "SELECT 'No valid query could be generated.' AS message",
		Explanation:   fmt.Sprintf("I cannot perform that action. %s Please ask about entities, people, or addresses.", reason),
		AllowsLimit:   false,
		Limit:         0,
		SuccessStatus: false,
		ShouldRetry:   shouldRetry,
	}
}
