package planner

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/llm"
)

// scriptedService replays canned responses and records the conversations
// it was called with
type scriptedService struct {
	responses     []string
	errs          []error
	configured    bool
	calls         int
	conversations [][]llm.Message
}

func newScriptedService(responses ...string) *scriptedService {
	return &scriptedService{responses: responses, configured: true}
}

func (s *scriptedService) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	msgs := make([]llm.Message, len(messages))
	copy(msgs, messages)
	s.conversations = append(s.conversations, msgs)

	i := s.calls
	s.calls++

	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}

	return "", fmt.Errorf("no scripted response for call %d", i)
}

func (s *scriptedService) Configured() bool { return s.configured }

const validPlanJSON = `{"sql":"SELECT e.entity_id, e.name FROM entity e WHERE e.is_deleted = 0 LIMIT 5","explanation":"Lists active entities.","allowsLimit":true,"successStatus":true,"shouldRetry":false}`

func TestOrchestratorNotConfigured(t *testing.T) {
	service := newScriptedService()
	service.configured = false

	_, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindAIServiceNotConfigured))
}

func TestOrchestratorFirstAttemptSucceeds(t *testing.T) {
	service := newScriptedService(validPlanJSON)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "show 5 entities", nil)
	require.NoError(t, err)

	assert.True(t, plan.SuccessStatus)
	assert.Equal(t, "SELECT e.entity_id, e.name FROM entity e WHERE e.is_deleted = 0 LIMIT ?", plan.SQL)
	assert.Equal(t, 5, plan.Limit)
	assert.True(t, plan.AllowsLimit)
	assert.Equal(t, 1, service.calls)
}

func TestOrchestratorRetriesOnInvalidJSON(t *testing.T) {
	service := newScriptedService("not json at all", validPlanJSON)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.True(t, plan.SuccessStatus)
	assert.Equal(t, 2, service.calls)

	// The rejected reply and the feedback turn are appended to the conversation
	second := service.conversations[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.RoleAssistant, second[2].Role)
	assert.Equal(t, "not json at all", second[2].Content)
	assert.Equal(t, llm.RoleUser, second[3].Role)
	assert.Contains(t, second[3].Content, "Was rejected because")
}

func TestOrchestratorRetriesOnForbiddenKeyword(t *testing.T) {
	service := newScriptedService(
		`{"sql":"DELETE FROM entity","explanation":"bad","allowsLimit":false,"successStatus":true,"shouldRetry":false}`,
		validPlanJSON,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.True(t, plan.SuccessStatus)
	assert.Equal(t, 2, service.calls)
	assert.Contains(t, service.conversations[1][3].Content, "forbidden SQL keyword")
}

func TestOrchestratorTerminatesWithinBudget(t *testing.T) {
	service := newScriptedService("bad", "still bad", "worse", "nope")

	plan, err := NewOrchestrator(service, 3).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, 4, service.calls)
	assert.False(t, plan.SuccessStatus)
	assert.False(t, plan.ShouldRetry)
	assert.Contains(t, plan.Explanation, "Failed after 4 attempts")
	assert.Contains(t, plan.Explanation, "rephrase")
	assert.Equal(t, "SELECT 'No valid query could be generated.' AS message", plan.SQL)
}

func TestOrchestratorTerminalDeclineNotRetried(t *testing.T) {
	service := newScriptedService(
		`{"sql":"SELECT 'No valid query could be generated.' AS message","explanation":"I cannot perform that action. Please ask about entities, people, or addresses.","allowsLimit":false,"successStatus":false,"shouldRetry":false}`,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "drop all tables", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, service.calls)
	assert.False(t, plan.SuccessStatus)
	assert.False(t, plan.ShouldRetry)
	assert.Contains(t, plan.Explanation, "cannot perform that action")
}

func TestOrchestratorCapsLiteralLimit(t *testing.T) {
	service := newScriptedService(
		`{"sql":"SELECT e.name FROM entity e LIMIT 5000","explanation":"Big list.","allowsLimit":true,"successStatus":true,"shouldRetry":false}`,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, "SELECT e.name FROM entity e LIMIT ?", plan.SQL)
	assert.Equal(t, MaxEffectiveLimit, plan.Limit)
}

func TestOrchestratorBindsSmallLimit(t *testing.T) {
	service := newScriptedService(
		`{"sql":"SELECT e.name FROM entity e LIMIT 25","explanation":"List.","allowsLimit":true,"successStatus":true,"shouldRetry":false}`,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, "SELECT e.name FROM entity e LIMIT ?", plan.SQL)
	assert.Equal(t, 25, plan.Limit)
}

func TestOrchestratorPlaceholderLimitDefaultsToCap(t *testing.T) {
	service := newScriptedService(
		`{"sql":"SELECT e.name FROM entity e WHERE LOWER(e.name) LIKE 'a%' LIMIT ?","explanation":"List.","allowsLimit":true,"successStatus":true,"shouldRetry":false}`,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)

	assert.Equal(t, "SELECT e.name FROM entity e WHERE LOWER(e.name) LIKE 'a%' LIMIT ?", plan.SQL)
	assert.Equal(t, MaxEffectiveLimit, plan.Limit)
}

// Successful plans must stay executable as-is: the Limit value and the
// number of ? placeholders in the SQL have to agree, whether the model
// emitted a literal, an oversized literal, a placeholder, or no LIMIT.
func TestOrchestratorLimitMatchesPlaceholders(t *testing.T) {
	cases := []struct {
		name string
		sql  string
	}{
		{name: "small literal", sql: "SELECT e.name FROM entity e LIMIT 5"},
		{name: "oversized literal", sql: "SELECT e.name FROM entity e LIMIT 5000"},
		{name: "placeholder", sql: "SELECT e.name FROM entity e LIMIT ?"},
		{name: "no limit", sql: "SELECT e.name FROM entity e"},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			response := fmt.Sprintf(
				`{"sql":%q,"explanation":"List.","allowsLimit":true,"successStatus":true,"shouldRetry":false}`,
				tt.sql,
			)
			service := newScriptedService(response)

			plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
			require.NoError(t, err)

			placeholders := strings.Count(plan.SQL, "?")
			if plan.Limit > 0 {
				assert.Equal(t, 1, placeholders)
				assert.LessOrEqual(t, plan.Limit, MaxEffectiveLimit)
			} else {
				assert.Equal(t, 0, placeholders)
			}
		})
	}
}

func TestOrchestratorMissingFieldsRetried(t *testing.T) {
	service := newScriptedService(
		`{"sql":"SELECT 1","explanation":"no flags"}`,
		validPlanJSON,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.True(t, plan.SuccessStatus)
	assert.Equal(t, 2, service.calls)
}

func TestOrchestratorCorrectionFeedbackInPrompt(t *testing.T) {
	service := newScriptedService(validPlanJSON)
	corrections := []CorrectionFeedback{
		{SQL: "SELECT x FROM entity", Error: "Unknown column 'x' in 'field list'"},
	}

	_, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", corrections)
	require.NoError(t, err)

	userPrompt := service.conversations[0][1].Content
	assert.Contains(t, userPrompt, "Failed Query 1: SELECT x FROM entity")
	assert.Contains(t, userPrompt, "Unknown column 'x' in 'field list'")
}

func TestOrchestratorAppliesRewriteRules(t *testing.T) {
	service := newScriptedService(
		`{"sql":"SELECT ep.property_value FROM entity_property ep WHERE ep.deleted_at IS NULL AND ep.property_id = 'phone'","explanation":"Phone lookup.","allowsLimit":false,"successStatus":true,"shouldRetry":false}`,
	)

	plan, err := NewOrchestrator(service, DefaultMaxRetries).GenerateQueryPlan(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT ep.property_value FROM entity_property ep WHERE ep.property_id = 'phone'", plan.SQL)
}
