package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/classify"
	"github.com/askdb/askdb/internal/errors"
	"github.com/askdb/askdb/internal/exec"
	"github.com/askdb/askdb/internal/logging"
	"github.com/askdb/askdb/internal/metrics"
	"github.com/askdb/askdb/internal/retrieve"
	"github.com/askdb/askdb/internal/schema"
	"github.com/askdb/askdb/internal/sqlgen"
	"github.com/askdb/askdb/internal/validate"
)

const vectorContentPreview = 500

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.GetLogger().WithError(err).Error("Failed to encode response", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// statusForError maps the error taxonomy to HTTP statuses
func statusForError(err error) int {
	switch errors.GetType(err) {
	case errors.ErrTypeInput:
		return http.StatusBadRequest
	case errors.ErrTypePolicy:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// generate runs the SQL generator and records attempt and latency metrics.
func (s *Server) generate(ctx context.Context, question string, target schema.Target, summary string) (sqlgen.Plan, error) {
	start := time.Now()
	plan, err := s.generator.Generate(ctx, question, target, summary)
	metrics.RecordModelCall("generate", time.Since(start).Seconds())

	if err != nil {
		metrics.RecordGenerationAttempt("error")
		return plan, err
	}

	metrics.RecordGenerationAttempt("success")

	return plan, nil
}

type questionRequest struct {
	Question string `json:"question"`
}

func decodeQuestion(r *http.Request) (string, error) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", errors.Wrap(err, errors.ErrTypeInput, "invalid request body")
	}

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return "", errors.New(errors.ErrTypeInput, "question required")
	}

	return question, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type classifyResponse struct {
	Question string `json:"question"`
	classify.Result
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	question, err := decodeQuestion(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := classify.Classify(question, s.catalogs)
	metrics.RecordClassification(string(result.Target))

	writeJSON(w, http.StatusOK, classifyResponse{Question: question, Result: result})
}

type sqlResponse struct {
	Question string        `json:"question"`
	DBName   schema.Target `json:"db_name"`
	SQL      string        `json:"sql"`
	Params   []interface{} `json:"params"`
	Notes    string        `json:"notes"`
}

func (s *Server) handleSQL(w http.ResponseWriter, r *http.Request) {
	question, err := decodeQuestion(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.embeddingsOff() {
		// Degraded mode: keyword classifier plus schema summary
		result := classify.Classify(question, s.catalogs)
		target := result.Target
		if target == schema.TargetUnknown {
			target = schema.TargetEntities
		}

		plan, err := s.generate(r.Context(), question, target, schema.Summarize(s.catalogs.ByTarget(target)))
		if err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}

		writeJSON(w, http.StatusOK, sqlResponse{
			Question: question,
			DBName:   target,
			SQL:      plan.SQL,
			Params:   []interface{}{},
			Notes:    plan.Explanation,
		})

		return
	}

	if err := s.ensureIndex(r.Context()); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	hits, err := s.index.Search(r.Context(), question, s.cfg.Pipeline.TopK)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	guess := classify.ClassifyChunks(retrieve.Sources(hits)).Target

	var context strings.Builder
	for i, hit := range hits {
		fmt.Fprintf(&context, "# CHUNK %d [%s]\n%s\n\n", i+1, strings.ToUpper(string(hit.Chunk.Source)), hit.Chunk.Content)
	}

	prompt := fmt.Sprintf("You are a senior SQL engineer. Using ONLY the schema context below, generate a parameterized SELECT statement that answers the user's question. Never invent tables/columns not present.\n\nUSER QUESTION:\n%s\n\nSCHEMA CONTEXT:\n%s",
		question, context.String())

	plan, err := s.generate(r.Context(), prompt, guess, schema.Summarize(s.catalogs.ByTarget(guess)))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	if plan.SQL == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error":    "No SQL produced from context",
			"question": question,
		})
		return
	}

	writeJSON(w, http.StatusOK, sqlResponse{
		Question: question,
		DBName:   guess,
		SQL:      plan.SQL,
		Params:   []interface{}{},
		Notes:    plan.Explanation,
	})
}

type queryRequest struct {
	Query        string `json:"query"`
	SchemaChunks []struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	} `json:"schema_chunks"`
}

type generatedPayload struct {
	DBName     schema.Target `json:"db_name"`
	SQL        string        `json:"sql"`
	Params     []interface{} `json:"params"`
	Notes      string        `json:"notes"`
	Confidence float64       `json:"confidence"`
}

type executedPayload struct {
	Rows     []map[string]interface{} `json:"rows,omitempty"`
	RowCount int                      `json:"rowCount"`
	Note     string                   `json:"note,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

type queryResponse struct {
	Generated  generatedPayload `json:"generated"`
	Validation validate.Result  `json:"validation"`
	Executed   *executedPayload `json:"executed"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	question := strings.TrimSpace(req.Query)
	if question == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	cls := classify.Classify(question, s.catalogs)
	target := cls.Target
	if target == schema.TargetUnknown {
		target = schema.TargetEntities
	}

	plan, err := s.generate(r.Context(), question, target, schema.Summarize(s.catalogs.ByTarget(target)))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	chunks := make([]retrieve.Chunk, len(req.SchemaChunks))
	for i, c := range req.SchemaChunks {
		source := schema.TargetEntities
		if strings.Contains(strings.ToLower(c.Filename), "dms") {
			source = schema.TargetDMS
		}
		chunks[i] = retrieve.Chunk{Source: source, Index: i, Content: c.Content}
	}

	start := time.Now()
	validation := s.validator.Validate(r.Context(), question, chunks, plan)
	metrics.RecordModelCall("validate", time.Since(start).Seconds())

	response := queryResponse{
		Generated: generatedPayload{
			DBName:     target,
			SQL:        plan.SQL,
			Params:     []interface{}{},
			Notes:      plan.Explanation,
			Confidence: cls.Confidence,
		},
		Validation: validation,
		Executed:   nil,
	}

	if s.executor.Enabled() {
		response.Executed = s.execute(r, target, plan, validation)
	}

	writeJSON(w, http.StatusOK, response)
}

// execute runs the effective SQL when execution is enabled. Execution
// failures land in the payload, not the HTTP status; the generated plan and
// validation verdict are still useful to the caller.
func (s *Server) execute(r *http.Request, target schema.Target, plan sqlgen.Plan, validation validate.Result) *executedPayload {
	sql, params, ok := s.validator.EffectiveSQL(plan, validation)
	if !ok {
		metrics.RecordExecution(string(target), "blocked")
		return &executedPayload{Error: "validation rejected the generated SQL and offered no safe correction"}
	}

	result, err := s.executor.Query(r.Context(), target, sql, params)
	if err != nil {
		metrics.RecordExecution(string(target), "error")
		return &executedPayload{Error: err.Error()}
	}

	metrics.RecordExecution(string(target), "ok")

	return &executedPayload{
		Rows:     result.Rows,
		RowCount: result.RowCount,
		Note:     exec.Diagnose(result),
	}
}

type vectorHit struct {
	Score    float64       `json:"score"`
	Filename string        `json:"filename"`
	Content  string        `json:"content"`
	DB       schema.Target `json:"db"`
}

func (s *Server) handleVectorQuery(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("text"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "Missing query parameter")
		return
	}

	if s.embeddingsOff() {
		writeJSON(w, http.StatusOK, []vectorHit{})
		return
	}

	if err := s.ensureIndex(r.Context()); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	hits, err := s.index.Search(r.Context(), query, s.cfg.Pipeline.TopK)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	formatted := make([]vectorHit, len(hits))
	for i, hit := range hits {
		content := hit.Chunk.Content
		if len(content) > vectorContentPreview {
			content = content[:vectorContentPreview] + "..."
		}

		formatted[i] = vectorHit{
			Score:    0.9 - float64(i)*0.1, // rank-based display score
			Filename: fmt.Sprintf("%s_prod_definition.txt#%d", hit.Chunk.Source, hit.Chunk.Index),
			Content:  content,
			DB:       hit.Chunk.Source,
		}
	}

	writeJSON(w, http.StatusOK, formatted)
}

func (s *Server) handleVectorHealth(w http.ResponseWriter, r *http.Request) {
	stats := s.index.Stats()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":              "healthy",
		"vector_service":      "integrated",
		"docs_loaded":         stats.DocsLoaded,
		"embedder_ready":      stats.EmbedderReady,
		"embeddings_disabled": stats.EmbeddingsDisabled,
		"method":              stats.Method,
	})
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	question, err := decodeQuestion(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !s.embeddingsOff() {
		if err := s.ensureIndex(r.Context()); err != nil {
			writeError(w, statusForError(err), err.Error())
			return
		}
	}

	start := time.Now()
	result, err := s.analyzer.Analyze(r.Context(), question)
	metrics.RecordModelCall("answer", time.Since(start).Seconds())

	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
