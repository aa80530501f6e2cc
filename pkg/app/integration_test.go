package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/askdata/pkg/api"
	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/mockllm"
	"github.com/rhuss/askdata/pkg/storage"
)

// testEnv is an askdata server wired to the mock model.
type testEnv struct {
	model  *mockllm.Server
	server *httptest.Server
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	model := mockllm.New()
	backend := httptest.NewServer(model.Handler())
	t.Cleanup(backend.Close)

	cfg := testConfig(t)
	cfg.Provider.BaseURL = backend.URL
	cfg.Agent.Rounds = 2
	cfg.Agent.Attempts = 2
	if mutate != nil {
		mutate(cfg)
	}
	return &testEnv{model: model, server: serve(t, cfg)}
}

func (e *testEnv) ask(t *testing.T, path, question string) *api.AskResponse {
	t.Helper()
	body, err := json.Marshal(api.AskRequest{Question: question})
	require.NoError(t, err)
	resp, err := http.Post(e.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out api.AskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return &out
}

func (e *testEnv) audit(t *testing.T, id string) *api.AuditRecord {
	t.Helper()
	resp, err := http.Get(e.server.URL + "/api/audit/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec api.AuditRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	return &rec
}

func TestEndToEndAgentAnswer(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.ask(t, "/api/ask-agent/", "How many flats are in Bedok?")
	assert.Equal(t, api.TypeSuccess, resp.Type)
	assert.Equal(t, "How many flats are in Bedok?", resp.Question)
	assert.Contains(t, resp.Answer, mockllm.AnswerText)
	assert.Contains(t, resp.Answer, "BEDOK")
	assert.Contains(t, resp.Answer, mockllm.ReviewText)
	assert.Contains(t, resp.Code, "func Answer")
	assert.Equal(t, 1, resp.Rounds)
	require.NotEmpty(t, resp.AuditID)

	rec := env.audit(t, resp.AuditID)
	assert.Equal(t, storage.OutcomeAnswered, rec.Outcome)
	assert.Len(t, rec.Attempts, 1)

	assert.Equal(t, 1, env.model.Count("select"))
	assert.Equal(t, 1, env.model.Count("code"))
	assert.Equal(t, 1, env.model.Count("review"))
}

func TestEndToEndTableViewIsServed(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.ask(t, "/api/ask-agent/", "How many flats are in Bedok?")
	link := regexp.MustCompile(`/tmp_imgs/[^"\s]+`).FindString(resp.Answer)
	require.NotEmpty(t, link, "answer links the interactive table view: %s", resp.Answer)

	view, err := http.Get(env.server.URL + link)
	require.NoError(t, err)
	defer view.Body.Close()
	assert.Equal(t, http.StatusOK, view.StatusCode)
}

func TestEndToEndRetryAfterCompileError(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.ask(t, "/api/ask-agent/", "Please retry the flat count")
	assert.Equal(t, api.TypeSuccess, resp.Type)
	assert.Contains(t, resp.Answer, mockllm.AnswerText)
	assert.Equal(t, 1, resp.Rounds, "the second attempt of the first round succeeds")

	rec := env.audit(t, resp.AuditID)
	require.Len(t, rec.Attempts, 2)
	assert.Equal(t, "compile", rec.Attempts[0].Kind)
	assert.NotEmpty(t, rec.Attempts[0].Error)
	assert.Equal(t, "success", rec.Attempts[1].Kind)
}

func TestEndToEndUnanswerableQuestion(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.ask(t, "/api/ask-agent/", "An impossible question")
	assert.Equal(t, api.TypeError, resp.Type)
	assert.Equal(t, api.MessageFailure, resp.Message)
	assert.Empty(t, resp.Answer)
	assert.Equal(t, 4, env.model.Count("code"), "two rounds of two attempts")
	assert.Zero(t, env.model.Count("review"))

	a, err := http.Get(env.server.URL + "/api/audit?outcome=" + storage.OutcomeNoAnswer)
	require.NoError(t, err)
	defer a.Body.Close()
	var list api.AuditList
	require.NoError(t, json.NewDecoder(a.Body).Decode(&list))
	require.Len(t, list.Data, 1)
	assert.Len(t, list.Data[0].Attempts, 4)
}

func TestEndToEndSolvedByKnowledge(t *testing.T) {
	const know = "Singapore is a city state; its capital is Singapore."
	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Knowledge = config.KnowledgeConfig{Type: "static", Text: know}
	})

	resp := env.ask(t, "/api/ask-agent/", "What is the capital of Singapore?")
	assert.Equal(t, api.TypeSuccess, resp.Type)
	assert.Equal(t, know, resp.Answer)
	assert.Zero(t, env.model.Count("code"))
}

func TestEndToEndSummaryAndPlan(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := env.ask(t, "/api/agent-summary/", "How have resale prices changed?")
	assert.Equal(t, api.TypeSuccess, resp.Type)
	assert.Equal(t, mockllm.SummaryText, resp.Answer)

	resp = env.ask(t, "/api/cot-chat/", "Plot flat counts by town")
	assert.Equal(t, api.TypeSuccess, resp.Type)
	assert.Equal(t, mockllm.PlanText, resp.Answer)
	assert.Zero(t, env.model.Count("code"), "neither mode generates code")
}

func TestEndToEndModelUnavailable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.Rounds = 1
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	resp, err := a.Agent.Answer(context.Background(), &api.AskRequest{Question: "anything", Mode: api.ModeAgent})
	require.NoError(t, err)
	assert.Equal(t, api.TypeError, resp.Type)
}
