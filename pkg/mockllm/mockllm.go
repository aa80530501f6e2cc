// Package mockllm is a deterministic OpenAI-compatible Chat Completions
// server for end-to-end tests and local demos. It recognizes the prompts
// of the askdata agent and answers each with a canned reply, so a full
// question can run without a real model.
//
// The question text steers the scenario:
//
//	contains "capital"    - tool selection answers "solved"
//	contains "retry"      - the first code attempt fails to compile
//	contains "impossible" - every code attempt fails to compile
//
// Any other question gets code yielding AnswerText and a small table.
package mockllm

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rhuss/askdata/pkg/provider/openaicompat"
)

// Canned replies.
const (
	AnswerText  = "There are 42 flats in BEDOK."
	ReviewText  = "The table answers the question. The count covers resale flats only."
	SummaryText = "Resale prices have risen steadily over the last decade."
	PlanText    = "1. Retrieve the flat counts from the database.\n2. Draw the graph."
	DefaultText = "Hello from the mock model."
)

// GoodCode yields AnswerText and a one row table.
const GoodCode = `import "askdata/frame"

func Answer(yield func(any) bool) {
	if !yield("` + AnswerText + `") {
		return
	}
	yield(frame.New([]string{"town", "flats"}, [][]any{{"BEDOK", 42}}))
}`

// BrokenCode does not compile.
const BrokenCode = `func Answer(yield func(any) bool) {
	yield(flatCount)
}`

// Prompt markers of the agent.
const (
	selectMarker  = "Select the functions needed"
	codeMarker    = "Write Go code that answers"
	retryMarker   = "Your previous code failed"
	reviewMarker  = "Summarize the answer for the user"
	planMarker    = "step by step in natural language"
	summaryMarker = "Answer the question briefly"
)

// Server answers chat completion requests and counts them by kind.
type Server struct {
	requests atomic.Int64

	mu     sync.Mutex
	counts map[string]int
}

// New creates a Server.
func New() *Server {
	return &Server{counts: make(map[string]int)}
}

// Handler serves POST /v1/chat/completions, GET /v1/models and
// GET /healthz.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return mux
}

// Requests returns the number of completions served.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// Count returns the number of completions served for a prompt kind:
// "select", "code", "review", "plan", "summary" or "other".
func (s *Server) Count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[kind]
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req openaicompat.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"invalid request","type":"invalid_request_error"}}`))
		return
	}
	s.requests.Add(1)

	kind, text := Reply(lastUserMessage(&req))
	s.mu.Lock()
	s.counts[kind]++
	s.mu.Unlock()

	model := req.Model
	if model == "" {
		model = "mock-model"
	}
	resp := openaicompat.ChatCompletionResponse{
		ID:     "chatcmpl-mock-" + kind,
		Object: "chat.completion",
		Model:  model,
		Choices: []openaicompat.ChatChoice{{
			Message:      openaicompat.ChatMessage{Role: "assistant", Content: text},
			FinishReason: "stop",
		}},
		Usage: &openaicompat.ChatUsage{
			PromptTokens:     len(strings.Fields(lastUserMessage(&req))),
			CompletionTokens: len(strings.Fields(text)),
		},
	}
	resp.Usage.TotalTokens = resp.Usage.PromptTokens + resp.Usage.CompletionTokens

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Reply classifies an agent prompt and returns its kind and canned reply.
func Reply(prompt string) (kind, text string) {
	question := strings.ToLower(questionOf(prompt))
	switch {
	case strings.Contains(prompt, selectMarker):
		if strings.Contains(question, "capital") {
			return "select", "solved"
		}
		return "select", "query_database, draw_graph"
	case strings.Contains(prompt, codeMarker):
		broken := strings.Contains(question, "impossible") ||
			(strings.Contains(question, "retry") && !strings.Contains(prompt, retryMarker))
		if broken {
			return "code", "```go\n" + BrokenCode + "\n```"
		}
		return "code", "Here is the code:\n```go\n" + GoodCode + "\n```"
	case strings.Contains(prompt, reviewMarker):
		return "review", ReviewText
	case strings.Contains(prompt, planMarker):
		return "plan", PlanText
	case strings.Contains(prompt, summaryMarker):
		return "summary", SummaryText
	}
	return "other", DefaultText
}

// questionOf returns the text after the leading "Question: " line.
func questionOf(prompt string) string {
	first, _, _ := strings.Cut(prompt, "\n")
	q, ok := strings.CutPrefix(first, "Question: ")
	if !ok {
		return ""
	}
	return q
}

func lastUserMessage(req *openaicompat.ChatCompletionRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			if s, ok := req.Messages[i].Content.(string); ok {
				return s
			}
		}
	}
	return ""
}

func handleModels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"object":"list","data":[{"id":"mock-model","object":"model","owned_by":"askdata"}]}`))
}
