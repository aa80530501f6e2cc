package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/askdata/pkg/augment"
	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/executor"
	"github.com/rhuss/askdata/pkg/knowledge"
	"github.com/rhuss/askdata/pkg/observability"
	"github.com/rhuss/askdata/pkg/provider"
	"github.com/rhuss/askdata/pkg/storage"
	"github.com/rhuss/askdata/pkg/tools"
	"github.com/rhuss/askdata/pkg/transcript"
)

const (
	DefaultRounds   = 3
	DefaultAttempts = 2
)

// DefaultAlwaysInclude lists the tools added to every selection.
var DefaultAlwaysInclude = []string{"query_database"}

// DefaultRequiredImports are added to every generated program after the
// imports of the selected tools. Unused imports are pruned by the executor.
var DefaultRequiredImports = []string{
	`import "fmt"`,
	`import "math"`,
	`import "askdata/frame"`,
}

const auditTimeout = 5 * time.Second

// Config holds the collaborators and limits of an Agent. Model, Catalog
// and Runner are required.
type Config struct {
	Model   provider.Provider
	Catalog *tools.Catalog
	Runner  executor.Runner

	// Selector defaults to a ModelSelector over Model and Catalog.
	Selector Selector
	// Reviewer defaults to a ModelReviewer over Model.
	Reviewer Reviewer
	// Knowledge defaults to no knowledge.
	Knowledge knowledge.Retriever
	// Normalizer defaults to transcript.New().
	Normalizer *transcript.Normalizer
	// Audit receives one record per question when set.
	Audit storage.Sink

	Rounds          int
	Attempts        int
	AlwaysInclude   []string
	RequiredImports []string
}

// Agent answers questions. It holds no per-question state and is safe for
// concurrent use when its collaborators are.
type Agent struct {
	cfg Config
}

// New validates cfg and applies defaults.
func New(cfg Config) (*Agent, error) {
	var errs []error
	if cfg.Model == nil {
		errs = append(errs, errors.New("agent: model is required"))
	}
	if cfg.Catalog == nil {
		errs = append(errs, errors.New("agent: tool catalog is required"))
	}
	if cfg.Runner == nil {
		errs = append(errs, errors.New("agent: runner is required"))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if cfg.Selector == nil {
		cfg.Selector = &ModelSelector{Model: cfg.Model, Catalog: cfg.Catalog}
	}
	if cfg.Reviewer == nil {
		cfg.Reviewer = &ModelReviewer{Model: cfg.Model}
	}
	if cfg.Knowledge == nil {
		cfg.Knowledge = knowledge.Static{}
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = transcript.New()
	}
	if cfg.Rounds <= 0 {
		cfg.Rounds = DefaultRounds
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultAttempts
	}
	if cfg.AlwaysInclude == nil {
		cfg.AlwaysInclude = DefaultAlwaysInclude
	}
	if cfg.RequiredImports == nil {
		cfg.RequiredImports = DefaultRequiredImports
	}
	return &Agent{cfg: cfg}, nil
}

// Ask answers question. It returns ErrNoAnswer when every round failed;
// model and code failures are retried, never returned.
func (a *Agent) Ask(ctx context.Context, question string) (*Answer, error) {
	var attempts []Attempt
	for round := 0; round < a.cfg.Rounds; round++ {
		if ctx.Err() != nil {
			break
		}
		answer, roundAttempts := a.round(ctx, question, round)
		attempts = append(attempts, roundAttempts...)
		if answer != nil {
			answer.Rounds = round + 1
			answer.Attempts = attempts
			a.finish(ctx, answer)
			return answer, nil
		}
	}

	observability.QuestionsTotal.WithLabelValues(storage.OutcomeNoAnswer).Inc()
	observability.RoundsPerQuestion.Observe(float64(a.cfg.Rounds))
	slog.Warn("question not answered", "question", question, "attempts", len(attempts))
	a.audit(ctx, &storage.Record{
		ID:       uuid.NewString(),
		Question: question,
		Outcome:  storage.OutcomeNoAnswer,
		Rounds:   a.cfg.Rounds,
		Attempts: auditAttempts(attempts),
	})
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAnswer, err)
	}
	return nil, ErrNoAnswer
}

// round runs one tool selection and its generation attempts. It returns
// nil when the round failed.
func (a *Agent) round(ctx context.Context, question string, round int) (answer *Answer, attempts []Attempt) {
	defer func() {
		if r := recover(); r != nil {
			err := panicError("round", r)
			slog.Warn("round failed", "round", round, "error", err)
			observability.AttemptsTotal.WithLabelValues(KindModel).Inc()
			answer = nil
		}
	}()

	know := a.retrieve(ctx, question)

	sel, err := a.cfg.Selector.Select(ctx, question, know)
	if err != nil {
		slog.Warn("tool selection failed", "round", round, "error", err)
		observability.AttemptsTotal.WithLabelValues(KindModel).Inc()
		return nil, nil
	}
	if sel.Solved {
		debug.Log("agent", "answered from knowledge", "round", round)
		return &Answer{Question: question, Knowledge: know, Solved: true}, nil
	}

	names := withRequired(sel.Tools, a.cfg.AlwaysInclude, a.cfg.Catalog.Names())
	contexts := a.cfg.Catalog.PromptContexts(ctx, question, names)
	base := codePrompt(question, know, contexts, a.cfg.Catalog, names)
	imports := a.cfg.Catalog.Imports(names)

	var history errorContext
	for i := 0; i < a.cfg.Attempts; i++ {
		att := Attempt{Round: round, Index: i, Prompt: base + history.String()}
		values, err := a.generate(ctx, &att, imports)
		observability.AttemptsTotal.WithLabelValues(att.Kind).Inc()
		attempts = append(attempts, att)
		if err != nil {
			slog.Info("generation attempt failed", "round", round, "attempt", i, "kind", att.Kind, "error", debug.Truncate(att.Message, 500))
			history = history.add(att)
			if ctx.Err() != nil {
				return nil, attempts
			}
			continue
		}

		t := a.cfg.Normalizer.Render(ctx, values)
		return &Answer{
			Question:   question,
			Knowledge:  know,
			Transcript: t.Text,
			Code:       att.Code,
			Map:        t.Map,
			Images:     t.Images,
		}, attempts
	}
	return nil, attempts
}

// generate requests code, augments and runs it. att is filled in with the
// code and outcome. A panic in the provider or runner fails the attempt.
func (a *Agent) generate(ctx context.Context, att *Attempt, imports []string) (values []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, panicError("code generation", r)
			att.Kind, att.Message = KindModel, err.Error()
			if att.Code != "" {
				att.Kind = KindExecution
			}
		}
	}()

	text, err := provider.Ask(ctx, a.cfg.Model, codeSystemPrompt, att.Prompt)
	if err != nil {
		att.Kind, att.Message = KindModel, err.Error()
		return nil, err
	}
	code := provider.ExtractCode(text, "go")
	if code == "" {
		att.Kind, att.Message = KindEmpty, "the model returned no code"
		return nil, errors.New(att.Message)
	}

	code = augment.Augment(code, imports)
	code = augment.Augment(code, a.cfg.RequiredImports)
	att.Code = code
	debug.Trace("agent", "generated code", "round", att.Round, "attempt", att.Index, "code", code)

	seq, err := a.cfg.Runner.Execute(ctx, code)
	if err == nil {
		values, err = executor.Collect(seq)
	}
	if err != nil {
		var ce *executor.CodeError
		if errors.As(err, &ce) {
			att.Kind, att.Message = ce.Kind.String(), ce.Message
		} else {
			att.Kind, att.Message = KindExecution, err.Error()
		}
		return nil, err
	}
	att.Kind = KindSuccess
	return values, nil
}

func (a *Agent) retrieve(ctx context.Context, question string) (know string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("knowledge retrieval failed, continuing without knowledge", "error", panicError("knowledge retrieval", r))
			know = ""
		}
	}()

	text, err := a.cfg.Knowledge.Retrieve(ctx, question)
	if err != nil {
		slog.Warn("knowledge retrieval failed, continuing without knowledge", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// finish reviews a generated answer, records metrics and writes the audit
// record.
func (a *Agent) finish(ctx context.Context, ans *Answer) {
	outcome := storage.OutcomeAnswered
	if ans.Solved {
		outcome = storage.OutcomeSolved
	} else {
		review, err := a.review(ctx, ans)
		if err != nil {
			slog.Warn("answer review failed", "error", err)
			review = "The review is unavailable for this answer."
		}
		ans.Review = review
	}

	observability.QuestionsTotal.WithLabelValues(outcome).Inc()
	observability.RoundsPerQuestion.Observe(float64(ans.Rounds))

	text := ans.Text()
	slog.Info("question answered",
		"question", ans.Question,
		"outcome", outcome,
		"rounds", ans.Rounds,
		"attempts", len(ans.Attempts),
		"answer", debug.Truncate(text, 2000),
		"code", ans.Code,
	)

	ans.AuditID = uuid.NewString()
	a.audit(ctx, &storage.Record{
		ID:       ans.AuditID,
		Question: ans.Question,
		Answer:   text,
		Code:     ans.Code,
		Outcome:  outcome,
		Rounds:   ans.Rounds,
		Attempts: auditAttempts(ans.Attempts),
	})
}

// audit writes r to the audit sink. Failures are logged only.
func (a *Agent) audit(ctx context.Context, r *storage.Record) {
	if a.cfg.Audit == nil {
		return
	}
	sink := strings.TrimPrefix(fmt.Sprintf("%T", a.cfg.Audit), "*")
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	if err := a.cfg.Audit.Save(ctx, r); err != nil {
		observability.AuditWritesTotal.WithLabelValues(sink, "error").Inc()
		slog.Warn("writing audit record failed", "id", r.ID, "sink", sink, "error", err)
		return
	}
	observability.AuditWritesTotal.WithLabelValues(sink, "ok").Inc()
}

func (a *Agent) review(ctx context.Context, ans *Answer) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError("review", r)
		}
	}()
	return a.cfg.Reviewer.Review(ctx, ans.Question, ans.preReview(), ans.Code)
}
