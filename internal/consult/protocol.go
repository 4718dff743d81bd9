package consult

import (
	"context"
	"time"

	"go.uber.org/zap"

	"phxagent/internal/agent"
)

// DefaultTimeout bounds a single consultation so a hanging knowledge agent
// cannot stall the executor.
const DefaultTimeout = 30 * time.Second

// Finder locates the knowledge agent for a query. The registry satisfies it.
type Finder interface {
	FindBest(query string, queryContext map[string]any) (agent.Agent, bool)
}

// Sink receives one record per consultation attempt, success or failure.
type Sink interface {
	LogConsultation(fromAgent, toAgent, query string, success bool, duration time.Duration) error
}

// Result is what a successful consultation yields. A nil *Result means the
// consultation failed or found no knowledge agent; the executor proceeds
// either way.
type Result struct {
	Agent    string
	Response *agent.Response
	Context  TaskContext
	Duration time.Duration
}

// Protocol is the mandatory pre-task consultation hook. Executor agents call
// Consult before acting; the call never returns an error because
// consultation failures are advisory by contract.
type Protocol struct {
	finder  Finder
	sink    Sink
	timeout time.Duration
	log     *zap.Logger
}

// NewProtocol wires the protocol. sink may be nil; timeout <= 0 uses
// DefaultTimeout.
func NewProtocol(finder Finder, sink Sink, timeout time.Duration, log *zap.Logger) *Protocol {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Protocol{finder: finder, sink: sink, timeout: timeout, log: log}
}

// Consult extracts a structured context from the task description, locates
// the best knowledge agent and asks it. On any failure (no agent, agent
// error, timeout, panic) it records the attempt and returns nil; the caller
// MUST proceed with its task regardless.
func (p *Protocol) Consult(ctx context.Context, fromAgent, task string, extra map[string]any) *Result {
	tc := ExtractTaskContext(task)
	queryContext := tc.ToMap()
	for k, v := range extra {
		queryContext[k] = v
	}

	start := time.Now()

	target, ok := p.finder.FindBest(task, queryContext)
	if !ok {
		p.log.Warn("consultation skipped: no competent knowledge agent",
			zap.String("from", fromAgent), zap.String("task", task))
		p.record(fromAgent, "", task, false, time.Since(start))
		return nil
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	resp, err := p.safeConsult(cctx, target, task, queryContext)
	duration := time.Since(start)

	if err != nil {
		p.log.Warn("consultation failed",
			zap.String("from", fromAgent), zap.String("to", target.Name()), zap.Error(err))
		p.record(fromAgent, target.Name(), task, false, duration)
		return nil
	}

	p.record(fromAgent, target.Name(), task, true, duration)
	return &Result{
		Agent:    target.Name(),
		Response: resp,
		Context:  tc,
		Duration: duration,
	}
}

// safeConsult isolates the knowledge agent: panics become errors and a
// context deadline is enforced even if the agent ignores its ctx.
func (p *Protocol) safeConsult(ctx context.Context, target agent.Agent, task string, queryContext map[string]any) (resp *agent.Response, err error) {
	type outcome struct {
		resp *agent.Response
		err  error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: &panicError{value: r}}
			}
		}()
		r, e := target.Consult(ctx, task, queryContext)
		done <- outcome{resp: r, err: e}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		return o.resp, o.err
	}
}

func (p *Protocol) record(from, to, query string, success bool, duration time.Duration) {
	if p.sink == nil {
		return
	}
	if err := p.sink.LogConsultation(from, to, query, success, duration); err != nil {
		p.log.Warn("failed to record consultation", zap.Error(err))
	}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return "knowledge agent panicked during consultation"
}
