package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"phxagent/internal/agent"
	"phxagent/internal/consult"
	"phxagent/internal/integration"
)

// Documentation validation statuses. The documentation check runs first and
// its status drives the code check.
const (
	DocStatusCorrect   = "correct"
	DocStatusPartial   = "partially_correct"
	DocStatusIncorrect = "incorrect"
)

// Code validation statuses.
const (
	CodeStatusSatisfies      = "satisfies"
	CodeStatusDoesNotSatisfy = "does_not_satisfy"
)

// DocumentationCheck is the first validation stage: does the documented
// behavior cover what the bug report describes?
type DocumentationCheck struct {
	Status      string   `json:"status"`
	Explanation string   `json:"explanation"`
	Sources     []string `json:"sources,omitempty"`
}

// CodeCheck is the second validation stage: can the implementation behind the
// documented behavior be located?
type CodeCheck struct {
	Status      string   `json:"status"`
	Explanation string   `json:"explanation"`
	References  []string `json:"code_references,omitempty"`
}

// BugConclusion is the verdict of a bug validation.
type BugConclusion struct {
	Valid   bool   `json:"bug_valid"`
	Summary string `json:"summary"`
	Details string `json:"details"`
}

// BugValidation is the full record of one validated bug report.
type BugValidation struct {
	ID            string                   `json:"validation_id"`
	Description   string                   `json:"bug_description"`
	Documentation DocumentationCheck       `json:"documentation_validation"`
	Code          CodeCheck                `json:"code_validation"`
	Conclusion    BugConclusion            `json:"conclusion"`
	Consulted     string                   `json:"consulted_agent,omitempty"`
	Integrations  integration.UpdateResult `json:"integration_updates"`
	Started       time.Time                `json:"started"`
	Finished      time.Time                `json:"finished"`
}

// BugFinderAgent validates bug reports against the knowledge base: the
// documented behavior is checked first, the implementation second, and the
// verdict compares the two. Strictly read-only; it never changes code or
// documentation.
type BugFinderAgent struct {
	kb       *KnowledgeBase
	protocol *consult.Protocol
	integ    *integration.Service
	sink     TaskSink
	now      func() time.Time
	log      *zap.Logger
}

// NewBugFinderAgent wires the validator. A nil knowledge base gets the
// built-in default; protocol, integ and sink may each be nil.
func NewBugFinderAgent(kb *KnowledgeBase, protocol *consult.Protocol, integ *integration.Service, sink TaskSink, log *zap.Logger) *BugFinderAgent {
	if kb == nil {
		kb = DefaultKnowledgeBase()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BugFinderAgent{
		kb:       kb,
		protocol: protocol,
		integ:    integ,
		sink:     sink,
		now:      time.Now,
		log:      log,
	}
}

func (b *BugFinderAgent) Name() string { return "BugFinderAgent" }

func (b *BugFinderAgent) Keywords() []string {
	return []string{"bug", "defect", "issue", "broken", "wrong", "incorrect", "reproduce", "validate"}
}

func (b *BugFinderAgent) Capabilities() []string {
	return []string{
		"Validate bug reports against documentation",
		"Validate bug reports against the implementation",
		"Produce bug validation verdicts",
	}
}

func (b *BugFinderAgent) CanHelpWith(query string, _ map[string]any) bool {
	lower := strings.ToLower(query)
	for _, kw := range b.Keywords() {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Consult describes the checks a validation would run without running them.
func (b *BugFinderAgent) Consult(ctx context.Context, query string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tc := consult.ExtractTaskContext(query)
	data := map[string]any{
		"stages": []string{"documentation validation", "code validation", "conclusion"},
	}
	if tc.Endpoint != "" {
		data["endpoint"] = tc.Endpoint
	}
	if tc.Domain != "" {
		data["domain"] = tc.Domain
	}
	return &agent.Response{
		Agent:   b.Name(),
		Summary: "would validate the report against the documentation first, then the implementation",
		Data:    data,
	}, nil
}

// ExecuteTask runs the full validation pipeline: consult the knowledge agent,
// notify the trackers, run both validation stages and record the verdict.
// Consultation and tracker failures are advisory; the validation always runs.
func (b *BugFinderAgent) ExecuteTask(ctx context.Context, task string, queryContext map[string]any) (*agent.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := BugValidation{
		ID:          "BUG_" + uuid.NewString(),
		Description: task,
		Started:     b.now(),
	}

	b.log.Info("validating bug report", zap.String("validation_id", v.ID))

	if b.protocol != nil {
		if consultation := b.protocol.Consult(ctx, b.Name(), task, map[string]any{"task_type": "bug_validation"}); consultation != nil {
			v.Consulted = consultation.Agent
		}
	}

	if b.integ != nil {
		v.Integrations = b.integ.UpdateBeforeTask(ctx, task, "bug_validation", map[string]any{
			"validation_id": v.ID,
		})
	}

	v.Documentation = b.validateDocumentation(task)
	v.Code = b.validateCode(v.Documentation, task)
	v.Conclusion = concludeValidation(v.Documentation, v.Code)
	v.Finished = b.now()

	if b.sink != nil {
		result := fmt.Sprintf("valid=%t: %s", v.Conclusion.Valid, v.Conclusion.Summary)
		if err := b.sink.LogTaskExecution(b.Name(), task, "bug_validation", true, v.Finished.Sub(v.Started), result); err != nil {
			b.log.Warn("failed to record bug validation", zap.Error(err))
		}
	}

	return &agent.Response{
		Agent:   b.Name(),
		Summary: v.Conclusion.Summary,
		Data: map[string]any{
			"validation": v,
			"report":     FormatValidationReport(v),
		},
	}, nil
}

// validateDocumentation is the first stage: locate the documented behavior
// the report refers to. An endpoint match is a full confirmation, a bare
// domain match a partial one.
func (b *BugFinderAgent) validateDocumentation(task string) DocumentationCheck {
	tc := consult.ExtractTaskContext(task)

	if tc.Endpoint != "" {
		eps := b.kb.EndpointsFor(tc.Endpoint, tc.Method)
		if len(eps) > 0 {
			sources := make([]string, 0, len(eps))
			for _, ep := range eps {
				sources = append(sources, fmt.Sprintf("%s %s (%s)", ep.Method, ep.Path, ep.Controller))
			}
			return DocumentationCheck{
				Status:      DocStatusCorrect,
				Explanation: fmt.Sprintf("the documentation describes %s", tc.Endpoint),
				Sources:     sources,
			}
		}
		return DocumentationCheck{
			Status:      DocStatusIncorrect,
			Explanation: fmt.Sprintf("no documented endpoint matches %s", tc.Endpoint),
		}
	}

	if tc.Domain != "" {
		if d, ok := b.kb.Domains[tc.Domain]; ok {
			return DocumentationCheck{
				Status:      DocStatusPartial,
				Explanation: fmt.Sprintf("the report names the %s domain but no concrete endpoint", d.Name),
				Sources:     []string{d.Name + ": " + d.Description},
			}
		}
	}

	return DocumentationCheck{
		Status:      DocStatusIncorrect,
		Explanation: "the documentation does not describe the reported behavior",
	}
}

// validateCode is the second stage: locate the implementation behind whatever
// the documentation check matched.
func (b *BugFinderAgent) validateCode(doc DocumentationCheck, task string) CodeCheck {
	if doc.Status == DocStatusIncorrect {
		return CodeCheck{
			Status:      CodeStatusDoesNotSatisfy,
			Explanation: "no implementation could be located for the reported behavior",
		}
	}

	tc := consult.ExtractTaskContext(task)
	var refs []string

	if tc.Endpoint != "" {
		for _, ep := range b.kb.EndpointsFor(tc.Endpoint, tc.Method) {
			if c, ok := b.kb.Controllers[ep.Controller]; ok {
				refs = appendUnique(refs, c.Package+" ("+c.Name+")")
			}
		}
	}
	if len(refs) == 0 && tc.Domain != "" {
		if d, ok := b.kb.Domains[tc.Domain]; ok {
			for _, name := range d.Controllers {
				if c, ok := b.kb.Controllers[name]; ok {
					refs = appendUnique(refs, c.Package+" ("+c.Name+")")
				}
			}
		}
	}

	if len(refs) == 0 {
		return CodeCheck{
			Status:      CodeStatusDoesNotSatisfy,
			Explanation: "the documented behavior has no locatable implementation",
		}
	}
	return CodeCheck{
		Status:      CodeStatusSatisfies,
		Explanation: "the implementation behind the documented behavior was located",
		References:  refs,
	}
}

// concludeValidation compares the two stages. A report is valid only when it
// targets behavior that is both documented and implemented, so the claimed
// discrepancy is checkable and actionable.
func concludeValidation(doc DocumentationCheck, code CodeCheck) BugConclusion {
	switch {
	case doc.Status == DocStatusCorrect && code.Status == CodeStatusSatisfies:
		return BugConclusion{
			Valid:   true,
			Summary: "bug report confirmed against documented behavior",
			Details: doc.Explanation + "; " + code.Explanation,
		}
	case doc.Status == DocStatusPartial:
		return BugConclusion{
			Valid:   false,
			Summary: "bug report could not be fully confirmed",
			Details: doc.Explanation + "; name the affected endpoint to make the report checkable",
		}
	default:
		return BugConclusion{
			Valid:   false,
			Summary: "bug report not confirmed",
			Details: doc.Explanation,
		}
	}
}

// FormatValidationReport renders a validation as the three-section markdown
// analysis attached to tracker comments.
func FormatValidationReport(v BugValidation) string {
	var sb strings.Builder
	sb.WriteString("## Bug Validation Analysis\n\n")
	sb.WriteString("**Bug:** " + v.Description + "\n\n")

	sb.WriteString("### 1. Documentation Validation\n\n")
	sb.WriteString(fmt.Sprintf("Status: %s. %s\n", v.Documentation.Status, v.Documentation.Explanation))
	for _, s := range v.Documentation.Sources {
		sb.WriteString("- " + s + "\n")
	}
	sb.WriteString("\n### 2. Code Validation\n\n")
	sb.WriteString(fmt.Sprintf("Status: %s. %s\n", v.Code.Status, v.Code.Explanation))
	for _, r := range v.Code.References {
		sb.WriteString("- " + r + "\n")
	}

	sb.WriteString("\n### 3. Conclusion\n\n")
	verdict := "NOT VALID"
	if v.Conclusion.Valid {
		verdict = "VALID"
	}
	sb.WriteString(fmt.Sprintf("Bug %s: %s\n%s\n", verdict, v.Conclusion.Summary, v.Conclusion.Details))
	return sb.String()
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
