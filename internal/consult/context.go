// Package consult implements the mandatory pre-task consultation protocol:
// executor agents query a knowledge agent before acting. Consultation is
// advisory only; failures never block the primary task.
package consult

import (
	"regexp"
	"strings"
)

// TaskContext is the structured context extracted from a free-text task
// description before consulting a knowledge agent.
type TaskContext struct {
	Method     string
	Endpoint   string
	Domain     string
	Controller string
	Operation  string
	TaskType   string
}

// methodRules maps operation verbs in the task text to HTTP methods.
// Order matters: first match wins, so edit/update is checked before view/get
// ("update" contains no other verbs, but descriptions often mix them).
var methodRules = []struct {
	verbs  []string
	method string
}{
	{[]string{"create", "post"}, "POST"},
	{[]string{"edit", "update", "put"}, "PUT"},
	{[]string{"delete", "remove"}, "DELETE"},
	{[]string{"view", "get", "fetch", "list"}, "GET"},
}

// operationRules maps description verbs to the operation label knowledge
// agents index on. First match wins.
var operationRules = []struct {
	words     []string
	operation string
}{
	{[]string{"create"}, "create"},
	{[]string{"edit", "update"}, "edit"},
	{[]string{"view", "get"}, "view"},
	{[]string{"delete"}, "delete"},
	{[]string{"validation"}, "validation"},
	{[]string{"permission"}, "permission"},
}

// domainRules maps domain nouns to domain/controller/endpoint triples.
var domainRules = []struct {
	noun       string
	domain     string
	controller string
	endpoint   string
}{
	{"customer", "customer", "customer-controller", "/api/customer"},
	{"billing", "billing", "billing-controller", "/api/billing"},
	{"contract", "contract", "contract-controller", "/api/contract"},
}

var (
	endpointRe   = regexp.MustCompile(`(/[a-zA-Z0-9_\-/{}]+)+`)
	domainRe     = regexp.MustCompile(`(\w+)\s+domain`)
	controllerRe = regexp.MustCompile(`(\w+)\s+controller`)
)

// ExtractTaskContext derives a TaskContext from a task description using
// fixed pattern rules. Deterministic string matching only; no inference.
func ExtractTaskContext(task string) TaskContext {
	lower := strings.ToLower(task)
	var tc TaskContext

	// Explicit endpoint path in the text wins over inferred ones.
	if m := endpointRe.FindString(task); strings.HasPrefix(m, "/api/") {
		tc.Endpoint = m
	}

	for _, rule := range methodRules {
		if containsAnyWord(lower, rule.verbs) {
			tc.Method = rule.method
			break
		}
	}

	for _, rule := range operationRules {
		if containsAnyWord(lower, rule.words) {
			tc.Operation = rule.operation
			break
		}
	}

	for _, rule := range domainRules {
		if strings.Contains(lower, rule.noun) {
			tc.Domain = rule.domain
			tc.Controller = rule.controller
			if tc.Endpoint == "" && tc.Operation != "" {
				tc.Endpoint = rule.endpoint
			}
			break
		}
	}

	// Generic "<word> domain" / "<word> controller" phrasing overrides the
	// noun table when present.
	if m := domainRe.FindStringSubmatch(lower); m != nil {
		tc.Domain = m[1]
	}
	if m := controllerRe.FindStringSubmatch(lower); m != nil {
		tc.Controller = m[1] + "-controller"
	}

	return tc
}

// ToMap converts the context into the map form agents consume.
// Empty fields are omitted.
func (tc TaskContext) ToMap() map[string]any {
	m := make(map[string]any)
	if tc.Method != "" {
		m["method"] = tc.Method
	}
	if tc.Endpoint != "" {
		m["endpoint_path"] = tc.Endpoint
	}
	if tc.Domain != "" {
		m["domain"] = tc.Domain
	}
	if tc.Controller != "" {
		m["controller"] = tc.Controller
	}
	if tc.Operation != "" {
		m["operation"] = tc.Operation
	}
	if tc.TaskType != "" {
		m["task_type"] = tc.TaskType
	}
	return m
}

func containsAnyWord(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
