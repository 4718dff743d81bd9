package agent

import "fmt"

// DuplicateAgentError is returned by the registry when a second agent is
// registered under an existing name.
type DuplicateAgentError struct {
	Name string
}

func (e *DuplicateAgentError) Error() string {
	return fmt.Sprintf("agent %q is already registered", e.Name)
}

// NoCompetentAgentError is returned by the router when no registered agent
// scores above the competence threshold. It carries the query for diagnostics.
type NoCompetentAgentError struct {
	Query     string
	Available []string
}

func (e *NoCompetentAgentError) Error() string {
	return fmt.Sprintf("no competent agent for query %q (available: %v)", e.Query, e.Available)
}

// PermissionDeniedError is returned by the router when a query maps to a
// restricted operation class that has not been granted. No agent is invoked.
type PermissionDeniedError struct {
	Class   string
	Message string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("permission denied for operation class %q: %s", e.Class, e.Message)
}
