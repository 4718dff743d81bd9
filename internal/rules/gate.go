// Package rules implements the permission gate: a fixed enumerated set of
// restricted operation classes gated behind explicit grants, plus the
// free-text classifier that maps queries onto those classes.
package rules

import (
	"sync"

	"go.uber.org/zap"
)

// Class names a restricted operation class.
type Class string

// ClassGitHubWrite covers repository-mutating operations (push, merge,
// commit, branch deletion). It is the one class the system gates today; the
// type is open for more.
const ClassGitHubWrite Class = "github_write"

// Decision is the result of a permission check.
type Decision struct {
	Permitted bool
	Message   string
}

// Gate holds process-wide permission state. It is an explicit, injectable
// object (never a package global) so tests construct isolated instances.
// State starts with nothing granted and lives for the process lifetime only.
type Gate struct {
	mu         sync.RWMutex
	granted    map[Class]bool
	classifier *Classifier
	log        *zap.Logger
}

// NewGate creates a gate with nothing granted. A nil classifier gets the
// built-in default patterns.
func NewGate(classifier *Classifier, log *zap.Logger) *Gate {
	if classifier == nil {
		classifier = NewClassifier(DefaultPatterns())
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{
		granted:    make(map[Class]bool),
		classifier: classifier,
		log:        log,
	}
}

// Grant marks the class as permitted. Idempotent: granting an already-granted
// class is a no-op, not an error.
func (g *Gate) Grant(c Class) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.granted[c] {
		return
	}
	g.granted[c] = true
	g.log.Info("permission granted", zap.String("class", string(c)))
}

// Revoke removes the grant. Idempotent.
func (g *Gate) Revoke(c Class) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.granted[c] {
		return
	}
	delete(g.granted, c)
	g.log.Info("permission revoked", zap.String("class", string(c)))
}

// Check reports whether the class is currently permitted.
func (g *Gate) Check(c Class) Decision {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.granted[c] {
		return Decision{Permitted: true, Message: "operation class " + string(c) + " is granted"}
	}
	return Decision{
		Permitted: false,
		Message:   "operation class " + string(c) + " requires an explicit grant (e.g. \"grant github permission\")",
	}
}

// Granted returns the currently granted classes; for status display.
func (g *Gate) Granted() []Class {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Class, 0, len(g.granted))
	for _, c := range knownClasses {
		if g.granted[c] {
			out = append(out, c)
		}
	}
	return out
}

// IsRestricted classifies the query text; when it belongs to a restricted
// class the class is returned with ok=true.
func (g *Gate) IsRestricted(query string) (Class, bool) {
	return g.classifier.Classify(query)
}

// Classifier returns the gate's classifier, for hot-reload wiring.
func (g *Gate) Classifier() *Classifier { return g.classifier }

// knownClasses fixes iteration order for Granted.
var knownClasses = []Class{ClassGitHubWrite}
