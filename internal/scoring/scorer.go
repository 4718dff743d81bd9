// Package scoring computes deterministic competence scores tying agents to
// queries. The score is a weighted sum of keyword overlap, intent match and
// the agent's own capability predicate; all weights are named constants so
// behavior is tunable and testable.
package scoring

import (
	"sort"
	"strings"

	"phxagent/internal/agent"
)

// Default weights and thresholds. The original material never fixed these
// numbers, so they are configuration with documented defaults; see
// config.RoutingConfig for overrides.
const (
	// WKeyword weights keyword overlap: |keywords ∩ tokens| / max(1, |keywords|).
	WKeyword = 0.5
	// WIntent is the fixed bonus when the agent name matches the detected intent.
	WIntent = 0.3
	// WCapable is the fixed bonus when the agent's CanHelpWith predicate is true.
	WCapable = 0.2

	// MinCompetence is the minimum score an agent must reach to be considered
	// at all, by both Registry.FindBest and the router.
	MinCompetence = 0.25

	// MultiAgentMargin is how close to the top score another agent must be to
	// trigger orchestrated routing.
	MultiAgentMargin = 0.10

	// MaxOrchestratedAgents bounds orchestrated dispatch fan-out.
	MaxOrchestratedAgents = 3
)

// Weights bundles the tunable scoring parameters.
type Weights struct {
	Keyword          float64
	Intent           float64
	Capable          float64
	MinCompetence    float64
	MultiAgentMargin float64
	MaxOrchestrated  int
}

// DefaultWeights returns the documented default parameters.
func DefaultWeights() Weights {
	return Weights{
		Keyword:          WKeyword,
		Intent:           WIntent,
		Capable:          WCapable,
		MinCompetence:    MinCompetence,
		MultiAgentMargin: MultiAgentMargin,
		MaxOrchestrated:  MaxOrchestratedAgents,
	}
}

// CompetenceScore ties an agent to a query for one routing call. Scores are
// ephemeral and recomputed every call, never cached.
type CompetenceScore struct {
	AgentName       string
	Score           float64
	MatchedKeywords []string
	IntentMatch     bool
	Capable         bool

	// order is the agent's registration index, used as the deterministic
	// tiebreak: earliest registered wins.
	order int
}

// Scorer computes competence scores with a fixed weight set.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer. Zero-valued weights fall back to defaults so a
// partially filled config cannot silently disable a term.
func NewScorer(w Weights) *Scorer {
	d := DefaultWeights()
	if w.Keyword == 0 {
		w.Keyword = d.Keyword
	}
	if w.Intent == 0 {
		w.Intent = d.Intent
	}
	if w.Capable == 0 {
		w.Capable = d.Capable
	}
	if w.MinCompetence == 0 {
		w.MinCompetence = d.MinCompetence
	}
	if w.MultiAgentMargin == 0 {
		w.MultiAgentMargin = d.MultiAgentMargin
	}
	if w.MaxOrchestrated == 0 {
		w.MaxOrchestrated = d.MaxOrchestrated
	}
	return &Scorer{weights: w}
}

// Weights returns the effective weight set.
func (s *Scorer) Weights() Weights { return s.weights }

// Tokenize lowercases the input and splits on non-alphanumeric boundaries.
func Tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// Score computes the competence score of one agent for a query.
// order is the agent's registration index.
func (s *Scorer) Score(a agent.Agent, order int, query string, queryContext map[string]any, intent IntentAnalysis) CompetenceScore {
	tokens := Tokenize(query)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	keywords := a.Keywords()
	var matched []string
	for _, kw := range keywords {
		if _, ok := tokenSet[strings.ToLower(kw)]; ok {
			matched = append(matched, strings.ToLower(kw))
		}
	}
	denom := len(keywords)
	if denom < 1 {
		denom = 1
	}
	overlap := float64(len(matched)) / float64(denom)

	intentMatch := intent.MatchesAgentName(a.Name())
	capable := a.CanHelpWith(query, queryContext)

	score := s.weights.Keyword * overlap
	if intentMatch {
		score += s.weights.Intent
	}
	if capable {
		score += s.weights.Capable
	}

	return CompetenceScore{
		AgentName:       a.Name(),
		Score:           score,
		MatchedKeywords: matched,
		IntentMatch:     intentMatch,
		Capable:         capable,
		order:           order,
	}
}

// Rank scores every agent and returns the scores sorted by descending score,
// with registration order as the tiebreak. agents must be in registration
// order; no map iteration is involved anywhere, so the result is stable.
func (s *Scorer) Rank(agents []agent.Agent, query string, queryContext map[string]any) []CompetenceScore {
	intent := DetectIntent(query)

	scores := make([]CompetenceScore, 0, len(agents))
	for i, a := range agents {
		scores = append(scores, s.Score(a, i, query, queryContext, intent))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].order < scores[j].order
	})
	return scores
}
