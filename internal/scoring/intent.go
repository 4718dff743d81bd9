package scoring

import "strings"

// Intent is the coarse task category detected from a query by keyword
// presence. Detection is deterministic string matching, not inference.
type Intent string

const (
	IntentTest        Intent = "test"
	IntentKnowledge   Intent = "knowledge"
	IntentCollection  Intent = "collection"
	IntentEnvironment Intent = "environment"
	IntentIntegration Intent = "integration"
	IntentGeneral     Intent = "general"
)

// intentKeywords maps each intent to the phrases whose presence votes for it.
// Phrases are matched as substrings of the lowercased query, so multi-word
// entries like "run test" work.
var intentKeywords = map[Intent][]string{
	IntentTest: {
		"test", "testing", "api test", "ui test", "integration test",
		"e2e test", "automation", "test case", "test suite", "run test",
		"execute test", "test endpoint", "test api", "validate", "verify",
	},
	IntentKnowledge: {
		"phoenix", "question", "how", "what", "why", "explain",
		"documentation", "code", "endpoint", "api", "controller",
		"model", "validation", "permission", "business logic",
		"architecture", "confluence", "knowledge",
	},
	IntentCollection: {
		"postman", "collection", "export", "import", "generate collection",
		"postman collection", "api collection",
	},
	IntentEnvironment: {
		"dev", "dev-2", "dev2", "environment", "access environment",
		"login", "portal", "navigate", "open dev", "go to dev",
		"switch to dev", "connect to dev",
	},
	IntentIntegration: {
		"gitlab", "jira", "sync", "update project", "create issue",
		"merge request", "gitlab issue", "jira ticket", "push", "commit",
	},
}

// intentNameFragment maps an intent to the agent-name fragment that counts as
// a semantic match for the intent bonus. Matching is case-insensitive
// substring containment on the agent name.
var intentNameFragment = map[Intent]string{
	IntentTest:        "test",
	IntentKnowledge:   "phoenix",
	IntentCollection:  "postman",
	IntentEnvironment: "environment",
	IntentIntegration: "gitlab",
}

// IntentAnalysis is the result of DetectIntent.
type IntentAnalysis struct {
	Primary    Intent
	Scores     map[Intent]int
	Confidence float64
	// MultiIntent is true when more than one intent received votes,
	// a hint that orchestrated routing may apply.
	MultiIntent bool
}

// DetectIntent analyzes a query and returns the dominant intent with a
// confidence value in [0,1]. Ties between intents resolve in a fixed order so
// detection is deterministic.
func DetectIntent(query string) IntentAnalysis {
	lower := strings.ToLower(query)

	scores := make(map[Intent]int, len(intentKeywords))
	total := 0
	voted := 0
	for intent, phrases := range intentKeywords {
		n := 0
		for _, p := range phrases {
			if strings.Contains(lower, p) {
				n++
			}
		}
		scores[intent] = n
		total += n
		if n > 0 {
			voted++
		}
	}

	// Fixed evaluation order keeps ties deterministic.
	order := []Intent{IntentTest, IntentKnowledge, IntentCollection, IntentEnvironment, IntentIntegration}
	primary := IntentGeneral
	best := 0
	for _, intent := range order {
		if scores[intent] > best {
			best = scores[intent]
			primary = intent
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = float64(best) / float64(total)
	}

	return IntentAnalysis{
		Primary:     primary,
		Scores:      scores,
		Confidence:  confidence,
		MultiIntent: voted > 1,
	}
}

// MatchesAgentName reports whether an agent name semantically matches the
// analyzed intent, per the fixed intent-to-name-fragment table.
func (ia IntentAnalysis) MatchesAgentName(name string) bool {
	fragment, ok := intentNameFragment[ia.Primary]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(name), fragment)
}
