package rules

import "strings"

// CommandAction is what a free-text permission command asks for.
type CommandAction string

const (
	ActionGrant  CommandAction = "grant"
	ActionRevoke CommandAction = "revoke"
	ActionStatus CommandAction = "status"
)

// Command is a parsed human permission command.
type Command struct {
	Action CommandAction
	Class  Class
}

// Exact matching behavior is implementation-defined by the spec but must be
// documented and table-tested. The rule here: an action verb plus a class
// noun anywhere in the text. Recognized phrasings:
//
//	grant:  "grant", "allow", "enable", "give ... access"
//	revoke: "revoke", "deny", "disable", "remove ... access"
//	status: "status", "show permissions", "list permissions"
//	class:  "github"/"gitlab"/"repository" -> github_write
var (
	grantVerbs  = []string{"grant", "allow", "enable", "give"}
	revokeVerbs = []string{"revoke", "deny", "disable", "remove"}
	statusWords = []string{"status", "show permission", "list permission"}

	classNouns = map[Class][]string{
		ClassGitHubWrite: {"github", "gitlab", "repository", "repo"},
	}
)

// ParseCommand parses a free-text permission command like
// "grant GitHub permission" or "revoke github write access".
// Returns ok=false when the text is not a permission command.
func ParseCommand(text string) (Command, bool) {
	lower := strings.ToLower(strings.TrimSpace(text))
	if lower == "" {
		return Command{}, false
	}

	if containsAny(lower, statusWords) {
		return Command{Action: ActionStatus}, true
	}

	var action CommandAction
	switch {
	case containsAny(lower, revokeVerbs):
		action = ActionRevoke
	case containsAny(lower, grantVerbs):
		action = ActionGrant
	default:
		return Command{}, false
	}

	for _, class := range knownClasses {
		if containsAny(lower, classNouns[class]) {
			return Command{Action: action, Class: class}, true
		}
	}
	return Command{}, false
}

// Apply executes a parsed command against the gate and returns a
// human-readable confirmation.
func Apply(g *Gate, cmd Command) string {
	switch cmd.Action {
	case ActionGrant:
		g.Grant(cmd.Class)
		return "granted " + string(cmd.Class)
	case ActionRevoke:
		g.Revoke(cmd.Class)
		return "revoked " + string(cmd.Class)
	case ActionStatus:
		granted := g.Granted()
		if len(granted) == 0 {
			return "no operation classes granted"
		}
		parts := make([]string, len(granted))
		for i, c := range granted {
			parts[i] = string(c)
		}
		return "granted: " + strings.Join(parts, ", ")
	}
	return "unknown permission command"
}
