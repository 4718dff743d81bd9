package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"phxagent/internal/agent"
)

const timeUnit = time.Millisecond

var routeCmd = &cobra.Command{
	Use:   "route [query]",
	Short: "Route a natural-language query to the most competent agent(s)",
	Long: `Scores every registered agent against the query, then dispatches to the
single best agent or orchestrates the close-scoring ones. Restricted queries
are checked against the permission gate before any agent runs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		decision, err := a.router.Route(context.Background(), query, nil)
		if err != nil {
			var denied *agent.PermissionDeniedError
			var noAgent *agent.NoCompetentAgentError
			switch {
			case errors.As(err, &denied):
				fmt.Println(failStyle.Render("Permission denied: ") + denied.Message)
				return nil
			case errors.As(err, &noAgent):
				fmt.Println(failStyle.Render("No competent agent for: ") + query)
				fmt.Println(dimStyle.Render("available: " + strings.Join(noAgent.Available, ", ")))
				return nil
			default:
				return err
			}
		}

		printDecision(decision)
		return nil
	},
}

func printDecision(d *agent.RoutingDecision) {
	fmt.Println(headerStyle.Render("Routing decision"))
	fmt.Printf("  type:    %s\n", d.Type)
	fmt.Printf("  primary: %s\n", agentStyle.Render(d.PrimaryAgent))
	fmt.Printf("  agents:  %s\n", strings.Join(d.AgentsUsed, ", "))
	fmt.Printf("  success: %s\n", statusBadge(d.Success))
	fmt.Println()

	for _, r := range d.Results {
		fmt.Printf("%s %s (score %.2f, %s)\n",
			statusBadge(r.Success), agentStyle.Render(r.Agent), r.Score, r.Duration.Round(timeUnit))
		if r.Err != "" {
			fmt.Println("    " + failStyle.Render(r.Err))
		}
		if r.Response != nil {
			fmt.Println("    " + r.Response.Summary)
		}
	}

	if d.Combined.Combined {
		fmt.Println()
		fmt.Println(dimStyle.Render(d.Combined.Summary))
	}
}
