package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List registered agents and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Println(headerStyle.Render("Registered agents"))
		for _, ag := range a.registry.AllAgents() {
			fmt.Println()
			fmt.Println(agentStyle.Render(ag.Name()))
			fmt.Println(dimStyle.Render("  keywords: " + strings.Join(ag.Keywords(), ", ")))
			for _, cap := range ag.Capabilities() {
				fmt.Println("  - " + cap)
			}
		}
		return nil
	},
}
