package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"phxagent/internal/rules"
)

var permissionCmd = &cobra.Command{
	Use:   "permission [command text]",
	Short: "Grant, revoke or show restricted operation permissions",
	Long: `Parses a free-text permission command and applies it to the gate.

Examples:
  phxagent permission grant github permission
  phxagent permission revoke github write access
  phxagent permission status`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")

		parsed, ok := rules.ParseCommand(text)
		if !ok {
			return fmt.Errorf("not a permission command: %q", text)
		}

		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Println(rules.Apply(a.gate, parsed))
		return nil
	},
}
