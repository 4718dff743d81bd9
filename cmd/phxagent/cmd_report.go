package main

import (
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render and save agent activity reports",
}

var reportShowCmd = &cobra.Command{
	Use:   "show [agent]",
	Short: "Render an agent's activity report to the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		md := a.reports.GenerateAgentReport(args[0])

		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			// Fall back to raw markdown.
			fmt.Println(md)
			return nil
		}
		out, err := renderer.Render(md)
		if err != nil {
			fmt.Println(md)
			return nil
		}
		fmt.Print(out)
		return nil
	},
}

var reportSaveCmd = &cobra.Command{
	Use:   "save [agent]",
	Short: "Save an agent's activity report under the reports directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		path, err := a.reports.SaveAgentReport(args[0])
		if err != nil {
			return err
		}
		fmt.Println("saved " + path)
		return nil
	},
}

var reportSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Save the cross-agent summary report",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cfg, logger)
		if err != nil {
			return err
		}
		defer a.close()

		path, err := a.reports.SaveSummaryReport()
		if err != nil {
			return err
		}
		fmt.Println("saved " + path)
		return nil
	},
}

func init() {
	reportCmd.AddCommand(reportShowCmd)
	reportCmd.AddCommand(reportSaveCmd)
	reportCmd.AddCommand(reportSummaryCmd)
}
