package cli

import (
	"fmt"

	"github.com/raphaelgruber/voc2ticket/internal/jira"
	"github.com/raphaelgruber/voc2ticket/internal/triage"
	"github.com/spf13/cobra"
)

var ticketCmd = &cobra.Command{
	Use:   "ticket",
	Short: "Work with existing Jira tickets",
}

var ticketShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snap := application.Adapters()
		issue, err := snap.Tickets.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printIssue(issue, snap.Tickets.BrowseURL(issue.Key))
		return nil
	},
}

var ticketAnalyzeCmd = &cobra.Command{
	Use:   "analyze <key>",
	Short: "Post model-generated handling guidance as a comment",
	Long: `Fetch the ticket, look up similar past cases and guidance, ask the
model for handling advice and post it as a comment on the ticket.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysis, err := application.Adapters().Triage.AnalyzeTicket(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("analyze %s: %w", args[0], err)
		}
		fmt.Println(analysis)
		fmt.Println(defaultTheme.completedStyle().Render("✓ Comment posted on " + args[0]))
		return nil
	},
}

func init() {
	ticketCmd.AddCommand(ticketShowCmd)
	ticketCmd.AddCommand(ticketAnalyzeCmd)
}

func printIssue(issue jira.Issue, url string) {
	d := triage.Digest(issue)
	fmt.Printf("%s  %s\n", defaultTheme.labelStyle().Render(d.Key), d.Summary)
	fmt.Printf("type: %s  priority: %s  status: %s\n",
		orDash(d.IssueType), orDash(d.Priority), orDash(issue.Fields.Status.NameOrEmpty()))
	fmt.Println(defaultTheme.hintStyle().Render(url))
	if d.Description != "" {
		fmt.Println()
		fmt.Println(d.Description)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
