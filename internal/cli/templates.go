package cli

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/voc2ticket/internal/templates"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect the ticket template catalog",
}

var templatesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List loaded templates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list := application.Templates.List()
		if len(list) == 0 {
			fmt.Printf("No templates found in %s.\n", cfg.TemplatesDir)
			return nil
		}
		for _, tpl := range list {
			fmt.Printf("%-20s %-20s %s\n", tpl.ID, tpl.Name, tpl.Description)
			if verbose && len(tpl.Keywords) > 0 {
				fmt.Printf("%-20s keywords: %s\n", "", strings.Join(tpl.Keywords, ", "))
			}
		}
		return nil
	},
}

var templatesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the fields of a template as the model sees them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tpl, ok := application.Templates.Get(args[0])
		if !ok {
			return fmt.Errorf("template %q not found", args[0])
		}
		fmt.Println(defaultTheme.labelStyle().Render(tpl.Name) + " (" + tpl.JiraIssueType + ")")
		if tpl.Description != "" {
			fmt.Println(tpl.Description)
		}
		fmt.Println()
		fmt.Println(templates.FieldsDefinitionText(tpl))
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesListCmd)
	templatesCmd.AddCommand(templatesShowCmd)
}
