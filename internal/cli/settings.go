package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/voc2ticket/internal/settings"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// secretFromTerminal is the flag value that asks for a secret interactively.
const secretFromTerminal = "-"

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change model and Jira settings",
	Long: `Show or change the settings override file.

Overrides take precedence over environment variables and are applied
immediately, without a restart.

Examples:
  voc2ticket settings show
  voc2ticket settings set --ai-model-name gpt-4o-mini
  voc2ticket settings set --jira-api-token -`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printSettings(application.Settings.Masked())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Persist overrides and reload the adapters",
	Args:  cobra.NoArgs,
	RunE:  runSettingsSet,
}

// settingFlags maps flag names to override keys.
var settingFlags = []struct {
	flag   string
	usage  string
	secret bool
}{
	{"ai-base-url", "model API base URL", false},
	{"ai-api-key", "model API key (- to prompt)", true},
	{"ai-model-name", "model name", false},
	{"jira-base-url", "Jira site URL", false},
	{"jira-user-email", "Jira account email", false},
	{"jira-api-token", "Jira API token (- to prompt)", true},
	{"jira-project-key", "Jira project key", false},
}

func init() {
	for _, f := range settingFlags {
		settingsSetCmd.Flags().String(f.flag, "", f.usage)
	}
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	values := make(map[string]*string)
	for _, f := range settingFlags {
		if !cmd.Flags().Changed(f.flag) {
			continue
		}
		v, _ := cmd.Flags().GetString(f.flag)
		if f.secret && v == secretFromTerminal {
			secret, err := readSecret(f.flag)
			if err != nil {
				return err
			}
			v = secret
		}
		values[f.flag] = &v
	}

	patch := settings.Patch{
		AIBaseURL:      values["ai-base-url"],
		AIAPIKey:       values["ai-api-key"],
		AIModelName:    values["ai-model-name"],
		JiraBaseURL:    values["jira-base-url"],
		JiraUserEmail:  values["jira-user-email"],
		JiraAPIToken:   values["jira-api-token"],
		JiraProjectKey: values["jira-project-key"],
	}

	eff, err := application.UpdateSettings(cmd.Context(), patch)
	if errors.Is(err, settings.ErrEmptyPatch) {
		return errors.New("no settings given, see --help")
	}
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}

	fmt.Fprintln(os.Stderr, defaultTheme.completedStyle().Render("✓ Settings saved to "+application.Settings.Path()))
	return printSettings(eff)
}

// readSecret prompts on the terminal without echo.
func readSecret(name string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("--%s %s needs an interactive terminal", name, secretFromTerminal)
	}
	fmt.Fprintf(os.Stderr, "%s: ", name)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}

func printSettings(eff settings.Effective) error {
	data, err := json.MarshalIndent(eff, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
