package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/raphaelgruber/voc2ticket/internal/chat"
	"github.com/raphaelgruber/voc2ticket/internal/models"
	"github.com/spf13/cobra"
)

var chatSessionID string

const chatHelp = `Start an interactive drafting session.

Describe the customer's issue in plain language. Once a template matches,
a preview of the drafted ticket is shown; keep talking to refine it.

Commands:
  /confirm          create the ticket from the current preview
  /set key=value    change a field of the preview before confirming
  /history          show the conversation so far
  /stats            show timing and token statistics
  /quit             leave the session`

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Draft a ticket in an interactive conversation",
	Long:  chatHelp,
	Args:  cobra.NoArgs,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "session id (default: a new random id)")
}

// repl is one interactive chat session.
type repl struct {
	sessionID string
	out       io.Writer
	theme     Theme
	// edits are /set values applied on /confirm; a new preview discards them.
	edits map[string]any
}

func runChat(cmd *cobra.Command, args []string) error {
	sessionID := chatSessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	r := &repl{sessionID: sessionID, out: os.Stdout, theme: defaultTheme, edits: map[string]any{}}
	fmt.Fprintln(r.out, r.theme.hintStyle().Render(fmt.Sprintf("session %s, /quit to leave", sessionID)))

	return r.run(cmd.Context(), os.Stdin)
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(r.out, r.theme.labelStyle().Render("you> "))
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if strings.HasPrefix(line, "/") {
			quit, err := r.command(ctx, line)
			if err != nil {
				r.printError(err)
			}
			if quit {
				return nil
			}
			continue
		}

		resp, err := application.Chat().HandleMessage(ctx, r.sessionID, line)
		if err != nil {
			r.printError(err)
			continue
		}
		r.printResponse(resp)
	}
}

func (r *repl) command(ctx context.Context, line string) (quit bool, err error) {
	name, rest, _ := strings.Cut(line, " ")
	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/confirm":
		return false, r.confirm(ctx)
	case "/set":
		return false, r.set(rest)
	case "/history":
		r.printHistory()
		return false, nil
	case "/stats":
		printStats(r.out, application.Metrics)
		return false, nil
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
}

func (r *repl) confirm(ctx context.Context) error {
	orch := application.Chat()
	tpl, fields, ok := orch.Draft(r.sessionID)
	if !ok {
		return errors.New("nothing to confirm yet, describe the issue first")
	}

	values := fields.Map()
	for k, v := range r.edits {
		values[k] = v
	}

	res, err := orch.ConfirmAndCreate(ctx, r.sessionID, tpl.ID, values)
	if err != nil {
		return fmt.Errorf("create ticket: %w", err)
	}
	clear(r.edits)
	fmt.Fprintln(r.out, r.theme.completedStyle().Render(fmt.Sprintf("✓ Created %s", res.TicketKey)))
	fmt.Fprintln(r.out, "  "+res.TicketURL)
	return nil
}

func (r *repl) set(arg string) error {
	key, value, ok := strings.Cut(arg, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return errors.New("usage: /set key=value")
	}
	tpl, _, pending := application.Chat().Draft(r.sessionID)
	if !pending {
		return errors.New("no draft to edit")
	}
	if _, ok := tpl.Field(key); !ok {
		return fmt.Errorf("template %s has no field %q", tpl.ID, key)
	}
	r.edits[key] = strings.TrimSpace(value)
	fmt.Fprintln(r.out, r.theme.hintStyle().Render(fmt.Sprintf("%s will be set to %q on /confirm", key, r.edits[key])))
	return nil
}

func (r *repl) printResponse(resp chat.Response) {
	if resp.Type == models.MessageTemplatePreview {
		clear(r.edits)
		fmt.Fprintln(r.out, r.theme.previewStyle().Render(resp.Message))
		fmt.Fprintln(r.out, r.theme.hintStyle().Render("/confirm to create, /set key=value to edit"))
		return
	}
	fmt.Fprintln(r.out, r.theme.assistantStyle().Render("assistant> ")+resp.Message)
}

func (r *repl) printHistory() {
	history, ok := application.Chat().History(r.sessionID)
	if !ok || len(history) == 0 {
		fmt.Fprintln(r.out, r.theme.hintStyle().Render("no messages yet"))
		return
	}
	for _, m := range history {
		fmt.Fprintf(r.out, "%s %s [%s]\n", m.Timestamp.Local().Format("15:04:05"), m.Role, m.Type)
		fmt.Fprintln(r.out, indent(m.Content, "    "))
		if verbose && len(m.Metadata) > 0 {
			keys := make([]string, 0, len(m.Metadata))
			for k := range m.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(r.out, "    metadata: %s\n", strings.Join(keys, ", "))
		}
	}
}

func (r *repl) printError(err error) {
	fmt.Fprintln(r.out, r.theme.errorStyle().Render("✗ "+err.Error()))
}
