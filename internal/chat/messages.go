package chat

import (
	"fmt"
	"strings"

	"github.com/raphaelgruber/voc2ticket/internal/models"
)

const (
	defaultClarifyQuestion = "Could you describe the issue in a bit more detail?"
	fallbackQuestion       = "Sorry, could you say that again? A more specific description would help."
	noTemplateMessage      = "Sorry, I couldn't find a matching template. Could you describe it again?"
	invalidSessionMessage  = "Your session state is no longer valid. Please describe the issue again."
)

// formatPreview renders the non-empty fields of a draft in template order.
func formatPreview(tpl *models.Template, fields models.Fields) string {
	lines := []string{
		fmt.Sprintf("**[%s]** ticket is ready to be created.\n", tpl.Name),
		"**Preview:**",
	}
	for _, f := range tpl.Fields {
		v, ok := fields.Get(f.Key)
		if !ok || v.IsEmpty() {
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s**: %s", f.Label, v.String()))
	}
	lines = append(lines, "\nShall I create the ticket with these details? Tell me if anything needs to change.")
	return strings.Join(lines, "\n")
}

func ticketCreatedMessage(key, url string) string {
	return fmt.Sprintf("Ticket **%s** was created successfully!\nLink: %s", key, url)
}
