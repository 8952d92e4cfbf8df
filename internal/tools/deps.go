// Package tools provides the MCP tool handlers for ticket drafting.
package tools

import (
	"log/slog"

	"github.com/raphaelgruber/voc2ticket/internal/app"
)

// Dependencies holds shared services for tool handlers.
// Passed to handler factories via closure capture.
type Dependencies struct {
	App    *app.App
	Logger *slog.Logger
}
