package tools

import "github.com/modelcontextprotocol/go-sdk/mcp"

// Tool names.
const (
	ToolSendMessage   = "send_message"
	ToolConfirmTicket = "confirm_ticket"
	ToolGetHistory    = "get_history"
	ToolListTemplates = "list_templates"
	ToolSearchCorpus  = "search_corpus"
	ToolAnalyzeTicket = "analyze_ticket"
)

// RegisterAll registers all tools with the MCP server.
func RegisterAll(server *mcp.Server, deps *Dependencies) {
	mcp.AddTool(server, &mcp.Tool{
		Name: ToolSendMessage,
		Description: "Send a customer feedback message to a drafting session. " +
			"Returns a clarifying question or a ticket preview with the drafted fields.",
	}, NewSendMessageHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolConfirmTicket,
		Description: "Create the Jira ticket for a session's current preview, optionally overriding field values",
	}, NewConfirmTicketHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolGetHistory,
		Description: "Return the message log of a drafting session",
	}, NewGetHistoryHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolListTemplates,
		Description: "List the ticket templates a conversation can be matched against",
	}, NewListTemplatesHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolSearchCorpus,
		Description: "Search past customer cases or handling guides by meaning",
	}, NewSearchCorpusHandler(deps))

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolAnalyzeTicket,
		Description: "Analyze an existing Jira ticket and post handling guidance as a comment",
	}, NewAnalyzeTicketHandler(deps))
}
