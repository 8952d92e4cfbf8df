package jira

import "strings"

// Node is an Atlassian Document Format node. A document is the root node
// with Type "doc" and Version 1.
type Node struct {
	Version int    `json:"version,omitempty"`
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// TextToADF converts plain text to a document with one paragraph per
// blank-line separated block.
func TextToADF(text string) Node {
	doc := Node{Version: 1, Type: "doc"}
	for _, para := range strings.Split(text, "\n\n") {
		p := Node{Type: "paragraph"}
		if para != "" {
			p.Content = []Node{{Type: "text", Text: para}}
		}
		doc.Content = append(doc.Content, p)
	}
	return doc
}

// TextFromADF flattens a document to plain text, one line per top-level block.
func TextFromADF(doc *Node) string {
	if doc == nil {
		return ""
	}
	var lines []string
	for _, block := range doc.Content {
		var b strings.Builder
		collectText(block, &b)
		if b.Len() > 0 {
			lines = append(lines, b.String())
		}
	}
	return strings.Join(lines, "\n")
}

func collectText(n Node, b *strings.Builder) {
	if n.Type == "text" {
		b.WriteString(n.Text)
	}
	for _, c := range n.Content {
		collectText(c, b)
	}
}
