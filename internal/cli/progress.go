package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
)

// uploadBatchSize is the number of documents embedded and stored per request.
const uploadBatchSize = 16

// batchDoneMsg reports one stored batch.
type batchDoneMsg struct {
	n   int
	err error
}

// uploadModel is the bubbletea model for a corpus upload.
type uploadModel struct {
	ctx       context.Context
	corpus    rag.Corpus
	source    string
	contents  []string
	metadatas []map[string]any

	stored   int
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newUploadModel(ctx context.Context, corpus rag.Corpus, source string, contents []string, metadatas []map[string]any) uploadModel {
	return uploadModel{
		ctx:       ctx,
		corpus:    corpus,
		source:    source,
		contents:  contents,
		metadatas: metadatas,
		progress: progress.New(
			progress.WithDefaultBlend(),
			progress.WithWidth(40),
		),
		theme: defaultTheme,
	}
}

// Init stores the first batch.
func (m uploadModel) Init() tea.Cmd {
	return tea.Batch(m.nextBatch(), m.progress.Init())
}

// Update handles messages and returns the updated model.
func (m uploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case batchDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, tea.Quit
		}
		m.stored += msg.n
		if m.stored >= len(m.contents) {
			m.done = true
			return m, tea.Quit
		}
		return m, m.nextBatch()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m uploadModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m uploadModel) renderContent() string {
	if m.done || m.quitting {
		return m.finalView()
	}

	var pct float64
	if len(m.contents) > 0 {
		pct = float64(m.stored) / float64(len(m.contents))
	}
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.source))
	counts := fmt.Sprintf("%d/%d documents", m.stored, len(m.contents))
	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop after the current batch")

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

func (m uploadModel) finalView() string {
	switch {
	case m.err != nil:
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Upload failed after %d documents: %s\n", m.stored, m.err))
	case m.quitting:
		return m.theme.hintStyle().Render(fmt.Sprintf("\nStopped. %d of %d documents stored.\n", m.stored, len(m.contents)))
	default:
		return m.theme.completedStyle().Render(fmt.Sprintf("✓ Stored %d documents from %s", m.stored, m.source)) + "\n"
	}
}

// nextBatch stores the next slice of documents.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m uploadModel) nextBatch() tea.Cmd {
	start := m.stored
	end := min(start+uploadBatchSize, len(m.contents))
	return func() tea.Msg {
		ids, err := m.corpus.AddBatch(m.ctx, m.contents[start:end], m.metadatas[start:end])
		return batchDoneMsg{n: len(ids), err: err}
	}
}

// runUploadProgress runs the interactive upload UI.
func runUploadProgress(ctx context.Context, corpus rag.Corpus, source string, contents []string, metadatas []map[string]any) (int, error) {
	p := tea.NewProgram(newUploadModel(ctx, corpus, source, contents, metadatas))

	finalModel, err := p.Run()
	if err != nil {
		return 0, fmt.Errorf("progress UI error: %w", err)
	}
	m, ok := finalModel.(uploadModel)
	if !ok {
		return 0, nil
	}
	return m.stored, m.err
}

// uploadPlain stores documents batch by batch without a UI.
func uploadPlain(ctx context.Context, corpus rag.Corpus, contents []string, metadatas []map[string]any) (int, error) {
	stored := 0
	for start := 0; start < len(contents); start += uploadBatchSize {
		end := min(start+uploadBatchSize, len(contents))
		ids, err := corpus.AddBatch(ctx, contents[start:end], metadatas[start:end])
		if err != nil {
			return stored, err
		}
		stored += len(ids)
	}
	return stored, nil
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
