package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/voc2ticket/internal/parser"
	"github.com/raphaelgruber/voc2ticket/internal/rag"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	corpusCases  = "cases"
	corpusGuides = "guides"
)

var (
	corpusSource string
	corpusTitle  string
	corpusLimit  int
	corpusPlain  bool
	corpusYes    bool
)

var corpusCmd = &cobra.Command{
	Use:   "corpus",
	Short: "Manage the reference corpora (past cases and guides)",
	Long: `Manage the retrieval corpora used as reference context.

"cases" holds past customer cases, one document per line on upload.
"guides" holds handling guidance, split into titled passages on upload.

Examples:
  voc2ticket corpus add cases "Customer could not log in after password reset"
  voc2ticket corpus upload guides ./handbook.txt
  voc2ticket corpus search cases "login error"
  voc2ticket corpus stats`,
}

var corpusAddCmd = &cobra.Command{
	Use:       "add <cases|guides> <text>",
	Short:     "Add a single document",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{corpusCases, corpusGuides},
	RunE:      runCorpusAdd,
}

var corpusUploadCmd = &cobra.Command{
	Use:   "upload <cases|guides> <file>",
	Short: "Split a text file into documents and store them",
	Args:  cobra.ExactArgs(2),
	RunE:  runCorpusUpload,
}

var corpusSearchCmd = &cobra.Command{
	Use:   "search <cases|guides> <query>",
	Short: "Show the nearest documents for a query",
	Args:  cobra.ExactArgs(2),
	RunE:  runCorpusSearch,
}

var corpusStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show document counts",
	Args:  cobra.NoArgs,
	RunE:  runCorpusStats,
}

var corpusWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every stored document (SurrealDB backend only)",
	Args:  cobra.NoArgs,
	RunE:  runCorpusWipe,
}

func init() {
	corpusAddCmd.Flags().StringVar(&corpusSource, "source", "", "source label stored with the document")
	corpusAddCmd.Flags().StringVar(&corpusTitle, "title", "", "guide title")
	corpusUploadCmd.Flags().BoolVar(&corpusPlain, "plain", false, "disable the progress UI")
	corpusSearchCmd.Flags().IntVarP(&corpusLimit, "limit", "n", rag.DefaultTopK, "max results")
	corpusWipeCmd.Flags().BoolVar(&corpusYes, "yes", false, "do not ask for confirmation")

	corpusCmd.AddCommand(corpusAddCmd)
	corpusCmd.AddCommand(corpusUploadCmd)
	corpusCmd.AddCommand(corpusSearchCmd)
	corpusCmd.AddCommand(corpusStatsCmd)
	corpusCmd.AddCommand(corpusWipeCmd)
}

func corpusByName(name string) (rag.Corpus, bool, error) {
	switch name {
	case corpusCases:
		c, err := application.Corpus(false)
		return c, false, err
	case corpusGuides:
		c, err := application.Corpus(true)
		return c, true, err
	default:
		return nil, false, fmt.Errorf("unknown corpus %q (want %s or %s)", name, corpusCases, corpusGuides)
	}
}

func runCorpusAdd(cmd *cobra.Command, args []string) error {
	corpus, guide, err := corpusByName(args[0])
	if err != nil {
		return err
	}

	meta := map[string]any{}
	if corpusSource != "" {
		meta["source"] = corpusSource
	}
	if guide && corpusTitle != "" {
		meta["title"] = corpusTitle
	}

	id, err := corpus.Add(cmd.Context(), args[1], meta)
	if err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	fmt.Printf("Added %s document %s\n", args[0], id)
	return nil
}

func runCorpusUpload(cmd *cobra.Command, args []string) error {
	corpus, guide, err := corpusByName(args[0])
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	source := filepath.Base(args[1])
	contents, metadatas := splitUpload(source, string(data), guide)
	if len(contents) == 0 {
		fmt.Println("Nothing to upload.")
		return nil
	}

	ctx := cmd.Context()
	if corpusPlain || !term.IsTerminal(int(os.Stdout.Fd())) {
		stored, err := uploadPlain(ctx, corpus, contents, metadatas)
		if err != nil {
			return fmt.Errorf("upload stopped after %d documents: %w", stored, err)
		}
		fmt.Printf("Stored %d documents from %s\n", stored, source)
		return nil
	}

	_, err = runUploadProgress(ctx, corpus, source, contents, metadatas)
	return err
}

// splitUpload turns a file into documents: one per line for cases, one per
// guide passage for guides.
func splitUpload(source, text string, guide bool) ([]string, []map[string]any) {
	if !guide {
		contents := rag.SplitLines(text)
		return contents, rag.UploadMetadata(source, len(contents))
	}

	passages := parser.SplitGuide(source, text, parser.DefaultLimits())
	contents := make([]string, len(passages))
	metadatas := make([]map[string]any, len(passages))
	for i, p := range passages {
		contents[i] = p.Content
		metadatas[i] = map[string]any{"source": source, "title": p.Title}
	}
	return contents, metadatas
}

func runCorpusSearch(cmd *cobra.Command, args []string) error {
	corpus, _, err := corpusByName(args[0])
	if err != nil {
		return err
	}

	docs, err := corpus.Search(cmd.Context(), args[1], corpusLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if len(docs) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(docs))
	for i, doc := range docs {
		label := doc.MetaString("title")
		if label == "" {
			label = doc.MetaString("source")
		}
		dist := ""
		if doc.Distance != nil {
			dist = fmt.Sprintf(" (distance %.3f)", *doc.Distance)
		}
		fmt.Printf("%d. %s%s\n", i+1, label, dist)
		fmt.Println(indent(doc.Content, "   "))
		if verbose {
			fmt.Printf("   id: %s\n", doc.ID)
		}
	}
	return nil
}

func runCorpusStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	for _, name := range []string{corpusCases, corpusGuides} {
		n, err := countCorpus(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%-7s %d documents\n", name+":", n)
	}
	return nil
}

func countCorpus(ctx context.Context, name string) (int, error) {
	corpus, _, err := corpusByName(name)
	if err != nil {
		return 0, err
	}
	n, err := corpus.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", name, err)
	}
	return n, nil
}

func runCorpusWipe(cmd *cobra.Command, args []string) error {
	if !corpusYes {
		fmt.Print("Delete all cases and guides? [y/N] ")
		var answer string
		_, _ = fmt.Scanln(&answer)
		if !strings.EqualFold(strings.TrimSpace(answer), "y") {
			fmt.Println("Aborted.")
			return nil
		}
	}
	if err := application.WipeCorpora(cmd.Context()); err != nil {
		return fmt.Errorf("wipe corpora: %w", err)
	}
	fmt.Println("All documents deleted.")
	return nil
}
