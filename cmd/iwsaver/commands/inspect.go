package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/dom"
	"github.com/jmylchreest/iwsaver/internal/scraper"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE.html",
	Short: "Run the element heuristics against a saved page",
	Long: `Parse a saved HTML snapshot of the site and report which element each
scraper role resolves to, the turn number found in the body text, and the
paragraphs that would be saved. Useful for checking the heuristics after
the site changes, without a browser.

Snapshots are written to the temp directory when a scrape hits a page
it cannot read, or can be saved from the browser with "Save Page As".`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0]) //#nosec G304
	if err != nil {
		logError("%v", err)
		return err
	}
	defer f.Close()

	doc, err := dom.ParseHTML(f)
	if err != nil {
		logError("%v", err)
		return err
	}
	return inspectDocument(cmd.Context(), cmd.OutOrStdout(), doc)
}

func inspectDocument(ctx context.Context, out io.Writer, doc dom.Document) error {
	if ctx == nil {
		ctx = context.Background()
	}
	resolver := dom.NewResolver(doc, dom.DefaultHeuristics())

	fmt.Fprintln(out, "Roles:")
	for _, role := range dom.Roles {
		el, err := resolver.Resolve(ctx, role)
		switch {
		case errors.Is(err, dom.ErrNotFound):
			fmt.Fprintf(out, "  %-15s not found\n", role)
		case err != nil:
			fmt.Fprintf(out, "  %-15s error: %v\n", role, err)
		default:
			fmt.Fprintf(out, "  %-15s %s\n", role, describe(ctx, el))
		}
	}

	body, err := doc.BodyText(ctx)
	if err != nil {
		return fmt.Errorf("read body text: %w", err)
	}
	if n, ok := scraper.ExtractTurnNumber(body); ok {
		fmt.Fprintf(out, "\nTurn number: %d\n", n)
	} else {
		fmt.Fprintln(out, "\nTurn number: not found")
	}

	ps := scraper.NewPageScraper(resolver, nil, "", config.Default(), nil)
	paras, err := ps.ExtractText(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nParagraphs (%d):\n", len(paras))
	for i, p := range paras {
		fmt.Fprintf(out, "  %d. %s\n", i+1, truncate(p, 100))
	}
	return nil
}

// describe summarises an element as <tag> with its src or text.
func describe(ctx context.Context, el dom.Element) string {
	tag, _ := el.Tag(ctx)
	if src, _ := el.Attr(ctx, "src"); src != "" {
		return fmt.Sprintf("<%s> src=%s", tag, truncate(src, 80))
	}
	text, _ := el.Text(ctx)
	return fmt.Sprintf("<%s> %q", tag, truncate(strings.Join(strings.Fields(text), " "), 60))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
