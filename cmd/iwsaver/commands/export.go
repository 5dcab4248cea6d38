package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/iwsaver/internal/output"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write saved stories as JSON, JSONL, YAML or Markdown",
	Long: `Export one story, or every story with --all.

JSON and YAML keep the story file layout. JSONL writes one line per page.
Markdown renders a readable document with image links.

Examples:
  iwsaver export --story Atlantis --format yaml
  iwsaver export --all --format jsonl -o stories.jsonl
  iwsaver export --story Atlantis --format md --image-base ./images -o atlantis.md`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	flags := exportCmd.Flags()
	flags.StringP("story", "s", "", "story to export")
	flags.Bool("all", false, "export every story")
	flags.StringP("format", "f", "json", "output format: "+strings.Join(output.Formats(), ", "))
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.Bool("compact", false, "write JSON on a single line")
	flags.String("image-base", "/images", "prefix for Markdown image links")
}

func runExport(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("story")
	all, _ := flags.GetBool("all")
	if name == "" && !all {
		return fmt.Errorf("pass --story NAME or --all")
	}

	formatStr, _ := flags.GetString("format")
	format, err := output.ParseFormat(formatStr)
	if err != nil {
		logError("%v", err)
		return err
	}

	store, err := openStore()
	if err != nil {
		logError("%v", err)
		return err
	}
	names := []string{name}
	if all {
		if names, err = store.Names(); err != nil {
			logError("%v", err)
			return err
		}
	}

	var w io.Writer = cmd.OutOrStdout()
	if path, _ := flags.GetString("output"); path != "" {
		f, err := os.Create(path) //#nosec G304
		if err != nil {
			logError("create output file: %v", err)
			return err
		}
		defer f.Close()
		w = f
	}

	compact, _ := flags.GetBool("compact")
	imageBase, _ := flags.GetString("image-base")
	writer, err := output.NewWriter(w, format, output.WithPretty(!compact), output.WithImageBase(imageBase))
	if err != nil {
		logError("%v", err)
		return err
	}

	for _, n := range names {
		doc, err := store.Load(n)
		if err != nil {
			logError("%v", err)
			return err
		}
		doc.SortPages()
		if err := writer.WriteStory(doc); err != nil {
			return fmt.Errorf("write %s: %w", n, err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	logInfo("Exported %d %s as %s", len(names), plural(len(names), "story", "stories"), format)
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
