package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/narration"
)

var narrateCmd = &cobra.Command{
	Use:   "narrate",
	Short: "Generate narration audio for a story",
	Long: `Narrate every paragraph of a story, or one page of it, with a single
voice. Paragraphs that already have audio are skipped unless --overwrite
is set. The voice is model:speaker or a nickname saved on the story.

Examples:
  iwsaver narrate --story Atlantis --voice openai:alloy
  iwsaver narrate --story Atlantis --voice Narrator --page 3 --overwrite`,
	RunE: runNarrate,
}

func init() {
	rootCmd.AddCommand(narrateCmd)

	flags := narrateCmd.Flags()
	flags.StringP("story", "s", "", "story to narrate (required)")
	flags.StringP("voice", "v", "", "voice id or nickname (required)")
	flags.IntP("page", "p", 0, "only narrate this page (0 = all)")
	flags.Bool("overwrite", false, "regenerate paragraphs that already have audio")

	_ = narrateCmd.MarkFlagRequired("story")
	_ = narrateCmd.MarkFlagRequired("voice")
}

func runNarrate(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	name, _ := flags.GetString("story")
	voice, _ := flags.GetString("voice")
	page, _ := flags.GetInt("page")
	overwrite, _ := flags.GetBool("overwrite")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore()
	if err != nil {
		logError("%v", err)
		return err
	}
	doc, err := store.Load(name)
	if err != nil {
		logError("%v", err)
		return err
	}
	tasks := narration.Pending(doc, page, overwrite)
	if len(tasks) == 0 {
		logInfo("Nothing to narrate in %s", name)
		return nil
	}

	voices, err := openVoices()
	if err != nil {
		logError("%v", err)
		return err
	}
	defer voices.Close()
	narrator := narration.New(store, voices)

	progress := mpb.NewWithContext(ctx,
		mpb.WithWidth(52),
		mpb.WithOutput(os.Stderr),
		mpb.WithRefreshRate(120*time.Millisecond),
	)
	var written atomic.Int64
	bar := progress.New(int64(len(tasks)),
		mpb.BarStyle().Rbound("]"),
		mpb.PrependDecorators(decor.Name(name+"  ")),
		mpb.AppendDecorators(
			decor.CountersNoUnit("%d/%d paragraphs", decor.WCSyncWidth),
			decor.Any(func(decor.Statistics) string { return " | " + humanize.Bytes(uint64(written.Load())) }),
			decor.Elapsed(decor.ET_STYLE_GO, decor.WCSyncSpace),
		),
	)

	done, failed := 0, 0
	for _, task := range tasks {
		if ctx.Err() != nil {
			break
		}
		res, err := narrator.Paragraph(ctx, name, task.Page, task.Paragraph, voice)
		if err != nil {
			failed++
			logger.Warn("narration failed", "page", task.Page, "paragraph", task.Paragraph, "error", err)
		} else {
			done++
			written.Add(int64(res.Bytes))
		}
		bar.Increment()
	}
	if ctx.Err() != nil {
		bar.Abort(false)
	}
	progress.Wait()

	logInfo("Narrated %d of %d paragraphs (%s)", done, len(tasks), humanize.Bytes(uint64(written.Load())))
	if failed > 0 {
		return fmt.Errorf("%d paragraph(s) failed", failed)
	}
	return ctx.Err()
}
