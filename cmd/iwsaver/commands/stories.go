package commands

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var storiesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List saved stories",
	RunE:  runStories,
}

func init() {
	rootCmd.AddCommand(storiesCmd)
}

func runStories(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		logError("%v", err)
		return err
	}
	summaries, err := store.List()
	if err != nil {
		logError("%v", err)
		return err
	}
	if len(summaries) == 0 {
		logInfo("No stories in %s", store.StoriesDir())
		return nil
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-32s %6s %10s %10s\n", "STORY", "PAGES", "IMAGES", "AUDIO")
	for _, s := range summaries {
		fmt.Fprintf(out, "%-32s %6d %10s %10s\n",
			s.Name,
			s.PageCount,
			humanize.Bytes(dirSize(store.ImageDir(s.Name))),
			humanize.Bytes(dirSize(store.AudioDir(s.Name))),
		)
	}
	return nil
}

// dirSize sums the regular files under dir. Missing directories count as empty.
func dirSize(dir string) uint64 {
	var total uint64
	_ = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				total += uint64(info.Size())
			}
		}
		return nil
	})
	return total
}
