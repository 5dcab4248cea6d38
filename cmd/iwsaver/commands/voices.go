package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the TTS models and speakers from the voices file",
	Long: `List the narration models from the voices file (voices.yaml by default,
or the built-in OpenAI and Coqui entries when it does not exist). Voice
ids are model:speaker.`,
	RunE: runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
}

func runVoices(cmd *cobra.Command, args []string) error {
	voices, err := openVoices()
	if err != nil {
		logError("%v", err)
		return err
	}
	defer voices.Close()

	out := cmd.OutOrStdout()
	for _, m := range voices.Models() {
		fmt.Fprintf(out, "%s (%s)", m.Name, m.Backend)
		if m.Description != "" {
			fmt.Fprintf(out, " - %s", m.Description)
		}
		fmt.Fprintln(out)

		speakers, err := voices.Speakers(cmd.Context(), m.Name)
		switch {
		case err != nil:
			fmt.Fprintf(out, "  speakers unavailable: %v\n", err)
		case len(speakers) == 0:
			fmt.Fprintf(out, "  any speaker, e.g. %s:<speaker>\n", m.Name)
		default:
			fmt.Fprintf(out, "  %s\n", strings.Join(speakers, ", "))
		}
	}
	return nil
}
