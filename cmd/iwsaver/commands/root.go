// Package commands implements the CLI commands for iwsaver.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/iwsaver/internal/config"
	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/story"
	"github.com/jmylchreest/iwsaver/internal/tts"
)

var rootCmd = &cobra.Command{
	Use:   "iwsaver",
	Short: "Save Infinite Worlds stories and edit them locally",
	Long: `iwsaver drives a browser through an Infinite Worlds story, saving each
turn's text and images as it goes, and serves the saved stories in a
local viewer where they can be edited and narrated.

Examples:
  # Scrape into a story, choosing it interactively
  iwsaver scrape

  # Scrape into a named story
  iwsaver scrape --story "Atlantis"

  # Browse and edit saved stories at http://localhost:5000
  iwsaver serve

  # Export a story as Markdown
  iwsaver export --story "Atlantis" --format markdown -o atlantis.md`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger("")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "CLI settings file (default $HOME/.iwsaver.yaml)")
	flags.Bool("debug", false, "enable debug logging")
	flags.BoolP("quiet", "q", false, "only log errors")
	flags.Bool("json-logs", false, "log as JSON")
	flags.String("config-file", config.DefaultPath, "scraper settings file")
	flags.String("stories-dir", story.DefaultDirs().Stories, "directory holding story files")
	flags.String("images-dir", story.DefaultDirs().Images, "directory holding story images")
	flags.String("audio-dir", story.DefaultDirs().Audio, "directory holding narration audio")
	flags.String("voices-file", tts.DefaultIndexPath, "TTS model index")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("quiet", flags.Lookup("quiet"))
	_ = viper.BindPFlag("json_logs", flags.Lookup("json-logs"))
	_ = viper.BindPFlag("config_file", flags.Lookup("config-file"))
	_ = viper.BindPFlag("stories_dir", flags.Lookup("stories-dir"))
	_ = viper.BindPFlag("images_dir", flags.Lookup("images-dir"))
	_ = viper.BindPFlag("audio_dir", flags.Lookup("audio-dir"))
	_ = viper.BindPFlag("voices_file", flags.Lookup("voices-file"))
}

func initConfig() {
	// API keys for TTS backends may live in a .env file.
	_ = godotenv.Load()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".iwsaver")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("IWSAVER")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger configures logging from the global flags. level comes from
// config.json and is overridden by --debug and --quiet.
func initLogger(level string) {
	logger.Init(logger.Options{
		Level: level,
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
		JSON:  viper.GetBool("json_logs"),
	})
}

func openStore() (*story.Store, error) {
	return story.NewStore(story.Dirs{
		Stories: viper.GetString("stories_dir"),
		Images:  viper.GetString("images_dir"),
		Audio:   viper.GetString("audio_dir"),
	})
}

func openVoices() (*tts.Registry, error) {
	models, err := tts.LoadIndex(viper.GetString("voices_file"))
	if err != nil {
		return nil, err
	}
	return tts.NewRegistry(models), nil
}

// logError prints an error message to stderr.
func logError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
}

// logInfo prints an info message to stderr (unless quiet mode).
func logInfo(format string, args ...any) {
	if !viper.GetBool("quiet") {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
