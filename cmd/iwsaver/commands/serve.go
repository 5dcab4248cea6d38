package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/iwsaver/internal/logger"
	"github.com/jmylchreest/iwsaver/internal/server"
	"github.com/jmylchreest/iwsaver/internal/tts"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the story viewer and editing API",
	Long: `Serve saved stories over HTTP. The API edits paragraphs and images,
generates narration with the models listed in the voices file, and pushes
a websocket event whenever a story file changes on disk.

Put story_viewer.html in --web-dir to serve the viewer at /.

Examples:
  iwsaver serve
  iwsaver serve --addr 127.0.0.1:8080 --web-dir ./web
  iwsaver serve --no-tts`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", server.DefaultAddr, "listen address")
	flags.String("web-dir", ".", "directory holding story_viewer.html")
	flags.Bool("no-tts", false, "disable narration endpoints")
	flags.String("max-upload", "32MB", "largest image upload held in memory")

	_ = viper.BindPFlag("addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("web_dir", flags.Lookup("web-dir"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore()
	if err != nil {
		logError("%v", err)
		return err
	}

	maxUpload, err := parseByteSize(cmd, "max-upload")
	if err != nil {
		logError("%v", err)
		return err
	}

	var voices *tts.Registry
	if noTTS, _ := cmd.Flags().GetBool("no-tts"); !noTTS {
		voices, err = openVoices()
		if err != nil {
			logError("%v", err)
			return err
		}
		defer func() {
			if err := voices.Close(); err != nil {
				logger.Warn("closing tts models", "error", err)
			}
		}()
	}

	srv := server.New(store, voices, server.Options{
		Addr:           viper.GetString("addr"),
		WebDir:         viper.GetString("web_dir"),
		Debug:          viper.GetBool("debug"),
		MaxUploadBytes: maxUpload,
	})
	logInfo("Serving stories at http://%s", displayAddr(viper.GetString("addr")))
	return srv.Run(ctx)
}

// displayAddr turns ":5000" into "localhost:5000".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
