package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/privatemedia/config"
)

var version = "dev"

// logCloser releases the rotating log file, if one was opened.
var logCloser io.Closer

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "privatemedia",
	Short:   "Permission-checked private file server",
	Long: `privatemedia serves files from a private directory after asking a
permission policy whether the caller may read them. Files are streamed
directly or handed to nginx (X-Accel-Redirect) or Apache/lighttpd
(X-Sendfile) for delivery.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFiles, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		closer, err := setupLogging(cfg.Log)
		if err != nil {
			return err
		}
		logCloser = closer

		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	cobra.OnFinalize(closeLog)

	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("root", "", "media root directory (default: ./media, env: PRIVATEMEDIA_MEDIA_ROOT)")
	rootCmd.PersistentFlags().String("backend", "", "delivery backend: direct, x-accel-redirect, x-sendfile (env: PRIVATEMEDIA_MEDIA_BACKEND)")
	rootCmd.PersistentFlags().String("db-type", "", "grants database type: sqlite, postgres (default: sqlite, env: PRIVATEMEDIA_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "grants database connection string (default: privatemedia.db, env: PRIVATEMEDIA_DATABASE_DSN)")
}

// closeLog releases the log file once a command finishes, including when it
// fails.
func closeLog() {
	if logCloser == nil {
		return
	}
	_ = logCloser.Close()
	logCloser = nil
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
