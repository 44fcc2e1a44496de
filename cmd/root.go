package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/abhivaikar/seed-static-site/config"
	"github.com/abhivaikar/seed-static-site/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "seed-static-site",
	Short: "Seed Static Site - build and serve a small static site",
	Long: `Seed Static Site renders Plush and Markdown pages into static HTML,
bundles scripts and stylesheets with esbuild and writes a sitemap, all
driven by a single site.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultFile, "site configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); defaults to $LOG_LEVEL or info")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "write logs as JSON lines")
}

func newLogger(component string) zerolog.Logger {
	return logger.WithComponent(logger.New(logger.Options{Level: logLevel, JSON: logJSON}), component)
}

func loadConfig(log zerolog.Logger) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("config", cfgFile).Msg("loaded site configuration")
	return cfg, nil
}
