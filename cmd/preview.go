package cmd

import (
	"os"

	"github.com/abhivaikar/seed-static-site/handlers"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve the built site the way it is deployed",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger("preview")
		port, _ := cmd.Flags().GetString("port")

		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		if _, err := os.Stat(cfg.OutDir); err != nil {
			return errors.Wrapf(err, "no build found in %s, run build first", cfg.OutDir)
		}

		log.Info().Msgf("Previewing %s on http://localhost:%s%s", cfg.OutDir, port, cfg.URLPath("/"))
		return listen(cmd.Context(), ":"+port, handlers.NewPreview(cfg, log), log)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().StringP("port", "p", "4322", "Port to run the preview server on")
}
