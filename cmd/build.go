package cmd

import (
	"github.com/abhivaikar/seed-static-site/builder"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a static version of the site",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger("build")

		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}
		if out, _ := cmd.Flags().GetString("out-dir"); out != "" {
			cfg.OutDir = out
		}

		b, err := builder.New(cfg, log)
		if err != nil {
			return err
		}

		_, err = b.Build(cmd.Context())
		return err
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringP("out-dir", "o", "", "override the configured output directory")
}
