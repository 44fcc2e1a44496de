package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/abhivaikar/seed-static-site/assets"
	"github.com/abhivaikar/seed-static-site/handlers"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the development server",
	Long: `serve compiles assets once and renders pages on every request, so
template and content edits show up on reload.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger("serve")
		port, _ := cmd.Flags().GetString("port")

		cfg, err := loadConfig(log)
		if err != nil {
			return err
		}

		manifest, err := assets.Compile(cmd.Context(), cfg, log)
		if err != nil {
			return errors.Wrap(err, "compiling assets")
		}

		site, err := handlers.NewSite(cfg, manifest, log)
		if err != nil {
			return errors.Wrap(err, "setting up router")
		}

		log.Info().Msgf("Starting server on http://localhost:%s%s", port, cfg.URLPath("/"))
		return listen(cmd.Context(), ":"+port, site.Router(), log)
	},
}

// listen serves h until ctx is cancelled.
func listen(ctx context.Context, addr string, h http.Handler, log zerolog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.WithStack(err)
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.WithStack(srv.Shutdown(shutdownCtx))
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "4321", "Port to run the server on")
}
