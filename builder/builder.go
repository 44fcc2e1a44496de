// Package builder produces the static output of a site: public files,
// compiled assets, every rendered page, then whatever the configured
// integrations add.
package builder

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/abhivaikar/seed-static-site/assets"
	"github.com/abhivaikar/seed-static-site/config"
	"github.com/abhivaikar/seed-static-site/handlers"
	"github.com/abhivaikar/seed-static-site/integrations"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Builder struct {
	cfg          *config.Config
	integrations []integrations.Integration
	log          zerolog.Logger
}

// New instantiates the integrations named in cfg.
func New(cfg *config.Config, log zerolog.Logger) (*Builder, error) {
	ins, err := integrations.New(cfg.Integrations)
	if err != nil {
		return nil, err
	}
	return &Builder{cfg: cfg, integrations: ins, log: log}, nil
}

func (b *Builder) Build(ctx context.Context) (*integrations.BuildResult, error) {
	start := time.Now()
	cfg := b.cfg

	b.log.Info().Str("site", cfg.Site).Str("base", cfg.Base).Str("out_dir", cfg.OutDir).Msg("building static site")

	// The out dir can be overridden after the config was validated.
	if err := cfg.ValidateOutDir(); err != nil {
		return nil, err
	}
	if err := os.RemoveAll(cfg.OutDir); err != nil {
		return nil, errors.Wrapf(err, "cleaning %s", cfg.OutDir)
	}
	if err := os.MkdirAll(cfg.OutDir, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "creating %s", cfg.OutDir)
	}

	copied, err := copyPublic(cfg.PublicDir, cfg.OutDir)
	if err != nil {
		return nil, errors.Wrap(err, "copying public files")
	}
	b.log.Debug().Int("files", copied).Str("dir", cfg.PublicDir).Msg("copied public files")

	manifest, err := assets.Compile(ctx, cfg, b.log)
	if err != nil {
		return nil, errors.Wrap(err, "compiling assets")
	}

	site, err := handlers.NewSite(cfg, manifest, b.log)
	if err != nil {
		return nil, errors.Wrap(err, "setting up router")
	}

	server := httptest.NewServer(site.Router())
	defer server.Close()

	result := &integrations.BuildResult{Config: cfg, OutDir: cfg.OutDir}
	for _, page := range site.Pages() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target := cfg.URLPath(page.Route)
		if err := generateStaticPage(ctx, server, target, page); err != nil {
			return nil, errors.Wrapf(err, "generating %s", page.Route)
		}
		result.Pages = append(result.Pages, page)
		b.log.Debug().Str("route", page.Route).Str("file", page.File).Msg("generated page")
	}

	for _, in := range b.integrations {
		if err := in.BuildDone(ctx, result); err != nil {
			return nil, errors.Wrapf(err, "integration %s", in.Name())
		}
		b.log.Debug().Str("integration", in.Name()).Msg("integration done")
	}

	b.log.Info().
		Int("pages", len(result.Pages)).
		Dur("took", time.Since(start)).
		Msgf("static site generated in %s", cfg.OutDir)

	return result, nil
}

func generateStaticPage(ctx context.Context, server *httptest.Server, target string, page integrations.Page) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+target, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	resp, err := server.Client().Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithStack(err)
	}

	want := http.StatusOK
	if page.NotFound {
		want = http.StatusNotFound
	}
	if resp.StatusCode != want {
		return errors.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if err := os.MkdirAll(filepath.Dir(page.File), os.ModePerm); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(os.WriteFile(page.File, body, 0644))
}

// copyPublic copies the tree under src into dst. A missing src is not an
// error.
func copyPublic(src, dst string) (int, error) {
	if src == "" {
		return 0, nil
	}
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return 0, nil
	}

	copied := 0
	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
			return err
		}
		copied++
		return copyFile(path, destPath)
	})
	return copied, errors.WithStack(err)
}

func copyFile(src, dst string) error {
	input, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	return os.WriteFile(dst, input, 0644)
}
