package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/abhivaikar/seed-static-site/config"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
)

// NewPreview serves a finished build from cfg.OutDir, mounted at base the
// way the site is deployed.
func NewPreview(cfg *config.Config, log zerolog.Logger) http.Handler {
	router := httprouter.New()
	files := http.FileServer(http.Dir(cfg.OutDir))
	notFoundPage := filepath.Join(cfg.OutDir, "404.html")

	notFound := func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("path", r.URL.Path).Msg("not found")
		data, err := os.ReadFile(notFoundPage)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write(data)
	}

	serve := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		rel := path.Clean("/" + ps.ByName("filepath"))
		target := filepath.Join(cfg.OutDir, filepath.FromSlash(strings.TrimPrefix(rel, "/")))
		info, err := os.Stat(target)
		if err != nil {
			notFound(w, r)
			return
		}
		if info.IsDir() {
			if _, err := os.Stat(filepath.Join(target, "index.html")); err != nil {
				notFound(w, r)
				return
			}
		}

		r2 := r.Clone(r.Context())
		r2.URL.Path = ps.ByName("filepath")
		files.ServeHTTP(w, r2)
	}

	pattern := "/*filepath"
	if cfg.Base != "/" {
		pattern = cfg.Base + "/*filepath"
		router.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			http.Redirect(w, r, cfg.Base+"/", http.StatusFound)
		})
	}
	router.GET(pattern, serve)
	router.HEAD(pattern, serve)
	router.NotFound = http.HandlerFunc(notFound)

	return router
}
