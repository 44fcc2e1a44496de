package handlers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Custom404Handler runs for requests no page matched. Files from the public
// directory and compiled assets are served from disk; anything else gets
// the not-found page.
func (s *Site) Custom404Handler(w http.ResponseWriter, r *http.Request) {
	if file, ok := s.staticFile(r.URL.Path); ok {
		http.ServeFile(w, r, file)
		return
	}

	if s.notFound == nil {
		http.NotFound(w, r)
		return
	}
	s.renderPage(w, r, *s.notFound, http.StatusNotFound)
}

func (s *Site) staticFile(urlPath string) (string, bool) {
	rel, ok := s.stripBase(urlPath)
	if !ok || rel == "/" {
		return "", false
	}
	rel = filepath.FromSlash(strings.TrimPrefix(path.Clean(rel), "/"))

	for _, dir := range []string{s.cfg.PublicDir, s.cfg.OutDir} {
		if dir == "" {
			continue
		}
		file := filepath.Join(dir, rel)
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			return file, true
		}
	}
	return "", false
}

// stripBase returns urlPath relative to the configured base.
func (s *Site) stripBase(urlPath string) (string, bool) {
	base := s.cfg.Base
	if base == "/" {
		return urlPath, true
	}
	if urlPath == base {
		return "/", true
	}
	if !strings.HasPrefix(urlPath, base+"/") {
		return "", false
	}
	return strings.TrimPrefix(urlPath, base), true
}
