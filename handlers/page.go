package handlers

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abhivaikar/seed-static-site/config"
	"github.com/pkg/errors"
)

const slugParam = ":slug"

// page is one renderable route after :slug expansion.
type page struct {
	Route          string
	Source         string
	TemplateType   string
	StylesheetDeps []string
	JavascriptDeps []string
	PartialDeps    []string
	NotFound       bool
}

// expandRoute turns a configured route into pages. A path containing :slug
// yields one page per markdown file in the route's source directory.
func expandRoute(route config.Route) ([]page, error) {
	if !strings.Contains(route.Path, slugParam) {
		return []page{newPage(route.Path, route.Source, route)}, nil
	}

	isDir, err := isDirectory(route.Source)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !isDir {
		return nil, errors.Errorf("route %s: source %s must be a directory", route.Path, route.Source)
	}

	files, err := filepath.Glob(filepath.Join(route.Source, "*.md"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Strings(files)

	pages := make([]page, 0, len(files))
	for _, file := range files {
		slug := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if slug == "" {
			continue
		}
		pages = append(pages, newPage(strings.Replace(route.Path, slugParam, slug, 1), file, route))
	}

	return pages, nil
}

func newPage(path, source string, route config.Route) page {
	return page{
		Route:          path,
		Source:         source,
		TemplateType:   route.TemplateType,
		StylesheetDeps: route.StylesheetDeps,
		JavascriptDeps: route.JavascriptDeps,
		PartialDeps:    route.PartialDeps,
	}
}

func isDirectory(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
