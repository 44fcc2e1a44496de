package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/abhivaikar/seed-static-site/assets"
	"github.com/abhivaikar/seed-static-site/config"
	"github.com/abhivaikar/seed-static-site/htmlcompress"
	"github.com/abhivaikar/seed-static-site/integrations"
	"github.com/adrg/frontmatter"
	"github.com/gobuffalo/plush"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v2"
)

const notFoundRoute = "/404"

// Site renders the configured routes. It serves the dev server directly and
// is walked page by page during a build.
type Site struct {
	cfg          *config.Config
	assets       *assets.Manifest
	log          zerolog.Logger
	router       *mux.Router
	translations map[string]map[string]string
	pages        []page
	notFound     *page
}

// NewSite loads translations, expands routes and registers every page
// under the configured base.
func NewSite(cfg *config.Config, manifest *assets.Manifest, log zerolog.Logger) (*Site, error) {
	s := &Site{
		cfg:    cfg,
		assets: manifest,
		log:    log,
		router: mux.NewRouter().StrictSlash(true),
	}

	if cfg.TranslationsDir != "" {
		translations, err := loadTranslations(cfg.TranslationsDir)
		if err != nil {
			return nil, errors.Wrap(err, "loading translations")
		}
		s.translations = translations
	}

	seen := make(map[string]string)
	for _, route := range cfg.Routes {
		pages, err := expandRoute(route)
		if err != nil {
			return nil, err
		}
		for _, p := range pages {
			urlPath := cfg.URLPath(p.Route)
			if prev, ok := seen[urlPath]; ok {
				return nil, errors.Errorf("route %s (%s) collides with %s", p.Route, p.Source, prev)
			}
			seen[urlPath] = p.Source
			s.pages = append(s.pages, p)
		}
	}

	if cfg.NotFoundPageSource != "" {
		s.notFound = &page{
			Route:          notFoundRoute,
			Source:         cfg.NotFoundPageSource,
			TemplateType:   config.TemplatePlush,
			StylesheetDeps: sortedNames(cfg.Stylesheets),
			PartialDeps:    sortedNames(cfg.Partials),
			NotFound:       true,
		}
	}

	for i := range s.pages {
		p := s.pages[i]
		s.router.Handle(cfg.URLPath(p.Route), s.pageHandler(p, http.StatusOK)).Methods(http.MethodGet, http.MethodHead)
	}
	if s.notFound != nil {
		s.router.Handle(cfg.URLPath(notFoundRoute), s.pageHandler(*s.notFound, http.StatusNotFound)).Methods(http.MethodGet, http.MethodHead)
	}
	s.router.NotFoundHandler = http.HandlerFunc(s.Custom404Handler)

	return s, nil
}

func (s *Site) Router() http.Handler {
	return s.router
}

// Pages lists every page a build writes, the not-found page last.
func (s *Site) Pages() []integrations.Page {
	out := make([]integrations.Page, 0, len(s.pages)+1)
	for _, p := range s.pages {
		out = append(out, integrations.Page{Route: p.Route, File: s.cfg.OutputFile(p.Route)})
	}
	if s.notFound != nil {
		out = append(out, integrations.Page{
			Route:    notFoundRoute,
			File:     filepath.Join(s.cfg.OutDir, "404.html"),
			NotFound: true,
		})
	}
	return out
}

func (s *Site) pageHandler(p page, status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, p, status)
	}
}

func (s *Site) renderPage(w http.ResponseWriter, r *http.Request, p page, status int) {
	log := s.log.With().Str("route", p.Route).Str("source", p.Source).Logger()

	pageHtml, err := s.render(r, p)
	if err != nil {
		log.Error().Err(err).Msg("rendering page")
		http.Error(w, fmt.Sprintf("Error rendering template: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(pageHtml)); err != nil {
		log.Error().Err(err).Msg("writing response")
		return
	}
	log.Debug().Int("status", status).Msg("rendered page")
}

func (s *Site) render(r *http.Request, p page) (string, error) {
	ctx := s.newContext(r, p)

	var content string
	var meta map[string]interface{}
	var err error

	switch p.TemplateType {
	case config.TemplatePlush:
		content, meta, err = renderPlushTemplate(p.Source, ctx)
	case config.TemplateMarkdown:
		content, meta, err = renderMarkdownTemplate(p.Source)
	default:
		return "", errors.Errorf("unsupported template type %q", p.TemplateType)
	}
	if err != nil {
		return "", err
	}

	ctx.Set("title", metaString(meta, "title"))
	ctx.Set("description", metaString(meta, "description"))
	ctx.Set("frontmatter", meta)
	ctx.Set("yield", template.HTML(content))

	baseContent, err := os.ReadFile(s.cfg.Layout)
	if err != nil {
		return "", errors.Wrap(err, "reading base layout")
	}

	baseLayout, err := plush.Parse(string(baseContent))
	if err != nil {
		return "", errors.Wrap(err, "parsing base layout")
	}

	pageHtml, err := baseLayout.Exec(ctx)
	if err != nil {
		return "", errors.Wrap(err, "executing base layout")
	}

	if s.cfg.CompressHTML {
		pageHtml, err = htmlcompress.String(pageHtml)
		if err != nil {
			return "", errors.Wrap(err, "compressing html")
		}
	}

	return pageHtml, nil
}

func (s *Site) newContext(r *http.Request, p page) *plush.Context {
	cfg := s.cfg
	ctx := plush.NewContext()
	ctx.Set("params", mux.Vars(r))

	lang := cfg.Lang
	ctx.Set("lang", lang)
	ctx.Set("text", func(key string) string {
		if t, ok := s.translations[lang][key]; ok {
			return t
		}
		return key
	})

	ctx.Set("site", cfg.Site)
	ctx.Set("base", cfg.Base)
	ctx.Set("url", cfg.URLPath)
	ctx.Set("asset", cfg.FileURL)
	ctx.Set("canonical", cfg.AbsoluteURL(p.Route))
	ctx.Set("currentPath", r.URL.Path)
	ctx.Set("head", template.HTML(s.assets.HeadTags(p.StylesheetDeps, p.JavascriptDeps)))

	routes := make([]string, 0, len(s.pages))
	for _, sp := range s.pages {
		routes = append(routes, sp.Route)
	}
	ctx.Set("routes", routes)

	ctx.Set("startsWith", func(s string, prefix string) bool {
		return strings.HasPrefix(s, prefix)
	})

	ctx.Set("matches", func(s string, pat string) (bool, error) {
		re, err := regexp.Compile(pat)
		if err != nil {
			return false, err
		}
		return re.MatchString(s), nil
	})

	ctx.Set("replace", func(s string, old string, n string) string {
		return strings.Replace(s, old, n, 1)
	})

	ctx.Set("replaceAll", func(s string, old string, n string) string {
		return strings.ReplaceAll(s, old, n)
	})

	ctx.Set("replacePattern", func(s string, pat, n string) (string, error) {
		re, err := regexp.Compile(pat)
		if err != nil {
			return "", err
		}
		return re.ReplaceAllString(s, n), nil
	})

	ctx.Set("partial", func(name string) (template.HTML, error) {
		return s.renderPartial(name, p, ctx)
	})

	return ctx
}

func (s *Site) renderPartial(name string, p page, ctx *plush.Context) (template.HTML, error) {
	allowed := false
	for _, dep := range p.PartialDeps {
		if dep == name {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", errors.Errorf("partial %q is not declared in partial_deps of %s", name, p.Route)
	}

	partial := s.cfg.Partials[name]
	switch partial.TemplateType {
	case config.TemplateMarkdown:
		content, _, err := renderMarkdownTemplate(partial.Source)
		return template.HTML(content), err
	default:
		content, _, err := renderPlushTemplate(partial.Source, ctx)
		return template.HTML(content), err
	}
}

func renderPlushTemplate(source string, ctx *plush.Context) (string, map[string]interface{}, error) {
	content, err := os.ReadFile(source)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}

	meta, body, err := splitFrontMatter(content)
	if err != nil {
		return "", nil, errors.Wrap(err, source)
	}
	for k, v := range meta {
		ctx.Set(k, v)
	}

	template, err := plush.Parse(string(body))
	if err != nil {
		return "", nil, errors.Wrapf(err, "parsing %s", source)
	}

	out, err := template.Exec(ctx)
	if err != nil {
		return "", nil, errors.Wrapf(err, "executing %s", source)
	}
	return out, meta, nil
}

func renderMarkdownTemplate(source string) (string, map[string]interface{}, error) {
	content, err := os.ReadFile(source)
	if err != nil {
		return "", nil, errors.WithStack(err)
	}

	metadata, body, err := splitFrontMatter(content)
	if err != nil {
		return "", nil, errors.Wrap(err, source)
	}

	extensions := parser.CommonExtensions | parser.AutoHeadingIDs
	p := parser.NewWithExtensions(extensions)
	htmlContent := markdown.ToHTML(body, p, nil)

	return `<article class="prose">` + string(htmlContent) + `</article>`, metadata, nil
}

// yamlFrontMatter is the only front matter format pages use. Restricting
// the parser to it keeps a plush page that opens with "{" or "+++" intact.
var yamlFrontMatter = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// splitFrontMatter separates an optional leading YAML block delimited by
// "---" lines from the document body. A block that is never closed is left
// in the body.
func splitFrontMatter(content []byte) (map[string]interface{}, []byte, error) {
	content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))

	metadata := map[string]interface{}{}
	body, err := frontmatter.Parse(bytes.NewReader(content), &metadata, yamlFrontMatter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "parsing front matter")
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return metadata, body, nil
}

func metaString(meta map[string]interface{}, key string) string {
	v, ok := meta[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func loadTranslations(dir string) (map[string]map[string]string, error) {
	translations := make(map[string]map[string]string)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}

	for _, file := range files {
		lang := strings.TrimSuffix(filepath.Base(file), ".yaml")
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		var langTranslations map[string]string
		if err := yaml.Unmarshal(data, &langTranslations); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", file)
		}

		translations[lang] = langTranslations
	}

	return translations, nil
}

func sortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
