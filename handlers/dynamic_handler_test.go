package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/abhivaikar/seed-static-site/assets"
	"github.com/abhivaikar/seed-static-site/config"
	"github.com/abhivaikar/seed-static-site/integrations"
	"github.com/abhivaikar/seed-static-site/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLayout = `<!DOCTYPE html>
<html lang="<%= lang %>">
  <head>
    <title><%= title %></title>
    <link rel="canonical" href="<%= canonical %>">
    <%= head %>
  </head>
  <body>
    <%= partial("nav") %>
    <main>
      <%= yield %>
    </main>
  </body>
</html>
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), os.ModePerm))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// fixtureSite lays out a small site in a temp dir and returns its config.
func fixtureSite(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, filepath.Join(dir, "templates/layouts/base.plush.html"), testLayout)
	writeFile(t, filepath.Join(dir, "templates/partials/nav.plush.html"),
		`<nav><a href="<%= url("/") %>">Home</a> <a href="<%= url("/about") %>">About</a></nav>`)
	writeFile(t, filepath.Join(dir, "templates/404.plush.html"), "---\ntitle: Not found\n---\n<h1>Nothing at <%= currentPath %></h1>\n")
	writeFile(t, filepath.Join(dir, "pages/index.plush.html"), "---\ntitle: Home\n---\n<h1><%= text(\"greeting\") %></h1>\n")
	writeFile(t, filepath.Join(dir, "pages/about.md"), "---\ntitle: About\ndescription: About page\n---\n# About\n\nSome *text*.\n")
	writeFile(t, filepath.Join(dir, "pages/blog/hello-world.md"), "---\ntitle: Hello\n---\nFirst post.\n")
	writeFile(t, filepath.Join(dir, "pages/blog/second-post.md"), "Second post.\n")
	writeFile(t, filepath.Join(dir, "translations/en.yaml"), "greeting: Hello seed\n")
	writeFile(t, filepath.Join(dir, "public/favicon.svg"), "<svg></svg>")

	cfg := config.Default()
	cfg.Site = "https://abhivaikar.github.io"
	cfg.Base = "/seed-static-site"
	cfg.Build.Assets = "assets"
	cfg.OutDir = filepath.Join(dir, "dist")
	cfg.PublicDir = filepath.Join(dir, "public")
	cfg.Layout = filepath.Join(dir, "templates/layouts/base.plush.html")
	cfg.NotFoundPageSource = filepath.Join(dir, "templates/404.plush.html")
	cfg.TranslationsDir = filepath.Join(dir, "translations")
	cfg.Stylesheets = map[string]config.StylesheetTarget{"global": {Source: "unused.css"}}
	cfg.Partials = map[string]config.Partial{
		"nav": {Source: filepath.Join(dir, "templates/partials/nav.plush.html"), TemplateType: config.TemplatePlush},
	}
	cfg.Routes = []config.Route{
		{Path: "/", Source: filepath.Join(dir, "pages/index.plush.html"), TemplateType: config.TemplatePlush, StylesheetDeps: []string{"global"}, PartialDeps: []string{"nav"}},
		{Path: "/about", Source: filepath.Join(dir, "pages/about.md"), TemplateType: config.TemplateMarkdown, PartialDeps: []string{"nav"}},
		{Path: "/blog/:slug", Source: filepath.Join(dir, "pages/blog"), TemplateType: config.TemplateMarkdown, PartialDeps: []string{"nav"}},
	}
	return &cfg
}

var testManifest = &assets.Manifest{
	Scripts: map[string]string{},
	Stylesheets: map[string]assets.Stylesheet{
		"global": {Name: "global", CSS: "body{color:red}", Inline: true},
	},
}

func newTestSite(t *testing.T, cfg *config.Config) *Site {
	t.Helper()
	site, err := NewSite(cfg, testManifest, logger.Nop())
	require.NoError(t, err)
	return site
}

func get(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestNewSite_Pages(t *testing.T) {
	cfg := fixtureSite(t)
	site := newTestSite(t, cfg)

	assert.Equal(t, []integrations.Page{
		{Route: "/", File: filepath.Join(cfg.OutDir, "index.html")},
		{Route: "/about", File: filepath.Join(cfg.OutDir, "about", "index.html")},
		{Route: "/blog/hello-world", File: filepath.Join(cfg.OutDir, "blog", "hello-world", "index.html")},
		{Route: "/blog/second-post", File: filepath.Join(cfg.OutDir, "blog", "second-post", "index.html")},
		{Route: "/404", File: filepath.Join(cfg.OutDir, "404.html"), NotFound: true},
	}, site.Pages())
}

func TestNewSite_RouteCollision(t *testing.T) {
	cfg := fixtureSite(t)
	cfg.Routes = append(cfg.Routes, config.Route{Path: "/about/", Source: "other.md", TemplateType: config.TemplateMarkdown})

	_, err := NewSite(cfg, testManifest, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collides")
}

func TestNewSite_SlugSourceMustBeDirectory(t *testing.T) {
	cfg := fixtureSite(t)
	cfg.Routes[2].Source = cfg.Routes[1].Source

	_, err := NewSite(cfg, testManifest, logger.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a directory")
}

func TestSite_RendersPlushPage(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `<html lang="en">`)
	assert.Contains(t, body, "<title>Home</title>")
	assert.Contains(t, body, `<link rel="canonical" href="https://abhivaikar.github.io/seed-static-site/">`)
	assert.Contains(t, body, "<style>body{color:red}</style>")
	assert.Contains(t, body, `<a href="/seed-static-site/about/">About</a>`)
	assert.Contains(t, body, "<h1>Hello seed</h1>")
	assert.NotContains(t, body, "\n")
}

func TestSite_RendersMarkdownPage(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/about/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Contains(t, body, "<title>About</title>")
	assert.Contains(t, body, `id="about"`)
	assert.Contains(t, body, "<em>text</em>")
	assert.Contains(t, body, "https://abhivaikar.github.io/seed-static-site/about/")
	assert.NotContains(t, body, "<style>", "about declares no stylesheets")
}

func TestSite_RendersCollectionPages(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/blog/hello-world/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "First post.")

	rec = get(t, site.Router(), http.MethodGet, "/seed-static-site/blog/second-post/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title></title>")
}

func TestSite_RedirectsMissingTrailingSlash(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/about")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/seed-static-site/about/", rec.Header().Get("Location"))
}

func TestSite_HeadRequest(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	rec := get(t, site.Router(), http.MethodHead, "/seed-static-site/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestSite_CompressDisabled(t *testing.T) {
	cfg := fixtureSite(t)
	cfg.CompressHTML = false
	site := newTestSite(t, cfg)

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\n  <head>")
}

func TestSite_NotFound(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	for _, target := range []string{"/seed-static-site/missing", "/elsewhere", "/seed-static-site/404/"} {
		rec := get(t, site.Router(), http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Contains(t, rec.Body.String(), "<title>Not found</title>", target)
	}
}

func TestSite_NotFoundWithoutPage(t *testing.T) {
	cfg := fixtureSite(t)
	cfg.NotFoundPageSource = ""
	site := newTestSite(t, cfg)

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Len(t, site.Pages(), 4)
}

func TestSite_ServesPublicFiles(t *testing.T) {
	site := newTestSite(t, fixtureSite(t))

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/favicon.svg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<svg></svg>", rec.Body.String())

	rec = get(t, site.Router(), http.MethodGet, "/favicon.svg")
	assert.Equal(t, http.StatusNotFound, rec.Code, "public files live under base")
}

func helperSite(t *testing.T, body string) *Site {
	t.Helper()
	cfg := fixtureSite(t)
	source := filepath.Join(filepath.Dir(cfg.Routes[0].Source), "helpers.plush.html")
	writeFile(t, source, body)
	cfg.Routes = append(cfg.Routes, config.Route{Path: "/helpers", Source: source, TemplateType: config.TemplatePlush, PartialDeps: []string{"nav"}})
	return newTestSite(t, cfg)
}

func TestSite_TemplateHelpers(t *testing.T) {
	site := helperSite(t, `<p id="cname"><%= asset("/CNAME") %></p>
<p id="logo"><%= asset("img/logo.png") %></p>
<p id="page"><%= url("/blog/go-1.22") %></p>
<p id="matches"><%= matches("go-1.22", "^go-[0-9.]+$") %></p>
<p id="replace"><%= replace("a-b-c", "-", "+") %></p>
<p id="replaceAll"><%= replaceAll("a-b-c", "-", "+") %></p>
<p id="pattern"><%= replacePattern("v1.2.3", "[0-9]", "N") %></p>
<p id="startsWith"><%= startsWith(currentPath, base) %></p>
`)

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/helpers/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := rec.Body.String()
	assert.Contains(t, body, `<p id="cname">/seed-static-site/CNAME</p>`)
	assert.Contains(t, body, `<p id="logo">/seed-static-site/img/logo.png</p>`)
	assert.Contains(t, body, `<p id="page">/seed-static-site/blog/go-1.22/</p>`)
	assert.Contains(t, body, `<p id="matches">true</p>`)
	assert.Contains(t, body, `<p id="replace">a+b-c</p>`)
	assert.Contains(t, body, `<p id="replaceAll">a+b+c</p>`)
	assert.Contains(t, body, `<p id="pattern">vN.N.N</p>`)
	assert.Contains(t, body, `<p id="startsWith">true</p>`)
}

func TestSite_TemplateHelperBadPattern(t *testing.T) {
	site := helperSite(t, `<%= matches("go", "[") %>`)

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/helpers/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSite_UndeclaredPartial(t *testing.T) {
	cfg := fixtureSite(t)
	cfg.Routes[1].PartialDeps = nil
	site := newTestSite(t, cfg)

	rec := get(t, site.Router(), http.MethodGet, "/seed-static-site/about/")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not declared in partial_deps")
}

func TestSplitFrontMatter_Unterminated(t *testing.T) {
	meta, body, err := splitFrontMatter([]byte("---\ntitle: Hi\nbody\n"))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Contains(t, string(body), "title: Hi")
}

func TestSplitFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantMeta map[string]interface{}
		wantBody string
		wantErr  bool
	}{
		{"none", "# Title\n", map[string]interface{}{}, "# Title\n", false},
		{"block", "---\ntitle: Hi\n---\nbody\n", map[string]interface{}{"title": "Hi"}, "body\n", false},
		{"crlf", "---\r\ntitle: Hi\r\n---\r\nbody\r\n", map[string]interface{}{"title": "Hi"}, "body\n", false},
		{"empty block", "---\n---\nbody", map[string]interface{}{}, "body", false},
		{"no body", "---\ntitle: Hi\n---\n", map[string]interface{}{"title": "Hi"}, "", false},
		{"nested", "---\ntitle: Hi\ntags: [go, web]\n---\nbody", map[string]interface{}{"title": "Hi", "tags": []interface{}{"go", "web"}}, "body", false},
		{"plush first line", "{{ not front matter }}\n", map[string]interface{}{}, "{{ not front matter }}\n", false},
		{"bad yaml", "---\ntitle: [\n---\nbody", nil, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, body, err := splitFrontMatter([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMeta, meta)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}
