package config

// config/yaml.go

// InlineStylesheets controls when compiled stylesheets are embedded in the
// page instead of linked.
type InlineStylesheets string

const (
	InlineAlways InlineStylesheets = "always"
	InlineAuto   InlineStylesheets = "auto"
	InlineNever  InlineStylesheets = "never"
)

func (p InlineStylesheets) Valid() bool {
	switch p {
	case InlineAlways, InlineAuto, InlineNever:
		return true
	}
	return false
}

// ShouldInline reports whether a stylesheet of size bytes is inlined.
// Under InlineAuto sheets up to limit bytes are inlined.
func (p InlineStylesheets) ShouldInline(size, limit int) bool {
	switch p {
	case InlineAlways:
		return true
	case InlineAuto:
		return size <= limit
	}
	return false
}

// BuildFormat selects how a route maps to an output file.
type BuildFormat string

const (
	// FormatDirectory writes /about as about/index.html.
	FormatDirectory BuildFormat = "directory"
	// FormatFile writes /about as about.html.
	FormatFile BuildFormat = "file"
)

func (f BuildFormat) Valid() bool {
	return f == FormatDirectory || f == FormatFile
}

const (
	TemplatePlush    = "PLUSH"
	TemplateMarkdown = "MARKDOWN"
)

type Partial struct {
	Source       string `yaml:"source"`
	TemplateType string `yaml:"template_type"`
}

type JavascriptTarget struct {
	Source string `yaml:"source"`
}

type StylesheetTarget struct {
	Source string `yaml:"source"`
}

type IntegrationConfig struct {
	Name    string                 `yaml:"name"`
	Options map[string]interface{} `yaml:"options"`
}

type BuildConfig struct {
	Assets            string            `yaml:"assets"`
	InlineStylesheets InlineStylesheets `yaml:"inline_stylesheets"`
	InlineLimit       int               `yaml:"inline_limit"`
	Format            BuildFormat       `yaml:"format"`
}

// Config is the site configuration. It is read once when a build or server
// starts and is not modified afterwards.
type Config struct {
	Site               string                      `yaml:"site"`
	Base               string                      `yaml:"base"`
	Integrations       []IntegrationConfig         `yaml:"integrations"`
	Build              BuildConfig                 `yaml:"build"`
	CompressHTML       bool                        `yaml:"compress_html"`
	OutDir             string                      `yaml:"out_dir"`
	PublicDir          string                      `yaml:"public_dir"`
	Layout             string                      `yaml:"layout"`
	NotFoundPageSource string                      `yaml:"not_found_page_source"`
	Lang               string                      `yaml:"lang"`
	TranslationsDir    string                      `yaml:"translations_dir"`
	Routes             []Route                     `yaml:"routes"`
	JavascriptTargets  map[string]JavascriptTarget `yaml:"javascript"`
	Stylesheets        map[string]StylesheetTarget `yaml:"stylesheets"`
	Partials           map[string]Partial          `yaml:"partials"`
}

type Route struct {
	Path           string   `yaml:"path"`
	Source         string   `yaml:"source"`
	TemplateType   string   `yaml:"template_type"`
	JavascriptDeps []string `yaml:"javascript_deps"`
	StylesheetDeps []string `yaml:"stylesheet_deps"`
	PartialDeps    []string `yaml:"partial_deps"`
}
