package config

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "site.yaml"

// Default returns the generator defaults that a site file is decoded over.
func Default() Config {
	return Config{
		Base: "/",
		Build: BuildConfig{
			Assets:            "_assets",
			InlineStylesheets: InlineAuto,
			InlineLimit:       4096,
			Format:            FormatDirectory,
		},
		CompressHTML: true,
		OutDir:       "dist",
		PublicDir:    "public",
		Layout:       "templates/layouts/base.plush.html",
		Lang:         "en",
	}
}

// Load reads, normalizes and validates the configuration at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// Parse decodes data over Default, then normalizes and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding yaml")
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) normalize() {
	c.Site = strings.TrimRight(strings.TrimSpace(c.Site), "/")

	base := strings.TrimSpace(c.Base)
	if !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	if len(base) > 1 {
		base = strings.TrimRight(base, "/")
		if base == "" {
			base = "/"
		}
	}
	c.Base = base

	c.Build.Assets = strings.Trim(filepath.ToSlash(c.Build.Assets), "/")
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	if c.Site == "" {
		return errors.New("site is required")
	}
	u, err := url.Parse(c.Site)
	if err != nil {
		return errors.Wrap(err, "site")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("site %q must be an absolute http(s) URL", c.Site)
	}

	if !strings.HasPrefix(c.Base, "/") {
		return errors.Errorf("base %q must start with /", c.Base)
	}

	if c.Build.Assets == "" {
		return errors.New("build.assets must not be empty")
	}
	for _, part := range strings.Split(c.Build.Assets, "/") {
		if part == ".." {
			return errors.Errorf("build.assets %q must stay inside the output directory", c.Build.Assets)
		}
	}
	if !c.Build.InlineStylesheets.Valid() {
		return errors.Errorf("build.inline_stylesheets %q must be one of always, auto, never", c.Build.InlineStylesheets)
	}
	if c.Build.InlineLimit < 0 {
		return errors.Errorf("build.inline_limit %d must not be negative", c.Build.InlineLimit)
	}
	if !c.Build.Format.Valid() {
		return errors.Errorf("build.format %q must be directory or file", c.Build.Format)
	}

	if err := c.ValidateOutDir(); err != nil {
		return err
	}

	for i, in := range c.Integrations {
		if in.Name == "" {
			return errors.Errorf("integrations[%d] has no name", i)
		}
	}

	for i, r := range c.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			return errors.Errorf("routes[%d] path %q must start with /", i, r.Path)
		}
		if r.Source == "" {
			return errors.Errorf("routes[%d] %s has no source", i, r.Path)
		}
		if r.TemplateType != TemplatePlush && r.TemplateType != TemplateMarkdown {
			return errors.Errorf("routes[%d] %s: unsupported template type %q", i, r.Path, r.TemplateType)
		}
		for _, dep := range r.JavascriptDeps {
			if _, ok := c.JavascriptTargets[dep]; !ok {
				return errors.Errorf("routes[%d] %s: unknown javascript target %q", i, r.Path, dep)
			}
		}
		for _, dep := range r.StylesheetDeps {
			if _, ok := c.Stylesheets[dep]; !ok {
				return errors.Errorf("routes[%d] %s: unknown stylesheet %q", i, r.Path, dep)
			}
		}
		for _, dep := range r.PartialDeps {
			if _, ok := c.Partials[dep]; !ok {
				return errors.Errorf("routes[%d] %s: unknown partial %q", i, r.Path, dep)
			}
		}
	}

	return nil
}

// ValidateOutDir checks that out_dir can be wiped before a build without
// taking project files with it. It must not hold the working directory,
// overlap public_dir, or contain any configured source.
func (c *Config) ValidateOutDir() error {
	if c.OutDir == "" {
		return errors.New("out_dir must not be empty")
	}
	out, err := filepath.Abs(c.OutDir)
	if err != nil {
		return errors.Wrap(err, "out_dir")
	}

	wd, err := os.Getwd()
	if err != nil {
		return errors.WithStack(err)
	}
	if within(out, wd) {
		return errors.Errorf("out_dir %q must not be the project directory or one of its parents", c.OutDir)
	}

	if c.PublicDir != "" {
		public, err := filepath.Abs(c.PublicDir)
		if err != nil {
			return errors.Wrap(err, "public_dir")
		}
		if within(out, public) || within(public, out) {
			return errors.Errorf("out_dir %q must not overlap public_dir %q", c.OutDir, c.PublicDir)
		}
	}

	for _, src := range c.sources() {
		abs, err := filepath.Abs(src)
		if err != nil {
			return errors.Wrapf(err, "source %s", src)
		}
		if within(out, abs) {
			return errors.Errorf("out_dir %q must not contain the source %s", c.OutDir, src)
		}
	}
	return nil
}

// sources lists every configured input path.
func (c *Config) sources() []string {
	srcs := []string{c.Layout, c.NotFoundPageSource, c.TranslationsDir}
	for _, r := range c.Routes {
		srcs = append(srcs, r.Source)
	}
	for _, t := range c.JavascriptTargets {
		srcs = append(srcs, t.Source)
	}
	for _, t := range c.Stylesheets {
		srcs = append(srcs, t.Source)
	}
	for _, p := range c.Partials {
		srcs = append(srcs, p.Source)
	}

	out := srcs[:0]
	for _, src := range srcs {
		if src != "" {
			out = append(out, src)
		}
	}
	return out
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
