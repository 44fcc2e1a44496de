// Package integrations holds the build plugins a site can enable in its
// configuration. Integrations run in declaration order once every page has
// been written.
package integrations

import (
	"context"
	"sort"
	"strings"

	"github.com/abhivaikar/seed-static-site/config"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Page is one generated page. Route is site-relative and does not include
// the configured base.
type Page struct {
	Route    string
	File     string
	NotFound bool
}

// BuildResult describes a finished build.
type BuildResult struct {
	Config *config.Config
	OutDir string
	Pages  []Page
}

type Integration interface {
	Name() string
	BuildDone(ctx context.Context, result *BuildResult) error
}

// Factory builds an integration from the options block of its config entry.
type Factory func(options map[string]interface{}) (Integration, error)

var registry = map[string]Factory{
	SitemapName: NewSitemap,
}

// New instantiates the configured integrations, keeping their order.
func New(cfgs []config.IntegrationConfig) ([]Integration, error) {
	out := make([]Integration, 0, len(cfgs))
	for i, c := range cfgs {
		factory, ok := registry[c.Name]
		if !ok {
			return nil, errors.Errorf("integrations[%d]: unknown integration %q (known: %s)", i, c.Name, strings.Join(Known(), ", "))
		}
		in, err := factory(c.Options)
		if err != nil {
			return nil, errors.Wrapf(err, "integrations[%d] %s", i, c.Name)
		}
		out = append(out, in)
	}
	return out, nil
}

// Known lists the registered integration names.
func Known() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decodeOptions round-trips a loosely typed options block through yaml into
// a typed struct.
func decodeOptions(options map[string]interface{}, out interface{}) error {
	if len(options) == 0 {
		return nil
	}
	data, err := yaml.Marshal(options)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := yaml.UnmarshalStrict(data, out); err != nil {
		return errors.Wrap(err, "decoding options")
	}
	return nil
}
