package config

import (
	"path"
	"path/filepath"
	"strings"
)

// URLPath is the public URL of the page at route. Under FormatDirectory
// every page other than the root gets a trailing slash, under FormatFile an
// ".html" suffix, whatever the last segment looks like: a page built from
// "go-1.22.md" is still a page.
func (c *Config) URLPath(route string) string {
	route = cleanRoute(route)
	if route != "/" {
		switch c.Build.Format {
		case FormatFile:
			route += ".html"
		default:
			route += "/"
		}
	}
	return c.joinBase(route)
}

// AbsoluteURL resolves the page at route against site and base.
func (c *Config) AbsoluteURL(route string) string {
	return c.Site + c.URLPath(route)
}

// FileURL prefixes the path of a file in the output directory with base and
// leaves the path itself alone.
func (c *Config) FileURL(name string) string {
	return c.joinBase(cleanRoute(name))
}

// AbsoluteFileURL resolves a file in the output directory against site and
// base.
func (c *Config) AbsoluteFileURL(name string) string {
	return c.Site + c.FileURL(name)
}

// AssetURL is the public URL of an emitted asset file.
func (c *Config) AssetURL(name string) string {
	return c.joinBase("/" + c.Build.Assets + "/" + strings.TrimLeft(name, "/"))
}

// AssetsDir is the directory compiled assets are written to.
func (c *Config) AssetsDir() string {
	return filepath.Join(c.OutDir, filepath.FromSlash(c.Build.Assets))
}

// OutputFile is where the rendered page for route is written. Base is not
// part of the output path; it only prefixes URLs.
func (c *Config) OutputFile(route string) string {
	route = cleanRoute(route)
	if route == "/" {
		return filepath.Join(c.OutDir, "index.html")
	}
	rel := filepath.FromSlash(strings.TrimPrefix(route, "/"))
	if c.Build.Format == FormatFile {
		return filepath.Join(c.OutDir, rel+".html")
	}
	return filepath.Join(c.OutDir, rel, "index.html")
}

func (c *Config) joinBase(route string) string {
	if c.Base == "/" || c.Base == "" {
		return route
	}
	if route == "/" {
		return c.Base + "/"
	}
	return c.Base + route
}

func cleanRoute(route string) string {
	if route == "" {
		return "/"
	}
	return path.Clean("/" + route)
}
