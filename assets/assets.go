package assets

import (
	"context"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abhivaikar/seed-static-site/config"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Stylesheet is a compiled stylesheet target. Inline sheets are embedded in
// the page and never written to disk.
type Stylesheet struct {
	Name   string
	Href   string
	CSS    string
	Inline bool
}

// Manifest maps target names to what pages need to reference them.
type Manifest struct {
	Scripts     map[string]string
	Stylesheets map[string]Stylesheet
}

var engines = []api.Engine{
	{Name: api.EngineChrome, Version: "100"},
	{Name: api.EngineFirefox, Version: "100"},
	{Name: api.EngineSafari, Version: "15"},
	{Name: api.EngineEdge, Version: "100"},
}

var fileLoaders = map[string]api.Loader{
	".png":   api.LoaderFile,
	".jpg":   api.LoaderFile,
	".jpeg":  api.LoaderFile,
	".gif":   api.LoaderFile,
	".svg":   api.LoaderFile,
	".webp":  api.LoaderFile,
	".woff":  api.LoaderFile,
	".woff2": api.LoaderFile,
	".ttf":   api.LoaderFile,
}

// Compile bundles every javascript and stylesheet target of cfg into
// cfg.AssetsDir().
func Compile(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Manifest, error) {
	manifest := &Manifest{
		Scripts:     make(map[string]string, len(cfg.JavascriptTargets)),
		Stylesheets: make(map[string]Stylesheet, len(cfg.Stylesheets)),
	}
	if len(cfg.JavascriptTargets) == 0 && len(cfg.Stylesheets) == 0 {
		return manifest, nil
	}

	outDir, err := filepath.Abs(cfg.AssetsDir())
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := os.MkdirAll(outDir, os.ModePerm); err != nil {
		return nil, errors.WithStack(err)
	}
	publicPath := strings.TrimSuffix(cfg.AssetURL(""), "/")

	for _, name := range sortedKeys(cfg.JavascriptTargets) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := cfg.JavascriptTargets[name]
		result := api.Build(api.BuildOptions{
			EntryPoints:       []string{target.Source},
			Bundle:            true,
			MinifyWhitespace:  true,
			MinifyIdentifiers: true,
			MinifySyntax:      true,
			Engines:           engines,
			Loader:            fileLoaders,
			Sourcemap:         api.SourceMapExternal,
			Write:             false,
			Outdir:            outDir,
			PublicPath:        publicPath,
			LogLevel:          api.LogLevelSilent,
		})
		if len(result.Errors) > 0 {
			return nil, buildError(name, result.Errors)
		}

		emitted, err := writeOutputs(result.OutputFiles, ".js", true)
		if err != nil {
			return nil, errors.Wrapf(err, "javascript target %s", name)
		}
		if emitted == "" {
			return nil, errors.Errorf("javascript target %s produced no .js output", name)
		}

		manifest.Scripts[name] = cfg.AssetURL(emitted)
		log.Debug().Str("target", name).Str("file", emitted).Msg("compiled javascript")
	}

	for _, name := range sortedKeys(cfg.Stylesheets) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target := cfg.Stylesheets[name]
		result := api.Build(api.BuildOptions{
			EntryPoints:      []string{target.Source},
			Bundle:           true,
			MinifyWhitespace: true,
			MinifySyntax:     true,
			Engines:          engines,
			Loader:           fileLoaders,
			Write:            false,
			Outdir:           outDir,
			PublicPath:       publicPath,
			LogLevel:         api.LogLevelSilent,
		})
		if len(result.Errors) > 0 {
			return nil, buildError(name, result.Errors)
		}

		var css *api.OutputFile
		var rest []api.OutputFile
		for i, out := range result.OutputFiles {
			if css == nil && strings.EqualFold(filepath.Ext(out.Path), ".css") {
				css = &result.OutputFiles[i]
				continue
			}
			rest = append(rest, out)
		}
		if css == nil {
			return nil, errors.Errorf("stylesheet %s produced no .css output", name)
		}

		// Files the stylesheet references are emitted whatever the policy.
		if _, err := writeOutputs(rest, "", false); err != nil {
			return nil, errors.Wrapf(err, "stylesheet %s", name)
		}

		contents := strings.TrimSpace(string(css.Contents))
		sheet := Stylesheet{
			Name:   name,
			CSS:    contents,
			Inline: cfg.Build.InlineStylesheets.ShouldInline(len(contents), cfg.Build.InlineLimit),
		}
		if !sheet.Inline {
			emitted, err := writeOutputs([]api.OutputFile{*css}, ".css", true)
			if err != nil {
				return nil, errors.Wrapf(err, "stylesheet %s", name)
			}
			if emitted == "" {
				return nil, errors.Errorf("stylesheet %s produced no .css output", name)
			}
			sheet.Href = cfg.AssetURL(emitted)
		}

		manifest.Stylesheets[name] = sheet
		log.Debug().Str("target", name).Bool("inline", sheet.Inline).Int("bytes", len(contents)).Msg("compiled stylesheet")
	}

	return manifest, nil
}

// HeadTags renders the tags a page needs for the given stylesheet and
// script targets. Unknown names are skipped.
func (m *Manifest) HeadTags(stylesheets, scripts []string) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, name := range stylesheets {
		sheet, ok := m.Stylesheets[name]
		if !ok {
			continue
		}
		if sheet.Inline {
			b.WriteString("<style>")
			b.WriteString(sheet.CSS)
			b.WriteString("</style>")
			continue
		}
		fmt.Fprintf(&b, `<link rel="stylesheet" href="%s">`, html.EscapeString(sheet.Href))
	}
	for _, name := range scripts {
		src, ok := m.Scripts[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, html.EscapeString(src))
	}
	return b.String()
}

// writeOutputs writes esbuild outputs to disk. With hashed set, outputs
// ending in primaryExt are renamed to name_hash.ext and their source maps
// follow; the returned name is the renamed primary output. Other outputs
// keep the names esbuild gave them since the bundle refers to those.
func writeOutputs(outputs []api.OutputFile, primaryExt string, hashed bool) (string, error) {
	var regularFiles []api.OutputFile
	var mapFiles []api.OutputFile
	for _, out := range outputs {
		if strings.EqualFold(filepath.Ext(out.Path), ".map") {
			mapFiles = append(mapFiles, out)
		} else {
			regularFiles = append(regularFiles, out)
		}
	}

	// Sources first so their maps can find the hash.
	sortedFiles := append(regularFiles, mapFiles...)
	srcToHash := make(map[string]string)
	var primary string

	for _, out := range sortedFiles {
		dir := filepath.Dir(out.Path)
		name := filepath.Base(out.Path)
		contents := out.Contents

		ext, stem := splitExt(name, primaryExt)
		isPrimary := hashed && strings.EqualFold(ext, primaryExt)
		isMap := hashed && strings.EqualFold(ext, primaryExt+".map")

		if isPrimary || isMap {

			var hash string
			if isMap {
				hash = srcToHash[stem]
				if hash == "" {
					return "", errors.Errorf("source map %s can not find hash for its source file", stem)
				}
			} else {
				hash = strings.NewReplacer("/", "", "+", "", "=", "").Replace(out.Hash)
				srcToHash[stem] = hash
			}
			name = fmt.Sprintf("%s_%s%s", stem, hash, ext)

			if isPrimary {
				primary = name
				if len(mapFiles) > 0 {
					srcMap := fmt.Sprintf("//# sourceMappingURL=%s.map", name)
					contents = append(append([]byte{}, contents...), srcMap...)
				}
			}
		}

		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return "", errors.WithStack(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), contents, 0644); err != nil {
			return "", errors.WithStack(err)
		}
	}

	return primary, nil
}

// splitExt splits name into its extension and stem. A source map of a
// primaryExt output keeps both suffixes, so "app.min.js.map" splits into
// ".js.map" and "app.min".
func splitExt(name, primaryExt string) (string, string) {
	ext := filepath.Ext(name)
	if strings.EqualFold(ext, ".map") {
		inner := strings.TrimSuffix(name, ext)
		if innerExt := filepath.Ext(inner); innerExt != "" && strings.EqualFold(innerExt, primaryExt) {
			ext = innerExt + ext
		}
	}
	return ext, strings.TrimSuffix(name, ext)
}

func buildError(target string, msgs []api.Message) error {
	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		if m.Location != nil {
			parts = append(parts, fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text))
			continue
		}
		parts = append(parts, m.Text)
	}
	return errors.Errorf("bundling %s: %s", target, strings.Join(parts, "; "))
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
