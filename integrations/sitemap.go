package integrations

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

const (
	SitemapName = "sitemap"

	sitemapXmlns      = "http://www.sitemaps.org/schemas/sitemap/0.9"
	sitemapIndexFile  = "sitemap-index.xml"
	defaultEntryLimit = 45000
)

type Sitemap struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	Urls    []Url    `xml:"url"`
}

type Url struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

type SitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Xmlns    string         `xml:"xmlns,attr"`
	Sitemaps []SitemapEntry `xml:"sitemap"`
}

type SitemapEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// SitemapOptions are read from the integration's options block.
type SitemapOptions struct {
	// Filter excludes routes matching any of these path.Match patterns.
	Filter      []string `yaml:"filter"`
	ChangeFreq  string   `yaml:"changefreq"`
	Priority    *float64 `yaml:"priority"`
	LastMod     bool     `yaml:"lastmod"`
	EntryLimit  int      `yaml:"entry_limit"`
	CustomPages []string `yaml:"custom_pages"`
}

var changeFreqs = map[string]bool{
	"always": true, "hourly": true, "daily": true, "weekly": true,
	"monthly": true, "yearly": true, "never": true,
}

// SitemapIntegration writes sitemap-N.xml chunks and a sitemap-index.xml
// listing them.
type SitemapIntegration struct {
	opts SitemapOptions
	now  func() time.Time
}

func NewSitemap(options map[string]interface{}) (Integration, error) {
	var opts SitemapOptions
	if err := decodeOptions(options, &opts); err != nil {
		return nil, err
	}
	if opts.ChangeFreq != "" && !changeFreqs[opts.ChangeFreq] {
		return nil, errors.Errorf("invalid changefreq %q", opts.ChangeFreq)
	}
	if opts.Priority != nil && (*opts.Priority < 0 || *opts.Priority > 1) {
		return nil, errors.Errorf("priority %v must be between 0 and 1", *opts.Priority)
	}
	if opts.EntryLimit < 0 {
		return nil, errors.Errorf("entry_limit %d must not be negative", opts.EntryLimit)
	}
	if opts.EntryLimit == 0 {
		opts.EntryLimit = defaultEntryLimit
	}
	for _, pattern := range opts.Filter {
		if _, err := path.Match(pattern, "/"); err != nil {
			return nil, errors.Wrapf(err, "filter %q", pattern)
		}
	}
	for _, page := range opts.CustomPages {
		u, err := url.Parse(page)
		if err != nil || !u.IsAbs() {
			return nil, errors.Errorf("custom page %q must be an absolute URL", page)
		}
	}

	return &SitemapIntegration{opts: opts, now: time.Now}, nil
}

func (s *SitemapIntegration) Name() string { return SitemapName }

func (s *SitemapIntegration) Options() SitemapOptions { return s.opts }

func (s *SitemapIntegration) BuildDone(ctx context.Context, result *BuildResult) error {
	cfg := result.Config
	if cfg == nil || cfg.Site == "" {
		return errors.New("sitemap requires the site option to be set")
	}

	locs := s.locations(result)
	if len(locs) == 0 {
		return nil
	}

	var lastMod string
	if s.opts.LastMod {
		lastMod = s.now().UTC().Format("2006-01-02")
	}
	var priority string
	if s.opts.Priority != nil {
		priority = strconv.FormatFloat(*s.opts.Priority, 'f', -1, 64)
	}

	index := SitemapIndex{Xmlns: sitemapXmlns}
	for chunk := 0; chunk*s.opts.EntryLimit < len(locs); chunk++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min((chunk+1)*s.opts.EntryLimit, len(locs))
		sitemap := Sitemap{Xmlns: sitemapXmlns}
		for _, loc := range locs[chunk*s.opts.EntryLimit : end] {
			sitemap.Urls = append(sitemap.Urls, Url{
				Loc:        loc,
				LastMod:    lastMod,
				ChangeFreq: s.opts.ChangeFreq,
				Priority:   priority,
			})
		}

		name := fmt.Sprintf("sitemap-%d.xml", chunk)
		if err := writeXML(filepath.Join(result.OutDir, name), sitemap); err != nil {
			return err
		}
		index.Sitemaps = append(index.Sitemaps, SitemapEntry{
			Loc:     cfg.AbsoluteFileURL(name),
			LastMod: lastMod,
		})
	}

	return writeXML(filepath.Join(result.OutDir, sitemapIndexFile), index)
}

// locations returns the sorted, unique absolute URLs to list.
func (s *SitemapIntegration) locations(result *BuildResult) []string {
	seen := make(map[string]bool)
	var locs []string
	add := func(loc string) {
		if !seen[loc] {
			seen[loc] = true
			locs = append(locs, loc)
		}
	}

	for _, page := range result.Pages {
		if page.NotFound || s.excluded(page.Route) {
			continue
		}
		add(result.Config.AbsoluteURL(page.Route))
	}
	for _, page := range s.opts.CustomPages {
		add(page)
	}

	sort.Strings(locs)
	return locs
}

func (s *SitemapIntegration) excluded(route string) bool {
	for _, pattern := range s.opts.Filter {
		if ok, _ := path.Match(pattern, route); ok {
			return true
		}
	}
	return false
}

func writeXML(file string, v interface{}) error {
	xmlOutput, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	data := append([]byte(xml.Header), xmlOutput...)
	if err := os.WriteFile(file, data, 0644); err != nil {
		return errors.Wrapf(err, "writing %s", file)
	}
	return nil
}
