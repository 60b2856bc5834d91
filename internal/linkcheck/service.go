package linkcheck

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/coastalsim/docforge/internal/config"
	"github.com/coastalsim/docforge/internal/logfields"
	"github.com/coastalsim/docforge/internal/metrics"
)

const defaultMaxConcurrent = 10

// BrokenLink is a reference that does not resolve.
type BrokenLink struct {
	Page       string `json:"page"` // page path relative to the html root
	URL        string `json:"url"`
	Tag        string `json:"tag"`
	Status     int    `json:"status,omitempty"` // HTTP status for external links
	Reason     string `json:"reason"`
	IsInternal bool   `json:"is_internal"`
}

// Report summarizes a link check run over a built tree.
type Report struct {
	Pages  int           `json:"pages"`
	Links  int           `json:"links"` // links actually checked, not merely found
	Broken []*BrokenLink `json:"broken,omitempty"`
}

// Service checks links in a rendered HTML tree. Internal references are
// resolved against the filesystem; external ones are probed over HTTP when
// enabled, with results cached between runs.
type Service struct {
	cfg        *config.Config
	cache      Cache
	httpClient *http.Client
	recorder   metrics.Recorder
	linkSem    chan struct{}
}

// NewService creates a link check service. cache may be nil to disable
// external result caching, recorder may be nil.
func NewService(cfg *config.Config, cache Cache, rec metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Service{
		cfg:   cfg,
		cache: cache,
		httpClient: &http.Client{
			Timeout: cfg.LinkTimeout(),
		},
		recorder: rec,
		linkSem:  make(chan struct{}, defaultMaxConcurrent),
	}
}

// CheckTree walks the built HTML tree under root and verifies every
// reference found in its pages.
func (s *Service) CheckTree(ctx context.Context, root string) (*Report, error) {
	pages, err := findPages(root)
	if err != nil {
		return nil, err
	}
	slog.Info("Starting link check", logfields.Path(root), logfields.Count(len(pages)))

	report := &Report{Pages: len(pages)}
	var mu sync.Mutex
	var wg sync.WaitGroup

	addBroken := func(b *BrokenLink) {
		mu.Lock()
		report.Broken = append(report.Broken, b)
		mu.Unlock()
	}

	for _, page := range pages {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		default:
		}

		links, err := ExtractLinks(filepath.Join(root, page))
		if err != nil {
			slog.Warn("Failed to extract links", logfields.File(page), logfields.Error(err))
			continue
		}

		for _, link := range links {
			if !ShouldCheck(link) {
				continue
			}

			if link.IsInternal {
				report.Links++
				if reason := s.checkInternal(root, page, link.URL); reason != "" {
					addBroken(&BrokenLink{
						Page:       page,
						URL:        link.URL,
						Tag:        link.Tag,
						Reason:     reason,
						IsInternal: true,
					})
				}
				continue
			}

			if !s.cfg.Linkcheck.External {
				continue
			}
			report.Links++

			select {
			case <-ctx.Done():
				wg.Wait()
				return nil, ctx.Err()
			case s.linkSem <- struct{}{}:
			}
			wg.Add(1)
			go func(page string, link *Link) {
				defer wg.Done()
				defer func() { <-s.linkSem }()
				if status, err := s.checkExternal(ctx, link.URL); err != nil {
					addBroken(&BrokenLink{
						Page:   page,
						URL:    link.URL,
						Tag:    link.Tag,
						Status: status,
						Reason: err.Error(),
					})
				}
			}(page, link)
		}
	}

	wg.Wait()
	sortBroken(report.Broken)
	s.recorder.IncBrokenLinks(len(report.Broken))
	slog.Info("Link check finished",
		logfields.Count(report.Links), slog.Int("broken", len(report.Broken)))
	return report, nil
}

// checkInternal resolves a relative reference against the built tree.
// Returns an empty string when the target exists.
func (s *Service) checkInternal(root, page, linkURL string) string {
	u, err := url.Parse(linkURL)
	if err != nil {
		return fmt.Sprintf("unparsable reference: %v", err)
	}

	target := u.Path
	if target == "" {
		// Pure fragment or query, points at the page itself.
		return ""
	}

	var resolved string
	if path.IsAbs(target) {
		resolved = filepath.Join(root, filepath.FromSlash(strings.TrimPrefix(target, "/")))
	} else {
		resolved = filepath.Join(root, filepath.Dir(page), filepath.FromSlash(target))
	}

	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return "target does not exist"
	}
	if err != nil {
		return fmt.Sprintf("stat target: %v", err)
	}
	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(resolved, "index.html")); err != nil {
			return "directory target has no index.html"
		}
	}
	return ""
}

// checkExternal probes an external link over HTTP, consulting the cache
// first.
func (s *Service) checkExternal(ctx context.Context, linkURL string) (int, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, linkURL); err == nil && cached != nil && s.cache.Valid(cached) {
			if cached.OK {
				return cached.Status, nil
			}
			return cached.Status, fmt.Errorf("%s", cached.Reason)
		}
	}

	status, err := s.probe(ctx, linkURL)
	if s.cache != nil {
		entry := &CacheEntry{URL: linkURL, Status: status, OK: err == nil}
		if err != nil {
			entry.Reason = err.Error()
		}
		if cerr := s.cache.Set(ctx, entry); cerr != nil {
			slog.Debug("Failed to cache link result", logfields.URL(linkURL), logfields.Error(cerr))
		}
	}
	return status, err
}

func (s *Service) probe(ctx context.Context, linkURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, linkURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "docforge-linkcheck/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Auth walls mean the URL exists but needs credentials.
	if isAuthStatus(resp.StatusCode) {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return resp.StatusCode, nil
}

func isAuthStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusMethodNotAllowed:
		return true
	}
	return false
}

// findPages lists .html files under root, relative to root, sorted.
func findPages(root string) ([]string, error) {
	var pages []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".html") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		pages = append(pages, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk html tree: %w", err)
	}
	sort.Strings(pages)
	return pages, nil
}

func sortBroken(broken []*BrokenLink) {
	sort.Slice(broken, func(i, j int) bool {
		if broken[i].Page != broken[j].Page {
			return broken[i].Page < broken[j].Page
		}
		return broken[i].URL < broken[j].URL
	})
}
