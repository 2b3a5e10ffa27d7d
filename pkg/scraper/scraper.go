package scraper

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-shiori/dom"
	"golang.org/x/net/html"
)

// Month is one downloadable monthly archive file discovered on an index page
type Month struct {
	URL   string
	Date  time.Time
	Label string // "2006-01", used for progress reporting
}

// monthFileRe matches pipermail-style archive files: 2024-March.txt(.gz)
var monthFileRe = regexp.MustCompile(`^(\d{4})-(\w+)\.(txt|txt\.gz)$`)

// Scraper discovers and downloads monthly mailing-list archive files
type Scraper struct {
	baseURL string
	client  *http.Client
}

// New creates a scraper for an archive index page. The timeout bounds both
// index and month downloads; monthly files can run to tens of megabytes.
func New(baseURL string, timeout time.Duration) *Scraper {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Scraper{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// DiscoverMonths fetches the index page and extracts the downloadable monthly
// archives, newest first. Anchors whose month name cannot be parsed are
// dropped with a warning.
func (s *Scraper) DiscoverMonths(ctx context.Context) ([]Month, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch archive index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("archive index returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse archive index: %w", err)
	}

	base, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, err
	}

	var months []Month
	for _, anchor := range dom.QuerySelectorAll(doc, "a") {
		href := dom.GetAttribute(anchor, "href")
		if href == "" {
			continue
		}

		m := monthFileRe.FindStringSubmatch(href)
		if m == nil {
			continue
		}

		date, err := time.Parse("January 2006", m[2]+" "+m[1])
		if err != nil {
			log.Printf("[Scraper] Could not parse date for %s: %v", href, err)
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			log.Printf("[Scraper] Could not resolve URL for %s: %v", href, err)
			continue
		}

		months = append(months, Month{
			URL:   base.ResolveReference(ref).String(),
			Date:  date,
			Label: date.Format("2006-01"),
		})
	}

	// Newest first so recent content becomes searchable soonest
	sort.Slice(months, func(i, j int) bool {
		return months[i].Date.After(months[j].Date)
	})

	log.Printf("[Scraper] Found %d downloadable archives at %s", len(months), s.baseURL)
	return months, nil
}

// FetchMonth downloads one monthly archive file and returns its text,
// decompressing gzip content when the URL indicates it. Any failure returns an
// empty string: a single missing month must not abort a whole archive sync.
func (s *Scraper) FetchMonth(ctx context.Context, monthURL string) string {
	req, err := http.NewRequestWithContext(ctx, "GET", monthURL, nil)
	if err != nil {
		log.Printf("[Scraper] Bad month URL %s: %v", monthURL, err)
		return ""
	}

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("[Scraper] Error fetching %s: %v", monthURL, err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Scraper] Fetching %s returned status %d", monthURL, resp.StatusCode)
		return ""
	}

	var reader io.Reader = resp.Body
	if strings.HasSuffix(monthURL, ".gz") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			log.Printf("[Scraper] Error decompressing %s: %v", monthURL, err)
			return ""
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		log.Printf("[Scraper] Error reading %s: %v", monthURL, err)
		return ""
	}

	log.Printf("[Scraper] Downloaded %s, size: %d bytes", monthURL, len(data))
	return string(data)
}
