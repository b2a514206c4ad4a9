package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	apperrors "cpsroster/internal/errors"
)

// Link is one roster document offered by the listing page
type Link struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Lister discovers roster document URLs on the listing page
type Lister struct {
	client     *resty.Client
	listingURL string
	base       *url.URL
	filter     string
}

// NewLister creates a lister for the page at listingURL. Relative links are
// resolved against baseURL and only hrefs containing filter are kept.
func NewLister(client *resty.Client, listingURL, baseURL, filter string) (*Lister, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid base URL", err).WithContext("base_url", baseURL)
	}
	return &Lister{client: client, listingURL: listingURL, base: base, filter: filter}, nil
}

// List fetches the listing page and returns the matching document links
func (l *Lister) List(ctx context.Context) ([]Link, error) {
	resp, err := l.client.R().SetContext(ctx).Get(l.listingURL)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to fetch listing page", err).WithContext("url", l.listingURL)
	}
	if resp.IsError() {
		return nil, apperrors.NewNetworkError(fmt.Sprintf("listing page returned %s", resp.Status()), nil).
			WithContext("url", l.listingURL)
	}

	links, err := ParseLinks(bytes.NewReader(resp.Body()), l.base, l.filter)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Listed roster documents",
		slog.String("url", l.listingURL),
		slog.Int("count", len(links)))
	return links, nil
}

// ParseLinks extracts anchors whose href contains filter, in page order.
// Links are keyed by file name since each is saved under it; the first
// anchor for a name wins.
func ParseLinks(r io.Reader, base *url.URL, filter string) ([]Link, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var links []Link
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || !strings.Contains(href, filter) {
			return
		}

		u, err := resolve(base, href)
		if err != nil {
			slog.Debug("Skipping malformed link", slog.String("href", href), slog.String("error", err.Error()))
			return
		}
		name := path.Base(u.Path)
		if name == "." || name == "/" {
			return
		}

		if seen[name] {
			slog.Debug("Skipping link with a duplicate file name", slog.String("href", href), slog.String("name", name))
			return
		}
		seen[name] = true
		links = append(links, Link{URL: u.String(), Name: name})
	})
	return links, nil
}

// resolve joins site-relative hrefs beneath base; absolute URLs pass through
func resolve(base *url.URL, href string) (*url.URL, error) {
	u, err := url.Parse(href)
	if err != nil {
		return nil, err
	}
	if u.IsAbs() {
		return u, nil
	}

	joined := *base
	joined.Path = strings.TrimRight(base.Path, "/") + "/" + strings.TrimLeft(u.Path, "/")
	joined.RawPath = ""
	joined.RawQuery = u.RawQuery
	joined.Fragment = ""
	return &joined, nil
}
