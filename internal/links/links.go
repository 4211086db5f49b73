// Package links discovers outbound anchors in fetched HTML.
package links

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/scam-intel-crawler/internal/crawler"
)

// Discoverer resolves every a[href] against the page URL.
type Discoverer struct{}

// New returns a Discoverer.
func New() *Discoverer {
	return &Discoverer{}
}

// Discover returns absolute http(s) links in document order without duplicates.
func (d *Discoverer) Discover(baseURL string, body []byte) ([]string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	seen := make(map[string]struct{})
	var out []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := base.ResolveReference(ref)
		abs.Fragment = ""
		link := abs.String()
		if !crawler.IsHTTPURL(link) {
			return
		}
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		out = append(out, link)
	})
	return out, nil
}
