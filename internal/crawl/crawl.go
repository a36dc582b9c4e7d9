package crawl

import (
	"bytes"
	"context"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/webaudit/scanner/internal/fetch"
	"github.com/webaudit/scanner/internal/helper"
	"github.com/webaudit/scanner/internal/model"
)

// Crawler walks a site breadth-first from the start URL, bounded by
// MaxPages visited pages and Concurrency simultaneous fetches. Only
// same-host pages are visited; cross-domain links are recorded but never
// fetched. A single page failing to fetch or parse is skipped, not
// fatal.
type Crawler struct {
	fetcher     *fetch.Client
	maxPages    int
	concurrency int
}

// Result carries every discovered URL (visited or not, in discovery
// order) plus one PageRecord per visited page.
type Result struct {
	URLs  []string
	Pages []model.PageRecord
}

func New(fetcher *fetch.Client, maxPages, concurrency int) *Crawler {
	if maxPages < 1 {
		maxPages = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Crawler{fetcher: fetcher, maxPages: maxPages, concurrency: concurrency}
}

type pageResult struct {
	record model.PageRecord
	links  []string
	err    error
}

// Crawl runs the bounded BFS. The frontier is processed wave by wave so
// the visit order stays breadth-first; fetches within a wave run
// concurrently and their link discovery may interleave.
func (c *Crawler) Crawl(ctx context.Context, startURL string) (*Result, error) {
	base, err := url.Parse(startURL)
	if err != nil {
		return nil, err
	}

	visited := make(map[string]bool)
	discovered := make(map[string]bool)
	result := &Result{}

	record := func(rawURL string) {
		key, err := helper.NormalizeURL(rawURL)
		if err != nil {
			return
		}
		if !discovered[key] {
			discovered[key] = true
			result.URLs = append(result.URLs, rawURL)
		}
	}

	record(startURL)
	frontier := []string{startURL}

	for len(frontier) > 0 && len(visited) < c.maxPages {
		var wave []string
		for _, rawURL := range frontier {
			if len(visited)+len(wave) >= c.maxPages {
				break
			}
			key, err := helper.NormalizeURL(rawURL)
			if err != nil || visited[key] {
				continue
			}
			visited[key] = true
			wave = append(wave, rawURL)
		}
		frontier = frontier[:0]
		if len(wave) == 0 {
			break
		}

		results := make([]pageResult, len(wave))
		sem := make(chan struct{}, c.concurrency)
		var wg sync.WaitGroup
		for i, rawURL := range wave {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int, pageURL string) {
				defer wg.Done()
				defer func() { <-sem }()
				results[i] = c.visit(ctx, pageURL)
			}(i, rawURL)
		}
		wg.Wait()

		for _, res := range results {
			if res.err != nil {
				log.Printf("[crawl] skipping %s: %v", res.record.URL, res.err)
				continue
			}
			result.Pages = append(result.Pages, res.record)

			for _, link := range res.links {
				linkURL, err := url.Parse(link)
				if err != nil {
					continue
				}
				record(link)
				if !helper.SameHost(base, linkURL) {
					continue
				}
				key, err := helper.NormalizeURL(link)
				if err != nil || visited[key] {
					continue
				}
				frontier = append(frontier, link)
			}
		}

		if ctx.Err() != nil {
			break
		}
	}

	return result, nil
}

func (c *Crawler) visit(ctx context.Context, pageURL string) pageResult {
	res := pageResult{record: model.PageRecord{URL: pageURL}}

	resp, err := c.fetcher.Get(ctx, pageURL)
	if err != nil {
		res.err = err
		return res
	}

	forms, links, err := extract(pageURL, resp.Body)
	if err != nil {
		res.err = err
		return res
	}
	res.record.Forms = forms
	res.links = links
	return res
}

// extract pulls anchors and forms out of one HTML document. hrefs are
// resolved against the page URL; forms keep declared input order and
// default to the page itself when the action is empty.
func extract(pageURL string, body []byte) ([]model.Form, []string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		resolved.Fragment = ""
		links = append(links, resolved.String())
	})

	var forms []model.Form
	doc.Find("form").Each(func(_ int, sel *goquery.Selection) {
		action := strings.TrimSpace(sel.AttrOr("action", ""))
		actionURL := pageURL
		if action != "" {
			if resolved, err := base.Parse(action); err == nil {
				actionURL = resolved.String()
			}
		}

		method := strings.ToLower(strings.TrimSpace(sel.AttrOr("method", "get")))
		if method == "" {
			method = "get"
		}

		var inputs []string
		seen := make(map[string]bool)
		sel.Find("input, textarea, select").Each(func(_ int, field *goquery.Selection) {
			name, ok := field.Attr("name")
			if !ok || name == "" || seen[name] {
				return
			}
			seen[name] = true
			inputs = append(inputs, name)
		})

		forms = append(forms, model.Form{URL: actionURL, Method: method, Inputs: inputs})
	})

	return forms, links, nil
}
