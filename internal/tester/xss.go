package tester

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/webaudit/scanner/internal/fetch"
	"github.com/webaudit/scanner/internal/model"
)

const defaultXSSRetries = 2

// XSSTester injects a unique marker into every discovered URL parameter
// and form input, then looks for the marker reflected in the response.
// Reflection counts when the raw marker appears verbatim or when the
// normalized marker survives normalization of the body; the latter
// catches encoded-safe reflection, which stays non-verbatim.
type XSSTester struct {
	fetcher     *fetch.Client
	concurrency int
	retries     int
}

func NewXSSTester(fetcher *fetch.Client, concurrency int) *XSSTester {
	if concurrency < 1 {
		concurrency = 1
	}
	return &XSSTester{
		fetcher:     fetcher,
		concurrency: concurrency,
		retries:     defaultXSSRetries,
	}
}

func newMarker() string {
	return fmt.Sprintf("__WS__%s__", strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

type xssTarget struct {
	pageURL string
	param   string
	form    *model.Form
}

// Scan fans out over every parameter with bounded concurrency. A failed
// request drops that parameter silently; only reflected parameters
// produce findings, at most one each.
func (t *XSSTester) Scan(ctx context.Context, pages []model.PageRecord) []model.XSSFinding {
	var targets []xssTarget
	for _, page := range pages {
		parsed, err := url.Parse(page.URL)
		if err != nil {
			continue
		}
		for param := range parsed.Query() {
			targets = append(targets, xssTarget{pageURL: page.URL, param: param})
		}
		for i := range page.Forms {
			form := page.Forms[i]
			if strings.EqualFold(form.Method, "post") {
				targets = append(targets, xssTarget{form: &form})
				continue
			}
			for _, input := range form.Inputs {
				targets = append(targets, xssTarget{pageURL: form.URL, param: input})
			}
		}
	}
	if len(targets) == 0 {
		return nil
	}

	findings := make([]*model.XSSFinding, len(targets))
	sem := make(chan struct{}, t.concurrency)
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, target xssTarget) {
			defer wg.Done()
			defer func() { <-sem }()
			if target.form != nil {
				findings[i] = t.testForm(ctx, *target.form)
			} else {
				findings[i] = t.testGetParam(ctx, target.pageURL, target.param)
			}
		}(i, target)
	}
	wg.Wait()

	var out []model.XSSFinding
	for _, finding := range findings {
		if finding != nil {
			out = append(out, *finding)
		}
	}
	return out
}

// testGetParam substitutes the marker for one query parameter and
// resubmits via GET. The injected request is retried a bounded number
// of times; the lowest observed similarity is kept as evidence.
func (t *XSSTester) testGetParam(ctx context.Context, pageURL, param string) *model.XSSFinding {
	marker := newMarker()
	target, ok := injectParam(pageURL, param, marker)
	if !ok {
		return nil
	}

	baseline := ""
	if resp, err := t.fetcher.Get(ctx, pageURL); err == nil {
		baseline = resp.BodyText()
	}

	bestSim := 1.0
	bestBody := ""
	lastStatus := 0
	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err := t.fetcher.Get(ctx, target)
		if err != nil {
			log.Printf("[xss] request failed for %s param %q: %v", pageURL, param, err)
			return nil
		}
		body := resp.BodyText()
		lastStatus = resp.StatusCode

		if strings.Contains(body, marker) {
			return &model.XSSFinding{
				URL:        target,
				Param:      param,
				Marker:     marker,
				Reflected:  true,
				Verbatim:   true,
				Status:     lastStatus,
				Similarity: similarity(normalizeHTML(baseline), normalizeHTML(body)),
			}
		}

		sim := similarity(normalizeHTML(baseline), normalizeHTML(body))
		if sim < bestSim {
			bestSim = sim
			bestBody = body
		}
	}

	return t.judge(target, param, marker, bestBody, bestSim, lastStatus)
}

// testForm submits the form with every input set to the marker. GET
// forms go through testGetParam per input; this path handles POST.
func (t *XSSTester) testForm(ctx context.Context, form model.Form) *model.XSSFinding {
	if len(form.Inputs) == 0 {
		return nil
	}

	marker := newMarker()
	data := url.Values{}
	for _, input := range form.Inputs {
		data.Set(input, marker)
	}

	baseline := ""
	if resp, err := t.fetcher.Get(ctx, form.URL); err == nil {
		baseline = resp.BodyText()
	}

	bestSim := 1.0
	bestBody := ""
	lastStatus := 0
	for attempt := 0; attempt <= t.retries; attempt++ {
		resp, err := t.fetcher.PostForm(ctx, form.URL, data)
		if err != nil {
			log.Printf("[xss] form post failed for %s: %v", form.URL, err)
			return nil
		}
		body := resp.BodyText()
		lastStatus = resp.StatusCode

		if strings.Contains(body, marker) {
			return &model.XSSFinding{
				URL:        form.URL,
				Param:      strings.Join(form.Inputs, ","),
				Marker:     marker,
				Reflected:  true,
				Verbatim:   true,
				Status:     lastStatus,
				Similarity: similarity(normalizeHTML(baseline), normalizeHTML(body)),
			}
		}

		sim := similarity(normalizeHTML(baseline), normalizeHTML(body))
		if sim < bestSim {
			bestSim = sim
			bestBody = body
		}
	}

	return t.judge(form.URL, strings.Join(form.Inputs, ","), marker, bestBody, bestSim, lastStatus)
}

// judge decides after the retry loop: reflection means the normalized
// marker survived into the normalized body. Encoded-but-contained
// markers count as reflected, just not verbatim. The best (lowest)
// similarity rides along as evidence.
func (t *XSSTester) judge(target, param, marker, body string, sim float64, status int) *model.XSSFinding {
	if !strings.Contains(normalizeHTML(body), strings.ToLower(marker)) {
		return nil
	}
	return &model.XSSFinding{
		URL:        target,
		Param:      param,
		Marker:     marker,
		Reflected:  true,
		Verbatim:   false,
		Status:     status,
		Similarity: sim,
	}
}

// injectParam sets one query parameter on a URL, keeping the rest.
func injectParam(rawURL, param, value string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	query := parsed.Query()
	query.Set(param, value)
	parsed.RawQuery = query.Encode()
	return parsed.String(), true
}
