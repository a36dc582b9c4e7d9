package tester

import (
	"context"
	"log"
	"net/url"
	"sync"

	"github.com/webaudit/scanner/internal/fetch"
	"github.com/webaudit/scanner/internal/model"
)

const defaultSQLiThreshold = 0.90

// Differential payloads: a syntax-breaking quote pair, a classic
// always-true clause, and a boolean true/false pair. Each is appended to
// the parameter's existing value so the backend sees original+payload.
var sqliPayloads = []string{
	"'",
	"\"",
	" OR 1=1 -- ",
	"' AND '1'='1",
	"' AND '1'='2",
}

// SQLiTester probes each URL parameter with differential payloads and
// compares the response against an unmodified baseline. A payload
// response is suspect when its normalized similarity to the baseline
// drops below the threshold, or when its status moves into 4xx/5xx
// while the baseline's did not. The conditions are independent ORs.
type SQLiTester struct {
	fetcher     *fetch.Client
	concurrency int
	threshold   float64
}

func NewSQLiTester(fetcher *fetch.Client, concurrency int) *SQLiTester {
	if concurrency < 1 {
		concurrency = 1
	}
	return &SQLiTester{
		fetcher:     fetcher,
		concurrency: concurrency,
		threshold:   defaultSQLiThreshold,
	}
}

type sqliTarget struct {
	pageURL string
	param   string
}

// Scan tests every discovered URL parameter with bounded concurrency.
// One finding per parameter at most; a parameter whose requests fail
// yields nothing.
func (t *SQLiTester) Scan(ctx context.Context, pages []model.PageRecord) []model.SQLiFinding {
	var targets []sqliTarget
	for _, page := range pages {
		parsed, err := url.Parse(page.URL)
		if err != nil {
			continue
		}
		for param := range parsed.Query() {
			targets = append(targets, sqliTarget{pageURL: page.URL, param: param})
		}
	}
	if len(targets) == 0 {
		return nil
	}

	findings := make([]*model.SQLiFinding, len(targets))
	sem := make(chan struct{}, t.concurrency)
	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, target sqliTarget) {
			defer wg.Done()
			defer func() { <-sem }()
			findings[i] = t.testParam(ctx, target.pageURL, target.param)
		}(i, target)
	}
	wg.Wait()

	var out []model.SQLiFinding
	for _, finding := range findings {
		if finding != nil {
			out = append(out, *finding)
		}
	}
	return out
}

// testParam fetches the baseline once, then tries each payload until
// one trips the differential check.
func (t *SQLiTester) testParam(ctx context.Context, pageURL, param string) *model.SQLiFinding {
	baseResp, err := t.fetcher.Get(ctx, pageURL)
	if err != nil {
		log.Printf("[sqli] baseline failed for %s: %v", pageURL, err)
		return nil
	}
	baseline := normalizeHTML(baseResp.BodyText())
	baseStatus := baseResp.StatusCode

	for _, payload := range sqliPayloads {
		target, ok := appendParam(pageURL, param, payload)
		if !ok {
			continue
		}

		resp, err := t.fetcher.Get(ctx, target)
		if err != nil {
			log.Printf("[sqli] request failed for %s: %v", target, err)
			continue
		}

		sim := similarity(baseline, normalizeHTML(resp.BodyText()))
		statusShift := resp.StatusCode >= 400 && baseStatus < 400

		if sim < t.threshold || statusShift {
			return &model.SQLiFinding{
				URL:        target,
				Param:      param,
				Payload:    payload,
				Suspected:  true,
				Status:     resp.StatusCode,
				Similarity: sim,
			}
		}
	}

	return nil
}

// appendParam appends the payload to the parameter's current value,
// keeping every other parameter intact.
func appendParam(rawURL, param, payload string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	query := parsed.Query()
	query.Set(param, query.Get(param)+payload)
	parsed.RawQuery = query.Encode()
	return parsed.String(), true
}
