package scan

import (
	"context"
	"errors"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webaudit/scanner/internal/config"
	"github.com/webaudit/scanner/internal/crawl"
	"github.com/webaudit/scanner/internal/fetch"
	"github.com/webaudit/scanner/internal/helper"
	"github.com/webaudit/scanner/internal/model"
	"github.com/webaudit/scanner/internal/probe"
	"github.com/webaudit/scanner/internal/report"
	"github.com/webaudit/scanner/internal/sqlmap"
	"github.com/webaudit/scanner/internal/store"
	"github.com/webaudit/scanner/internal/tester"
)

var (
	// ErrScanNotFound covers both an unknown identifier and a base scan
	// that never completed; the caller sees one not-found condition.
	ErrScanNotFound = errors.New("scan not found")
	// ErrSqlmapActive rejects a second deep run for an identifier whose
	// first run is still in flight.
	ErrSqlmapActive = errors.New("deep scan already running for this id")
)

// runDeepTool is stubbed in tests.
var runDeepTool = func(r *sqlmap.Runner, ctx context.Context, args []string) (string, error) {
	return r.Run(ctx, args)
}

// Orchestrator owns the two-phase workflow. Phase 1 (base) crawls the
// target and fans out the independent probes and testers; phase 2
// (deep) is a separate invocation keyed by the base scan's identifier.
type Orchestrator struct {
	cfg     config.Config
	fetcher *fetch.Client
	runner  *sqlmap.Runner

	activeDeep struct {
		sync.Mutex
		ids map[string]bool
	}
}

func New(cfg config.Config) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		fetcher: fetch.NewClient(cfg.RequestTimeout, cfg.RateLimit, cfg.RetryAttempts, cfg.MaxBodyMB),
		runner:  sqlmap.NewRunner(cfg.SqlmapBin, cfg.SqlmapTimeout),
	}
	o.activeDeep.ids = make(map[string]bool)
	return o
}

// BaseRequest is a validated-on-entry phase-1 request.
type BaseRequest struct {
	URL         string
	MaxPages    int
	Concurrency int
}

// RunBase executes phase 1: ports, headers and the crawl run
// concurrently; the parameter testers start as soon as the crawl
// delivers its page records. Individual failures degrade their own part
// only; the job always finishes with a usable report in state partial.
func (o *Orchestrator) RunBase(ctx context.Context, req BaseRequest) (model.ScanJob, model.Report, error) {
	maxPages, concurrency, err := helper.ClampScanBounds(
		req.URL, req.MaxPages, req.Concurrency, o.cfg.MaxPagesLimit, o.cfg.MaxConcurrency)
	if err != nil {
		return model.ScanJob{}, model.Report{}, err
	}

	job := model.ScanJob{
		ID:          uuid.New().String(),
		Target:      req.URL,
		MaxPages:    maxPages,
		Concurrency: concurrency,
		CreatedAt:   time.Now(),
		Status:      model.StatusRunning,
	}
	store.SetJob(job.ID, job)
	log.Printf("[scan] %s: base scan started for %s (pages=%d, conc=%d)", job.ID, req.URL, maxPages, concurrency)

	scanCtx, cancel := context.WithTimeout(ctx, o.cfg.ScanTimeout)
	defer cancel()

	parsed, _ := url.Parse(req.URL)
	host := parsed.Hostname()

	var (
		portsPart   model.PortsPart
		headersPart model.HeadersPart
		crawlPart   model.CrawlPart
		xssFindings []model.XSSFinding
		sqliResults []model.SQLiFinding
	)

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		portsPart.TCP = probe.ScanPorts(scanCtx, host, o.cfg.Ports, time.Second)
	}()

	go func() {
		defer wg.Done()
		headersPart = probe.CheckHeaders(scanCtx, o.fetcher, req.URL)
	}()

	go func() {
		defer wg.Done()

		crawler := crawl.New(o.fetcher, maxPages, concurrency)
		result, err := crawler.Crawl(scanCtx, req.URL)
		if err != nil {
			log.Printf("[scan] %s: crawl failed: %v", job.ID, err)
			crawlPart = model.CrawlPart{URLs: []string{}, Error: err.Error()}
			return
		}
		crawlPart = model.CrawlPart{URLs: result.URLs, Pages: result.Pages}

		// Testers consume whatever page records the crawl produced, in
		// no particular order.
		var testWg sync.WaitGroup
		testWg.Add(2)
		go func() {
			defer testWg.Done()
			xssFindings = tester.NewXSSTester(o.fetcher, concurrency).Scan(scanCtx, result.Pages)
		}()
		go func() {
			defer testWg.Done()
			sqliResults = tester.NewSQLiTester(o.fetcher, concurrency).Scan(scanCtx, result.Pages)
		}()
		testWg.Wait()
	}()

	wg.Wait()

	if xssFindings == nil {
		xssFindings = []model.XSSFinding{}
	}
	if sqliResults == nil {
		sqliResults = []model.SQLiFinding{}
	}
	if crawlPart.URLs == nil {
		crawlPart.URLs = []string{}
	}

	now := time.Now()
	job.Status = model.StatusPartial
	job.FinishedAt = &now

	rep := model.Report{
		ScanID:    job.ID,
		Target:    req.URL,
		Generated: now,
		Path:      report.Path(o.cfg.OutputDir, req.URL, now),
		Parts: model.Parts{
			Ports:   portsPart,
			Crawl:   crawlPart,
			Headers: headersPart,
			XSS:     xssFindings,
			SQLi:    sqliResults,
		},
	}

	if err := report.Write(rep.Path, rep.Target, rep.Generated, rep.Parts); err != nil {
		log.Printf("[scan] %s: report write failed: %v", job.ID, err)
	}

	store.SetReport(job.ID, rep)
	store.SetJob(job.ID, job)
	log.Printf("[scan] %s: base scan finished (%d urls, %d xss, %d sqli)",
		job.ID, len(crawlPart.URLs), len(xssFindings), len(sqliResults))

	return job, rep, nil
}

// RunDeep executes phase 2 for an existing base scan. Unknown ids and
// ids whose base scan is still running are rejected as not found. Only
// one deep run may be in flight per id; a finished id may be re-run,
// appending another batch of findings.
func (o *Orchestrator) RunDeep(ctx context.Context, id string, args *sqlmap.Args) ([]model.SqlmapFinding, error) {
	job, ok := store.GetJob(id)
	if !ok || job.Status == model.StatusRunning {
		return nil, ErrScanNotFound
	}
	rep, ok := store.GetReport(id)
	if !ok {
		return nil, ErrScanNotFound
	}

	o.activeDeep.Lock()
	if o.activeDeep.ids[id] {
		o.activeDeep.Unlock()
		return nil, ErrSqlmapActive
	}
	o.activeDeep.ids[id] = true
	o.activeDeep.Unlock()
	defer func() {
		o.activeDeep.Lock()
		delete(o.activeDeep.ids, id)
		o.activeDeep.Unlock()
	}()

	var forms []model.Form
	for _, page := range rep.Parts.Crawl.Pages {
		forms = append(forms, page.Forms...)
	}

	cmdArgs, err := sqlmap.BuildCommandArgs(job.Target, args, forms)
	if err != nil {
		return nil, err
	}

	log.Printf("[scan] %s: deep scan started", id)
	output, err := runDeepTool(o.runner, ctx, cmdArgs)
	if err != nil {
		job.Status = model.StatusFailed
		store.SetJob(id, job)
		log.Printf("[scan] %s: deep scan failed: %v", id, err)
		return nil, err
	}

	findings := sqlmap.ParseOutput(output)
	for i := range findings {
		findings[i].URL = job.Target
	}

	merged, _ := store.AppendSqlmap(id, findings)
	job.Status = model.StatusComplete
	store.SetJob(id, job)

	if err := report.Write(merged.Path, merged.Target, merged.Generated, merged.Parts); err != nil {
		log.Printf("[scan] %s: report rewrite failed: %v", id, err)
	}

	log.Printf("[scan] %s: deep scan finished (%d findings)", id, len(findings))
	return findings, nil
}

// RunFull chains both phases in one call for the single-phase endpoint.
func (o *Orchestrator) RunFull(ctx context.Context, req BaseRequest, runSqlmap bool, args *sqlmap.Args) (model.ScanJob, model.Report, error) {
	job, rep, err := o.RunBase(ctx, req)
	if err != nil {
		return job, rep, err
	}
	if !runSqlmap || !o.cfg.UseSqlmap {
		return job, rep, nil
	}

	job.RunSqlmap = true
	store.SetJob(job.ID, job)

	if _, err := o.RunDeep(ctx, job.ID, args); err != nil {
		return job, rep, err
	}

	merged, _ := store.GetReport(job.ID)
	finished, _ := store.GetJob(job.ID)
	return finished, merged, nil
}
