package scan

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webaudit/scanner/internal/config"
	"github.com/webaudit/scanner/internal/model"
	"github.com/webaudit/scanner/internal/sqlmap"
	"github.com/webaudit/scanner/internal/store"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		MaxPagesLimit:  50,
		MaxConcurrency: 5,
		OutputDir:      t.TempDir(),
		RequestTimeout: 5 * time.Second,
		RetryAttempts:  0,
		MaxBodyMB:      1,
		ScanTimeout:    30 * time.Second,
		SqlmapBin:      "sqlmap",
		SqlmapTimeout:  time.Minute,
		UseSqlmap:      true,
	}
}

// closedPort reserves a free port and releases it, so nothing listens
// there for the duration of the test.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func stubDeepTool(t *testing.T, fn func(ctx context.Context, args []string) (string, error)) {
	t.Helper()
	orig := runDeepTool
	runDeepTool = func(_ *sqlmap.Runner, ctx context.Context, args []string) (string, error) {
		return fn(ctx, args)
	}
	t.Cleanup(func() { runDeepTool = orig })
}

func TestRunBaseEndToEnd(t *testing.T) {
	store.Init()

	// One reachable page linking to /x?id=1, no Strict-Transport-Security
	// header, stable bodies everywhere.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if strings.HasPrefix(r.URL.Path, "/x") {
			fmt.Fprint(w, "<html><body>item detail page</body></html>")
			return
		}
		fmt.Fprint(w, `<html><body><a href="/x?id=1">item</a></body></html>`)
	}))
	defer srv.Close()

	parsed, err := url.Parse(srv.URL)
	require.NoError(t, err)
	openPort, err := strconv.Atoi(parsed.Port())
	require.NoError(t, err)
	deadPort := closedPort(t)

	cfg := testConfig(t)
	cfg.Ports = []int{openPort, deadPort}

	job, rep, err := New(cfg).RunBase(context.Background(), BaseRequest{URL: srv.URL})
	require.NoError(t, err)

	assert.Equal(t, model.StatusPartial, job.Status)
	require.NotNil(t, job.FinishedAt)

	assert.True(t, rep.Parts.Ports.TCP[openPort], "listening port reported open")
	assert.False(t, rep.Parts.Ports.TCP[deadPort], "released port reported closed")

	assert.Contains(t, rep.Parts.Headers.Missing, "Strict-Transport-Security")
	assert.NotContains(t, rep.Parts.Headers.Missing, "X-Frame-Options")

	var sawLink bool
	for _, u := range rep.Parts.Crawl.URLs {
		if strings.Contains(u, "/x?id=1") {
			sawLink = true
		}
	}
	assert.True(t, sawLink, "discovered link must be recorded, got %v", rep.Parts.Crawl.URLs)

	assert.Empty(t, rep.Parts.XSS, "stable bodies must not be flagged for reflection")
	assert.Empty(t, rep.Parts.SQLi, "stable bodies must not be flagged for injection")

	// the job and report are retrievable by id, and the file exists
	stored, ok := store.GetReport(job.ID)
	require.True(t, ok)
	assert.Equal(t, rep.Path, stored.Path)
	assert.Equal(t, cfg.OutputDir, filepath.Dir(rep.Path))
}

func TestRunBaseRejectsBadTarget(t *testing.T) {
	store.Init()

	_, _, err := New(testConfig(t)).RunBase(context.Background(), BaseRequest{URL: "ftp://example.com"})
	assert.Error(t, err)

	_, _, err = New(testConfig(t)).RunBase(context.Background(), BaseRequest{URL: ""})
	assert.Error(t, err)
}

func seedFinishedScan(t *testing.T, cfg config.Config, id string) {
	t.Helper()
	now := time.Now()
	store.SetJob(id, model.ScanJob{
		ID:         id,
		Target:     "http://target.example/",
		Status:     model.StatusPartial,
		CreatedAt:  now,
		FinishedAt: &now,
	})
	store.SetReport(id, model.Report{
		ScanID:    id,
		Target:    "http://target.example/",
		Generated: now,
		Path:      filepath.Join(cfg.OutputDir, "report_seed.json"),
		Parts: model.Parts{
			Crawl: model.CrawlPart{
				URLs: []string{"http://target.example/"},
				Pages: []model.PageRecord{{
					URL: "http://target.example/login",
					Forms: []model.Form{
						{URL: "http://target.example/login", Method: "post", Inputs: []string{"user", "pass"}},
					},
				}},
			},
			XSS:  []model.XSSFinding{},
			SQLi: []model.SQLiFinding{},
		},
	})
}

func TestRunDeepUnknownID(t *testing.T) {
	store.Init()

	_, err := New(testConfig(t)).RunDeep(context.Background(), "no-such-id", nil)
	assert.ErrorIs(t, err, ErrScanNotFound)
}

func TestRunDeepRunningBaseIsNotFound(t *testing.T) {
	store.Init()
	store.SetJob("busy", model.ScanJob{ID: "busy", Status: model.StatusRunning})

	_, err := New(testConfig(t)).RunDeep(context.Background(), "busy", nil)
	assert.ErrorIs(t, err, ErrScanNotFound)
}

func TestRunDeepAppendsFindings(t *testing.T) {
	store.Init()
	cfg := testConfig(t)
	seedFinishedScan(t, cfg, "s1")

	var gotArgs []string
	stubDeepTool(t, func(_ context.Context, args []string) (string, error) {
		gotArgs = args
		return "[10:00:00] [INFO] GET parameter 'id' is vulnerable", nil
	})

	o := New(cfg)
	findings, err := o.RunDeep(context.Background(), "s1", nil)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "http://target.example/", findings[0].URL)

	joined := strings.Join(gotArgs, " ")
	assert.Contains(t, joined, "--batch")
	assert.Contains(t, joined, "--data user=test&pass=test", "crawled POST form feeds the tool")

	job, _ := store.GetJob("s1")
	assert.Equal(t, model.StatusComplete, job.Status)

	// a re-run appends a second batch
	stubDeepTool(t, func(_ context.Context, _ []string) (string, error) {
		return "[10:05:00] [INFO] POST parameter 'user' is vulnerable", nil
	})
	_, err = o.RunDeep(context.Background(), "s1", nil)
	require.NoError(t, err)

	rep, _ := store.GetReport("s1")
	assert.Len(t, rep.Parts.Sqlmap, 2)
}

func TestRunDeepToolFailureMarksJobFailed(t *testing.T) {
	store.Init()
	cfg := testConfig(t)
	seedFinishedScan(t, cfg, "s2")

	stubDeepTool(t, func(_ context.Context, _ []string) (string, error) {
		return "", sqlmap.ErrTimeout
	})

	_, err := New(cfg).RunDeep(context.Background(), "s2", nil)
	assert.ErrorIs(t, err, sqlmap.ErrTimeout)

	job, _ := store.GetJob("s2")
	assert.Equal(t, model.StatusFailed, job.Status)
}

func TestRunDeepRejectsInvalidArgs(t *testing.T) {
	store.Init()
	cfg := testConfig(t)
	seedFinishedScan(t, cfg, "s3")

	_, err := New(cfg).RunDeep(context.Background(), "s3", &sqlmap.Args{Level: 9})
	assert.ErrorIs(t, err, sqlmap.ErrBadArgument)
}

func TestRunDeepSingleFlightPerID(t *testing.T) {
	store.Init()
	cfg := testConfig(t)
	seedFinishedScan(t, cfg, "s4")

	started := make(chan struct{})
	release := make(chan struct{})
	stubDeepTool(t, func(_ context.Context, _ []string) (string, error) {
		close(started)
		<-release
		return "", nil
	})

	o := New(cfg)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = o.RunDeep(context.Background(), "s4", nil)
	}()

	<-started
	_, err := o.RunDeep(context.Background(), "s4", nil)
	assert.ErrorIs(t, err, ErrSqlmapActive)

	close(release)
	wg.Wait()

	// once the first run drains, the id accepts another deep run
	stubDeepTool(t, func(_ context.Context, _ []string) (string, error) { return "", nil })
	_, err = o.RunDeep(context.Background(), "s4", nil)
	assert.NoError(t, err)
}
