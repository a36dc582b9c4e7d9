package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webaudit/scanner/internal/config"
	"github.com/webaudit/scanner/internal/model"
	"github.com/webaudit/scanner/internal/scan"
	"github.com/webaudit/scanner/internal/store"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store.Init()

	cfg := config.Config{
		MaxPagesLimit:  50,
		MaxConcurrency: 5,
		OutputDir:      t.TempDir(),
		RequestTimeout: time.Second,
		MaxBodyMB:      1,
		ScanTimeout:    5 * time.Second,
		SqlmapBin:      "sqlmap",
		SqlmapTimeout:  time.Minute,
	}

	r := gin.New()
	Register(r, scan.New(cfg))
	return r
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)
	return rec
}

func TestScanRequiresURL(t *testing.T) {
	r := testRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/scan", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeepUnknownIDIs404(t *testing.T) {
	r := testRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/scan/deep", `{"scan_id":"nope"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestDeepRequiresScanID(t *testing.T) {
	r := testRouter(t)

	rec := doJSON(r, http.MethodPost, "/api/scan/deep", `{"url":"http://t/"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusAndResultLookups(t *testing.T) {
	r := testRouter(t)

	rec := doJSON(r, http.MethodGet, "/api/scan/status/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	now := time.Now()
	store.SetJob("s1", model.ScanJob{ID: "s1", Status: model.StatusPartial, FinishedAt: &now})
	store.SetReport("s1", model.Report{ScanID: "s1", Target: "http://t/"})

	rec = doJSON(r, http.MethodGet, "/api/scan/status/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"s1"`)

	rec = doJSON(r, http.MethodGet, "/api/scan/result/s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http://t/")
}

func TestResultWhileRunningIs404(t *testing.T) {
	r := testRouter(t)

	store.SetJob("busy", model.ScanJob{ID: "busy", Status: model.StatusRunning})

	rec := doJSON(r, http.MethodGet, "/api/scan/result/busy", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
