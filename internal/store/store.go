package store

import (
	"sync"

	"github.com/webaudit/scanner/internal/model"
)

// In-memory id-keyed state. Jobs and reports are reached only through
// get/put-by-id; state lives for the lifetime of the process.
var (
	mu      sync.RWMutex
	jobs    map[string]model.ScanJob
	reports map[string]model.Report
)

func Init() {
	mu.Lock()
	defer mu.Unlock()
	jobs = make(map[string]model.ScanJob)
	reports = make(map[string]model.Report)
}

func SetJob(id string, job model.ScanJob) {
	mu.Lock()
	defer mu.Unlock()
	jobs[id] = job
}

func GetJob(id string) (model.ScanJob, bool) {
	mu.RLock()
	defer mu.RUnlock()
	job, ok := jobs[id]
	return job, ok
}

func SetReport(id string, report model.Report) {
	mu.Lock()
	defer mu.Unlock()
	reports[id] = report
}

func GetReport(id string) (model.Report, bool) {
	mu.RLock()
	defer mu.RUnlock()
	report, ok := reports[id]
	return report, ok
}

// AppendSqlmap appends a deep-scan run's findings to the report's
// sqlmap group. The base groups are never touched; re-running a deep
// scan appends another run.
func AppendSqlmap(id string, findings []model.SqlmapFinding) (model.Report, bool) {
	mu.Lock()
	defer mu.Unlock()
	report, ok := reports[id]
	if !ok {
		return model.Report{}, false
	}
	report.Parts.Sqlmap = append(report.Parts.Sqlmap, findings...)
	reports[id] = report
	return report, true
}
