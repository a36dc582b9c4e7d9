package model

import "time"

type ScanStatus string

const (
	StatusRunning  ScanStatus = "running"
	StatusPartial  ScanStatus = "partial"
	StatusComplete ScanStatus = "complete"
	StatusFailed   ScanStatus = "failed"
)

// ScanJob is the orchestrator-owned record of one base scan. IDs are
// single-use: a second base scan of the same target gets a fresh ID.
type ScanJob struct {
	ID          string     `json:"id"`
	Target      string     `json:"target"`
	MaxPages    int        `json:"max_pages"`
	Concurrency int        `json:"concurrency"`
	RunSqlmap   bool       `json:"run_sqlmap"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Status      ScanStatus `json:"status"`
}

// Form is one HTML form discovered by the crawler. Inputs keeps the
// declared field order.
type Form struct {
	URL    string   `json:"url"`
	Method string   `json:"method"`
	Inputs []string `json:"inputs"`
}

// PageRecord is a visited page plus its extracted forms. Records are
// read-only once the crawl returns them.
type PageRecord struct {
	URL   string `json:"url"`
	Forms []Form `json:"forms,omitempty"`
}

type CrawlPart struct {
	URLs  []string     `json:"urls"`
	Pages []PageRecord `json:"pages,omitempty"`
	Error string       `json:"error,omitempty"`
}

type PortsPart struct {
	TCP   map[int]bool `json:"tcp,omitempty"`
	Error string       `json:"error,omitempty"`
}

// HeadersPart is either a present/missing pair or a single error record
// when the probe fetch itself failed.
type HeadersPart struct {
	Present map[string]string `json:"present,omitempty"`
	Missing []string          `json:"missing,omitempty"`
	Error   string            `json:"error,omitempty"`
}

type XSSFinding struct {
	URL        string  `json:"url"`
	Param      string  `json:"param"`
	Marker     string  `json:"marker"`
	Reflected  bool    `json:"reflected"`
	Verbatim   bool    `json:"verbatim"`
	Status     int     `json:"status,omitempty"`
	Similarity float64 `json:"similarity"`
}

type SQLiFinding struct {
	URL        string  `json:"url"`
	Param      string  `json:"param"`
	Payload    string  `json:"payload"`
	Suspected  bool    `json:"suspected"`
	Status     int     `json:"status,omitempty"`
	Similarity float64 `json:"similarity"`
}

// SqlmapFinding is one leveled line from the external tool's output.
// Level is the tool's own tag (INFO/WARNING/CRITICAL/...) or "OTHER" for
// freeform lines kept verbatim.
type SqlmapFinding struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Line    string `json:"line,omitempty"`
	URL     string `json:"url,omitempty"`
}

// Parts is the stable report shape exposed to the presentation layer.
// The sqlmap group stays empty until a deep scan completes for the ID.
type Parts struct {
	Ports   PortsPart       `json:"ports"`
	Crawl   CrawlPart       `json:"crawl"`
	Headers HeadersPart     `json:"headers"`
	XSS     []XSSFinding    `json:"xss"`
	SQLi    []SQLiFinding   `json:"sqli"`
	Sqlmap  []SqlmapFinding `json:"sqlmap,omitempty"`
}

type Report struct {
	ScanID    string    `json:"scan_id"`
	Target    string    `json:"target"`
	Generated time.Time `json:"generated"`
	Path      string    `json:"path,omitempty"`
	Parts     Parts     `json:"parts"`
}
