package model

import (
	"fmt"
	"sort"
	"strings"
)

type FindingKind string

const (
	KindPort      FindingKind = "port"
	KindHeaderGap FindingKind = "header-gap"
	KindXSS       FindingKind = "xss"
	KindSQLi      FindingKind = "sqli"
	KindSqlmap    FindingKind = "sqlmap"
)

// Finding is the flattened cross-kind view of one report entry. Evidence
// holds a short summary; the typed part in Parts carries full detail.
type Finding struct {
	Kind       FindingKind `json:"kind"`
	Location   string      `json:"location"`
	Severity   string      `json:"severity"`
	Evidence   string      `json:"evidence,omitempty"`
	Actionable bool        `json:"actionable"`
}

// GroupFindings flattens a report's typed parts into findings grouped by
// kind. Open ports and present headers are raw sub-results, not findings;
// only gaps and detections surface here.
func GroupFindings(parts Parts) map[FindingKind][]Finding {
	grouped := make(map[FindingKind][]Finding)

	var openPorts []int
	for port, open := range parts.Ports.TCP {
		if open {
			openPorts = append(openPorts, port)
		}
	}
	sort.Ints(openPorts)
	for _, port := range openPorts {
		grouped[KindPort] = append(grouped[KindPort], Finding{
			Kind:     KindPort,
			Location: fmt.Sprintf("tcp/%d", port),
			Severity: "info",
			Evidence: "port open",
		})
	}

	for _, header := range parts.Headers.Missing {
		severity := "low"
		if strings.EqualFold(header, "Content-Security-Policy") {
			severity = "medium"
		}
		grouped[KindHeaderGap] = append(grouped[KindHeaderGap], Finding{
			Kind:       KindHeaderGap,
			Location:   header,
			Severity:   severity,
			Evidence:   "header not present",
			Actionable: true,
		})
	}

	for _, f := range parts.XSS {
		grouped[KindXSS] = append(grouped[KindXSS], Finding{
			Kind:       KindXSS,
			Location:   f.URL,
			Severity:   "medium",
			Evidence:   fmt.Sprintf("marker %s reflected via param %q", f.Marker, f.Param),
			Actionable: f.Reflected,
		})
	}

	for _, f := range parts.SQLi {
		grouped[KindSQLi] = append(grouped[KindSQLi], Finding{
			Kind:       KindSQLi,
			Location:   f.URL,
			Severity:   "high",
			Evidence:   fmt.Sprintf("payload %q via param %q, similarity %.2f, status %d", f.Payload, f.Param, f.Similarity, f.Status),
			Actionable: f.Suspected,
		})
	}

	for _, f := range parts.Sqlmap {
		severity := "info"
		actionable := false
		switch f.Level {
		case "CRITICAL", "ERROR":
			severity = "high"
			actionable = true
		case "WARNING":
			severity = "low"
		}
		grouped[KindSqlmap] = append(grouped[KindSqlmap], Finding{
			Kind:       KindSqlmap,
			Location:   f.URL,
			Severity:   severity,
			Evidence:   f.Message,
			Actionable: actionable,
		})
	}

	return grouped
}
