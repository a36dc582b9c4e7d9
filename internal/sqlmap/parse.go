package sqlmap

import (
	"regexp"
	"strings"

	"github.com/webaudit/scanner/internal/model"
)

// lineRe matches the tool's leveled log lines, with or without the
// leading timestamp: "[12:34:56] [INFO] message" or "[INFO] message".
var lineRe = regexp.MustCompile(`^(?:\[\d{2}:\d{2}:\d{2}\]\s*)?\[([A-Z]+)\]\s*(.*)$`)

// Phrases that mark a line as a confirmed-vulnerability statement.
var confirmedKeywords = []string{
	"is vulnerable",
	"is injectable",
	"sql injection vulnerability",
	"identified the following injection point",
	"back-end dbms",
	"parameter",
	"payload:",
	"type: boolean-based blind",
	"type: error-based",
	"type: time-based",
	"the back-end dbms",
}

// Progress and bookkeeping chatter that never carries a finding.
var ignoreKeywords = []string{
	"testing",
	"trying",
	"could not",
	"connection",
	"resuming",
	"parameter(s) not found",
	"all tested parameters",
	"fetched data logged",
	"starting",
	"ending",
	"check",
	"info",
	"enumerating",
	"payload value used",
	"http error",
	"unknown",
	"possible",
}

// ParseOutput turns the tool's freeform combined output into leveled
// findings. Confirmed-vulnerability lines and CRITICAL/ERROR lines keep
// their level; recognizable progress noise is dropped; anything else
// non-empty is retained verbatim as a level-OTHER informational
// finding. Duplicate (level, message) pairs collapse to one.
func ParseOutput(raw string) []model.SqlmapFinding {
	if raw == "" {
		return nil
	}

	var findings []model.SqlmapFinding
	type dedupKey struct{ level, msg string }
	seen := make(map[dedupKey]bool)

	for _, rawLine := range strings.Split(raw, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" {
			continue
		}

		level := "OTHER"
		msg := line
		if m := lineRe.FindStringSubmatch(line); m != nil {
			level = m[1]
			msg = strings.TrimSpace(m[2])
		}

		low := strings.ToLower(msg)
		if containsAny(low, ignoreKeywords) {
			continue
		}
		if !containsAny(low, confirmedKeywords) && level != "CRITICAL" && level != "ERROR" && level != "OTHER" {
			continue
		}

		key := dedupKey{level, msg}
		if seen[key] {
			continue
		}
		seen[key] = true

		short := msg
		if idx := strings.Index(msg, "."); idx > 0 {
			short = strings.TrimSpace(msg[:idx])
		}

		findings = append(findings, model.SqlmapFinding{
			Level:   level,
			Message: short,
			Detail:  msg,
			Line:    line,
		})
	}

	return findings
}

func containsAny(s string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(s, keyword) {
			return true
		}
	}
	return false
}
