package sqlmap

import "testing"

func TestParseOutputConfirmedFindings(t *testing.T) {
	raw := `
[12:01:02] [INFO] GET parameter 'id' is vulnerable
[12:01:03] [WARNING] the back-end DBMS is MySQL
[CRITICAL] unhandled exception in tamper script
`
	findings := ParseOutput(raw)
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %d: %+v", len(findings), findings)
	}

	if findings[0].Level != "INFO" {
		t.Errorf("expected level INFO, got %s", findings[0].Level)
	}
	if findings[0].Detail != "GET parameter 'id' is vulnerable" {
		t.Errorf("unexpected detail: %q", findings[0].Detail)
	}
	if findings[2].Level != "CRITICAL" {
		t.Errorf("expected CRITICAL passthrough, got %s", findings[2].Level)
	}
}

func TestParseOutputSkipsNoise(t *testing.T) {
	raw := `
[12:00:00] [INFO] testing connection to the target URL
[12:00:01] [INFO] testing if GET parameter 'id' is dynamic
[12:00:02] [WARNING] could not determine the web server
[12:00:03] [INFO] resuming back-end DBMS 'mysql'
`
	findings := ParseOutput(raw)
	if len(findings) != 0 {
		t.Fatalf("progress noise must be dropped, got %+v", findings)
	}
}

func TestParseOutputRetainsFreeformLines(t *testing.T) {
	raw := `
sqlmap identified the following injection point(s) with a total of 46 HTTP(s) requests:
---
Parameter: id (GET)
    Type: boolean-based blind
    Payload: id=1' AND 5751=5751 AND 'x'='x
---
`
	findings := ParseOutput(raw)
	if len(findings) == 0 {
		t.Fatal("freeform injection-point block must be retained")
	}

	for _, finding := range findings {
		if finding.Level != "OTHER" {
			t.Errorf("freeform lines carry level OTHER, got %s", finding.Level)
		}
		if finding.Line == "" {
			t.Error("freeform findings must keep the verbatim line")
		}
	}
}

func TestParseOutputDeduplicates(t *testing.T) {
	raw := `
[10:00:00] [INFO] GET parameter 'id' is vulnerable
[10:00:05] [INFO] GET parameter 'id' is vulnerable
`
	findings := ParseOutput(raw)
	if len(findings) != 1 {
		t.Fatalf("duplicate (level, message) pairs must collapse, got %d", len(findings))
	}
}

func TestParseOutputShortMessage(t *testing.T) {
	raw := `[10:00:00] [INFO] GET parameter 'id' is vulnerable. the back-end DBMS is MySQL`
	findings := ParseOutput(raw)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding, got %d", len(findings))
	}
	if findings[0].Message != "GET parameter 'id' is vulnerable" {
		t.Errorf("message must stop at the first sentence, got %q", findings[0].Message)
	}
}

func TestParseOutputEmpty(t *testing.T) {
	if findings := ParseOutput(""); findings != nil {
		t.Errorf("empty output yields no findings, got %+v", findings)
	}
}
