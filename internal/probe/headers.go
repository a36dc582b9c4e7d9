package probe

import (
	"context"
	"net/http"

	"github.com/webaudit/scanner/internal/fetch"
	"github.com/webaudit/scanner/internal/model"
)

// RequiredHeaders is the security-header checklist, in presentation
// order.
var RequiredHeaders = []string{
	"Content-Security-Policy",
	"X-Frame-Options",
	"Strict-Transport-Security",
	"X-Content-Type-Options",
	"Referrer-Policy",
}

// CheckHeaders fetches the target once and diffs its response headers
// against the checklist, case-insensitively. A failed fetch yields a
// single error record instead of a partial map.
func CheckHeaders(ctx context.Context, fetcher *fetch.Client, target string) model.HeadersPart {
	resp, err := fetcher.Get(ctx, target)
	if err != nil {
		return model.HeadersPart{Error: err.Error()}
	}

	present := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		present[key] = resp.Header.Get(key)
	}

	missing := []string{}
	for _, header := range RequiredHeaders {
		if resp.Header.Get(http.CanonicalHeaderKey(header)) == "" {
			missing = append(missing, header)
		}
	}

	return model.HeadersPart{Present: present, Missing: missing}
}
