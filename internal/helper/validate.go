package helper

import (
	"errors"
	"fmt"
)

// ClampScanBounds validates the target URL and clamps max_pages and
// concurrency into [1, limit]. Zero values pick the limit itself so a
// bare {url} request scans with the defaults.
func ClampScanBounds(target string, maxPages, concurrency, pagesLimit, concurrencyLimit int) (int, int, error) {
	if target == "" {
		return 0, 0, errors.New("target url is empty")
	}
	if !IsWebURL(target) {
		return 0, 0, fmt.Errorf("invalid target: %s", target)
	}

	if maxPages <= 0 || maxPages > pagesLimit {
		maxPages = pagesLimit
	}
	if concurrency <= 0 || concurrency > concurrencyLimit {
		concurrency = concurrencyLimit
	}
	return maxPages, concurrency, nil
}
