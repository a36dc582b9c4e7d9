package tester

import (
	"regexp"
	"strings"
)

// Normalization strips the obviously-dynamic parts of a page so two
// fetches of the same resource compare as near-identical: script/style
// blocks, timestamps, long numeric tokens, generated ids and CSP nonces.
var (
	scriptRe    = regexp.MustCompile(`(?is)<script.*?>.*?</script>`)
	styleRe     = regexp.MustCompile(`(?is)<style.*?>.*?</style>`)
	timestampRe = regexp.MustCompile(`\b20\d{2}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\b`)
	longNumRe   = regexp.MustCompile(`\b[0-9]{6,}\b`)
	longIDRe    = regexp.MustCompile(`id="[^"]{8,}"`)
	nonceRe     = regexp.MustCompile(`nonce-[a-z0-9]+`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

func normalizeHTML(text string) string {
	if text == "" {
		return ""
	}
	text = scriptRe.ReplaceAllString(text, "")
	text = styleRe.ReplaceAllString(text, "")
	text = timestampRe.ReplaceAllString(text, "")
	text = longNumRe.ReplaceAllString(text, "")
	text = longIDRe.ReplaceAllString(text, "")
	text = nonceRe.ReplaceAllString(text, "")
	text = spaceRe.ReplaceAllString(text, " ")
	return strings.ToLower(strings.TrimSpace(text))
}

// similarity scores two texts in [0,1] as the token-multiset overlap
// ratio 2*common/(len(a)+len(b)). Identical texts score 1, disjoint
// texts 0. Inputs are compared as-is; normalize first.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}

	tokensA := strings.Fields(a)
	tokensB := strings.Fields(b)
	if len(tokensA) == 0 && len(tokensB) == 0 {
		return 1.0
	}
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0.0
	}

	counts := make(map[string]int, len(tokensA))
	for _, token := range tokensA {
		counts[token]++
	}

	common := 0
	for _, token := range tokensB {
		if counts[token] > 0 {
			counts[token]--
			common++
		}
	}

	return 2.0 * float64(common) / float64(len(tokensA)+len(tokensB))
}
