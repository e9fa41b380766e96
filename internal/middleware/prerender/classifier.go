package prerender

import (
	"net/http"
	"strings"

	"github.com/FlashpointBV/prerender/internal/config"
)

const (
	// escapedFragmentParam is the legacy AJAX-crawling query parameter a
	// crawler sends to request a snapshot of a JavaScript-rendered page.
	escapedFragmentParam = "_escaped_fragment_"

	// bufferbotHeader is set by Buffer's link preview fetcher.
	bufferbotHeader = "X-Bufferbot"
)

// Classifier decides whether a request qualifies for prerendering. It is a
// pure function of request + config; safe for concurrent use.
type Classifier struct {
	signatures []string // lower-cased crawler User-Agent substrings
	whitelist  []compiledPattern
	blacklist  []compiledPattern
}

// NewClassifier builds a Classifier from the prerender config.
func NewClassifier(cfg config.PrerenderConfig) *Classifier {
	agents := cfg.CrawlerUserAgents
	if len(agents) == 0 {
		agents = config.DefaultCrawlerUserAgents
	}
	sigs := make([]string, 0, len(agents))
	for _, s := range agents {
		sigs = append(sigs, strings.ToLower(s))
	}
	return &Classifier{
		signatures: sigs,
		whitelist:  compilePatterns(cfg.Whitelist),
		blacklist:  compilePatterns(cfg.Blacklist),
	}
}

// ShouldPrerender reports whether the request should be served a prerendered
// snapshot. Checks short-circuit in order: user agent present, GET only,
// crawler detection, whitelist, blacklist (URI and referer).
func (c *Classifier) ShouldPrerender(r *http.Request) bool {
	ua := r.Header.Get("User-Agent")
	if ua == "" {
		return false
	}
	if r.Method != http.MethodGet {
		return false
	}
	if !c.isCrawler(r, ua) {
		return false
	}

	uri := r.URL.RequestURI()

	// An empty whitelist means no restriction.
	if len(c.whitelist) > 0 && !matchAny(c.whitelist, uri) {
		return false
	}

	if len(c.blacklist) > 0 {
		if matchAny(c.blacklist, uri) {
			return false
		}
		if ref := r.Referer(); ref != "" && matchAny(c.blacklist, ref) {
			return false
		}
	}

	return true
}

// isCrawler is the OR of the three crawler signals: the escaped-fragment
// query parameter, a configured signature in the lower-cased user agent, and
// the bufferbot header.
func (c *Classifier) isCrawler(r *http.Request, ua string) bool {
	if r.URL.Query().Has(escapedFragmentParam) {
		return true
	}

	lower := strings.ToLower(ua)
	for _, sig := range c.signatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}

	return r.Header.Get(bufferbotHeader) != ""
}
