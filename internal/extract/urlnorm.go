// Package extract turns raw fetched HTML into links and structured items:
// URL normalization, link discovery (regex/css/xpath), HTML-to-text
// conversion, and the boilerplate-ratio quality check.
package extract

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParamPrefixes lists query-parameter prefixes stripped during
// normalization because they vary per click/session without changing the
// resource identified by the URL.
var trackingParamPrefixes = []string{"utm_", "gclid", "fbclid", "mc_", "ref_src", "ref"}

func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range trackingParamPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	return false
}

// NormalizeURL produces a canonical form of rawURL: lowercase scheme and
// host, stripped fragment, tracking parameters removed, remaining query
// keys sorted. Applying NormalizeURL twice yields the same result as
// applying it once.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for key := range q {
		if isTrackingParam(key) {
			q.Del(key)
		}
	}
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if len(keys) == 0 {
		u.RawQuery = ""
	} else {
		var pairs []string
		for _, k := range keys {
			for _, v := range q[k] {
				pairs = append(pairs, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(pairs, "&")
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}

// ResolveURL resolves ref against base and normalizes the result, the step
// every link-extraction method performs on the raw href/src it finds.
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return NormalizeURL(baseURL.ResolveReference(refURL).String())
}
