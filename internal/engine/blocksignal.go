package engine

import "strings"

// classifyBlock inspects a fetched page's status code and body for signs
// it was blocked. It never attempts to solve or bypass what it finds -
// captcha shapes are recognized only to report BlockCaptcha, never to feed
// a solving client.
func classifyBlock(statusCode int, body string) BlockSignal {
	if statusCode == 403 || statusCode == 429 {
		return BlockLikely
	}

	lower := strings.ToLower(body)

	switch {
	case strings.Contains(lower, "g-recaptcha"),
		strings.Contains(lower, "recaptcha/api.js"),
		strings.Contains(lower, "h-captcha"),
		strings.Contains(lower, "hcaptcha.com"),
		strings.Contains(lower, "funcaptcha"),
		strings.Contains(lower, "arkoselabs"):
		return BlockCaptcha
	}

	switch {
	case strings.Contains(lower, "type=\"password\"") && strings.Contains(lower, "sign in"),
		strings.Contains(lower, "please log in to continue"),
		strings.Contains(lower, "please sign in to continue"):
		return BlockLoginRequired
	}

	switch {
	case strings.Contains(lower, "access denied"),
		strings.Contains(lower, "are you a robot"),
		strings.Contains(lower, "unusual traffic"),
		strings.Contains(lower, "checking your browser before accessing"),
		strings.Contains(lower, "cf-browser-verification"):
		return BlockLikely
	}

	if statusCode >= 500 {
		return BlockUnknown
	}

	return BlockNone
}
