package engine

import "testing"

func TestClassifyBlock(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   BlockSignal
	}{
		{"clean page", 200, "<html><body>hello</body></html>", BlockNone},
		{"forbidden status", 403, "<html></html>", BlockLikely},
		{"rate limited status", 429, "<html></html>", BlockLikely},
		{"recaptcha v2", 200, `<div class="g-recaptcha" data-sitekey="x"></div>`, BlockCaptcha},
		{"hcaptcha", 200, `<div class="h-captcha"></div>`, BlockCaptcha},
		{"funcaptcha", 200, `window.location = "funcaptcha.com/fc"`, BlockCaptcha},
		{"login wall", 200, `<input type="password"> please sign in to continue`, BlockLoginRequired},
		{"cloudflare challenge", 200, "Checking your browser before accessing example.test", BlockLikely},
		{"server error", 503, "<html>oops</html>", BlockUnknown},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := classifyBlock(c.status, c.body)
			if got != c.want {
				t.Errorf("classifyBlock(%d, ...) = %q, want %q", c.status, got, c.want)
			}
		})
	}
}
