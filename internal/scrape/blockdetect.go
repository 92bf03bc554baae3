package scrape

import "strings"

// challengeSignatures appear on anti-bot interstitials that extraction
// providers sometimes return in place of the real page.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"attention required",
	"verify you are human",
	"captcha",
}

// LooksBlocked reports whether markdown is a short challenge or error page
// rather than site content.
func LooksBlocked(markdown string) bool {
	content := strings.TrimSpace(markdown)
	if content == "" {
		return true
	}
	if len(content) >= 1500 {
		return false
	}
	lower := strings.ToLower(content)
	for _, sig := range challengeSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}
