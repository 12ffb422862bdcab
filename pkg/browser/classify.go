package browser

import (
	"fmt"

	"github.com/gobwas/glob"
)

// DefaultInterstitialPatterns match the CAPTCHA and rate-limit pages
// suspicious sessions get diverted to.
var DefaultInterstitialPatterns = []string{
	"*google.com/sorry*",
	"*google.com/recaptcha*",
}

// URLClassifier decides whether a landed URL is a soft-block
// interstitial rather than the requested page.
type URLClassifier struct {
	patterns []glob.Glob
}

// NewURLClassifier compiles the given URL glob patterns.
func NewURLClassifier(patterns []string) (*URLClassifier, error) {
	c := &URLClassifier{}

	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid interstitial pattern '%s': %w", pattern, err)
		}
		c.patterns = append(c.patterns, g)
	}

	return c, nil
}

// Interstitial returns true if the URL matches any blocked pattern.
func (c *URLClassifier) Interstitial(url string) bool {
	for _, pattern := range c.patterns {
		if pattern.Match(url) {
			return true
		}
	}
	return false
}
