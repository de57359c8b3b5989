// Package playerjs resolves, fetches, and caches YouTube's per-video player
// script, and extracts the signature timestamp embedded in it.
package playerjs

import (
	"net/url"
	"regexp"

	"github.com/corvid-tools/ytgrab/internal/types"
)

var playerIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/s/player/([A-Za-z0-9_-]{8,})/(?:tv-)?player`),
	regexp.MustCompile(`/([A-Za-z0-9_-]{8,})/player(?:_ias\.vflset(?:/[a-zA-Z]{2,3}_[a-zA-Z]{2,3})?|-plasma-ias-(?:phone|tablet)-[a-z]{2}_[A-Z]{2}\.vflset)/base\.js$`),
	regexp.MustCompile(`\b(vfl[A-Za-z0-9_-]+)\b.*?\.js$`),
}

// Fingerprint derives code_cache's key from a player script URL: the first
// matching player-id regex's capture, joined to the URL path with a hyphen.
func Fingerprint(playerURL string) (string, error) {
	parsed, err := url.Parse(playerURL)
	path := playerURL
	if err == nil && parsed.Path != "" {
		path = parsed.Path
	}

	for _, pattern := range playerIDPatterns {
		if m := pattern.FindStringSubmatch(path); m != nil {
			return m[1] + "-" + path, nil
		}
	}
	return "", &types.PlayerIdentificationFailedError{PlayerURL: playerURL}
}
