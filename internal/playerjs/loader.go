package playerjs

import (
	"context"
	"regexp"
	"strconv"

	"github.com/corvid-tools/ytgrab/internal/cache"
	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/types"
	"github.com/corvid-tools/ytgrab/internal/webpage"
)

var signatureTimestampPattern = regexp.MustCompile(`(?:signatureTimestamp|sts)\s*:\s*([0-9]{5})`)

// Loader fetches and caches player script bodies, and extracts the
// signature timestamp embedded in them.
type Loader struct {
	Fetcher   *webpage.Fetcher
	CodeCache *cache.Store[string]
}

// NewLoader wraps fetcher and codeCache, allocating a code cache if nil.
func NewLoader(fetcher *webpage.Fetcher, codeCache *cache.Store[string]) *Loader {
	if codeCache == nil {
		codeCache = cache.New[string]()
	}
	return &Loader{Fetcher: fetcher, CodeCache: codeCache}
}

// LoadPlayer returns the player script body for playerURL, fetching and
// caching it under its fingerprint on first use.
func (l *Loader) LoadPlayer(ctx context.Context, playerURL string, profile innertube.ClientProfile) (string, error) {
	fingerprint, err := Fingerprint(playerURL)
	if err != nil {
		return "", err
	}
	return l.CodeCache.GetOrAdd(fingerprint, func() (string, error) {
		return l.Fetcher.DownloadPlayerScript(ctx, playerURL, profile)
	})
}

// ExtractSignatureTimestamp resolves the signature timestamp for a player:
// ytcfg's STS field if numeric, else a memoized value, else a regex scan of
// the loaded script body, which is then memoized for later callers.
func ExtractSignatureTimestamp(ctx context.Context, loader *Loader, playerURL string, profile innertube.ClientProfile, ytcfg map[string]any, playerCache *cache.Store[cache.ScopedKey]) (int, error) {
	if raw, ok := ytcfg["STS"]; ok {
		if f, ok := raw.(float64); ok {
			return int(f), nil
		}
	}

	fingerprint, err := Fingerprint(playerURL)
	if err != nil {
		return 0, err
	}
	key := cache.ScopedKey{Scope: "youtube-sts", Key: fingerprint}
	if cached, ok := playerCache.Get(key); ok {
		n, convErr := strconv.Atoi(cached)
		if convErr == nil {
			return n, nil
		}
	}

	body, err := loader.LoadPlayer(ctx, playerURL, profile)
	if err != nil {
		return 0, err
	}
	m := signatureTimestampPattern.FindStringSubmatch(body)
	if m == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, nil
	}
	playerCache.Add(key, m[1])
	return n, nil
}
