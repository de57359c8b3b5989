package client

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/corvid-tools/ytgrab/internal/cache"
	"github.com/corvid-tools/ytgrab/internal/types"
)

// playerLocalePathPattern collapses a player JS path's locale segment
// (e.g. "/s/player/<hash>/player_ias.vflset/en_GB/base.js") to a fixed
// locale so two requests for the same player build under different
// locales share one cache scope.
var playerLocalePathPattern = regexp.MustCompile(`(?i)(/s/player/[A-Za-z0-9_-]+/player(?:_[a-z0-9]+)?\.vflset)/[a-z]{2,3}_[a-z]{2,3}(/base\.js)$`)

// canonicalPlayerCacheKey normalizes a player URL down to a stable cache
// scoping key: it strips scheme/host and collapses the locale segment of
// the build path, so player.example.com/base.js and
// player.example.com/en_US/base.js (same build, different locale) share
// memoized signature/n decodes.
func canonicalPlayerCacheKey(playerURL string) string {
	raw := strings.TrimSpace(playerURL)
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil {
		if strings.TrimSpace(u.Path) != "" {
			raw = u.Path
		}
	}
	raw = strings.ReplaceAll(raw, `\/`, "/")
	raw = strings.TrimSpace(raw)
	if m := playerLocalePathPattern.FindStringSubmatch(raw); len(m) == 3 {
		return m[1] + "/en_US" + m[2]
	}
	return raw
}

// loadPlayerJS fetches (or returns the cached copy of) the player JS body
// at playerURL, impersonating the default web client.
func (c *Client) loadPlayerJS(ctx context.Context, playerURL string) (string, error) {
	profile, ok := c.registry.GetByName("web")
	if !ok {
		profile, _ = c.registry.Get(types.Web)
	}
	c.emitExtractionEvent("player_js", "start", "web", playerURL)
	body, err := c.loader.LoadPlayer(ctx, playerURL, profile)
	if err != nil {
		c.emitExtractionEvent("player_js", "failure", "web", err.Error())
		return "", err
	}
	c.emitExtractionEvent("player_js", "success", "web", playerURL)
	return body, nil
}

// decodeNWithCache deciphers an n-parameter challenge, memoizing the
// result in the decipher engine's shared cache under playerURL's
// canonical scope.
func (c *Client) decodeNWithCache(ctx context.Context, playerURL, n string) (string, error) {
	jsBody, err := c.loadPlayerJS(ctx, playerURL)
	if err != nil {
		return "", err
	}
	scope := canonicalPlayerCacheKey(playerURL)
	d := c.decipherEngine.Decipherer(scope, jsBody)
	return c.decipherEngine.PlayerCache.GetOrAdd(cache.ScopedKey{Scope: "n-" + scope, Key: n}, func() (string, error) {
		return d.DecipherN(n)
	})
}

// decodeSignatureWithCache deciphers an s-parameter challenge, memoizing
// the result the same way as decodeNWithCache.
func (c *Client) decodeSignatureWithCache(ctx context.Context, playerURL, s string) (string, error) {
	jsBody, err := c.loadPlayerJS(ctx, playerURL)
	if err != nil {
		return "", err
	}
	scope := canonicalPlayerCacheKey(playerURL)
	d := c.decipherEngine.Decipherer(scope, jsBody)
	return c.decipherEngine.PlayerCache.GetOrAdd(cache.ScopedKey{Scope: "sig-" + scope, Key: s}, func() (string, error) {
		return d.DecipherSignature(s)
	})
}
