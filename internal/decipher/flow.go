package decipher

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/corvid-tools/ytgrab/internal/cache"
	"github.com/corvid-tools/ytgrab/internal/types"
)

// Engine ties a Decipherer to the shared signature memoization cache,
// scoping memoized entries by player URL so two different player scripts
// never collide on the same raw signature text. It also keeps one
// Decipherer alive per player URL, so the op-table (or goja runtime
// fallback) for a given player version is extracted from its JS at most
// once no matter how many distinct signatures callers decipher against it.
type Engine struct {
	PlayerCache *cache.Store[cache.ScopedKey]

	decipherersMu sync.Mutex
	decipherers   map[string]*Decipherer
}

// NewEngine wraps playerCache, allocating one if nil.
func NewEngine(playerCache *cache.Store[cache.ScopedKey]) *Engine {
	if playerCache == nil {
		playerCache = cache.New[cache.ScopedKey]()
	}
	return &Engine{PlayerCache: playerCache, decipherers: make(map[string]*Decipherer)}
}

// Decipherer returns the Decipherer for playerURL, constructing and caching
// one against playerJS the first time this player URL is seen. Later calls
// with the same playerURL reuse the cached instance even if playerJS is
// passed again, since a given player URL's script never changes underneath
// it. Exported so callers that decode a single "s" or "n" value directly
// (bypassing the full Decipher flow) still share this instance cache.
func (e *Engine) Decipherer(playerURL, playerJS string) *Decipherer {
	e.decipherersMu.Lock()
	defer e.decipherersMu.Unlock()
	if e.decipherers == nil {
		e.decipherers = make(map[string]*Decipherer)
	}
	if d, ok := e.decipherers[playerURL]; ok {
		return d
	}
	d := NewDecipherer(playerJS)
	e.decipherers[playerURL] = d
	return d
}

// Decipher runs the full flow against a raw signature-cipher query string:
// parses it as URL-encoded form data, deciphers the "s" parameter against
// the player identified by playerURL and composes it into "url" under the
// "sp" key (defaulting to "signature"), then deciphers and substitutes any
// "n" parameter found in the assembled URL's query. Both results are
// memoized in PlayerCache, scoped by playerURL, so repeat callers with the
// same cipher text never re-run the JS engine.
func (e *Engine) Decipher(signatureQuery, playerURL, playerJS string) (string, error) {
	form, err := url.ParseQuery(signatureQuery)
	if err != nil {
		return "", &types.InvalidInputError{What: "signature_query", Got: signatureQuery}
	}
	rawURL := form.Get("url")
	s := form.Get("s")
	if rawURL == "" || s == "" {
		return "", &types.InvalidInputError{What: "signature_query missing url/s", Got: signatureQuery}
	}
	sp := form.Get("sp")
	if sp == "" {
		sp = "signature"
	}

	d := e.Decipherer(playerURL, playerJS)

	sig, err := e.PlayerCache.GetOrAdd(cache.ScopedKey{Scope: "sig-" + playerURL, Key: s}, func() (string, error) {
		return d.DecipherSignature(s)
	})
	if err != nil {
		return "", &types.DecipherFailedError{Reason: "signature", Err: err}
	}

	composed := rawURL + "&" + sp + "=" + sig
	parsed, err := url.Parse(composed)
	if err != nil {
		return "", &types.InvalidInputError{What: "composed url", Got: composed}
	}

	q := parsed.Query()
	n := q.Get("n")
	if n == "" {
		return composed, nil
	}

	decipheredN, err := e.PlayerCache.GetOrAdd(cache.ScopedKey{Scope: "n-" + playerURL, Key: n}, func() (string, error) {
		return d.DecipherN(n)
	})
	if err != nil {
		return "", &types.DecipherFailedError{Reason: "n-parameter", Err: err}
	}

	return ReplaceQueryParam(composed, "n", decipheredN)
}

// ReplaceQueryParam reparses rawURL and sets key to a single value, value,
// collapsing any duplicate occurrences of key in the input to one.
func ReplaceQueryParam(rawURL, key, value string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", &types.InvalidInputError{What: fmt.Sprintf("url for %s replacement", key), Got: rawURL}
	}
	q := parsed.Query()
	q.Set(key, value)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}
