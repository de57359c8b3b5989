// Package webpage fetches YouTube watch-page HTML and mines the inline
// JSON blobs (ytcfg, ytInitialData) embedded in it.
package webpage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/types"
)

var (
	ytcfgSetPattern   = regexp.MustCompile(`ytcfg\.set\s*\(\s*(\{.+?\})\s*\)\s*;`)
	ytInitialDataStart = regexp.MustCompile(`(?:window\s*\[\s*["']ytInitialData["']\s*\]|ytInitialData)\s*=\s*`)
)

// Fetcher performs plain-text GETs against YouTube pages.
type Fetcher struct {
	HTTPClient *http.Client
}

// NewFetcher wraps hc, defaulting to http.DefaultClient if nil.
func NewFetcher(hc *http.Client) *Fetcher {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Fetcher{HTTPClient: hc}
}

// DownloadWebpage issues a GET against pageURL with the bpctr/has_verified/v
// query triple appended, using the profile's user agent, and returns the
// response body as text.
func (f *Fetcher) DownloadWebpage(ctx context.Context, pageURL string, profile innertube.ClientProfile, videoID string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", &types.InvalidInputError{What: "webpage url", Got: pageURL}
	}
	q := parsed.Query()
	q.Set("bpctr", "9999999999")
	q.Set("has_verified", "1")
	q.Set("v", videoID)
	parsed.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", &types.TransportError{Op: "build webpage request", Err: err}
	}
	req.Header.Set("User-Agent", profile.UserAgent(false))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", &types.TransportError{Op: "GET " + pageURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &types.TransportError{Op: "read webpage body", Err: err}
	}
	return string(body), nil
}

// DownloadPlayerScript GETs playerURL as plain text, with no query
// augmentation, per the player-script loader's direct fetch.
func (f *Fetcher) DownloadPlayerScript(ctx context.Context, playerURL string, profile innertube.ClientProfile) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, playerURL, nil)
	if err != nil {
		return "", &types.TransportError{Op: "build player script request", Err: err}
	}
	req.Header.Set("User-Agent", profile.UserAgent(false))

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return "", &types.TransportError{Op: "GET " + playerURL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &types.TransportError{Op: "read player script body", Err: err}
	}
	return string(body), nil
}

// ExtractYtcfg runs ytcfg.set(...) over html and parses the captured
// object. Never fails: absence or malformed JSON yields an empty map.
func ExtractYtcfg(html string) map[string]any {
	match := ytcfgSetPattern.FindStringSubmatch(html)
	if match == nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(match[1]), &out); err != nil {
		return map[string]any{}
	}
	return out
}

// ExtractYtInitialData locates and decodes ytInitialData. Fails with
// DataMissingError when the assignment is absent.
func ExtractYtInitialData(html string) (map[string]any, error) {
	loc := ytInitialDataStart.FindStringIndex(html)
	if loc == nil {
		return nil, &types.DataMissingError{What: "ytInitialData"}
	}
	obj, err := scanBalancedObject(html, loc[1])
	if err != nil {
		return nil, &types.DataMissingError{What: "ytInitialData"}
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(obj), &out); err != nil {
		return nil, &types.DecodeError{Op: "decode ytInitialData", Err: err}
	}
	return out, nil
}

// SearchJSON finds startRe in html, then from the next "{" runs a
// brace-balanced, quote/escape-aware scan and decodes the captured object.
// endRe, when given, bounds a fallback truncation point used if the scan
// never balances before EOF (a script tag cut short). def, when non-nil, is
// returned instead of failing on any error.
func SearchJSON(startRe *regexp.Regexp, html string, endRe *regexp.Regexp, def map[string]any) (map[string]any, error) {
	loc := startRe.FindStringIndex(html)
	if loc == nil {
		if def != nil {
			return def, nil
		}
		return nil, &types.DecodeError{Op: "search_json: start pattern not found"}
	}

	obj, err := scanBalancedObject(html, loc[1])
	if err != nil && endRe != nil {
		if endLoc := endRe.FindStringIndex(html[loc[1]:]); endLoc != nil {
			candidate := strings.TrimSpace(html[loc[1] : loc[1]+endLoc[0]])
			if braceStart := strings.IndexByte(candidate, '{'); braceStart >= 0 {
				obj = candidate[braceStart:]
				err = nil
			}
		}
	}
	if err != nil {
		if def != nil {
			return def, nil
		}
		return nil, &types.DecodeError{Op: "search_json: unbalanced object", Err: err}
	}

	var out map[string]any
	if jsonErr := json.Unmarshal([]byte(obj), &out); jsonErr != nil {
		if def != nil {
			return def, nil
		}
		return nil, &types.DecodeError{Op: "search_json: decode", Err: jsonErr}
	}
	return out, nil
}

// scanBalancedObject scans s starting at offset for the next '{' and
// returns the substring through its matching '}', tracking quoted strings
// and backslash escapes so braces inside string literals are ignored.
func scanBalancedObject(s string, offset int) (string, error) {
	start := strings.IndexByte(s[offset:], '{')
	if start < 0 {
		return "", errNoOpeningBrace
	}
	start += offset

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", errUnbalanced
}

var (
	errNoOpeningBrace = &types.DecodeError{Op: "search_json: no opening brace"}
	errUnbalanced     = &types.DecodeError{Op: "search_json: braces never balanced"}
)
