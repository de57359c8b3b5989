package innertube

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/corvid-tools/ytgrab/internal/cookies"
	"github.com/corvid-tools/ytgrab/internal/types"
)

// Endpoint names one of the three Innertube POST endpoints this client
// speaks to.
type Endpoint string

const (
	EndpointPlayer Endpoint = "player"
	EndpointNext   Endpoint = "next"
	EndpointBrowse Endpoint = "browse"
)

// CallOptions parameterizes one Call. Body carries everything the request
// needs beyond "context" (videoId, browseId, continuation, ...); Context
// carries the caller's ytcfg client sub-object override, merged under
// INNERTUBE_CONTEXT.client before the hl/timeZone/utcOffsetMinutes are
// forced.
type CallOptions struct {
	Profile           ClientProfile
	Endpoint          Endpoint
	Body              map[string]any
	ContextOverride   map[string]any
	HeaderOverrides   http.Header
	VisitorData       string
	ConfigBlobs       []map[string]any
	APIKey            string
	Authenticated     bool
	Jar               *cookies.Jar
	CookieAuthContext CookieAuthContext
}

// Client performs Innertube POST calls, merging context, headers, and
// cookie auth per the registered profile.
type Client struct {
	HTTPClient *http.Client
}

// NewClient wraps an *http.Client, defaulting to http.DefaultClient if nil.
func NewClient(hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{HTTPClient: hc}
}

// Call sends a POST to https://<host>/youtubei/v1/<endpoint> and returns
// the decoded JSON body.
func (c *Client) Call(ctx context.Context, opts CallOptions) (map[string]any, error) {
	profile := opts.Profile
	reqURL := "https://" + profile.Host + "/youtubei/v1/" + string(opts.Endpoint)
	query := url.Values{}
	query.Set("prettyPrint", "false")
	if strings.TrimSpace(opts.APIKey) != "" {
		query.Set("key", opts.APIKey)
	}
	reqURL += "?" + query.Encode()

	clientCtx := mergeClientContext(profile, opts.ContextOverride)
	body := map[string]any{}
	for k, v := range opts.Body {
		body[k] = v
	}
	body["context"] = map[string]any{"client": clientCtx}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &types.TransportError{Op: "marshal request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, &types.TransportError{Op: "build request", Err: err}
	}

	if err := c.applyHeaders(httpReq, opts, clientCtx); err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, &types.TransportError{Op: "POST " + string(opts.Endpoint), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.TransportError{Op: "read response body", Err: err}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &types.AuthErrorDetail{Reason: "innertube returned HTTP " + strconv.Itoa(resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &types.TransportError{Op: string(opts.Endpoint), Err: &httpStatusError{status: resp.StatusCode}}
	}

	var decoded map[string]any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, &types.DecodeError{Op: "decode " + string(opts.Endpoint) + " response", Err: err}
	}
	return decoded, nil
}

func (c *Client) applyHeaders(httpReq *http.Request, opts CallOptions, clientCtx map[string]any) error {
	profile := opts.Profile
	origin := "https://" + profile.Host

	httpReq.Header.Set("Content-Type", "application/json")
	if profile.ContextClientName > 0 {
		httpReq.Header.Set("X-YouTube-Client-Name", strconv.Itoa(profile.ContextClientName))
	}
	if v, _ := clientCtx["clientVersion"].(string); v != "" {
		httpReq.Header.Set("X-YouTube-Client-Version", v)
	}
	httpReq.Header.Set("Origin", origin)
	httpReq.Header.Set("X-Origin", origin)

	if visitor := resolveVisitorDataFromBlobs(opts.VisitorData, opts.ConfigBlobs); visitor != "" {
		httpReq.Header.Set("X-Goog-Visitor-Id", visitor)
	}

	httpReq.Header.Set("User-Agent", profile.UserAgent(opts.Authenticated))

	if profile.SupportsCookies && opts.Jar != nil {
		authHeaders := BuildCookieAuthHeaders(opts.Jar, profile.Host, time.Now(), opts.CookieAuthContext)
		for k, values := range authHeaders {
			for _, v := range values {
				httpReq.Header.Set(k, v)
			}
		}
		if cookieHeader := opts.Jar.HeaderValue(profile.Host); cookieHeader != "" {
			httpReq.Header.Set("Cookie", cookieHeader)
		}
	}

	for k, values := range profile.Headers {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	for k, values := range opts.HeaderOverrides {
		for _, v := range values {
			httpReq.Header.Set(k, v)
		}
	}
	return nil
}

// mergeClientContext starts from the profile's registered client context,
// overrides with the caller's ytcfg client sub-object when non-empty, then
// always forces hl/timeZone/utcOffsetMinutes. Per §4.1, request-level
// locale always wins over any ytcfg-scraped value.
func mergeClientContext(profile ClientProfile, override map[string]any) map[string]any {
	merged := map[string]any{
		"clientName":    profile.Context.Client.ClientName,
		"clientVersion": profile.Context.Client.ClientVersion,
	}
	if profile.Context.Client.UserAgent != "" {
		merged["userAgent"] = profile.Context.Client.UserAgent
	}
	for k, v := range override {
		merged[k] = v
	}
	merged["hl"] = "en"
	merged["timeZone"] = "UTC"
	merged["utcOffsetMinutes"] = 0
	return merged
}

// resolveVisitorDataFromBlobs returns override if set, else the first
// present VISITOR_DATA / INNERTUBE_CONTEXT.client.visitorData /
// responseContext.visitorData found across blobs, in that order.
func resolveVisitorDataFromBlobs(override string, blobs []map[string]any) string {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override)
	}
	for _, blob := range blobs {
		if v, ok := blob["VISITOR_DATA"].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	for _, blob := range blobs {
		if v := lookupPath(blob, "INNERTUBE_CONTEXT", "client", "visitorData"); v != "" {
			return v
		}
	}
	for _, blob := range blobs {
		if v := lookupPath(blob, "responseContext", "visitorData"); v != "" {
			return v
		}
	}
	return ""
}

func lookupPath(blob map[string]any, path ...string) string {
	var cur any = blob
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = m[key]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return strings.TrimSpace(s)
}

type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return "unexpected status " + strconv.Itoa(e.status)
}
