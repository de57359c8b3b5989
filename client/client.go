package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/corvid-tools/ytgrab/internal/cache"
	"github.com/corvid-tools/ytgrab/internal/decipher"
	"github.com/corvid-tools/ytgrab/internal/formats"
	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/orchestrator"
	"github.com/corvid-tools/ytgrab/internal/playerjs"
	"github.com/corvid-tools/ytgrab/internal/types"
	"github.com/corvid-tools/ytgrab/internal/webpage"
	"github.com/corvid-tools/ytgrab/internal/ytlog"
)

// Client is the high-level YouTube client.
type Client struct {
	config Config

	registry        innertube.Registry
	engine          *orchestrator.Engine
	loader          *playerjs.Loader
	decipherEngine  *decipher.Engine
	logger          ytlog.Logger
	persistentCache *persistentCache

	sessionsMu sync.RWMutex
	sessions   map[string]videoSession
}

type videoSession struct {
	Responses  []orchestrator.AcceptedResponse
	PlayerURL  string
	Info       *VideoInfo
	CachedAt   time.Time
	LastAccess time.Time
}

// New creates a new YouTube client.
func New(config Config) *Client {
	return NewClient(config)
}

// NewClient creates a new YouTube client.
func NewClient(config Config) *Client {
	if config.HTTPClient == nil {
		config.HTTPClient = defaultHTTPClient(config.ProxyURL)
	}

	registry := innertube.NewRegistry()
	innertubeClient := innertube.NewClient(config.HTTPClient)
	wp := webpage.NewFetcher(config.HTTPClient)
	playerCache := cache.New[cache.ScopedKey]()
	loader := playerjs.NewLoader(wp, cache.New[string]())
	engine := orchestrator.NewEngine(registry, innertubeClient, wp, loader, playerCache)

	logger := config.Logger
	if logger == nil {
		logger = ytlog.Nop
	}

	var pcache *persistentCache
	if config.PersistentCachePath != "" {
		var err error
		pcache, err = openPersistentCache(config.PersistentCachePath)
		if err != nil {
			logger.Warnf("persistent cache unavailable at %s: %v", config.PersistentCachePath, err)
		} else if err := pcache.warm(playerCache); err != nil {
			logger.Warnf("persistent cache warm failed at %s: %v", config.PersistentCachePath, err)
		}
	}

	return &Client{
		config:          config,
		registry:        registry,
		engine:          engine,
		loader:          loader,
		decipherEngine:  decipher.NewEngine(playerCache),
		logger:          logger,
		persistentCache: pcache,
		sessions:        make(map[string]videoSession),
	}
}

// Close flushes the persistent decipher cache (if configured) to disk and
// releases its file handle. Safe to call on a Client with no persistent
// cache configured; it's then a no-op.
func (c *Client) Close() error {
	if c.persistentCache == nil {
		return nil
	}
	flushErr := c.persistentCache.flush(c.decipherEngine.PlayerCache)
	closeErr := c.persistentCache.Close()
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}

// GetVideo fetches video metadata and normalized formats for the input ID/URL.
func (c *Client) GetVideo(ctx context.Context, input string) (*VideoInfo, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	videoID, err := normalizeVideoID(input)
	if err != nil {
		return nil, err
	}

	watchURL := "https://www.youtube.com/watch?v=" + videoID
	c.emitExtractionEvent("client_loop", "start", "web", videoID)
	result, err := c.engine.GetVideoInfo(ctx, videoID, watchURL, orchestrator.ExtractOptions{
		Authenticated:          c.config.CookieJar != nil,
		MusicURL:               isMusicInput(input),
		Jar:                    c.config.CookieJar,
		PoTokenProvider:        c.config.PoTokenProvider,
		VisitorData:            c.config.VisitorData,
		ClientOverrides:        c.config.ClientOverrides,
		ClientSkip:             c.config.ClientSkip,
		DisableFallbackClients: c.config.ToInnerTubeConfig().DisableFallbackClients,
	})
	if err != nil {
		c.emitExtractionEvent("client_loop", "failure", "web", err.Error())
		return nil, mapError(err)
	}
	c.emitExtractionEvent("client_loop", "success", "web", fmt.Sprintf("responses=%d", len(result.Responses)))

	info := buildVideoInfo(videoID, result.Responses)

	descriptors := formats.Reduce(toClientResponses(result.Responses))
	info.Formats = make([]FormatInfo, 0, len(descriptors))
	for _, d := range descriptors {
		info.Formats = append(info.Formats, toFormatInfo(d))
	}

	playerURL := result.PlayerURL
	info.DashManifestURL = c.resolveManifestURL(ctx, info.DashManifestURL, playerURL)
	info.HLSManifestURL = c.resolveManifestURL(ctx, info.HLSManifestURL, playerURL)

	manifestFormats := c.loadManifestFormats(ctx, info.DashManifestURL, info.HLSManifestURL)
	if len(manifestFormats) > 0 {
		info.Formats = appendUniqueFormats(info.Formats, manifestFormats)
	}

	if len(info.Formats) == 0 {
		if playErr := classifyPlayability(result.Responses); playErr != nil {
			return nil, playErr
		}
	}

	c.putSession(videoID, videoSession{
		Responses: result.Responses,
		PlayerURL: playerURL,
		Info:      cloneVideoInfo(info),
	})

	return info, nil
}

// GetFormats returns normalized formats only.
func (c *Client) GetFormats(ctx context.Context, input string) ([]FormatInfo, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	v, err := c.GetVideo(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(v.Formats) == 0 {
		return nil, ErrNoPlayableFormats
	}
	return v.Formats, nil
}

// FetchDASHManifest fetches DASH manifest content for the given video ID/URL.
func (c *Client) FetchDASHManifest(ctx context.Context, input string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	session, videoID, err := c.ensureSession(ctx, input)
	if err != nil {
		return "", err
	}
	manifestURL := c.resolveManifestURL(ctx, streamingDataString(session.Responses, "dashManifestUrl"), session.PlayerURL)
	if manifestURL == "" {
		return "", fmt.Errorf("%w: dash manifest unavailable for video=%s", ErrNoPlayableFormats, videoID)
	}
	manifest, err := formats.FetchDASHManifest(ctx, c.httpClient(), manifestURL)
	if err != nil {
		return "", err
	}
	return manifest.RawContent, nil
}

// FetchHLSManifest fetches HLS manifest content for the given video ID/URL.
func (c *Client) FetchHLSManifest(ctx context.Context, input string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	session, videoID, err := c.ensureSession(ctx, input)
	if err != nil {
		return "", err
	}
	manifestURL := c.resolveManifestURL(ctx, streamingDataString(session.Responses, "hlsManifestUrl"), session.PlayerURL)
	if manifestURL == "" {
		return "", fmt.Errorf("%w: hls manifest unavailable for video=%s", ErrNoPlayableFormats, videoID)
	}
	manifest, err := formats.FetchHLSManifest(ctx, c.httpClient(), manifestURL)
	if err != nil {
		return "", err
	}
	return manifest.RawContent, nil
}

// ResolveStreamURL resolves a direct playable URL for a specific itag.
func (c *Client) ResolveStreamURL(ctx context.Context, videoID string, itag int) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	videoID, err := normalizeVideoID(videoID)
	if err != nil {
		return "", err
	}

	session, ok := c.getSession(videoID)
	if !ok {
		if _, err := c.GetVideo(ctx, videoID); err != nil {
			return "", err
		}
		session, ok = c.getSession(videoID)
		if !ok {
			return "", ErrChallengeNotSolved
		}
	}

	raw, found := findRawFormat(session.Responses, itag)
	if !found {
		return "", fmt.Errorf("%w: itag=%d", ErrNoPlayableFormats, itag)
	}

	if rawURL := stringField(raw, "url"); rawURL != "" {
		return c.resolveDirectURL(ctx, rawURL, session.PlayerURL)
	}

	cipher := stringField(raw, "signatureCipher")
	if cipher == "" {
		cipher = stringField(raw, "cipher")
	}
	if cipher == "" || session.PlayerURL == "" {
		return "", ErrChallengeNotSolved
	}

	jsBody, err := c.loadPlayerJS(ctx, session.PlayerURL)
	if err != nil {
		return "", ErrChallengeNotSolved
	}
	resolved, err := c.decipherEngine.Decipher(cipher, canonicalPlayerCacheKey(session.PlayerURL), jsBody)
	if err != nil {
		return "", ErrChallengeNotSolved
	}
	return resolved, nil
}

// DecipherSignature runs the full signature-cipher decode flow against a
// bare signature_query/player_url pair, without requiring a prior
// GetVideo/ResolveStreamURL call to establish a video session. It loads
// (or reuses the cached copy of) the player JS at playerURL and delegates
// to the decipher engine, so repeat calls for the same playerURL reuse
// both the fetched script and its parsed op-table.
func (c *Client) DecipherSignature(ctx context.Context, signatureQuery, playerURL string) (string, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	if strings.TrimSpace(signatureQuery) == "" {
		return "", &types.InvalidInputError{What: "signature_query", Got: signatureQuery}
	}
	if strings.TrimSpace(playerURL) == "" {
		return "", &types.InvalidInputError{What: "player_url", Got: playerURL}
	}

	jsBody, err := c.loadPlayerJS(ctx, playerURL)
	if err != nil {
		return "", err
	}
	return c.decipherEngine.Decipher(signatureQuery, canonicalPlayerCacheKey(playerURL), jsBody)
}

func (c *Client) resolveSelectedFormatURL(ctx context.Context, videoID string, f FormatInfo) (string, error) {
	videoID, err := normalizeVideoID(videoID)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(f.URL) != "" {
		session, ok := c.getSession(videoID)
		if !ok {
			if _, err := c.GetVideo(ctx, videoID); err != nil {
				return "", err
			}
			session, ok = c.getSession(videoID)
			if !ok {
				return "", ErrChallengeNotSolved
			}
		}
		return c.resolveDirectURL(ctx, f.URL, session.PlayerURL)
	}

	return c.ResolveStreamURL(ctx, videoID, f.Itag)
}

func toFormatInfo(d formats.StreamDescriptor) FormatInfo {
	url := ""
	ciphered := false
	switch d.Source.Kind {
	case formats.SourceURL:
		url = d.Source.Value
	case formats.SourceSignature:
		ciphered = true
	}
	return FormatInfo{
		Itag:         d.Itag,
		URL:          url,
		MimeType:     mimeTypeOf(d),
		Protocol:     "https",
		HasAudio:     d.ACodec != "",
		HasVideo:     d.VCodec != "",
		Bitrate:      d.TotalBitrate,
		Width:        d.Width,
		Height:       d.Height,
		FPS:          d.FPS,
		Ciphered:     ciphered,
		Quality:      d.Quality,
		QualityLabel: d.QualityLabel,
		SourceClient: d.Client,
		IsDRM:        d.HasDRM,
	}
}

func mimeTypeOf(d formats.StreamDescriptor) string {
	major := "video"
	if d.VCodec == "" && d.ACodec != "" {
		major = "audio"
	}
	return major + "/" + string(d.Extension)
}

func toClientResponses(accepted []orchestrator.AcceptedResponse) []formats.ClientResponse {
	out := make([]formats.ClientResponse, 0, len(accepted))
	for _, a := range accepted {
		out = append(out, formats.ClientResponse{Client: a.Client.String(), Response: a.Response})
	}
	return out
}

func normalizeVideoID(input string) (string, error) {
	id, err := ExtractVideoID(input)
	if err == nil {
		return id, nil
	}
	if errors.Is(err, ErrInvalidInput) {
		return "", err
	}
	return "", ErrInvalidInput
}

func mapError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, types.ErrNoClientsAvailable):
		return &AllClientsFailedDetailError{}
	case errors.Is(err, types.ErrLoginRequired):
		return ErrLoginRequired
	case errors.Is(err, types.ErrVideoUnavailable), errors.Is(err, types.ErrAgeRestricted):
		return ErrUnavailable
	}

	var noResponse *types.NoPlayerResponseError
	if errors.As(err, &noResponse) {
		attempts := make([]AttemptDetail, 0, len(noResponse.Causes))
		hasLoginRequired := false
		for _, cause := range noResponse.Causes {
			attempts = append(attempts, attemptDetailFromCause(cause))
			var authErr *types.AuthErrorDetail
			if errors.As(cause, &authErr) {
				hasLoginRequired = true
			}
		}
		if hasLoginRequired {
			return &LoginRequiredDetailError{Attempts: attempts}
		}
		return &AllClientsFailedDetailError{Attempts: attempts}
	}

	var poTokenErr *orchestrator.PoTokenRequiredError
	if errors.As(err, &poTokenErr) {
		return &AllClientsFailedDetailError{
			Attempts: []AttemptDetail{attemptDetailFromSingle(poTokenErr.Client, poTokenErr)},
		}
	}

	return err
}

func attemptDetailFromCause(err error) AttemptDetail {
	var attemptErr *orchestrator.AttemptError
	if errors.As(err, &attemptErr) {
		return attemptDetailFromSingle(attemptErr.Client, attemptErr.Err)
	}
	return attemptDetailFromSingle("", err)
}

func attemptDetailFromSingle(client string, err error) AttemptDetail {
	d := AttemptDetail{
		Client: client,
		Stage:  "unknown",
	}
	if err == nil {
		return d
	}
	d.Reason = err.Error()

	var authErr *types.AuthErrorDetail
	if errors.As(err, &authErr) {
		d.Stage = "auth"
		d.LoginRequired = true
		return d
	}

	var poTokenErr *orchestrator.PoTokenRequiredError
	if errors.As(err, &poTokenErr) {
		d.Stage = "pot"
		d.POTRequired = true
		d.POTAvailable = poTokenErr.ProviderAvailable
		d.POTPolicy = string(poTokenErr.Policy)
		for _, protocol := range poTokenErr.Protocols {
			d.POTProtocols = append(d.POTProtocols, string(protocol))
		}
		d.Reason = poTokenErr.Cause
		return d
	}

	return d
}

// classifyPlayability inspects the accepted responses' playabilityStatus
// blocks when reduction yielded zero streams, turning a silent empty
// result into a meaningful login/age/availability error.
func classifyPlayability(accepted []orchestrator.AcceptedResponse) error {
	var attempts []AttemptDetail
	loginRequired := false
	ageRestricted := false
	for _, a := range accepted {
		status, _ := a.Response["playabilityStatus"].(map[string]any)
		if status == nil {
			continue
		}
		s := stringField(status, "status")
		reason := stringField(status, "reason")
		if s == "OK" {
			continue
		}
		detail := AttemptDetail{
			Client:            a.Client.String(),
			Stage:             "playability",
			Reason:            s + ": " + reason,
			PlayabilityStatus: s,
			PlayabilityReason: reason,
		}
		upper := strings.ToUpper(s + " " + reason)
		if strings.Contains(upper, "LOGIN") || strings.Contains(upper, "SIGN IN") {
			loginRequired = true
			detail.LoginRequired = true
		}
		if strings.Contains(upper, "AGE") {
			ageRestricted = true
			detail.AgeRestricted = true
		}
		if strings.Contains(upper, "UNAVAILABLE") || strings.Contains(upper, "PRIVATE") {
			detail.Unavailable = true
		}
		attempts = append(attempts, detail)
	}
	if len(attempts) == 0 {
		return nil
	}
	if loginRequired || ageRestricted {
		return &LoginRequiredDetailError{Attempts: attempts}
	}
	return &UnavailableDetailError{Attempts: attempts}
}

func (c *Client) getSession(videoID string) (videoSession, bool) {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()
	s, ok := c.sessions[videoID]
	if !ok {
		return videoSession{}, false
	}
	now := time.Now()
	if ttl := c.config.SessionCacheTTL; ttl > 0 && !s.CachedAt.IsZero() && now.Sub(s.CachedAt) > ttl {
		delete(c.sessions, videoID)
		return videoSession{}, false
	}
	s.LastAccess = now
	c.sessions[videoID] = s
	return s, ok
}

func (c *Client) putSession(videoID string, session videoSession) {
	now := time.Now()
	if session.CachedAt.IsZero() {
		session.CachedAt = now
	}
	session.LastAccess = now

	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	if c.sessions == nil {
		c.sessions = make(map[string]videoSession)
	}
	c.evictExpiredLocked(now)
	c.sessions[videoID] = session
	c.evictLRULocked()
}

func (c *Client) evictExpiredLocked(now time.Time) {
	ttl := c.config.SessionCacheTTL
	if ttl <= 0 {
		return
	}
	for id, session := range c.sessions {
		if session.CachedAt.IsZero() {
			continue
		}
		if now.Sub(session.CachedAt) > ttl {
			delete(c.sessions, id)
		}
	}
}

func (c *Client) evictLRULocked() {
	maxEntries := c.config.SessionCacheMaxEntries
	if maxEntries <= 0 {
		return
	}
	for len(c.sessions) > maxEntries {
		var oldestID string
		var oldest time.Time
		first := true
		for id, session := range c.sessions {
			candidate := session.LastAccess
			if candidate.IsZero() {
				candidate = session.CachedAt
			}
			if first || candidate.Before(oldest) {
				first = false
				oldestID = id
				oldest = candidate
			}
		}
		if oldestID == "" {
			return
		}
		delete(c.sessions, oldestID)
	}
}

// PlayerURL resolves and returns the JS player URL backing input's current
// session, extracting a fresh session first if none is cached.
func (c *Client) PlayerURL(ctx context.Context, input string) (string, error) {
	session, _, err := c.ensureSession(ctx, input)
	if err != nil {
		return "", err
	}
	if session.PlayerURL == "" {
		return "", &types.DataMissingError{What: "player URL"}
	}
	return session.PlayerURL, nil
}

func (c *Client) ensureSession(ctx context.Context, input string) (videoSession, string, error) {
	videoID, err := normalizeVideoID(input)
	if err != nil {
		return videoSession{}, "", err
	}
	session, ok := c.getSession(videoID)
	if ok {
		return session, videoID, nil
	}
	if _, err := c.GetVideo(ctx, videoID); err != nil {
		return videoSession{}, "", err
	}
	session, ok = c.getSession(videoID)
	if !ok {
		return videoSession{}, "", ErrChallengeNotSolved
	}
	return session, videoID, nil
}

func findRawFormat(responses []orchestrator.AcceptedResponse, itag int) (map[string]any, bool) {
	for _, a := range responses {
		streamingData, _ := a.Response["streamingData"].(map[string]any)
		if streamingData == nil {
			continue
		}
		for _, key := range []string{"formats", "adaptiveFormats"} {
			items, _ := streamingData[key].([]any)
			for _, item := range items {
				f, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if intField(f, "itag") == itag {
					return f, true
				}
			}
		}
	}
	return nil, false
}

func streamingDataString(responses []orchestrator.AcceptedResponse, key string) string {
	for _, a := range responses {
		streamingData, _ := a.Response["streamingData"].(map[string]any)
		if streamingData == nil {
			continue
		}
		if v := stringField(streamingData, key); v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) resolveManifestURL(ctx context.Context, manifestURL, playerURL string) string {
	if manifestURL == "" || playerURL == "" || !hasQueryParam(manifestURL, "n") {
		return manifestURL
	}
	rewritten, err := rewriteURLParam(manifestURL, "n", func(value string) (string, error) {
		return c.decodeNWithCache(ctx, playerURL, value)
	})
	if err != nil {
		c.warnf("n challenge decode failed for manifest url; using original url: %v", err)
		return manifestURL
	}
	return rewritten
}

func hasQueryParam(rawURL, key string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Query().Get(key) != ""
}

func rewriteURLParam(rawURL, key string, decoder func(string) (string, error)) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	current := q.Get(key)
	if current == "" {
		return rawURL, nil
	}
	next, err := decoder(current)
	if err != nil {
		return "", err
	}
	q.Set(key, next)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) loadManifestFormats(ctx context.Context, dashURL, hlsURL string) []FormatInfo {
	out := make([]FormatInfo, 0, 16)
	if dashURL != "" {
		c.emitExtractionEvent("manifest", "start", "dash", dashURL)
		if dash, err := formats.FetchDASHManifest(ctx, c.httpClient(), dashURL); err == nil {
			c.emitExtractionEvent("manifest", "success", "dash", dashURL)
			for _, f := range dash.Formats {
				out = append(out, toManifestFormatInfo(f))
			}
		} else {
			c.emitExtractionEvent("manifest", "failure", "dash", err.Error())
		}
	}
	if hlsURL != "" {
		c.emitExtractionEvent("manifest", "start", "hls", hlsURL)
		if hls, err := formats.FetchHLSManifest(ctx, c.httpClient(), hlsURL); err == nil {
			c.emitExtractionEvent("manifest", "success", "hls", hlsURL)
			for _, f := range hls.Formats {
				out = append(out, toManifestFormatInfo(f))
			}
		} else {
			c.emitExtractionEvent("manifest", "failure", "hls", err.Error())
		}
	}
	return out
}

func toManifestFormatInfo(f formats.Format) FormatInfo {
	return FormatInfo{
		Itag:     f.Itag,
		URL:      f.URL,
		MimeType: f.MimeType,
		Protocol: f.Protocol,
		HasAudio: f.HasAudio,
		HasVideo: f.HasVideo,
		Bitrate:  f.Bitrate,
		Width:    f.Width,
		Height:   f.Height,
		FPS:      f.FPS,
	}
}

func appendUniqueFormats(base []FormatInfo, extras []FormatInfo) []FormatInfo {
	if len(extras) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(extras))
	keyOf := func(f FormatInfo) string {
		return fmt.Sprintf("%d|%s|%s", f.Itag, f.Protocol, f.URL)
	}
	out := make([]FormatInfo, 0, len(base)+len(extras))
	for _, f := range base {
		k := keyOf(f)
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	for _, f := range extras {
		k := keyOf(f)
		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, f)
	}
	return out
}

func (c *Client) resolveDirectURL(ctx context.Context, rawURL string, playerURL string) (string, error) {
	if rawURL == "" {
		return "", ErrChallengeNotSolved
	}
	if !hasQueryParam(rawURL, "n") {
		return rawURL, nil
	}
	if playerURL == "" {
		return "", ErrChallengeNotSolved
	}

	rewritten, err := rewriteURLParam(rawURL, "n", func(value string) (string, error) {
		return c.decodeNWithCache(ctx, playerURL, value)
	})
	if err != nil {
		c.warnf("n challenge decode failed for direct url; using original url: %v", err)
		return rawURL, nil
	}
	return rewritten, nil
}

func (c *Client) warnf(format string, args ...any) {
	if c == nil || c.logger == nil {
		return
	}
	c.logger.Warnf(format, args...)
}

func buildVideoInfo(videoID string, accepted []orchestrator.AcceptedResponse) *VideoInfo {
	info := &VideoInfo{ID: videoID}
	for _, a := range accepted {
		details, _ := a.Response["videoDetails"].(map[string]any)
		micro, _ := a.Response["microformat"].(map[string]any)
		renderer, _ := micro["playerMicroformatRenderer"].(map[string]any)

		if info.Title == "" {
			info.Title = stringField(details, "title")
		}
		if info.Author == "" {
			info.Author = stringField(details, "author")
		}
		if info.Description == "" {
			info.Description = firstNonEmptyString(stringField(details, "shortDescription"), descriptionText(renderer))
		}
		if info.DurationSec == 0 {
			info.DurationSec = parseInt64String(firstNonEmptyString(stringField(details, "lengthSeconds"), stringField(renderer, "lengthSeconds")))
		}
		if info.ViewCount == 0 {
			info.ViewCount = parseInt64String(firstNonEmptyString(stringField(details, "viewCount"), stringField(renderer, "viewCount")))
		}
		if info.ChannelID == "" {
			info.ChannelID = firstNonEmptyString(stringField(details, "channelId"), stringField(renderer, "externalChannelId"))
		}
		if info.PublishDate == "" {
			info.PublishDate = stringField(renderer, "publishDate")
		}
		if info.UploadDate == "" {
			info.UploadDate = stringField(renderer, "uploadDate")
		}
		if info.Category == "" {
			info.Category = stringField(renderer, "category")
		}
		if live, _ := details["isLiveContent"].(bool); live {
			info.IsLive = true
		}
		if status, _ := a.Response["playabilityStatus"].(map[string]any); status != nil {
			if s := stringField(status, "liveStreamability"); s != "" {
				info.IsLive = true
			}
		}
		if len(info.Keywords) == 0 {
			if kws, ok := details["keywords"].([]any); ok {
				for _, k := range kws {
					if s, ok := k.(string); ok {
						info.Keywords = append(info.Keywords, s)
					}
				}
			}
		}
		if info.DashManifestURL == "" {
			info.DashManifestURL = streamingDataString(accepted, "dashManifestUrl")
		}
		if info.HLSManifestURL == "" {
			info.HLSManifestURL = streamingDataString(accepted, "hlsManifestUrl")
		}
	}
	return info
}

func descriptionText(renderer map[string]any) string {
	description, _ := renderer["description"].(map[string]any)
	return stringField(description, "simpleText")
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func firstNonEmptyString(values ...string) string {
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func parseInt64String(raw string) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func cloneVideoInfo(v *VideoInfo) *VideoInfo {
	if v == nil {
		return nil
	}
	clone := *v
	if len(v.Keywords) > 0 {
		clone.Keywords = append([]string(nil), v.Keywords...)
	}
	if len(v.Formats) > 0 {
		clone.Formats = append([]FormatInfo(nil), v.Formats...)
	}
	return &clone
}

func (c *Client) emitExtractionEvent(stage, phase, source, detail string) {
	if c == nil {
		return
	}
	c.logger.Extraction(ExtractionEvent{Stage: stage, Phase: phase, Client: source, Detail: detail})
	if c.config.OnExtractionEvent == nil {
		return
	}
	c.config.OnExtractionEvent(ExtractionEvent{
		Stage:  stage,
		Phase:  phase,
		Client: source,
		Detail: detail,
	})
}

func (c *Client) httpClient() *http.Client {
	if c.config.HTTPClient != nil {
		return c.config.HTTPClient
	}
	return http.DefaultClient
}
