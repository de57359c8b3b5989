package client

import (
	"net/http"
	"time"

	"github.com/corvid-tools/ytgrab/internal/cookies"
	"github.com/corvid-tools/ytgrab/internal/downloader"
	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/muxer"
	"github.com/corvid-tools/ytgrab/internal/ytlog"
)

// ExtractionEvent and DownloadEvent are the lifecycle events a Config's
// hooks receive; aliased from ytlog so callers don't need that import.
type ExtractionEvent = ytlog.ExtractionEvent
type DownloadEvent = ytlog.DownloadEvent

// Config configures a Client. The zero value is usable: every field
// resolves to a sensible default.
type Config struct {
	HTTPClient      *http.Client
	ProxyURL        string
	CookieJar       *cookies.Jar
	PoTokenProvider innertube.PoTokenProvider
	VisitorData     string

	// RequestTimeout bounds every public Client call that doesn't already
	// carry a context deadline. Zero means no extra timeout.
	RequestTimeout time.Duration
	RequestHeaders http.Header

	// ClientOverrides/ClientSkip restrict which impersonated Innertube
	// clients SelectClients considers, by name (e.g. "web", "android").
	ClientOverrides []string
	ClientSkip      []string

	// AppendFallbackOnClientOverrides lets age-gate/embedding fallback
	// (e.g. extending to web_embedded, tv_embedded) still kick in when
	// ClientOverrides is set. By default, an explicit override list is
	// treated as exhaustive and fallback extension is suppressed.
	AppendFallbackOnClientOverrides bool
	// DisableFallbackClients forces fallback extension off regardless of
	// AppendFallbackOnClientOverrides. Explicit false has no effect when
	// ClientOverrides implies disabling fallback; set
	// AppendFallbackOnClientOverrides instead to re-enable it.
	DisableFallbackClients bool

	SessionCacheTTL        time.Duration
	SessionCacheMaxEntries int

	// PoTokenFetchPolicy overrides the per-protocol PO token strictness a
	// source client's registered policy would otherwise imply.
	PoTokenFetchPolicy map[innertube.VideoStreamingProtocol]innertube.PoTokenFetchPolicy

	Logger            ytlog.Logger
	OnExtractionEvent func(ExtractionEvent)
	OnDownloadEvent   func(DownloadEvent)

	Muxer                 muxer.Muxer
	MP3Transcoder         MP3Transcoder
	DownloadTransport     downloader.TransportConfig
	KeepIntermediateFiles bool

	// PersistentCachePath, if set, backs the decipher result cache with a
	// bbolt file at this path so resolved n/signature transforms survive
	// across process runs. Call Client.Close when done with it to flush
	// the latest entries back to disk.
	PersistentCachePath string
}

// ToInnerTubeConfig projects the fields an internal/innertube.Config
// collaborator needs out of Config, resolving the effective
// DisableFallbackClients: an explicit true always wins; otherwise
// fallback is disabled whenever ClientOverrides narrows the client
// stack, unless AppendFallbackOnClientOverrides opts back in.
func (cfg Config) ToInnerTubeConfig() innertube.Config {
	disableFallback := cfg.DisableFallbackClients ||
		(len(cfg.ClientOverrides) > 0 && !cfg.AppendFallbackOnClientOverrides)

	return innertube.Config{
		HTTPClient:             cfg.HTTPClient,
		ProxyURL:               cfg.ProxyURL,
		PoTokenProvider:        cfg.PoTokenProvider,
		PoTokenFetchPolicy:     cfg.PoTokenFetchPolicy,
		VisitorData:            cfg.VisitorData,
		ClientOverrides:        cfg.ClientOverrides,
		ClientSkip:             cfg.ClientSkip,
		RequestHeaders:         cfg.RequestHeaders,
		RequestTimeout:         cfg.RequestTimeout,
		DisableFallbackClients: disableFallback,
	}
}
