package main

import "time"

// options collects every flag the root command accepts. It replaces the
// teacher's bare flag.Parse-driven internal/cli.Options with a struct
// cobra/pflag populates directly.
type options struct {
	URLs []string

	OutputTemplate  string
	DownloadArchive string

	FormatSelector string
	SkipDownload   bool
	ListFormats    bool

	WriteSubs     bool
	WriteAutoSubs bool
	SubLangs      string
	SubFormat     string

	FlatPlaylist bool
	PrintJSON    bool

	Verbose             bool
	NoWarnings          bool
	OverrideDiagnostics bool
	AbortOnError        bool
	NoContinue          bool

	PlayerJSURLOnly bool

	CookiesFile     string
	VisitorData     string
	ProxyURL        string
	PoToken         string
	ClientOverrides []string
	ClientSkip      []string

	PersistentCachePath string
	RequestTimeout      time.Duration

	FFmpegPath string
}
