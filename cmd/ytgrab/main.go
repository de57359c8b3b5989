package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/corvid-tools/ytgrab/client"
	"github.com/corvid-tools/ytgrab/internal/cookies"
	"github.com/corvid-tools/ytgrab/internal/muxer"
)

var activeDownloadArchive *downloadArchive

const (
	exitCodeSuccess             = 0
	exitCodeGenericFailure      = 1
	exitCodeInvalidInput        = 2
	exitCodeLoginRequired       = 3
	exitCodeUnavailable         = 4
	exitCodeNoPlayableFormats   = 5
	exitCodeChallengeUnresolved = 6
	exitCodeAllClientsFailed    = 7
	exitCodeDownloadFailed      = 8
	exitCodeMP3ConfigRequired   = 9
	exitCodeTranscriptParse     = 10
)

func main() {
	opts := &options{}
	root := newRootCommand(opts)
	if err := root.Execute(); err != nil {
		os.Exit(exitCodeGenericFailure)
	}
}

func newRootCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ytgrab [flags] URL [URL...]",
		Short:         "Extract and download YouTube video streams",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.URLs = args
			code := runRoot(cmd.Context(), opts)
			if code != exitCodeSuccess {
				os.Exit(code)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.OutputTemplate, "output", "o", "", "output filename template, e.g. %(title)s.%(ext)s")
	flags.StringVar(&opts.DownloadArchive, "download-archive", "", "record downloaded video IDs in this file and skip them on rerun")

	flags.StringVarP(&opts.FormatSelector, "format", "f", "best", "format selector: best, bestvideo, bestaudio, mp4, mp3, videoonly, audioonly, or an itag")
	flags.BoolVar(&opts.SkipDownload, "skip-download", false, "extract metadata/formats without downloading")
	flags.BoolVarP(&opts.ListFormats, "list-formats", "F", false, "list available formats and exit")

	flags.BoolVar(&opts.WriteSubs, "write-subs", false, "write subtitle files for requested languages")
	flags.BoolVar(&opts.WriteAutoSubs, "write-auto-subs", false, "write auto-generated subtitle files")
	flags.StringVar(&opts.SubLangs, "sub-langs", "en", "comma-separated subtitle language codes")
	flags.StringVar(&opts.SubFormat, "sub-format", "srt", "subtitle output format preference, e.g. vtt/srt")

	flags.BoolVar(&opts.FlatPlaylist, "flat-playlist", false, "list playlist entries without resolving each video")
	flags.BoolVarP(&opts.PrintJSON, "dump-json", "j", false, "print video/playlist metadata as JSON instead of downloading")

	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "print extraction/download lifecycle events")
	flags.BoolVar(&opts.NoWarnings, "no-warnings", false, "suppress non-fatal warnings")
	flags.BoolVar(&opts.OverrideDiagnostics, "override-diagnostics", false, "print attempt diagnostics even on first failure")
	flags.BoolVar(&opts.AbortOnError, "abort-on-error", false, "stop processing remaining URLs after the first failure")
	flags.BoolVar(&opts.NoContinue, "no-continue", false, "disable resuming partial downloads")

	flags.BoolVar(&opts.PlayerJSURLOnly, "print-player-url", false, "print the resolved JS player URL and exit")

	flags.StringVar(&opts.CookiesFile, "cookies", "", "Netscape-format cookies file for authenticated requests")
	flags.StringVar(&opts.VisitorData, "visitor-data", "", "VISITOR_INFO1_LIVE value to attach to Innertube requests")
	flags.StringVar(&opts.ProxyURL, "proxy", "", "HTTP(S) proxy URL")
	flags.StringVar(&opts.PoToken, "po-token", "", "proof-of-origin token to attach to requests that require one")
	flags.StringSliceVar(&opts.ClientOverrides, "extractor-client", nil, "restrict Innertube client impersonation to these client names")
	flags.StringSliceVar(&opts.ClientSkip, "skip-client", nil, "exclude these Innertube client names from fallback")

	flags.StringVar(&opts.PersistentCachePath, "cache-file", "", "bbolt file persisting deciphered signature/n transforms across runs")
	flags.DurationVar(&opts.RequestTimeout, "timeout", 0, "per-request timeout, e.g. 30s (0 = no extra timeout)")
	flags.StringVar(&opts.FFmpegPath, "ffmpeg-location", "", "path to the ffmpeg binary used to mux separate video/audio tracks")

	return cmd
}

func runRoot(ctx context.Context, opts *options) int {
	cfg, err := buildClientConfig(opts)
	if err != nil {
		log.Printf("failed to initialize client: %v", err)
		return exitCodeGenericFailure
	}

	if strings.TrimSpace(opts.DownloadArchive) != "" {
		archive, err := newDownloadArchive(opts.DownloadArchive)
		if err != nil {
			log.Printf("failed to initialize download archive: %v", err)
			return exitCodeGenericFailure
		}
		activeDownloadArchive = archive
		defer func() {
			if err := archive.Close(); err != nil {
				log.Printf("failed to close download archive: %v", err)
			}
		}()
	}

	attachLifecycleHandlers(&cfg, opts)
	c := client.New(cfg)
	defer func() {
		if err := c.Close(); err != nil {
			log.Printf("failed to flush persistent cache: %v", err)
		}
	}()

	return processInputsWithExitCode(ctx, c, opts.URLs, opts, processURL)
}

func buildClientConfig(opts *options) (client.Config, error) {
	cfg := client.Config{
		ProxyURL:            opts.ProxyURL,
		VisitorData:         opts.VisitorData,
		ClientOverrides:     opts.ClientOverrides,
		ClientSkip:          opts.ClientSkip,
		RequestTimeout:      opts.RequestTimeout,
		PersistentCachePath: opts.PersistentCachePath,
		Muxer:               muxer.NewFFmpegMuxer(opts.FFmpegPath),
		MP3Transcoder:       mp3TranscoderAdapter{t: muxer.NewFFmpegMP3Transcoder(opts.FFmpegPath)},
	}

	if strings.TrimSpace(opts.CookiesFile) != "" {
		f, err := os.Open(opts.CookiesFile)
		if err != nil {
			return client.Config{}, fmt.Errorf("open cookies file: %w", err)
		}
		defer f.Close()
		jar := cookies.NewJar()
		if err := cookies.LoadNetscapeInto(jar, f); err != nil {
			return client.Config{}, fmt.Errorf("parse cookies file: %w", err)
		}
		cfg.CookieJar = jar
	}

	if strings.TrimSpace(opts.PoToken) != "" {
		cfg.PoTokenProvider = staticPoTokenProvider(opts.PoToken)
	}

	return cfg, nil
}

// staticPoTokenProvider returns the same proof-of-origin token for every
// client, for the common single-token CLI case.
type staticPoTokenProvider string

func (p staticPoTokenProvider) GetToken(ctx context.Context, clientID string) (string, error) {
	return string(p), nil
}

// mp3TranscoderAdapter satisfies client.MP3Transcoder by discarding the
// metadata parameter muxer.FFmpegMP3Transcoder doesn't need: MP3 output
// carries no container metadata tagging in this CLI, unlike the merged
// video/audio path which tags via FFmpegMuxer.Merge.
type mp3TranscoderAdapter struct {
	t *muxer.FFmpegMP3Transcoder
}

func (a mp3TranscoderAdapter) TranscodeToMP3(ctx context.Context, src io.Reader, dst io.Writer, meta client.MP3TranscodeMetadata) (int64, error) {
	return a.t.TranscodeToMP3(ctx, src, dst)
}

func attachLifecycleHandlers(cfg *client.Config, opts *options) {
	if opts.Verbose {
		lp := newLifecyclePrinter(time.Now)
		cfg.OnExtractionEvent = func(evt client.ExtractionEvent) {
			fmt.Println(lp.formatExtractionEvent(evt))
		}
		cfg.OnDownloadEvent = func(evt client.DownloadEvent) {
			fmt.Println(lp.formatDownloadEvent(evt))
		}
	}
	if !opts.NoWarnings {
		cfg.Logger = ytlogWarnOnly{}
	}
}

// ytlogWarnOnly routes package-level warnings to the standard logger
// instead of discarding them, without needing the full zerolog formatting
// stack for a CLI that just wants a single readable line per warning.
type ytlogWarnOnly struct{}

func (ytlogWarnOnly) Warnf(format string, args ...any) { log.Printf("WARNING: "+format, args...) }
func (ytlogWarnOnly) Extraction(client.ExtractionEvent) {}
func (ytlogWarnOnly) Download(client.DownloadEvent)     {}
