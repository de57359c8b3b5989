package main

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/corvid-tools/ytgrab/client"
)

// processInputsWithExitCode runs process over every URL in urls, returning
// the exit code for the whole invocation: the first non-success code seen,
// or success if every input succeeded. When opts.AbortOnError is set,
// processing stops at the first failure instead of continuing.
func processInputsWithExitCode(ctx context.Context, c *client.Client, urls []string, opts *options, process func(context.Context, *client.Client, string, *options) error) int {
	exitCode := exitCodeSuccess
	for _, url := range urls {
		if err := process(ctx, c, url, opts); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", url, err)
			printAttemptDiagnostics(err, opts.OverrideDiagnostics)
			if opts.PrintJSON {
				emitJSONFailure(url, err)
			}
			if exitCode == exitCodeSuccess {
				exitCode = classifyExitCode(err)
			}
			if opts.AbortOnError {
				return exitCode
			}
		}
	}
	return exitCode
}

// processURL handles one input: playlist URLs fan out to every member
// video (or are listed flat, with --flat-playlist); everything else is
// treated as a single video.
func processURL(ctx context.Context, c *client.Client, input string, opts *options) error {
	if _, err := client.ExtractPlaylistID(input); err == nil {
		return processPlaylist(ctx, c, input, opts)
	}
	return processVideo(ctx, c, input, opts)
}

func processPlaylist(ctx context.Context, c *client.Client, input string, opts *options) error {
	playlist, err := c.GetPlaylist(ctx, input)
	if err != nil {
		return err
	}

	if opts.FlatPlaylist {
		return emitFlatPlaylist(playlist)
	}

	return runPlaylistItems(ctx, c, playlist, opts)
}

// emitFlatPlaylist prints one line per playlist entry without resolving
// any of them further, for a quick listing of what a playlist contains.
func emitFlatPlaylist(playlist *client.PlaylistInfo) error {
	fmt.Printf("playlist %s (%s): %d videos\n", playlist.ID, playlist.Title, len(playlist.Items))
	for _, item := range playlist.Items {
		fmt.Printf("%s  %-8s  %s - %s\n", item.VideoID, item.Duration, item.Author, item.Title)
	}
	return nil
}

// runPlaylistItems resolves every playlist entry as its own video,
// continuing past individual failures and returning the first error seen.
func runPlaylistItems(ctx context.Context, c *client.Client, playlist *client.PlaylistInfo, opts *options) error {
	var firstErr error
	for _, item := range playlist.Items {
		if err := processVideo(ctx, c, item.VideoID, opts); err != nil {
			fmt.Fprintf(os.Stderr, "error: %s: %v\n", item.VideoID, err)
			printAttemptDiagnostics(err, opts.OverrideDiagnostics)
			if firstErr == nil {
				firstErr = err
			}
			if opts.AbortOnError {
				return firstErr
			}
		}
	}
	return firstErr
}

func processVideo(ctx context.Context, c *client.Client, input string, opts *options) error {
	if opts.PlayerJSURLOnly {
		url, err := c.PlayerURL(ctx, input)
		if err != nil {
			return err
		}
		fmt.Println(url)
		return nil
	}

	if opts.ListFormats {
		return printFormats(ctx, c, input)
	}

	if shouldSkipDownloadByArchive(activeDownloadArchive, input) {
		fmt.Fprintf(os.Stderr, "skipping %s: already recorded in download archive\n", input)
		return nil
	}

	info, err := c.GetVideo(ctx, input)
	if err != nil {
		return err
	}

	if opts.PrintJSON {
		if err := buildDumpSingleJSONPayload(info); err != nil {
			return err
		}
	}

	if opts.WriteSubs || opts.WriteAutoSubs {
		if err := writeRequestedSubtitles(ctx, c, info, opts); err != nil {
			warnf(opts, "subtitle extraction failed for %s: %v", info.ID, err)
		}
	}

	if opts.SkipDownload {
		return nil
	}

	downloadOpts := buildDownloadOptions(opts)
	result, err := c.Download(ctx, info.ID, downloadOpts)
	if err != nil {
		return err
	}

	recordCompletedDownload(activeDownloadArchive, info.ID)
	fmt.Printf("downloaded %s -> %s (%d bytes)\n", info.ID, result.OutputPath, result.Bytes)
	return nil
}

// buildDownloadOptions maps the CLI's --format selector onto the package's
// SelectionMode/itag pair. A pure integer selects an explicit itag;
// everything else maps onto the closest SelectionMode. "bestvideo+bestaudio"
// and "best" both resolve to SelectionModeBest, since Best mode already
// auto-merges a video-only and audio-only track when a Muxer is configured
// rather than needing a separate passthrough expression.
func buildDownloadOptions(opts *options) client.DownloadOptions {
	downloadOpts := client.DownloadOptions{
		OutputPath: opts.OutputTemplate,
		Resume:     !opts.NoContinue,
	}

	selector := strings.ToLower(strings.TrimSpace(opts.FormatSelector))
	if itag, err := strconv.Atoi(selector); err == nil {
		downloadOpts.Itag = itag
		return downloadOpts
	}

	switch selector {
	case "", "best", "bestvideo+bestaudio":
		downloadOpts.Mode = client.SelectionModeBest
	case "mp4", "mp4av":
		downloadOpts.Mode = client.SelectionModeMP4AV
	case "mp4videoonly":
		downloadOpts.Mode = client.SelectionModeMP4VideoOnly
	case "bestvideo", "videoonly":
		downloadOpts.Mode = client.SelectionModeVideoOnly
	case "bestaudio", "audioonly":
		downloadOpts.Mode = client.SelectionModeAudioOnly
	case "mp3":
		downloadOpts.Mode = client.SelectionModeMP3
	default:
		downloadOpts.Mode = client.SelectionModeBest
	}
	return downloadOpts
}

func printFormats(ctx context.Context, c *client.Client, input string) error {
	formats, err := c.GetFormats(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("%-6s %-6s %-12s %-10s %-6s %s\n", "itag", "ext", "resolution", "fps", "abr", "note")
	for _, f := range formats {
		res := "audio only"
		if f.HasVideo {
			res = fmt.Sprintf("%dx%d", f.Width, f.Height)
		}
		fmt.Printf("%-6d %-6s %-12s %-10d %-6s %s\n", f.Itag, mimeExt(f.MimeType), res, f.FPS, formatTrackNote(f), f.QualityLabel)
	}
	return nil
}

// mimeExt derives a file extension from a format's MIME type, stripping
// codec parameters first since mime.ExtensionsByType rejects them.
func mimeExt(mimeType string) string {
	base := mimeType
	if i := strings.Index(base, ";"); i >= 0 {
		base = base[:i]
	}
	exts, err := mime.ExtensionsByType(strings.TrimSpace(base))
	if err != nil || len(exts) == 0 {
		return ""
	}
	return strings.TrimPrefix(exts[0], ".")
}

// formatTrackNote returns a short yt-dlp style note on what a format
// carries: "video only", "audio only", or empty for a muxed track.
func formatTrackNote(f client.FormatInfo) string {
	switch {
	case f.HasVideo && !f.HasAudio:
		return "video only"
	case f.HasAudio && !f.HasVideo:
		return "audio only"
	default:
		return ""
	}
}

// buildDumpSingleJSONPayload prints info as a single JSON line to stdout,
// the --dump-json counterpart to a normal download.
func buildDumpSingleJSONPayload(info *client.VideoInfo) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

// writeRequestedSubtitles fetches and writes a transcript file for every
// requested language, in the selected subtitle output format.
func writeRequestedSubtitles(ctx context.Context, c *client.Client, info *client.VideoInfo, opts *options) error {
	format := client.ResolveSubtitleOutputFormat(opts.SubFormat)
	langs := parseSubtitleLanguages(opts.SubLangs)
	if len(langs) == 0 {
		langs = []string{""}
	}

	var firstErr error
	for _, lang := range langs {
		transcript, err := c.GetTranscript(ctx, info.ID, lang)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		path := subtitleOutputPath(opts.OutputTemplate, info, transcript.LanguageCode, format)
		if err := client.WriteTranscript(path, transcript, format); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		fmt.Printf("wrote subtitles %s -> %s\n", info.ID, path)
	}
	return firstErr
}

func parseSubtitleLanguages(raw string) []string {
	var langs []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			langs = append(langs, part)
		}
	}
	return langs
}

// subtitleOutputPath derives a subtitle file path from tmpl the same way a
// download output template works, substituting %(id)s/%(title)s/%(ext)s
// plus the subtitle's own language code, and falling back to
// "<id>.<lang>.<ext>" when tmpl carries no template tokens (or is empty).
func subtitleOutputPath(tmpl string, info *client.VideoInfo, lang string, format client.SubtitleOutputFormat) string {
	ext := string(format)
	base := sanitizeTemplateToken(info.ID)
	if tmpl == "" || !strings.Contains(tmpl, "%(") {
		name := fmt.Sprintf("%s.%s.%s", base, sanitizeTemplateToken(lang), ext)
		if tmpl == "" {
			return name
		}
		return filepath.Join(filepath.Dir(tmpl), name)
	}

	replacer := strings.NewReplacer(
		"%(id)s", sanitizeTemplateToken(info.ID),
		"%(title)s", sanitizeTemplateToken(info.Title),
		"%(uploader)s", sanitizeTemplateToken(info.Author),
		"%(lang)s", sanitizeTemplateToken(lang),
		"%(ext)s", ext,
	)
	return replacer.Replace(tmpl)
}

var templateTokenSanitizer = strings.NewReplacer(
	"/", "_",
	`\`, "_",
	":", "_",
	"*", "_",
	"?", "_",
	`"`, "_",
	"<", "_",
	">", "_",
	"|", "_",
)

func sanitizeTemplateToken(s string) string {
	return templateTokenSanitizer.Replace(s)
}

// warnf prints a CLI warning unless opts.NoWarnings suppresses it.
func warnf(opts *options, format string, args ...any) {
	if opts.NoWarnings {
		return
	}
	fmt.Fprintf(os.Stderr, "WARNING: "+format+"\n", args...)
}
