package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/corvid-tools/ytgrab/internal/downloader"
	"github.com/corvid-tools/ytgrab/internal/types"
)

// DownloadOptions controls stream download behavior.
type DownloadOptions struct {
	Itag                  int
	Mode                  SelectionMode
	OutputPath            string
	Resume                bool
	MergeOutput           bool
	KeepIntermediateFiles bool
}

// DownloadResult describes a completed file download.
type DownloadResult struct {
	VideoID    string
	Itag       int
	OutputPath string
	Bytes      int64
}

// Download resolves the selected stream URL(s) and writes the result to a
// local file. If options.Itag is 0, format selection follows options.Mode
// (default: best). Best and mp4av modes always try to merge a separate
// video-only and audio-only track when a Muxer is configured (MergeOutput
// is accepted for caller compatibility but doesn't gate this — merging on
// those modes is automatic). If options.OutputPath is empty, a default
// name derived from the video ID and itag(s) is used.
func (c *Client) Download(ctx context.Context, input string, options DownloadOptions) (*DownloadResult, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	videoID, err := normalizeVideoID(input)
	if err != nil {
		return nil, err
	}

	var info *VideoInfo
	if session, ok := c.getSession(videoID); ok && session.Info != nil {
		info = cloneVideoInfo(session.Info)
	}
	if info == nil {
		info, err = c.GetVideo(ctx, videoID)
		if err != nil {
			return nil, err
		}
	}
	formats := info.Formats

	meta := mediaMetadataOf(info)

	filteredFormats, skipReasons := filterFormatsByPoTokenPolicy(formats, c.config)
	if len(filteredFormats) == 0 && len(skipReasons) > 0 {
		return nil, &NoPlayableFormatsDetailError{Mode: normalizeSelectionMode(options.Mode), Skips: skipReasons}
	}
	if len(filteredFormats) > 0 {
		formats = filteredFormats
	}
	if len(formats) == 0 {
		return nil, ErrNoPlayableFormats
	}

	if options.Itag == 0 && wantsMergedTracks(options.Mode) {
		videoFmt, videoOK := selectDownloadFormat(formats, DownloadOptions{Mode: videoOnlyModeFor(options.Mode)})
		audioFmt, audioOK := selectDownloadFormat(formats, DownloadOptions{Mode: SelectionModeAudioOnly})
		if videoOK && audioOK && c.config.Muxer != nil && c.config.Muxer.Available() {
			result, mergeErr := c.downloadAndMerge(ctx, videoID, videoFmt, audioFmt, options, meta)
			if mergeErr == nil {
				return result, nil
			}
			if !errors.Is(mergeErr, ErrChallengeNotSolved) {
				return nil, mergeErr
			}
			c.warnf("merge tracks require an unresolved cipher challenge, falling back to single best format: %v", mergeErr)
		} else {
			c.warnf("merge unavailable (muxer missing or tracks not found), falling back to single best format")
		}
	}

	chosen, ok := selectDownloadFormat(formats, options)
	if !ok {
		return nil, fmt.Errorf("%w: itag=%d mode=%s", ErrNoPlayableFormats, options.Itag, normalizeSelectionMode(options.Mode))
	}
	outputPath := resolveOutputPathTemplate(options.OutputPath, videoID, chosen, meta)
	return c.downloadSingle(ctx, videoID, chosen, outputPath, options)
}

// resolveOutputPathTemplate expands %(field)s tokens in path against the
// chosen format and video metadata. Paths without any template tokens pass
// through unchanged.
func resolveOutputPathTemplate(path, videoID string, f FormatInfo, meta types.Metadata) string {
	if path == "" || !hasOutputPathTemplate(path) {
		return path
	}
	ext := "bin"
	if mediaType, _, err := mime.ParseMediaType(f.MimeType); err == nil {
		if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 && parts[1] != "" {
			ext = parts[1]
		}
	}
	return renderOutputPathTemplate(path, outputTemplateData{
		VideoID:  videoID,
		Title:    meta.Title,
		Uploader: meta.Artist,
		Ext:      ext,
		Itag:     strconv.Itoa(f.Itag),
	})
}

func mediaMetadataOf(info *VideoInfo) types.Metadata {
	date := info.PublishDate
	if date == "" {
		date = info.UploadDate
	}
	return types.Metadata{
		Title:       info.Title,
		Artist:      info.Author,
		Description: info.Description,
		Date:        date,
		Duration:    int(info.DurationSec),
	}
}

func wantsMergedTracks(mode SelectionMode) bool {
	switch normalizeSelectionMode(mode) {
	case SelectionModeBest, SelectionModeMP4AV:
		return true
	default:
		return false
	}
}

func videoOnlyModeFor(mode SelectionMode) SelectionMode {
	if normalizeSelectionMode(mode) == SelectionModeMP4AV {
		return SelectionModeMP4VideoOnly
	}
	return SelectionModeVideoOnly
}

func (c *Client) downloadSingle(ctx context.Context, videoID string, f FormatInfo, outputPath string, options DownloadOptions) (*DownloadResult, error) {
	if outputPath == "" {
		outputPath = defaultOutputPath(videoID, f.Itag, f.MimeType, options.Mode)
	}
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	if options.Mode == SelectionModeMP3 && c.config.MP3Transcoder == nil {
		return nil, &MP3TranscoderError{Mode: options.Mode}
	}

	streamURL, err := c.resolveSelectedFormatURL(ctx, videoID, f)
	if err != nil {
		return nil, err
	}
	c.emitDownloadEvent("download", "destination", videoID, outputPath, fmt.Sprintf("itag=%d", f.Itag))

	if options.Mode == SelectionModeMP3 {
		c.emitDownloadEvent("download", "start", videoID, outputPath, "transcode=mp3")
		out, err := os.Create(outputPath)
		if err != nil {
			c.emitDownloadEvent("download", "failure", videoID, outputPath, err.Error())
			return nil, err
		}
		defer out.Close()

		bytes, err := transcodeURLToMP3(ctx, c.httpClient(), c.config.MP3Transcoder, streamURL, MP3TranscodeMetadata{
			VideoID: videoID, SourceItag: f.Itag, SourceMimeType: f.MimeType,
		}, out, c.config.RequestHeaders)
		if err != nil {
			c.emitDownloadEvent("download", "failure", videoID, outputPath, err.Error())
			return nil, err
		}
		c.emitDownloadEvent("download", "complete", videoID, outputPath, fmt.Sprintf("bytes=%d", bytes))
		return &DownloadResult{VideoID: videoID, Itag: f.Itag, OutputPath: outputPath, Bytes: bytes}, nil
	}

	c.emitDownloadEvent("download", "start", videoID, outputPath, fmt.Sprintf("itag=%d", f.Itag))
	if err := c.downloadStream(ctx, videoID, streamURL, outputPath, f, options.Resume); err != nil {
		attempt := downloadAttemptFromFormatAndURL(f, streamURL, err)
		c.emitDownloadEvent("download", "failure", videoID, outputPath, formatDownloadFailureDetail(attempt))
		return nil, wrapDownloadFailure(err, attempt)
	}
	c.emitDownloadEvent("download", "complete", videoID, outputPath, fmt.Sprintf("bytes=%d", getFileSize(outputPath)))

	return &DownloadResult{
		VideoID:    videoID,
		Itag:       f.Itag,
		OutputPath: outputPath,
		Bytes:      getFileSize(outputPath),
	}, nil
}

func (c *Client) downloadAndMerge(ctx context.Context, videoID string, vidF, audF FormatInfo, options DownloadOptions, meta types.Metadata) (*DownloadResult, error) {
	basePath := resolveOutputPathTemplate(options.OutputPath, videoID, vidF, meta)
	if basePath == "" {
		basePath = fmt.Sprintf("%s-%d+%d.mp4", videoID, vidF.Itag, audF.Itag)
	}
	if filepath.Ext(basePath) == "" {
		basePath += ".mp4"
	}
	if dir := filepath.Dir(basePath); dir != "." && dir != "" {
		_ = os.MkdirAll(dir, 0o755)
	}

	videoPath := basePath + ".f" + strconv.Itoa(vidF.Itag) + ".video"
	audioPath := basePath + ".f" + strconv.Itoa(audF.Itag) + ".audio"
	keepIntermediates := options.KeepIntermediateFiles || c.config.KeepIntermediateFiles

	vURL, err := c.resolveSelectedFormatURL(ctx, videoID, vidF)
	if err != nil {
		return nil, err
	}
	c.emitDownloadEvent("download", "destination", videoID, videoPath, fmt.Sprintf("itag=%d", vidF.Itag))
	c.emitDownloadEvent("download", "start", videoID, videoPath, fmt.Sprintf("itag=%d", vidF.Itag))
	if err := c.downloadStream(ctx, videoID, vURL, videoPath, vidF, options.Resume); err != nil {
		attempt := downloadAttemptFromFormatAndURL(vidF, vURL, err)
		c.emitDownloadEvent("download", "failure", videoID, videoPath, formatDownloadFailureDetail(attempt))
		return nil, wrapDownloadFailure(err, attempt)
	}
	c.emitDownloadEvent("download", "complete", videoID, videoPath, fmt.Sprintf("bytes=%d", getFileSize(videoPath)))
	defer c.cleanupIntermediateFile(videoID, videoPath, keepIntermediates)

	aURL, err := c.resolveSelectedFormatURL(ctx, videoID, audF)
	if err != nil {
		return nil, err
	}
	c.emitDownloadEvent("download", "destination", videoID, audioPath, fmt.Sprintf("itag=%d", audF.Itag))
	c.emitDownloadEvent("download", "start", videoID, audioPath, fmt.Sprintf("itag=%d", audF.Itag))
	if err := c.downloadStream(ctx, videoID, aURL, audioPath, audF, options.Resume); err != nil {
		attempt := downloadAttemptFromFormatAndURL(audF, aURL, err)
		c.emitDownloadEvent("download", "failure", videoID, audioPath, formatDownloadFailureDetail(attempt))
		return nil, wrapDownloadFailure(err, attempt)
	}
	c.emitDownloadEvent("download", "complete", videoID, audioPath, fmt.Sprintf("bytes=%d", getFileSize(audioPath)))
	defer c.cleanupIntermediateFile(videoID, audioPath, keepIntermediates)

	c.emitDownloadEvent("merge", "start", videoID, basePath, fmt.Sprintf("video_itag=%d,audio_itag=%d", vidF.Itag, audF.Itag))
	if err := c.config.Muxer.Merge(ctx, videoPath, audioPath, basePath, meta); err != nil {
		c.emitDownloadEvent("merge", "failure", videoID, basePath, err.Error())
		return nil, err
	}
	c.emitDownloadEvent("merge", "complete", videoID, basePath, fmt.Sprintf("bytes=%d", getFileSize(basePath)))

	return &DownloadResult{
		VideoID:    videoID,
		Itag:       vidF.Itag,
		OutputPath: basePath,
		Bytes:      getFileSize(basePath),
	}, nil
}

func (c *Client) downloadStream(ctx context.Context, videoID, streamURL, outputPath string, f FormatInfo, resume bool) error {
	if f.Protocol == "hls" || strings.HasSuffix(streamURL, ".m3u8") {
		return c.downloadHLS(ctx, streamURL, outputPath)
	}
	if f.Protocol == "dash" || strings.HasSuffix(streamURL, ".mpd") {
		return c.downloadDASH(ctx, streamURL, outputPath, f.Itag)
	}
	return c.downloadHTTPS(ctx, videoID, streamURL, outputPath, resume)
}

// downloadHTTPS writes streamURL's body to outputPath. When resume is true
// and outputPath already holds exactly the remote Content-Length worth of
// bytes, the existing file is left untouched and no request is made: a
// prior run already completed this download.
func (c *Client) downloadHTTPS(ctx context.Context, videoID, streamURL, outputPath string, resume bool) error {
	if resume {
		if done, err := c.isDownloadComplete(ctx, streamURL, outputPath); err == nil && done {
			return nil
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()

	headers := cloneHeader(c.config.RequestHeaders)
	if headers == nil {
		headers = http.Header{}
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", defaultMediaUserAgent())
	}
	if headers.Get("Referer") == "" {
		headers.Set("Referer", "https://www.youtube.com/watch?v="+videoID)
	}

	dl := downloader.NewHTTPRangeDownloader(c.httpClient(), streamURL).
		WithRequestHeaders(headers).
		WithTransportConfig(c.config.DownloadTransport)
	return dl.Download(ctx, file)
}

// isDownloadComplete reports whether outputPath already holds exactly the
// byte count streamURL's HEAD response reports, via a stat plus a cheap
// HEAD request. Any error or an unreported Content-Length is treated as
// not-complete so the caller falls back to a normal download.
func (c *Client) isDownloadComplete(ctx context.Context, streamURL, outputPath string) (bool, error) {
	stat, err := os.Stat(outputPath)
	if err != nil || stat.Size() == 0 {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, streamURL, nil)
	if err != nil {
		return false, err
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, nil
	}

	remoteSize, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64)
	if err != nil || remoteSize <= 0 {
		return false, nil
	}
	return stat.Size() == remoteSize, nil
}

func (c *Client) downloadHLS(ctx context.Context, streamURL, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	return downloader.NewHLSDownloader(c.httpClient(), streamURL).Download(ctx, file)
}

func (c *Client) downloadDASH(ctx context.Context, streamURL, outputPath string, itag int) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer file.Close()
	repID := strconv.Itoa(itag)
	return downloader.NewDASHDownloader(c.httpClient(), streamURL, repID).Download(ctx, file)
}

func transcodeURLToMP3(
	ctx context.Context,
	httpClient *http.Client,
	transcoder MP3Transcoder,
	streamURL string,
	meta MP3TranscodeMetadata,
	dst io.Writer,
	requestHeaders http.Header,
) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return 0, err
	}
	applyMediaRequestHeaders(req, requestHeaders, meta.VideoID)
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download failed: status=%d", resp.StatusCode)
	}
	return transcoder.TranscodeToMP3(ctx, resp.Body, dst, meta)
}

func defaultOutputPath(videoID string, itag int, mimeType string, mode SelectionMode) string {
	if mode == SelectionModeMP3 {
		return fmt.Sprintf("%s-%d.mp3", videoID, itag)
	}
	ext := ".bin"
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 && parts[1] != "" {
			ext = "." + parts[1]
		}
	}
	return fmt.Sprintf("%s-%d%s", videoID, itag, ext)
}

func getFileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (c *Client) cleanupIntermediateFile(videoID, path string, keep bool) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if keep {
		c.emitDownloadEvent("cleanup", "skip", videoID, path, "keep_intermediate=true")
		return
	}
	c.emitDownloadEvent("cleanup", "delete", videoID, path, "")
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.emitDownloadEvent("cleanup", "failure", videoID, path, err.Error())
		return
	}
	c.emitDownloadEvent("cleanup", "complete", videoID, path, "")
}

func (c *Client) emitDownloadEvent(stage, phase, videoID, path, detail string) {
	if c == nil {
		return
	}
	c.logger.Download(DownloadEvent{Stage: stage, Phase: phase, VideoID: videoID, Path: path, Detail: detail})
	if c.config.OnDownloadEvent == nil {
		return
	}
	c.config.OnDownloadEvent(DownloadEvent{
		Stage:   stage,
		Phase:   phase,
		VideoID: videoID,
		Path:    path,
		Detail:  detail,
	})
}

func wrapDownloadFailure(err error, attempt AttemptDetail) error {
	if err == nil {
		return nil
	}
	return errors.Join(err, &DownloadFailureDetailError{
		Attempts: []AttemptDetail{attempt},
	})
}

func formatDownloadFailureDetail(attempt AttemptDetail) string {
	parts := []string{attempt.Reason}
	if attempt.HTTPStatus != 0 {
		parts = append(parts, fmt.Sprintf("http=%d", attempt.HTTPStatus))
	}
	if attempt.Protocol != "" {
		parts = append(parts, "proto="+attempt.Protocol)
	}
	if attempt.Itag != 0 {
		parts = append(parts, fmt.Sprintf("itag=%d", attempt.Itag))
	}
	if attempt.URLHost != "" {
		parts = append(parts, "host="+attempt.URLHost)
	}
	if attempt.URLHasN {
		parts = append(parts, "has_n=true")
	}
	if attempt.URLHasPOT {
		parts = append(parts, "has_pot=true")
	}
	if attempt.URLHasSignature {
		parts = append(parts, "has_sig=true")
	}
	if attempt.Client != "" {
		parts = append(parts, "client="+attempt.Client)
	}
	return strings.Join(parts, " ")
}

func downloadAttemptFromFormatAndURL(f FormatInfo, rawURL string, err error) AttemptDetail {
	d := AttemptDetail{
		Client:   f.SourceClient,
		Stage:    "download",
		Reason:   err.Error(),
		Itag:     f.Itag,
		Protocol: strings.TrimSpace(f.Protocol),
	}
	if d.Protocol == "" {
		d.Protocol = "unknown"
	}
	if u, parseErr := url.Parse(rawURL); parseErr == nil {
		d.URLHost = u.Host
		q := u.Query()
		d.URLHasN = q.Get("n") != ""
		d.URLHasPOT = q.Get("pot") != "" || strings.Contains(u.Path, "/pot/")
		d.URLHasSignature = q.Get("sig") != "" || q.Get("signature") != "" || q.Get("lsig") != ""
	}
	return d
}
