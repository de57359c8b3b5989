package muxer

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// FFmpegMP3Transcoder converts an input audio stream to MP3 by piping it
// through the ffmpeg command line tool.
type FFmpegMP3Transcoder struct {
	Path string
}

// NewFFmpegMP3Transcoder returns a new FFmpegMP3Transcoder. If path is
// empty, it looks for "ffmpeg" in PATH.
func NewFFmpegMP3Transcoder(path string) *FFmpegMP3Transcoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegMP3Transcoder{Path: path}
}

// Available checks if ffmpeg is executable.
func (t *FFmpegMP3Transcoder) Available() bool {
	_, err := exec.LookPath(t.Path)
	return err == nil
}

// TranscodeToMP3 streams src through ffmpeg, writing MP3-encoded bytes to
// dst. It reads input from stdin and writes output to stdout, so it works
// for any source format ffmpeg can demux without needing a named input
// file on disk.
func (t *FFmpegMP3Transcoder) TranscodeToMP3(ctx context.Context, src io.Reader, dst io.Writer) (int64, error) {
	cmd := exec.CommandContext(ctx, t.Path,
		"-i", "pipe:0",
		"-vn",
		"-acodec", "libmp3lame",
		"-f", "mp3",
		"pipe:1",
	)
	cmd.Stdin = src

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return 0, fmt.Errorf("ffmpeg mp3 transcode: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("ffmpeg mp3 transcode: start: %w", err)
	}

	written, copyErr := io.Copy(dst, stdout)
	waitErr := cmd.Wait()
	if waitErr != nil {
		return written, fmt.Errorf("ffmpeg mp3 transcode failed: %w", waitErr)
	}
	if copyErr != nil {
		return written, fmt.Errorf("ffmpeg mp3 transcode: copy output: %w", copyErr)
	}
	return written, nil
}
