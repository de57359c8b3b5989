// Package ytlog provides the package-wide optional logger used for
// non-fatal warnings and extraction/download lifecycle events.
package ytlog

import (
	"os"

	"github.com/rs/zerolog"
)

// ExtractionEvent represents one extraction-stage lifecycle event.
type ExtractionEvent struct {
	Stage  string
	Phase  string
	Client string
	Detail string
}

// DownloadEvent represents one download lifecycle event.
type DownloadEvent struct {
	Stage   string
	Phase   string
	VideoID string
	Path    string
	Detail  string
}

// Logger is an optional package logger used for non-fatal warnings and
// lifecycle events. The zero value of Default is safe to use.
type Logger interface {
	Warnf(format string, args ...any)
	Extraction(ev ExtractionEvent)
	Download(ev DownloadEvent)
}

// nopLogger discards everything. Used when no Logger is configured.
type nopLogger struct{}

func (nopLogger) Warnf(string, ...any)       {}
func (nopLogger) Extraction(ExtractionEvent) {}
func (nopLogger) Download(DownloadEvent)     {}

// Nop is a Logger that discards all events.
var Nop Logger = nopLogger{}

// ZeroLogger is a Logger backed by a zerolog.Logger.
type ZeroLogger struct {
	log zerolog.Logger
}

// New returns a ZeroLogger writing to stderr at the given level.
func New(level zerolog.Level) *ZeroLogger {
	log := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	return &ZeroLogger{log: log}
}

// NewWithLogger wraps an existing zerolog.Logger.
func NewWithLogger(log zerolog.Logger) *ZeroLogger {
	return &ZeroLogger{log: log}
}

func (z *ZeroLogger) Warnf(format string, args ...any) {
	z.log.Warn().Msgf(format, args...)
}

func (z *ZeroLogger) Extraction(ev ExtractionEvent) {
	z.log.Debug().
		Str("stage", ev.Stage).
		Str("phase", ev.Phase).
		Str("client", ev.Client).
		Msg(ev.Detail)
}

func (z *ZeroLogger) Download(ev DownloadEvent) {
	z.log.Debug().
		Str("stage", ev.Stage).
		Str("phase", ev.Phase).
		Str("video_id", ev.VideoID).
		Str("path", ev.Path).
		Msg(ev.Detail)
}
