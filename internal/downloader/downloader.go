package downloader

import (
	"context"
	"io"
)

// Downloader is the interface for downloading a stream.
type Downloader interface {
	// Download downloads the stream to the specified writer.
	Download(ctx context.Context, w io.Writer) error
}

// ProgressReporter is an interface for reporting download progress.
type ProgressReporter interface {
	OnProgress(bytesWritten int64, totalBytes int64)
}
