package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/corvid-tools/ytgrab/client"
)

// downloadArchive tracks which video IDs have already been downloaded in a
// flat newline-delimited file, so reruns over the same URL list skip
// completed videos instead of redownloading them.
type downloadArchive struct {
	mu   sync.Mutex
	path string
	file *os.File
	seen map[string]bool
}

func newDownloadArchive(path string) (*downloadArchive, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open download archive %s: %w", path, err)
	}

	seen := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		seen[line] = true
	}
	if err := scanner.Err(); err != nil {
		f.Close()
		return nil, fmt.Errorf("read download archive %s: %w", path, err)
	}

	return &downloadArchive{path: path, file: f, seen: seen}, nil
}

func (a *downloadArchive) Close() error {
	if a == nil || a.file == nil {
		return nil
	}
	return a.file.Close()
}

func (a *downloadArchive) Has(videoID string) bool {
	if a == nil {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seen[videoID]
}

func (a *downloadArchive) Add(videoID string) error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[videoID] {
		return nil
	}
	if _, err := fmt.Fprintln(a.file, videoID); err != nil {
		return fmt.Errorf("append to download archive %s: %w", a.path, err)
	}
	a.seen[videoID] = true
	return nil
}

// shouldSkipDownloadByArchive reports whether input's video ID is already
// recorded in archive, resolving input through ExtractVideoID first.
func shouldSkipDownloadByArchive(archive *downloadArchive, input string) bool {
	if archive == nil {
		return false
	}
	videoID, err := client.ExtractVideoID(input)
	if err != nil {
		return false
	}
	return archive.Has(videoID)
}

// recordCompletedDownload marks videoID complete in archive, if configured.
func recordCompletedDownload(archive *downloadArchive, videoID string) {
	if archive == nil {
		return
	}
	if err := archive.Add(videoID); err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: %v\n", err)
	}
}
