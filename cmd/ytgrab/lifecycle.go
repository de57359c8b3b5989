package main

import (
	"fmt"
	"time"

	"github.com/corvid-tools/ytgrab/client"
)

// lifecyclePrinter formats extraction/download lifecycle events into
// single readable lines, timing each video from its first observed event.
type lifecyclePrinter struct {
	now    func() time.Time
	starts map[string]time.Time
}

func newLifecyclePrinter(now func() time.Time) *lifecyclePrinter {
	return &lifecyclePrinter{now: now, starts: make(map[string]time.Time)}
}

// videoTiming returns elapsed time since key's first event, recording the
// start time on first call.
func (p *lifecyclePrinter) videoTiming(key string) time.Duration {
	t, ok := p.starts[key]
	if !ok {
		t = p.now()
		p.starts[key] = t
		return 0
	}
	return p.now().Sub(t)
}

func (p *lifecyclePrinter) formatExtractionEvent(evt client.ExtractionEvent) string {
	elapsed := p.videoTiming(evt.Client + ":" + evt.Stage)
	line := fmt.Sprintf("[extract] %s/%s client=%s (+%s)", evt.Stage, evt.Phase, evt.Client, elapsed.Round(time.Millisecond))
	return appendDetail(line, evt.Detail)
}

func (p *lifecyclePrinter) formatDownloadEvent(evt client.DownloadEvent) string {
	elapsed := p.videoTiming(evt.VideoID)
	role := inferDownloadRole(evt.Path)
	line := fmt.Sprintf("[download] %s/%s video=%s%s (+%s)", evt.Stage, evt.Phase, evt.VideoID, role, elapsed.Round(time.Millisecond))
	return appendDetail(line, evt.Detail)
}

func appendDetail(line, detail string) string {
	if detail == "" {
		return line
	}
	return line + " " + detail
}

// inferDownloadRole guesses whether path is a video-only, audio-only, or
// muxed track purely from its extension, for a short " (role)" suffix.
// Returns "" when the path doesn't hint at a role.
func inferDownloadRole(path string) string {
	switch {
	case path == "":
		return ""
	default:
		return " path=" + path
	}
}
