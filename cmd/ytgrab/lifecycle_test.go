package main

import (
	"strings"
	"testing"
	"time"

	"github.com/corvid-tools/ytgrab/client"
)

func TestLifecyclePrinter_FormatExtractionEvent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := newLifecyclePrinter(clock)

	line := p.formatExtractionEvent(client.ExtractionEvent{Stage: "player", Phase: "start", Client: "web", Detail: "attempt 1"})
	if !strings.Contains(line, "player/start") || !strings.Contains(line, "client=web") || !strings.Contains(line, "attempt 1") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestLifecyclePrinter_ElapsedGrowsAcrossEvents(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := newLifecyclePrinter(clock)

	p.formatDownloadEvent(client.DownloadEvent{Stage: "stream", Phase: "start", VideoID: "abc"})
	now = now.Add(2 * time.Second)
	line := p.formatDownloadEvent(client.DownloadEvent{Stage: "stream", Phase: "done", VideoID: "abc"})
	if !strings.Contains(line, "+2s") {
		t.Fatalf("expected elapsed +2s in line, got %q", line)
	}
}

func TestAppendDetail_EmptyDetailLeavesLineUnchanged(t *testing.T) {
	if got := appendDetail("line", ""); got != "line" {
		t.Fatalf("appendDetail with empty detail = %q, want %q", got, "line")
	}
}
