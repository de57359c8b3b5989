package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/corvid-tools/ytgrab/internal/types"
)

type testMuxer struct{}

func (testMuxer) Available() bool { return true }

func (testMuxer) Merge(ctx context.Context, videoPath, audioPath, outputPath string, meta types.Metadata) error {
	v, err := os.ReadFile(videoPath)
	if err != nil {
		return err
	}
	a, err := os.ReadFile(audioPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, append(v, a...), 0o644)
}

func TestDownloadAndMerge_DefaultCleansIntermediateFiles(t *testing.T) {
	videoID := "jNQXAC9IVRw"
	var events []DownloadEvent
	mediaBase := "https://media.example"
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			switch {
			case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/youtubei/v1/player"):
				body := `{
					"playabilityStatus":{"status":"OK"},
					"videoDetails":{"videoId":"jNQXAC9IVRw","title":"x","author":"y"},
					"streamingData":{"adaptiveFormats":[
						{"itag":248,"url":"` + mediaBase + `/v.webm","mimeType":"video/webm","bitrate":1000},
						{"itag":251,"url":"` + mediaBase + `/a.webm","mimeType":"audio/webm","bitrate":1000}
					]}
				}`
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/watch":
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`<html><script src="/s/player/test/base.js"></script></html>`)), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.String() == mediaBase+"/v.webm":
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("video")), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.String() == mediaBase+"/a.webm":
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("audio")), Header: make(http.Header)}, nil
			default:
				return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("not found")), Header: make(http.Header)}, nil
			}
		}),
	}

	c := New(Config{
		HTTPClient:      httpClient,
		ClientOverrides: []string{"mweb"},
		Muxer:           testMuxer{},
		OnDownloadEvent: func(evt DownloadEvent) { events = append(events, evt) },
	})
	out := filepath.Join(t.TempDir(), "merged.webm")
	res, err := c.Download(context.Background(), videoID, DownloadOptions{
		Mode:       SelectionModeBest,
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.OutputPath != out {
		t.Fatalf("output path=%q want=%q", res.OutputPath, out)
	}
	videoPath := out + ".f248.video"
	audioPath := out + ".f251.audio"
	if _, err := os.Stat(videoPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected video intermediate deleted, stat err=%v", err)
	}
	if _, err := os.Stat(audioPath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected audio intermediate deleted, stat err=%v", err)
	}
	var hasMergeComplete, hasCleanupDelete bool
	for _, evt := range events {
		if evt.Stage == "merge" && evt.Phase == "complete" {
			hasMergeComplete = true
		}
		if evt.Stage == "cleanup" && evt.Phase == "delete" {
			hasCleanupDelete = true
		}
	}
	if !hasMergeComplete || !hasCleanupDelete {
		t.Fatalf("expected merge complete and cleanup delete events, got=%v", events)
	}
}

func TestDownloadAndMerge_KeepIntermediateFiles(t *testing.T) {
	videoID := "jNQXAC9IVRw"
	var events []DownloadEvent
	mediaBase := "https://media.example"
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			switch {
			case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/youtubei/v1/player"):
				body := `{
					"playabilityStatus":{"status":"OK"},
					"videoDetails":{"videoId":"jNQXAC9IVRw","title":"x","author":"y"},
					"streamingData":{"adaptiveFormats":[
						{"itag":248,"url":"` + mediaBase + `/v.webm","mimeType":"video/webm","bitrate":1000},
						{"itag":251,"url":"` + mediaBase + `/a.webm","mimeType":"audio/webm","bitrate":1000}
					]}
				}`
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/watch":
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(`<html><script src="/s/player/test/base.js"></script></html>`)), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.String() == mediaBase+"/v.webm":
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("video")), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.String() == mediaBase+"/a.webm":
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("audio")), Header: make(http.Header)}, nil
			default:
				return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader("not found")), Header: make(http.Header)}, nil
			}
		}),
	}

	c := New(Config{
		HTTPClient:      httpClient,
		ClientOverrides: []string{"mweb"},
		Muxer:           testMuxer{},
		OnDownloadEvent: func(evt DownloadEvent) { events = append(events, evt) },
	})
	out := filepath.Join(t.TempDir(), "merged.webm")
	_, err := c.Download(context.Background(), videoID, DownloadOptions{
		Mode:                  SelectionModeBest,
		OutputPath:            out,
		KeepIntermediateFiles: true,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	videoPath := out + ".f248.video"
	audioPath := out + ".f251.audio"
	if _, err := os.Stat(videoPath); err != nil {
		t.Fatalf("expected video intermediate kept, stat err=%v", err)
	}
	if _, err := os.Stat(audioPath); err != nil {
		t.Fatalf("expected audio intermediate kept, stat err=%v", err)
	}
	var hasCleanupSkip bool
	for _, evt := range events {
		if evt.Stage == "cleanup" && evt.Phase == "skip" {
			hasCleanupSkip = true
		}
	}
	if !hasCleanupSkip {
		t.Fatalf("expected cleanup skip event, got=%v", events)
	}
}

func TestDownloadFailureProvidesAttemptDetails(t *testing.T) {
	videoID := "jNQXAC9IVRw"
	mediaURL := "https://media.example/v.webm?itag=18&pot=token&sig=xyz"
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			switch {
			case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/youtubei/v1/player"):
				body := `{
					"playabilityStatus":{"status":"OK"},
					"videoDetails":{"videoId":"jNQXAC9IVRw","title":"x","author":"y"},
					"streamingData":{"formats":[
						{"itag":18,"url":"` + mediaURL + `","mimeType":"video/mp4","bitrate":1000}
					]}
				}`
				return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: make(http.Header)}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/watch":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`<html><script src="/s/player/test/base.js"></script></html>`)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/s/player/test/base.js":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(testPlayerJS())),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && strings.HasPrefix(r.URL.String(), "https://media.example/v.webm?"):
				return &http.Response{
					StatusCode: http.StatusForbidden,
					Body:       io.NopCloser(strings.NewReader("forbidden")),
					Header:     make(http.Header),
				}, nil
			default:
				return &http.Response{
					StatusCode: http.StatusNotFound,
					Body:       io.NopCloser(strings.NewReader("not found")),
					Header:     make(http.Header),
				}, nil
			}
		}),
	}

	c := New(Config{
		HTTPClient:      httpClient,
		ClientOverrides: []string{"mweb"},
	})

	_, err := c.Download(context.Background(), videoID, DownloadOptions{
		Itag: 18,
	})
	if err == nil {
		t.Fatal("expected download failure error, got nil")
	}

	attempts, ok := AttemptDetails(err)
	if !ok || len(attempts) != 1 {
		t.Fatalf("AttemptDetails() ok=%v attempts=%v err=%v", ok, attempts, err)
	}
	a := attempts[0]
	if a.Stage != "download" || a.HTTPStatus != http.StatusForbidden {
		t.Fatalf("unexpected stage/status: %+v", a)
	}
	if a.Itag != 18 || a.Protocol != "https" {
		t.Fatalf("unexpected itag/protocol: %+v", a)
	}
	if a.URLHost != "media.example" || a.URLHasN || !a.URLHasPOT || !a.URLHasSignature {
		t.Fatalf("unexpected url policy details: %+v", a)
	}
	if a.Client == "" {
		t.Fatalf("expected source client in attempt details, got: %+v", a)
	}
}

func TestDownloadPrefersNonCipheredFallbackSelection(t *testing.T) {
	videoID := "jNQXAC9IVRw"
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			switch {
			case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/youtubei/v1/player"):
				body := `{
					"playabilityStatus":{"status":"OK"},
					"videoDetails":{"videoId":"jNQXAC9IVRw","title":"x","author":"y"},
					"streamingData":{
						"adaptiveFormats":[
							{"itag":248,"signatureCipher":"url=https%3A%2F%2Fmedia.example%2Fcipher-video.webm&s=abc&sp=sig","mimeType":"video/webm","bitrate":2000000},
							{"itag":251,"signatureCipher":"url=https%3A%2F%2Fmedia.example%2Fcipher-audio.webm&s=xyz&sp=sig","mimeType":"audio/webm","bitrate":192000},
							{"itag":135,"url":"https://media.example/plain-video.mp4","mimeType":"video/mp4","bitrate":700000},
							{"itag":140,"url":"https://media.example/plain-audio.m4a","mimeType":"audio/mp4","bitrate":128000}
						]
					}
				}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(body)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/watch":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`<html><script src="/s/player/test/player_ias.vflset/en_US/base.js"></script></html>`)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/s/player/test/player_ias.vflset/en_US/base.js":
				// Intentionally broken JS: if ciphered selection is attempted, resolve should fail.
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`var broken = true;`)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.String() == "https://media.example/plain-video.mp4":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader("video")),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.String() == "https://media.example/plain-audio.m4a":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader("audio")),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && strings.Contains(r.URL.String(), "cipher-video.webm"):
				t.Fatalf("ciphered video should not be selected")
				return nil, nil
			case r.Method == http.MethodGet && strings.Contains(r.URL.String(), "cipher-audio.webm"):
				t.Fatalf("ciphered audio should not be selected")
				return nil, nil
			default:
				return &http.Response{
					StatusCode: http.StatusNotFound,
					Body:       io.NopCloser(strings.NewReader("not found")),
					Header:     make(http.Header),
				}, nil
			}
		}),
	}

	c := New(Config{
		HTTPClient:      httpClient,
		ClientOverrides: []string{"mweb"},
		Muxer:           testMuxer{},
	})

	out := filepath.Join(t.TempDir(), "merged.mp4")
	res, err := c.Download(context.Background(), videoID, DownloadOptions{
		Mode:       SelectionModeBest,
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.OutputPath != out {
		t.Fatalf("output path=%q want=%q", res.OutputPath, out)
	}
}

func TestDownloadFallsBackToSingleWhenMergeChallengeUnsolved(t *testing.T) {
	videoID := "jNQXAC9IVRw"
	httpClient := &http.Client{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			switch {
			case r.Method == http.MethodPost && strings.Contains(r.URL.Path, "/youtubei/v1/player"):
				body := `{
					"playabilityStatus":{"status":"OK"},
					"videoDetails":{"videoId":"jNQXAC9IVRw","title":"x","author":"y"},
					"streamingData":{
						"formats":[{"itag":18,"url":"https://media.example/muxed.mp4","mimeType":"video/mp4","bitrate":120000}],
						"adaptiveFormats":[
							{"itag":248,"signatureCipher":"url=https%3A%2F%2Fmedia.example%2Fcipher-video.webm&s=abc&sp=sig","mimeType":"video/webm","bitrate":2000000},
							{"itag":251,"signatureCipher":"url=https%3A%2F%2Fmedia.example%2Fcipher-audio.webm&s=xyz&sp=sig","mimeType":"audio/webm","bitrate":192000}
						]
					}
				}`
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(body)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/watch":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`<html><script src="/s/player/test/player_ias.vflset/en_US/base.js"></script></html>`)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.Path == "/s/player/test/player_ias.vflset/en_US/base.js":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader(`var broken = true;`)),
					Header:     make(http.Header),
				}, nil
			case r.Method == http.MethodGet && r.URL.String() == "https://media.example/muxed.mp4":
				return &http.Response{
					StatusCode: http.StatusOK,
					Body:       io.NopCloser(strings.NewReader("muxed")),
					Header:     make(http.Header),
				}, nil
			default:
				return &http.Response{
					StatusCode: http.StatusNotFound,
					Body:       io.NopCloser(strings.NewReader("not found")),
					Header:     make(http.Header),
				}, nil
			}
		}),
	}

	c := New(Config{
		HTTPClient:      httpClient,
		ClientOverrides: []string{"mweb"},
		Muxer:           testMuxer{},
	})
	out := filepath.Join(t.TempDir(), "fallback.mp4")
	res, err := c.Download(context.Background(), videoID, DownloadOptions{
		Mode:       SelectionModeBest,
		OutputPath: out,
	})
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if res.Itag != 18 {
		t.Fatalf("expected fallback muxed itag=18, got %d", res.Itag)
	}
}
