package client

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/corvid-tools/ytgrab/internal/orchestrator"
)

// TranscriptEntry is one captioned line, timed relative to the start of
// the video.
type TranscriptEntry struct {
	StartSec float64
	DurSec   float64
	Text     string
}

// Transcript is a full set of caption entries for one language track.
type Transcript struct {
	VideoID      string
	LanguageCode string
	Entries      []TranscriptEntry
}

type captionTrack struct {
	baseURL      string
	languageCode string
	name         string
	isASR        bool
}

// GetTranscript fetches and parses the caption track for a video. lang
// selects a track by languageCode; an empty lang picks the first
// non-auto-generated track, falling back to the first available track.
func (c *Client) GetTranscript(ctx context.Context, input, lang string) (*Transcript, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	session, videoID, err := c.ensureSession(ctx, input)
	if err != nil {
		return nil, err
	}

	tracks := collectCaptionTracks(session.Responses)
	if len(tracks) == 0 {
		return nil, &TranscriptUnavailableDetailError{VideoID: videoID, LanguageCode: lang, Reason: "no caption tracks in player response"}
	}

	track, ok := selectCaptionTrack(tracks, lang)
	if !ok {
		return nil, &TranscriptUnavailableDetailError{VideoID: videoID, LanguageCode: lang, Reason: "no caption track matched requested language"}
	}

	body, err := c.fetchCaptionBody(ctx, track.baseURL, videoID)
	if err != nil {
		return nil, &TranscriptUnavailableDetailError{VideoID: videoID, LanguageCode: track.languageCode, Reason: err.Error()}
	}

	entries, err := parseTimedText(body)
	if err != nil {
		return nil, &TranscriptParseDetailError{VideoID: videoID, LanguageCode: track.languageCode, Reason: err.Error()}
	}

	return &Transcript{VideoID: videoID, LanguageCode: track.languageCode, Entries: entries}, nil
}

func (c *Client) fetchCaptionBody(ctx context.Context, baseURL, videoID string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return nil, err
	}
	applyMediaRequestHeaders(req, c.config.RequestHeaders, videoID)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption fetch failed: status=%d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func collectCaptionTracks(responses []orchestrator.AcceptedResponse) []captionTrack {
	var out []captionTrack
	seen := make(map[string]struct{})
	for _, a := range responses {
		captions, _ := a.Response["captions"].(map[string]any)
		renderer, _ := captions["playerCaptionsTracklistRenderer"].(map[string]any)
		items, _ := renderer["captionTracks"].([]any)
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			base := stringField(m, "baseUrl")
			if base == "" {
				continue
			}
			if _, dup := seen[base]; dup {
				continue
			}
			seen[base] = struct{}{}
			name := ""
			if nameObj, ok := m["name"].(map[string]any); ok {
				name = stringField(nameObj, "simpleText")
			}
			out = append(out, captionTrack{
				baseURL:      base,
				languageCode: stringField(m, "languageCode"),
				name:         name,
				isASR:        strings.EqualFold(stringField(m, "kind"), "asr"),
			})
		}
	}
	return out
}

func selectCaptionTrack(tracks []captionTrack, lang string) (captionTrack, bool) {
	lang = strings.TrimSpace(lang)
	if lang != "" {
		for _, t := range tracks {
			if strings.EqualFold(t.languageCode, lang) {
				return t, true
			}
		}
		for _, t := range tracks {
			if strings.HasPrefix(strings.ToLower(t.languageCode), strings.ToLower(lang)) {
				return t, true
			}
		}
		return captionTrack{}, false
	}
	for _, t := range tracks {
		if !t.isASR {
			return t, true
		}
	}
	return tracks[0], true
}

type timedTextXML struct {
	XMLName xml.Name       `xml:"transcript"`
	Texts   []timedTextRow `xml:"text"`
}

type timedTextRow struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Text  string `xml:",chardata"`
}

func parseTimedText(body []byte) ([]TranscriptEntry, error) {
	var doc timedTextXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, err
	}
	entries := make([]TranscriptEntry, 0, len(doc.Texts))
	for _, row := range doc.Texts {
		start, _ := strconv.ParseFloat(row.Start, 64)
		dur, _ := strconv.ParseFloat(row.Dur, 64)
		text := html.UnescapeString(strings.TrimSpace(row.Text))
		if text == "" {
			continue
		}
		entries = append(entries, TranscriptEntry{StartSec: start, DurSec: dur, Text: text})
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no caption entries parsed")
	}
	return entries, nil
}
