package formats

import (
	"mime"
	"strconv"
	"strings"
)

// Format is a normalized manifest-derived representation, used by the
// DASH/HLS manifest parsers (ParseDASHManifest, ParseHLSManifest). It is
// distinct from StreamDescriptor, which is the reducer's output for
// player-response formats.
type Format struct {
	Itag             int
	URL              string
	MimeType         string
	Container        string
	Codecs           []string
	Bitrate          int
	Width            int
	Height           int
	FPS              int
	AudioSampleRate  int
	AudioChannels    int
	Protocol         string // "https", "dash", "hls"
	HasAudio         bool
	HasVideo         bool
}

type Range struct {
	Start int64
	End   int64
}

func parseInt(raw string) int {
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return v
}

func parseInt64(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseMimeDetails(raw string) (container string, codecs []string) {
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", nil
	}

	if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 {
		container = strings.ToLower(parts[1])
	}

	if rawCodecs, ok := params["codecs"]; ok {
		for _, codec := range strings.Split(rawCodecs, ",") {
			codec = strings.TrimSpace(codec)
			if codec != "" {
				codecs = append(codecs, codec)
			}
		}
	}

	return container, codecs
}

func deriveMediaFlags(f Format, adaptive bool) (hasAudio bool, hasVideo bool) {
	mimeType := strings.ToLower(f.MimeType)

	if strings.HasPrefix(mimeType, "audio/") {
		hasAudio = true
	}
	if strings.HasPrefix(mimeType, "video/") {
		hasVideo = true
	}

	if f.AudioChannels > 0 || f.AudioSampleRate > 0 {
		hasAudio = true
	}
	if f.Width > 0 || f.Height > 0 || f.FPS > 0 {
		hasVideo = true
	}

	for _, codec := range f.Codecs {
		lc := strings.ToLower(codec)
		if strings.HasPrefix(lc, "mp4a") || strings.HasPrefix(lc, "opus") || strings.HasPrefix(lc, "vorbis") || strings.HasPrefix(lc, "aac") {
			hasAudio = true
		}
		if strings.HasPrefix(lc, "avc1") || strings.HasPrefix(lc, "av01") || strings.HasPrefix(lc, "vp9") || strings.HasPrefix(lc, "vp8") || strings.HasPrefix(lc, "hev1") || strings.HasPrefix(lc, "hvc1") {
			hasVideo = true
		}
	}

	// Progressive entries (non-adaptive) usually include both tracks.
	if !adaptive && hasVideo && !hasAudio {
		hasAudio = true
	}

	return hasAudio, hasVideo
}
