package formats

import (
	"mime"
	"strconv"
	"strings"
)

// ClientResponse pairs one decoded player response with the textual
// client tag that produced it.
type ClientResponse struct {
	Client   string
	Response map[string]any
}

// SourceKind distinguishes a directly-playable URL from an opaque
// signature blob still needing the decipher engine.
type SourceKind string

const (
	SourceURL       SourceKind = "url"
	SourceSignature SourceKind = "signature"
)

// Source is the tagged union of a stream's playback reference.
type Source struct {
	Kind  SourceKind
	Value string
}

// Ext is a closed extension enumeration derived from a format's mimeType.
type Ext string

const (
	ExtMp4     Ext = "mp4"
	ExtM4A     Ext = "m4a"
	ExtWebm    Ext = "webm"
	Ext3GP     Ext = "3gp"
	ExtTS      Ext = "ts"
	ExtM3U8    Ext = "m3u8"
	ExtMPD     Ext = "mpd"
	ExtVTT     Ext = "vtt"
	ExtUnknown Ext = "unknown"
)

// AudioTrack carries the display name and default-ness of a multi-track
// audio stream.
type AudioTrack struct {
	DisplayName string
	IsDefault   bool
}

// StreamDescriptor is one emitted stream: its container/codec shape,
// size/bitrate estimate, and how to resolve its playback URL.
type StreamDescriptor struct {
	Itag            int
	Extension       Ext
	VCodec          string
	ACodec          string
	AudioSampleRate int
	ContentLength   int64
	ApproxFileSize  int64
	Width           int
	Height          int
	FPS             int
	TotalBitrate    int
	Quality         string
	QualityLabel    string
	IsDRC           bool
	Projection      string
	AudioTrack      AudioTrack
	HasDRM          bool
	Client          string
	Source          Source
}

var videoCodecPrefixes = map[string]bool{
	"avc1": true, "avc2": true, "avc3": true, "avc4": true,
	"vp9": true, "vp8": true,
	"hev1": true, "hev2": true,
	"h263": true, "h264": true,
	"mp4v": true, "hvc1": true, "av1": true,
	"theora": true, "dvh1": true, "dvhe": true,
}

var audioCodecPrefixes = map[string]bool{
	"flac": true, "mp4a": true, "opus": true, "vorbis": true,
	"mp3": true, "aac": true,
	"ac-4": true, "ac-3": true, "ec-3": true, "eac3": true,
	"dtsc": true, "dtse": true, "dtsh": true, "dtsl": true,
}

var extensionTable = map[string]Ext{
	"mp4":               ExtMp4,
	"video/mp4":         ExtMp4,
	"audio/mp4":         ExtM4A,
	"webm":              ExtWebm,
	"video/webm":        ExtWebm,
	"audio/webm":        ExtWebm,
	"3gpp":              Ext3GP,
	"video/3gpp":        Ext3GP,
	"mp2t":              ExtTS,
	"video/mp2t":        ExtTS,
	"vnd.apple.mpegurl": ExtM3U8,
	"x-mpegurl":         ExtM3U8,
	"dash+xml":          ExtMPD,
	"vtt":               ExtVTT,
	"text/vtt":          ExtVTT,
}

// Reduce walks every accepted response's streamingData.formats and
// adaptiveFormats, filters livestream/DRM entries, and emits one
// StreamDescriptor per surviving format.
func Reduce(accepted []ClientResponse) []StreamDescriptor {
	var out []StreamDescriptor
	for _, cr := range accepted {
		streamingData, _ := cr.Response["streamingData"].(map[string]any)
		if streamingData == nil {
			continue
		}
		raw := asMapSlice(streamingData["formats"])
		raw = append(raw, asMapSlice(streamingData["adaptiveFormats"])...)
		for _, f := range raw {
			if desc, ok := reduceOne(f, cr.Client); ok {
				out = append(out, desc)
			}
		}
	}
	return out
}

func asMapSlice(v any) []map[string]any {
	items, _ := v.([]any)
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func reduceOne(f map[string]any, client string) (StreamDescriptor, bool) {
	if _, live := f["targetDurationSec"]; live {
		return StreamDescriptor{}, false
	}
	if isDRMMarked(f) {
		return StreamDescriptor{}, false
	}

	source, ok := resolveSource(f)
	if !ok {
		return StreamDescriptor{}, false
	}

	itag := intField(f, "itag")
	quality := stringField(f, "quality")
	if quality == "" || quality == "tiny" {
		quality = stringField(f, "audioQuality")
	}
	if itag == 17 {
		quality = "tiny"
	}

	tbr := intField(f, "averageBitrate")
	if tbr == 0 {
		tbr = intField(f, "bitrate")
	}
	if tbr == 0 {
		tbr = 1000
	}

	durationMs, _ := strconv.ParseInt(stringField(f, "approxDurationMs"), 10, 64)
	approxSize := int64(float64(durationMs) / 1000.0 * float64(tbr) * 125.0)

	vcodec, acodec := classifyCodecs(stringField(f, "mimeType"))
	ext := lookupExtension(stringField(f, "mimeType"))

	var track AudioTrack
	if at, ok := f["audioTrack"].(map[string]any); ok {
		track.DisplayName = stringField(at, "displayName")
		track.IsDefault, _ = at["audioIsDefault"].(bool)
	}
	isDRC, _ := f["isDrc"].(bool)

	return StreamDescriptor{
		Itag:            itag,
		Extension:       ext,
		VCodec:          vcodec,
		ACodec:          acodec,
		AudioSampleRate: parseInt(stringField(f, "audioSampleRate")),
		ContentLength:   parseInt64(stringField(f, "contentLength")),
		ApproxFileSize:  approxSize,
		Width:           intField(f, "width"),
		Height:          intField(f, "height"),
		FPS:             intField(f, "fps"),
		TotalBitrate:    tbr,
		Quality:         quality,
		QualityLabel:    stringField(f, "qualityLabel"),
		IsDRC:           isDRC,
		Projection:      stringField(f, "projectionType"),
		AudioTrack:      track,
		HasDRM:          false,
		Client:          client,
		Source:          source,
	}, true
}

func isDRMMarked(f map[string]any) bool {
	if v, ok := f["isDrm"].(bool); ok && v {
		return true
	}
	if families, ok := f["drmFamilies"].([]any); ok && len(families) > 0 {
		return true
	}
	return false
}

func resolveSource(f map[string]any) (Source, bool) {
	if u := stringField(f, "url"); u != "" {
		return Source{Kind: SourceURL, Value: u}, true
	}
	if sc := stringField(f, "signatureCipher"); sc != "" {
		return Source{Kind: SourceSignature, Value: sc}, true
	}
	if c := stringField(f, "cipher"); c != "" {
		return Source{Kind: SourceSignature, Value: c}, true
	}
	return Source{}, false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		return parseInt(v)
	default:
		return 0
	}
}

// classifyCodecs parses mimeType's codecs parameter and assigns the first
// video-prefixed and first audio-prefixed token to vcodec/acodec.
func classifyCodecs(mimeType string) (vcodec, acodec string) {
	_, codecs := parseMimeDetails(mimeType)
	for _, raw := range codecs {
		prefix, params := splitCodecToken(raw)
		normalized := prefix
		if params != "" {
			normalized = prefix + "." + normalizeCodecParams(params)
		}
		lc := strings.ToLower(prefix)
		if vcodec == "" && videoCodecPrefixes[lc] {
			vcodec = normalized
		}
		if acodec == "" && audioCodecPrefixes[lc] {
			acodec = normalized
		}
	}
	return vcodec, acodec
}

func splitCodecToken(token string) (prefix, params string) {
	idx := strings.IndexByte(token, '.')
	if idx < 0 {
		return token, ""
	}
	return token[:idx], token[idx+1:]
}

func normalizeCodecParams(params string) string {
	parts := strings.Split(params, ".")
	for i, p := range parts {
		if p != "" && isAllDigits(p) {
			trimmed := strings.TrimLeft(p, "0")
			if trimmed == "" {
				trimmed = "0"
			}
			parts[i] = trimmed
		}
	}
	return strings.Join(parts, ".")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// lookupExtension maps a format's mimeType to a closed Ext via an exact
// media-type or subtype lookup table.
func lookupExtension(mimeType string) Ext {
	mediaType, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ExtUnknown
	}
	if ext, ok := extensionTable[mediaType]; ok {
		return ext
	}
	if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 {
		if ext, ok := extensionTable[parts[1]]; ok {
			return ext
		}
	}
	return ExtUnknown
}
