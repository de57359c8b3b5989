package formats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func progressiveFormat(overrides map[string]any) map[string]any {
	f := map[string]any{
		"itag":             float64(18),
		"url":              "https://example.test/v.mp4",
		"mimeType":         `video/mp4; codecs="avc1.42001E, mp4a.40.2"`,
		"bitrate":          float64(500000),
		"quality":          "medium",
		"qualityLabel":     "360p",
		"approxDurationMs": "10000",
	}
	for k, v := range overrides {
		f[k] = v
	}
	return f
}

func TestReduceCodecClassificationMatchesLiteralScenario(t *testing.T) {
	f := map[string]any{
		"itag":     float64(22),
		"url":      "https://example.test/v.mp4",
		"mimeType": `video/mp4; codecs="avc1.4d401f, mp4a.40.2"`,
	}
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, "avc1.4d401f", out[0].VCodec)
	assert.Equal(t, "mp4a.40.2", out[0].ACodec)
	assert.Equal(t, ExtMp4, out[0].Extension)
}

func TestReduceQualityOverrideForItag17(t *testing.T) {
	f := progressiveFormat(map[string]any{"itag": float64(17), "quality": "small"})
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, "tiny", out[0].Quality)
}

func TestReduceQualityFallsBackToAudioQualityWhenTiny(t *testing.T) {
	f := progressiveFormat(map[string]any{"quality": "tiny", "audioQuality": "AUDIO_QUALITY_LOW"})
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, "AUDIO_QUALITY_LOW", out[0].Quality)
}

func TestReduceSkipsLivestreamFormats(t *testing.T) {
	live := progressiveFormat(map[string]any{"targetDurationSec": float64(5)})
	normal := progressiveFormat(nil)
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{live, normal}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, 18, out[0].Itag)
}

func TestReduceSkipsDRMMarkedFormats(t *testing.T) {
	drm := progressiveFormat(map[string]any{"isDrm": true})
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{drm}},
	}}}

	out := Reduce(accepted)
	assert.Empty(t, out)
}

func TestReduceSourceURLTakesPrecedenceOverSignature(t *testing.T) {
	f := progressiveFormat(nil)
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, SourceURL, out[0].Source.Kind)
	assert.Equal(t, "https://example.test/v.mp4", out[0].Source.Value)
}

func TestReduceSourceSignatureWhenURLAbsent(t *testing.T) {
	f := progressiveFormat(map[string]any{"url": nil, "signatureCipher": "s=AAA&sp=sig&url=https%3A%2F%2Fexample.test%2Fa"})
	delete(f, "url")
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"adaptiveFormats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, SourceSignature, out[0].Source.Kind)
}

func TestReduceSkipsFormatWithNeitherURLNorSignature(t *testing.T) {
	f := progressiveFormat(nil)
	delete(f, "url")
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	assert.Empty(t, out)
}

func TestReduceApproxFileSizeFromAverageBitrateAndDuration(t *testing.T) {
	f := progressiveFormat(map[string]any{"bitrate": float64(0), "averageBitrate": float64(2000), "approxDurationMs": "10000"})
	delete(f, "bitrate")
	f["averageBitrate"] = float64(2000)
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, 2000, out[0].TotalBitrate)
	assert.Equal(t, int64(10*2000*125), out[0].ApproxFileSize)
}

func TestReduceDefaultsBitrateTo1000WhenAbsent(t *testing.T) {
	f := progressiveFormat(nil)
	delete(f, "bitrate")
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, 1000, out[0].TotalBitrate)
}

func TestReduceUnionsFormatsAndAdaptiveFormats(t *testing.T) {
	progressive := progressiveFormat(map[string]any{"itag": float64(18)})
	adaptive := progressiveFormat(map[string]any{"itag": float64(251), "mimeType": `audio/webm; codecs="opus"`})
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{
		"streamingData": map[string]any{
			"formats":         []any{progressive},
			"adaptiveFormats": []any{adaptive},
		},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 2)
}

func TestReduceTagsClientThatProducedTheFormat(t *testing.T) {
	f := progressiveFormat(nil)
	accepted := []ClientResponse{{Client: "tv", Response: map[string]any{
		"streamingData": map[string]any{"formats": []any{f}},
	}}}

	out := Reduce(accepted)
	require.Len(t, out, 1)
	assert.Equal(t, "tv", out[0].Client)
}

func TestReduceSkipsResponsesWithoutStreamingData(t *testing.T) {
	accepted := []ClientResponse{{Client: "web", Response: map[string]any{"playabilityStatus": map[string]any{"status": "OK"}}}}
	out := Reduce(accepted)
	assert.Empty(t, out)
}
