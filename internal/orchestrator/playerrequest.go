package orchestrator

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/corvid-tools/ytgrab/internal/innertube"
)

var iframeAPIPlayerIDPattern = regexp.MustCompile(`player\/([0-9a-fA-F]{8})\/`)

var ageGateReasons = []string{
	"confirm your age",
	"age-restricted",
	"inappropriate",
	"age_verification_required",
	"age_check_required",
}

// isAgeGated reports whether a decoded player response indicates an
// age gate, per the desktopLegacyAgeGateReason flag or a substring match
// against the known reason phrases.
func isAgeGated(response map[string]any) bool {
	status, _ := response["playabilityStatus"].(map[string]any)
	if status == nil {
		return false
	}
	if v, ok := status["desktopLegacyAgeGateReason"]; ok && v != nil {
		return true
	}
	reason, _ := status["reason"].(string)
	for _, r := range ageGateReasons {
		if strings.Contains(reason, r) {
			return true
		}
	}
	return false
}

// isUnplayable reports whether the response's playability status is
// UNPLAYABLE.
func isUnplayable(response map[string]any) bool {
	status, _ := response["playabilityStatus"].(map[string]any)
	if status == nil {
		return false
	}
	s, _ := status["status"].(string)
	return s == "UNPLAYABLE"
}

func responseVideoID(response map[string]any) string {
	details, _ := response["videoDetails"].(map[string]any)
	if details == nil {
		return ""
	}
	id, _ := details["videoId"].(string)
	return id
}

// resolvePlayerURL picks the first non-empty of ytcfg.PLAYER_JS_URL,
// any WEB_PLAYER_CONTEXT_CONFIGS.*.jsUrl across blobs, or (when
// requireJSPlayer and still missing) a fetch of /iframe_api.
func resolvePlayerURL(ctx context.Context, fetcher iframeProbe, siteOrigin string, blobs []map[string]any, requireJSPlayer bool) (string, error) {
	for _, blob := range blobs {
		if v, ok := blob["PLAYER_JS_URL"].(string); ok && v != "" {
			return siteOrigin + v, nil
		}
	}
	for _, blob := range blobs {
		if url := searchWebPlayerContextConfigs(blob); url != "" {
			return url, nil
		}
	}
	if !requireJSPlayer {
		return "", nil
	}
	body, err := fetcher.DownloadPlayerScript(ctx, "https://www.youtube.com/iframe_api", innertube.ClientProfile{})
	if err != nil {
		return "", err
	}
	m := iframeAPIPlayerIDPattern.FindStringSubmatch(body)
	if m == nil {
		return "", nil
	}
	return siteOrigin + "/s/player/" + m[1] + "/player_ias.vflset/en_US/base.js", nil
}

type iframeProbe interface {
	DownloadPlayerScript(ctx context.Context, playerURL string, profile innertube.ClientProfile) (string, error)
}

func searchWebPlayerContextConfigs(blob map[string]any) string {
	configs, ok := blob["WEB_PLAYER_CONTEXT_CONFIGS"].(map[string]any)
	if !ok {
		return ""
	}
	for _, v := range configs {
		cfg, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if jsURL, ok := cfg["jsUrl"].(string); ok && jsURL != "" {
			return jsURL
		}
	}
	return ""
}

// buildPlayerBody assembles the §4.7 request body for the /player endpoint.
func buildPlayerBody(videoID string, signatureTimestamp int, poToken string) map[string]any {
	playbackCtx := map[string]any{
		"html5Preference": "HTML5_PREF_WANTS",
	}
	if signatureTimestamp > 0 {
		playbackCtx["signatureTimestamp"] = signatureTimestamp
	}

	body := map[string]any{
		"videoId":        videoID,
		"contentCheckOk": true,
		"racyCheckOk":    true,
		"playbackContext": map[string]any{
			"contentPlaybackContext": playbackCtx,
		},
	}
	if poToken != "" {
		body["serviceIntegrityDimensions"] = map[string]any{"poToken": poToken}
	}
	return body
}

func sessionIndexFromString(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
