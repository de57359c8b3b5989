// Package orchestrator drives one video extraction: selecting which
// impersonated clients to try, mining the watch page, and walking a
// sequential fallback stack of player-response attempts until one is
// accepted or the stack runs dry.
package orchestrator

import (
	"context"
	"regexp"
	"strings"

	"github.com/corvid-tools/ytgrab/internal/cache"
	"github.com/corvid-tools/ytgrab/internal/cookies"
	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/playerjs"
	"github.com/corvid-tools/ytgrab/internal/types"
	"github.com/corvid-tools/ytgrab/internal/webpage"
)

var initialPlayerResponseStart = regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*`)

// Engine owns the dependencies one extraction needs: the client registry,
// the Innertube POST client, the webpage fetcher, the player-script
// loader, and the shared signature-timestamp/cache memo.
type Engine struct {
	Registry    innertube.Registry
	Client      *innertube.Client
	Webpage     *webpage.Fetcher
	Loader      *playerjs.Loader
	PlayerCache *cache.Store[cache.ScopedKey]
}

// NewEngine wires an Engine from its collaborators, allocating a
// PlayerCache if nil.
func NewEngine(registry innertube.Registry, client *innertube.Client, wp *webpage.Fetcher, loader *playerjs.Loader, playerCache *cache.Store[cache.ScopedKey]) *Engine {
	if registry == nil {
		registry = innertube.DefaultRegistry()
	}
	if playerCache == nil {
		playerCache = cache.New[cache.ScopedKey]()
	}
	return &Engine{Registry: registry, Client: client, Webpage: wp, Loader: loader, PlayerCache: playerCache}
}

// ExtractOptions parameterizes one GetVideoInfo call.
type ExtractOptions struct {
	Authenticated      bool
	Premium            bool
	MusicURL           bool
	Jar                *cookies.Jar
	PoTokenProvider    innertube.PoTokenProvider
	VisitorData        string
	SessionIdentifiers sessionIdentifiers

	// ClientOverrides, when non-empty, restricts CLIENT_LOOP to exactly
	// these clients (by registry name), in the given order, instead of
	// the SelectClients default stack.
	ClientOverrides []string
	// ClientSkip removes clients (by registry name) from whichever
	// stack CLIENT_LOOP would otherwise use.
	ClientSkip []string
	// DisableFallbackClients suppresses the age-gate/embedding-disabled
	// fallback extension (web_embedded, tv_embedded) CLIENT_LOOP would
	// otherwise append beyond the selected stack.
	DisableFallbackClients bool
}

// AcceptedResponse pairs a decoded player response with the client that
// produced it.
type AcceptedResponse struct {
	Client   types.ClientID
	Response map[string]any
}

// Result is everything one extraction discovered: the accepted player
// responses (in acceptance order, the mined initial response first when
// present) and the visitor data resolved along the way.
type Result struct {
	Responses   []AcceptedResponse
	VisitorData string
	PlayerURL   string
}

// GetVideoInfo runs the full SELECTING -> FETCHING_WEBPAGE -> MINING_CONFIG
// -> FETCHING_INITIAL_DATA -> CLIENT_LOOP state machine for one video.
func (e *Engine) GetVideoInfo(ctx context.Context, videoID, watchURL string, opts ExtractOptions) (*Result, error) {
	// SELECTING
	clients := SelectClients(e.Registry, opts.Premium, opts.Authenticated, opts.MusicURL)
	clients = applyClientOverrides(e.Registry, clients, opts.ClientOverrides, opts.ClientSkip)
	if len(clients) == 0 {
		return nil, types.ErrNoClientsAvailable
	}

	webProfile, _ := e.Registry.Get(types.Web)

	// FETCHING_WEBPAGE
	html, err := e.Webpage.DownloadWebpage(ctx, watchURL, webProfile, videoID)
	if err != nil {
		return nil, err
	}

	// MINING_CONFIG
	webCfg := webpage.ExtractYtcfg(html)

	// FETCHING_INITIAL_DATA
	initialPR, _ := webpage.SearchJSON(initialPlayerResponseStart, html, nil, map[string]any{})

	var accepted []AcceptedResponse
	if len(initialPR) > 0 && responseVideoID(initialPR) == videoID {
		accepted = append(accepted, AcceptedResponse{Client: types.Web, Response: withNulledStreamingData(initialPR)})
	}

	sessIDs := resolveSessionIdentifiers(opts.SessionIdentifiers, "", []map[string]any{webCfg, initialPR})
	visitorData := opts.VisitorData
	siteOrigin := "https://www.youtube.com"
	triedIframeProbe := false

	// CLIENT_LOOP: working is the reversed selection, popped from the end
	// so clients are tried in their originally selected order first.
	working := reverseClientIDs(clients)
	var causes []error
	attempts := 0
	extended := map[types.ClientID]bool{}
	resolvedPlayerURL := ""

	for len(working) > 0 {
		c := working[len(working)-1]
		working = working[:len(working)-1]
		attempts++

		profile, ok := e.Registry.Get(c)
		if !ok {
			continue
		}

		playerYtcfg := map[string]any{}
		if c == types.Web {
			playerYtcfg = webCfg
		}
		configBlobs := []map[string]any{playerYtcfg, webCfg, initialPR}

		requireProbe := profile.RequireJSPlayer && !triedIframeProbe
		playerURL, urlErr := resolvePlayerURL(ctx, e.Webpage, siteOrigin, configBlobs, requireProbe)
		if requireProbe {
			triedIframeProbe = true
		}
		if urlErr != nil {
			causes = append(causes, urlErr)
		}
		if playerURL != "" {
			resolvedPlayerURL = playerURL
		}

		sts := 0
		if playerURL != "" {
			sts, _ = playerjs.ExtractSignatureTimestamp(ctx, e.Loader, playerURL, profile, mergedSTSSource(playerYtcfg, webCfg), e.PlayerCache)
		}

		poToken := ""
		if opts.PoTokenProvider != nil {
			if tok, tokErr := opts.PoTokenProvider.GetToken(ctx, c.String()); tokErr == nil {
				poToken = tok
			}
		}

		body := buildPlayerBody(videoID, sts, poToken)
		contextOverride := clientContextOverride(playerYtcfg)
		if contextOverride == nil {
			contextOverride = clientContextOverride(webCfg)
		}

		resp, callErr := e.Client.Call(ctx, innertube.CallOptions{
			Profile:         profile,
			Endpoint:        innertube.EndpointPlayer,
			Body:            body,
			ContextOverride: contextOverride,
			VisitorData:     visitorData,
			ConfigBlobs:     configBlobs,
			APIKey:          resolveAPIKey(profile),
			Authenticated:   opts.Authenticated,
			Jar:             opts.Jar,
			CookieAuthContext: innertube.CookieAuthContext{
				DelegatedSessionID: sessIDs.DelegatedSessionID,
				UserSessionID:      sessIDs.UserSessionID,
				SessionIndex:       sessIDs.SessionIndex,
			},
		})
		if callErr != nil {
			causes = append(causes, &AttemptError{Client: c.String(), Err: callErr})
			continue
		}

		if visitorData == "" {
			if v, ok := resp["responseContext"].(map[string]any); ok {
				if vd, ok := v["visitorData"].(string); ok && vd != "" {
					visitorData = vd
				}
			}
		}

		if got := responseVideoID(resp); got != "" && got != videoID {
			causes = append(causes, &AttemptError{Client: c.String(), Err: errVideoIDMismatch})
			continue
		}

		accepted = append(accepted, AcceptedResponse{Client: c, Response: resp})

		variant := c.Variant()
		ageGated := isAgeGated(resp)
		embeddingDisabled := variant == "embedded" && isUnplayable(resp)

		if ageGated {
			if !opts.DisableFallbackClients && variant != "embedded" && !extended[types.WebEmbedded] {
				extended[types.WebEmbedded] = true
				working = append(working, types.WebEmbedded)
			}
			if !opts.Authenticated {
				accepted = accepted[:len(accepted)-1]
			}
		}
		if !opts.DisableFallbackClients && opts.Authenticated && (ageGated || embeddingDisabled) {
			if !extended[types.TvEmbedded] {
				extended[types.TvEmbedded] = true
				working = append(working, types.TvEmbedded)
			}
			if !extended[types.WebCreator] {
				extended[types.WebCreator] = true
				working = append(working, types.WebCreator)
			}
		}
	}

	if len(accepted) == 0 {
		return nil, &types.NoPlayerResponseError{VideoID: videoID, ClientsTried: attempts, Causes: causes}
	}

	return &Result{Responses: accepted, VisitorData: visitorData, PlayerURL: resolvedPlayerURL}, nil
}

var errVideoIDMismatch = &types.DataMissingError{What: "videoDetails.videoId did not match the requested video"}

func reverseClientIDs(ids []types.ClientID) []types.ClientID {
	out := make([]types.ClientID, len(ids))
	for i, id := range ids {
		out[len(ids)-1-i] = id
	}
	return out
}

func withNulledStreamingData(response map[string]any) map[string]any {
	out := make(map[string]any, len(response))
	for k, v := range response {
		out[k] = v
	}
	out["streamingData"] = nil
	return out
}

// mergedSTSSource prefers the client's own ytcfg STS field, falling back
// to the webpage ytcfg's.
func mergedSTSSource(playerYtcfg, webCfg map[string]any) map[string]any {
	if _, ok := playerYtcfg["STS"]; ok {
		return playerYtcfg
	}
	return webCfg
}

// clientContextOverride extracts the INNERTUBE_CONTEXT.client sub-object
// from a mined ytcfg blob, for use as the request's ContextOverride.
func clientContextOverride(blob map[string]any) map[string]any {
	ctx, ok := blob["INNERTUBE_CONTEXT"].(map[string]any)
	if !ok {
		return nil
	}
	client, ok := ctx["client"].(map[string]any)
	if !ok {
		return nil
	}
	return client
}

func resolveAPIKey(profile innertube.ClientProfile) string {
	if key := strings.TrimSpace(profile.APIKey); key != "" {
		return key
	}
	return ""
}
