package client

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/types"
)

// PlaylistItem is one video entry in a playlist listing.
type PlaylistItem struct {
	VideoID  string
	Title    string
	Author   string
	Duration string
}

// PlaylistInfo is the resolved result of GetPlaylist: a title plus every
// item, continuation pages already merged in order.
type PlaylistInfo struct {
	ID    string
	Title string
	Items []PlaylistItem
}

// maxPlaylistPages bounds how many continuation round trips GetPlaylist
// will follow before giving up, so a malformed or endless continuation
// chain can't loop forever.
const maxPlaylistPages = 40

var errNoWebProfile = errors.New("web client profile not registered")

// GetPlaylist resolves every video in a playlist by driving the browse
// endpoint's continuation chain to exhaustion.
func (c *Client) GetPlaylist(ctx context.Context, input string) (*PlaylistInfo, error) {
	ctx, cancel := withDefaultTimeout(ctx, c.config.RequestTimeout)
	defer cancel()

	playlistID, err := ExtractPlaylistID(input)
	if err != nil {
		return nil, err
	}

	profile, ok := c.registry.Get(types.Web)
	if !ok {
		return nil, &types.TransportError{Op: "resolve web client profile", Err: errNoWebProfile}
	}

	innertubeClient := innertube.NewClient(c.httpClient())
	browseID := "VL" + playlistID

	info := &PlaylistInfo{ID: playlistID}
	continuation := ""
	for page := 0; page < maxPlaylistPages; page++ {
		body := map[string]any{"browseId": browseID}
		if continuation != "" {
			body = map[string]any{"continuation": continuation}
		}

		resp, callErr := innertubeClient.Call(ctx, innertube.CallOptions{
			Profile:  profile,
			Endpoint: innertube.EndpointBrowse,
			Body:     body,
		})
		if callErr != nil {
			return nil, callErr
		}

		browse, err := decodeBrowseResponse(resp)
		if err != nil {
			return nil, err
		}

		if info.Title == "" {
			info.Title = playlistTitleFromBrowse(resp)
		}

		renderers, next := flattenPlaylistBrowse(browse)
		for _, r := range renderers {
			info.Items = append(info.Items, PlaylistItem{
				VideoID:  r.VideoID,
				Title:    langText(r.Title),
				Author:   langText(r.ShortBylineText),
				Duration: langText(r.LengthText),
			})
		}

		if next == "" {
			break
		}
		continuation = next
	}

	if info.Title == "" {
		info.Title = playlistID
	}
	if len(info.Items) == 0 {
		return nil, &types.DataMissingError{What: "playlist items"}
	}
	return info, nil
}

func decodeBrowseResponse(resp map[string]any) (*innertube.BrowseResponse, error) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, &types.DecodeError{Op: "re-encode browse response", Err: err}
	}
	var browse innertube.BrowseResponse
	if err := json.Unmarshal(raw, &browse); err != nil {
		return nil, &types.DecodeError{Op: "decode browse response", Err: err}
	}
	return &browse, nil
}

// playlistTitleFromBrowse digs the playlist's display title out of the
// sidebar metadata renderer path, when present. Not every browse response
// carries it (continuation pages generally don't), so an empty string is
// expected and handled by the caller.
func playlistTitleFromBrowse(resp map[string]any) string {
	header, _ := resp["header"].(map[string]any)
	if header == nil {
		return ""
	}
	if renderer, ok := header["playlistHeaderRenderer"].(map[string]any); ok {
		if title, ok := renderer["title"].(map[string]any); ok {
			if simple, ok := title["simpleText"].(string); ok && simple != "" {
				return simple
			}
		}
	}
	return ""
}

// flattenPlaylistBrowse walks a browse response's content tree (initial
// page or continuation page, both shapes are handled) and returns every
// playlistVideoRenderer it finds plus the next continuation token, if any.
func flattenPlaylistBrowse(browse *innertube.BrowseResponse) ([]innertube.PlaylistVideoRenderer, string) {
	var renderers []innertube.PlaylistVideoRenderer
	next := ""

	collect := func(items []innertube.ContinuationItem) {
		for _, item := range items {
			if item.PlaylistVideoRenderer != nil {
				renderers = append(renderers, *item.PlaylistVideoRenderer)
			}
			if item.ContinuationItemRenderer != nil {
				if tok := item.ContinuationItemRenderer.ContinuationEndpoint.ContinuationCommand.Token; tok != "" {
					next = tok
				}
			}
		}
	}

	if tabs := browse.Contents.TwoColumnBrowseResultsRenderer; tabs != nil {
		for _, tab := range tabs.Tabs {
			if tab.TabRenderer == nil || tab.TabRenderer.Content == nil {
				continue
			}
			sectionList := tab.TabRenderer.Content.SectionListRenderer
			if sectionList == nil {
				continue
			}
			for _, section := range sectionList.Contents {
				if section.ItemSectionRenderer != nil {
					for _, item := range section.ItemSectionRenderer.Contents {
						if item.PlaylistVideoRenderer != nil {
							renderers = append(renderers, *item.PlaylistVideoRenderer)
						}
					}
				}
				if section.ContinuationItemRenderer != nil {
					if tok := section.ContinuationItemRenderer.ContinuationEndpoint.ContinuationCommand.Token; tok != "" {
						next = tok
					}
				}
			}
		}
	}

	for _, action := range browse.OnResponseReceivedActions {
		if action.AppendContinuationItemsAction != nil {
			collect(action.AppendContinuationItemsAction.ContinuationItems)
		}
		if action.ReloadContinuationItemsCommand != nil {
			collect(action.ReloadContinuationItemsCommand.ContinuationItems)
		}
	}
	for _, endpoint := range browse.OnResponseReceivedEndpoints {
		if endpoint.AppendContinuationItemsAction != nil {
			collect(endpoint.AppendContinuationItemsAction.ContinuationItems)
		}
		if endpoint.ReloadContinuationItemsCommand != nil {
			collect(endpoint.ReloadContinuationItemsCommand.ContinuationItems)
		}
	}

	return renderers, next
}

// langText returns the first available text from a LangText field,
// preferring simpleText and falling back to the first run.
func langText(t innertube.LangText) string {
	if t.SimpleText != "" {
		return t.SimpleText
	}
	if len(t.Runs) > 0 {
		return t.Runs[0].Text
	}
	return ""
}
