package orchestrator

import (
	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/types"
)

// SelectClients builds the ordered, de-duplicated client working list for
// one extraction, before any per-client fallback extension happens.
func SelectClients(registry innertube.Registry, premium, authenticated, musicURL bool) []types.ClientID {
	var base []types.ClientID
	switch {
	case premium:
		base = []types.ClientID{types.Tv, types.WebCreator, types.WebSafari, types.Web}
	case authenticated:
		base = []types.ClientID{types.Tv, types.WebSafari, types.Web}
	default:
		base = []types.ClientID{types.AndroidSdkless, types.Tv, types.WebSafari, types.Web}
	}

	if musicURL && authenticated {
		base = append(base, types.WebMusic)
	}

	if authenticated {
		filtered := base[:0:0]
		for _, id := range base {
			if profile, ok := registry.Get(id); ok && !profile.SupportsCookies {
				continue
			}
			filtered = append(filtered, id)
		}
		base = filtered
	}

	return dedupPreserveOrder(base)
}

// applyClientOverrides narrows or reorders a SelectClients result per
// caller-supplied client names. An override list replaces the stack
// outright (unresolvable names are dropped); a skip list removes names
// from whichever stack is in play. Both are matched case-sensitively
// against the registry's registered client names.
func applyClientOverrides(registry innertube.Registry, clients []types.ClientID, overrides, skip []string) []types.ClientID {
	if len(overrides) > 0 {
		replaced := make([]types.ClientID, 0, len(overrides))
		for _, name := range overrides {
			if profile, ok := registry.GetByName(name); ok {
				replaced = append(replaced, profile.ID)
			}
		}
		clients = dedupPreserveOrder(replaced)
	}
	if len(skip) == 0 {
		return clients
	}
	skipSet := make(map[types.ClientID]bool, len(skip))
	for _, name := range skip {
		if profile, ok := registry.GetByName(name); ok {
			skipSet[profile.ID] = true
		}
	}
	out := clients[:0:0]
	for _, id := range clients {
		if skipSet[id] {
			continue
		}
		out = append(out, id)
	}
	return out
}

func dedupPreserveOrder(ids []types.ClientID) []types.ClientID {
	seen := make(map[types.ClientID]bool, len(ids))
	out := make([]types.ClientID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
