package types

import "strings"

// ClientID enumerates the impersonated Innertube clients. Order here is
// the registry build order; it is also the order client-selection lists
// name clients in, so it must not be reshuffled casually — priority and
// selection output both depend on it.
type ClientID int

const (
	Web ClientID = iota
	WebSafari
	WebEmbedded
	WebMusic
	WebCreator
	Android
	AndroidSdkless
	AndroidVr
	IOS
	MWeb
	Tv
	TvSimply
	TvEmbedded

	numClientIDs
)

var clientIDNames = [numClientIDs]string{
	Web:            "web",
	WebSafari:      "web_safari",
	WebEmbedded:    "web_embedded",
	WebMusic:       "web_music",
	WebCreator:     "web_creator",
	Android:        "android",
	AndroidSdkless: "android_sdkless",
	AndroidVr:      "android_vr",
	IOS:            "ios",
	MWeb:           "mweb",
	Tv:             "tv",
	TvSimply:       "tv_simply",
	TvEmbedded:     "tv_embedded",
}

var clientIDByName = func() map[string]ClientID {
	m := make(map[string]ClientID, numClientIDs)
	for i, name := range clientIDNames {
		m[name] = ClientID(i)
	}
	return m
}()

// String returns the textual client name, e.g. "web_embedded".
func (c ClientID) String() string {
	if c < 0 || int(c) >= len(clientIDNames) {
		return "unknown"
	}
	return clientIDNames[c]
}

// ParseClientID looks up a ClientID by its textual name.
func ParseClientID(name string) (ClientID, bool) {
	c, ok := clientIDByName[name]
	return c, ok
}

// Base returns the portion of the client name before the first '_'. A name
// without '_' has empty variant and base equal to the whole name.
func (c ClientID) Base() string {
	base, _ := splitClientName(c.String())
	return base
}

// Variant returns the portion of the client name after the first '_', or
// "" if the name has no '_'.
func (c ClientID) Variant() string {
	_, variant := splitClientName(c.String())
	return variant
}

func splitClientName(name string) (base, variant string) {
	idx := strings.IndexByte(name, '_')
	if idx < 0 {
		return name, ""
	}
	return name[:idx], name[idx+1:]
}

// NumClientIDs is the number of registered client ids, used for priority
// computation (10 * base_index + variant offset).
func NumClientIDs() int { return int(numClientIDs) }

// AllClientIDs returns every ClientID in registry build order.
func AllClientIDs() []ClientID {
	out := make([]ClientID, numClientIDs)
	for i := range out {
		out[i] = ClientID(i)
	}
	return out
}
