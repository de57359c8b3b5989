package innertube

import (
	"net/http"

	"github.com/corvid-tools/ytgrab/internal/types"
)

// VideoStreamingProtocol is the protocol a PO-token policy is scoped to.
type VideoStreamingProtocol string

const (
	StreamingProtocolHTTPS  VideoStreamingProtocol = "https"
	StreamingProtocolDASH   VideoStreamingProtocol = "dash"
	StreamingProtocolHLS    VideoStreamingProtocol = "hls"
	StreamingProtocolUnknown VideoStreamingProtocol = "unknown"
)

// PoTokenPolicy is the per-protocol, per-purpose requirement flags.
type PoTokenPolicy struct {
	Required                   bool
	Recommended                bool
	NotRequiredForPremium      bool
	NotRequiredWithPlayerToken bool
}

// PoTokenFetchPolicy controls how strictly an acquirer is expected to
// supply a token.
type PoTokenFetchPolicy string

const (
	PoTokenFetchPolicyRequired    PoTokenFetchPolicy = "required"
	PoTokenFetchPolicyRecommended PoTokenFetchPolicy = "recommended"
	PoTokenFetchPolicyNever       PoTokenFetchPolicy = "never"
)

// ClientContext is the "client" sub-object of innertube_context.
type ClientContext struct {
	ClientName    string
	ClientVersion string
	UserAgent     string
	Hl            string
}

// ThirdPartyContext carries the embed URL injected for embedded client
// variants, at the profile-table level (see request.ThirdParty for the
// wire-shape counterpart sent in the actual POST body).
type ThirdPartyContext struct {
	EmbedURL string
}

// InnertubeContext is the nested mapping a ClientProfile carries: a
// required "client" object plus an optional "thirdParty" for embedded
// variants.
type InnertubeContext struct {
	Client     ClientContext
	ThirdParty *ThirdPartyContext
}

// ClientProfile is one compile-time-registered Innertube client
// impersonation profile. The registry builds one per types.ClientID and
// never mutates it afterward.
type ClientProfile struct {
	ID      types.ClientID
	Name    string // textual client name, e.g. "web_embedded"
	Context InnertubeContext

	Host                   string // innertube_host
	APIKey                 string
	ContextClientName      int    // innertube_context_client_name, echoed as X-YouTube-Client-Name
	SupportsCookies        bool
	RequireJSPlayer        bool
	RequireAuth            bool
	AuthenticatedUserAgent string

	GvsPoTokenPolicy    map[VideoStreamingProtocol]PoTokenPolicy
	PlayerPoTokenPolicy map[VideoStreamingProtocol]PoTokenPolicy
	SubsPoTokenPolicy   map[VideoStreamingProtocol]PoTokenPolicy

	Priority int

	Headers http.Header
}

// UserAgent returns the profile's user agent, substituting
// AuthenticatedUserAgent when authenticated and one is set.
func (p ClientProfile) UserAgent(authenticated bool) string {
	if authenticated && p.AuthenticatedUserAgent != "" {
		return p.AuthenticatedUserAgent
	}
	return p.Context.Client.UserAgent
}

// Registry exposes lookups over the immutable client table.
type Registry interface {
	Get(id types.ClientID) (ClientProfile, bool)
	GetByName(name string) (ClientProfile, bool)
	All() []ClientProfile
}
