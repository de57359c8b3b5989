package orchestrator

import (
	"testing"

	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestSelectClientsAnonymous(t *testing.T) {
	got := SelectClients(innertube.NewRegistry(), false, false, false)
	assert.Equal(t, []types.ClientID{types.AndroidSdkless, types.Tv, types.WebSafari, types.Web}, got)
}

func TestSelectClientsAuthenticatedNonPremium(t *testing.T) {
	got := SelectClients(innertube.NewRegistry(), false, true, false)
	assert.Equal(t, []types.ClientID{types.Tv, types.WebSafari, types.Web}, got)
}

func TestSelectClientsPremium(t *testing.T) {
	got := SelectClients(innertube.NewRegistry(), true, true, false)
	assert.Equal(t, []types.ClientID{types.Tv, types.WebCreator, types.WebSafari, types.Web}, got)
}

func TestSelectClientsMusicURLAddsWebMusicWhenAuthenticated(t *testing.T) {
	got := SelectClients(innertube.NewRegistry(), false, true, true)
	assert.Contains(t, got, types.WebMusic)
}

func TestSelectClientsMusicURLIgnoredWhenAnonymous(t *testing.T) {
	got := SelectClients(innertube.NewRegistry(), false, false, true)
	assert.NotContains(t, got, types.WebMusic)
}

func TestSelectClientsAuthenticatedDropsNonCookieClients(t *testing.T) {
	got := SelectClients(innertube.NewRegistry(), false, true, false)
	for _, id := range got {
		profile, ok := innertube.NewRegistry().Get(id)
		assert.True(t, ok)
		assert.True(t, profile.SupportsCookies)
	}
}

func TestDedupPreserveOrder(t *testing.T) {
	got := dedupPreserveOrder([]types.ClientID{types.Web, types.Tv, types.Web})
	assert.Equal(t, []types.ClientID{types.Web, types.Tv}, got)
}
