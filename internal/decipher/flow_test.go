package decipher

import (
	"testing"

	"github.com/corvid-tools/ytgrab/internal/cache"
	"github.com/stretchr/testify/require"
)

func TestEngineDecipherComposesSignedURLAndReplacesN(t *testing.T) {
	js := loadFixture(t, "synthetic_basejs_fixture.js")
	e := NewEngine(nil)

	query := "url=https%3A%2F%2Fexample.com%2Fvideo%3Fn%3D12345&s=abcdef&sp=sig"
	out, err := e.Decipher(query, "https://example.com/player.js", js)
	require.NoError(t, err)
	require.Contains(t, out, "sig=edabc")
	require.Contains(t, out, "n=2345")
}

func TestEngineDecipherMemoizesByPlayerURL(t *testing.T) {
	js := loadFixture(t, "synthetic_basejs_fixture.js")
	store := cache.New[cache.ScopedKey]()
	e := NewEngine(store)

	query := "url=https%3A%2F%2Fexample.com%2Fvideo&s=abcdef"
	_, err := e.Decipher(query, "https://example.com/player.js", js)
	require.NoError(t, err)

	cached, ok := store.Get(cache.ScopedKey{Scope: "sig-https://example.com/player.js", Key: "abcdef"})
	require.True(t, ok)
	require.Equal(t, "edabc", cached)
}

func TestEngineDecipherRejectsMissingRequiredKeys(t *testing.T) {
	e := NewEngine(nil)
	_, err := e.Decipher("sp=sig", "https://example.com/player.js", "")
	require.Error(t, err)
}
