package cookies

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderValueRoundTrip(t *testing.T) {
	j := NewJar()
	j.Set(NewCookie("b", "2", ".youtube.com"))
	j.Set(NewCookie("a", "1", ".youtube.com"))

	header := j.HeaderValue("www.youtube.com")
	pairs := strings.Split(header, "; ")

	got := map[string]string{}
	for _, p := range pairs {
		kv := strings.SplitN(p, "=", 2)
		require.Len(t, kv, 2)
		got[kv[0]] = kv[1]
	}

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, got)
}

func TestHTTPOnlyInferredFromPrefix(t *testing.T) {
	assert.True(t, NewCookie("__Secure-3PAPISID", "x", ".youtube.com").HTTPOnly)
	assert.True(t, NewCookie("__Host-x", "x", ".youtube.com").HTTPOnly)
	assert.False(t, NewCookie("SAPISID", "x", ".youtube.com").HTTPOnly)
}

func TestHasAuthCookies(t *testing.T) {
	j := NewJar()
	assert.False(t, j.HasAuthCookies())

	j.Set(NewCookie("LOGIN_INFO", "x", ".youtube.com"))
	assert.False(t, j.HasAuthCookies())

	j.Set(NewCookie("SAPISID", "y", ".youtube.com"))
	assert.True(t, j.HasAuthCookies())
}

func TestParseNetscapeSkipsMalformedAndComments(t *testing.T) {
	body := `# Netscape HTTP Cookie File
.youtube.com	TRUE	/	TRUE	1999999999	SAPISID	abc123

malformedline
`
	cs, err := ParseNetscape(strings.NewReader(body))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	assert.Equal(t, "SAPISID", cs[0].Name)
	assert.Equal(t, "abc123", cs[0].Value)
	assert.True(t, cs[0].Secure)
}

func TestEnsureConsentIsIdempotent(t *testing.T) {
	j := NewJar()
	j.EnsureConsent()
	first, _ := j.Get("www.youtube.com", "SOCS")
	j.EnsureConsent()
	second, _ := j.Get("www.youtube.com", "SOCS")
	assert.Equal(t, first, second)
}

func TestEnsurePreferencesSetsLocaleAndUTC(t *testing.T) {
	j := NewJar()
	j.EnsurePreferences("fr")
	pref, ok := j.Get("www.youtube.com", "PREF")
	require.True(t, ok)
	assert.Contains(t, pref.Value, "hl=fr")
	assert.Contains(t, pref.Value, "tz=UTC")
}
