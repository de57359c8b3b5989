package webpage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/corvid-tools/ytgrab/internal/innertube"
	"github.com/corvid-tools/ytgrab/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractYtcfgParsesObject(t *testing.T) {
	html := `<script>ytcfg.set({"INNERTUBE_API_KEY":"abc123","STS":20542});</script>`
	cfg := ExtractYtcfg(html)
	assert.Equal(t, "abc123", cfg["INNERTUBE_API_KEY"])
	assert.Equal(t, float64(20542), cfg["STS"])
}

func TestExtractYtcfgAbsenceReturnsEmptyMap(t *testing.T) {
	cfg := ExtractYtcfg(`<html>nothing here</html>`)
	assert.Empty(t, cfg)
}

func TestExtractYtInitialDataDecodesNestedObject(t *testing.T) {
	html := `<script>var ytInitialData = {"contents":{"a":1,"b":{"c":"}"}}};</script>`
	data, err := ExtractYtInitialData(html)
	require.NoError(t, err)
	contents, ok := data["contents"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), contents["a"])
}

func TestExtractYtInitialDataMissingFails(t *testing.T) {
	_, err := ExtractYtInitialData(`<html>nope</html>`)
	require.Error(t, err)
	var missing *types.DataMissingError
	assert.ErrorAs(t, err, &missing)
}

func TestSearchJSONBraceBalancedWithEscapedQuotes(t *testing.T) {
	html := `ytInitialPlayerResponse = {"videoDetails":{"title":"say \"hi\" {bro}","videoId":"abc"}};`
	startRe := regexp.MustCompile(`ytInitialPlayerResponse\s*=\s*`)
	result, err := SearchJSON(startRe, html, nil, nil)
	require.NoError(t, err)
	vd, ok := result["videoDetails"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc", vd["videoId"])
}

func TestSearchJSONReturnsDefaultOnMissingStart(t *testing.T) {
	def := map[string]any{"fallback": true}
	result, err := SearchJSON(regexp.MustCompile(`notPresent\s*=`), "nothing here", nil, def)
	require.NoError(t, err)
	assert.Equal(t, def, result)
}

func TestSearchJSONFailsWithoutDefault(t *testing.T) {
	_, err := SearchJSON(regexp.MustCompile(`notPresent\s*=`), "nothing here", nil, nil)
	require.Error(t, err)
	var decodeErr *types.DecodeError
	assert.ErrorAs(t, err, &decodeErr)
}

func TestDownloadWebpageAppendsQueryAndUsesUserAgent(t *testing.T) {
	var gotQuery url.Values
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	profile, ok := innertube.NewRegistry().Get(types.Web)
	require.True(t, ok)

	body, err := f.DownloadWebpage(context.Background(), srv.URL+"/watch", profile, "jNQXAC9IVRw")
	require.NoError(t, err)
	assert.True(t, strings.Contains(body, "ok"))
	assert.Equal(t, "9999999999", gotQuery.Get("bpctr"))
	assert.Equal(t, "1", gotQuery.Get("has_verified"))
	assert.Equal(t, "jNQXAC9IVRw", gotQuery.Get("v"))
	assert.NotEmpty(t, gotUA)
}
