package cookies

import (
	"fmt"
	"net/url"
	"strings"
)

const youtubeDomain = ".youtube.com"

// EnsureConsent seeds a SOCS consent cookie if one is not already present,
// so the webpage fetch doesn't hit a consent interstitial. Grounded on
// original_source's initialize_consent.
func (j *Jar) EnsureConsent() {
	if _, ok := j.Get("www.youtube.com", "SOCS"); ok {
		return
	}
	j.Set(NewCookie("SOCS", "CAI", youtubeDomain))
}

// EnsurePreferences seeds or merges a PREF cookie carrying the preferred
// locale and a fixed UTC timezone. Grounded on original_source's
// initialize_pref, which parses PREF as a query string and merges hl/tz in.
func (j *Jar) EnsurePreferences(locale string) {
	if locale == "" {
		locale = "en"
	}
	existing, _ := j.Get("www.youtube.com", "PREF")
	values, _ := url.ParseQuery(existing.Value)
	if values == nil {
		values = url.Values{}
	}
	values.Set("hl", locale)
	values.Set("tz", "UTC")
	j.Set(NewCookie("PREF", encodePrefValue(values), youtubeDomain))
}

// encodePrefValue renders url.Values in PREF's f1=v1&f2=v2 shape, without
// percent-encoding the simple alnum values PREF actually carries.
func encodePrefValue(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for k := i; k > 0 && keys[k-1] > keys[k]; k-- {
			keys[k-1], keys[k] = keys[k], keys[k-1]
		}
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, values.Get(k)))
	}
	return strings.Join(parts, "&")
}
