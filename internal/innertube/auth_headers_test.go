package innertube

import (
	"strings"
	"testing"
	"time"

	"github.com/corvid-tools/ytgrab/internal/cookies"
)

func TestResolveVisitorDataPrefersConfiguredValue(t *testing.T) {
	got := ResolveVisitorData(nil, "www.youtube.com", "configured")
	if got != "configured" {
		t.Fatalf("visitor=%q, want configured", got)
	}
}

func TestResolveVisitorDataFromCookieJar(t *testing.T) {
	jar := cookies.NewJar()
	jar.Set(cookies.NewCookie("VISITOR_INFO1_LIVE", "visitor-cookie", ".youtube.com"))

	got := ResolveVisitorData(jar, "www.youtube.com", "")
	if got != "visitor-cookie" {
		t.Fatalf("visitor=%q, want visitor-cookie", got)
	}
}

func TestBuildCookieAuthHeadersFromSapisidCookies(t *testing.T) {
	jar := cookies.NewJar()
	jar.Set(cookies.NewCookie("SAPISID", "sid-value", ".youtube.com"))
	jar.Set(cookies.NewCookie("LOGIN_INFO", "logged-in", ".youtube.com"))

	headers := BuildCookieAuthHeaders(jar, "www.youtube.com", time.Unix(1700000000, 0), CookieAuthContext{LoggedIn: true})

	auth := headers.Get("Authorization")
	if !strings.HasPrefix(auth, "SAPISIDHASH 1700000000_") {
		t.Fatalf("authorization=%q, want SAPISIDHASH with timestamp prefix", auth)
	}
	if headers.Get("X-Origin") != "https://www.youtube.com" {
		t.Fatalf("x-origin=%q", headers.Get("X-Origin"))
	}
	if headers.Get("X-Youtube-Bootstrap-Logged-In") != "true" {
		t.Fatalf("expected bootstrap logged-in header")
	}
}

func TestBuildCookieAuthHeadersIncludesSessionHeaders(t *testing.T) {
	jar := cookies.NewJar()
	jar.Set(cookies.NewCookie("SAPISID", "sid-value", ".youtube.com"))

	sessionIndex := 2
	headers := BuildCookieAuthHeaders(jar, "www.youtube.com", time.Unix(1700000000, 0), CookieAuthContext{
		DelegatedSessionID: "delegated-id",
		UserSessionID:      "user-session-id",
		SessionIndex:       &sessionIndex,
	})
	if headers.Get("X-Goog-PageId") != "delegated-id" {
		t.Fatalf("x-goog-pageid=%q", headers.Get("X-Goog-PageId"))
	}
	if headers.Get("X-Goog-AuthUser") != "2" {
		t.Fatalf("x-goog-authuser=%q", headers.Get("X-Goog-AuthUser"))
	}
	if !strings.Contains(headers.Get("Authorization"), "_u") {
		t.Fatalf("expected authorization suffix marker for user session id, got %q", headers.Get("Authorization"))
	}
}

func TestSAPISIDFallsBackToSecure3P(t *testing.T) {
	jar := cookies.NewJar()
	jar.Set(cookies.NewCookie("__Secure-3PAPISID", "sid-value", ".youtube.com"))

	headers := BuildCookieAuthHeaders(jar, "www.youtube.com", time.Unix(1700000000, 0), CookieAuthContext{})
	auth := headers.Get("Authorization")
	if !strings.Contains(auth, "SAPISIDHASH") {
		t.Fatalf("expected SAPISIDHASH fallback to __Secure-3PAPISID, got %q", auth)
	}
	if !strings.Contains(auth, "SAPISID3PHASH") {
		t.Fatalf("expected SAPISID3PHASH slot from __Secure-3PAPISID, got %q", auth)
	}
}
