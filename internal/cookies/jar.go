// Package cookies implements a domain-indexed cookie jar with HTTP header
// materialization and Netscape cookie-file ingestion, plus the consent and
// locale-preference cookie bootstrap the webpage fetch needs to avoid a
// consent interstitial.
package cookies

import (
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/publicsuffix"
)

// Cookie is a single jar entry. HTTPOnly is inferred true when Name starts
// with "__Host-" or "__Secure-".
type Cookie struct {
	Name       string
	Value      string
	Domain     string
	Path       string
	Secure     bool
	Expiration int64 // unix seconds, 0 = session cookie
	HTTPOnly   bool
}

// NewCookie builds a Cookie, inferring HTTPOnly from the name prefix and
// defaulting Path to "/".
func NewCookie(name, value, domain string) Cookie {
	path := "/"
	return Cookie{
		Name:     name,
		Value:    value,
		Domain:   domain,
		Path:     path,
		HTTPOnly: strings.HasPrefix(name, "__Host-") || strings.HasPrefix(name, "__Secure-"),
	}
}

// Jar is a thread-safe, domain-indexed cookie set. Concurrent readers see
// a consistent snapshot: all reads copy out of the map under a read lock.
type Jar struct {
	mu      sync.RWMutex
	byKey   map[string]Cookie // domain|path|name -> cookie
	hasAuth atomic.Bool
}

// NewJar returns an empty Jar.
func NewJar() *Jar {
	return &Jar{byKey: make(map[string]Cookie)}
}

func cookieKey(domain, path, name string) string {
	return strings.ToLower(domain) + "|" + path + "|" + name
}

// Set inserts or replaces a cookie.
func (j *Jar) Set(c Cookie) {
	if c.Path == "" {
		c.Path = "/"
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.byKey[cookieKey(c.Domain, c.Path, c.Name)] = c
	if isAuthCookieName(c.Name) {
		j.hasAuth.Store(true)
	}
}

// SetAll inserts or replaces many cookies.
func (j *Jar) SetAll(cs []Cookie) {
	for _, c := range cs {
		j.Set(c)
	}
}

// Get returns the named cookie for the given domain, if present.
func (j *Jar) Get(domain, name string) (Cookie, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	c, ok := j.byKey[cookieKey(domain, "/", name)]
	if ok {
		return c, true
	}
	// fall back: some cookies were stored with a more specific path.
	for _, cc := range j.byKey {
		if strings.EqualFold(cc.Domain, domain) && cc.Name == name {
			return cc, true
		}
	}
	return Cookie{}, false
}

// ForDomain returns a snapshot of cookies applicable to domain: exact
// domain match, or the cookie's domain is a parent (eTLD+1-aware) of the
// requested domain.
func (j *Jar) ForDomain(domain string) []Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	out := make([]Cookie, 0, len(j.byKey))
	for _, c := range j.byKey {
		if domainMatches(c.Domain, domain) {
			out = append(out, c)
		}
	}
	return out
}

func domainMatches(cookieDomain, host string) bool {
	cookieDomain = strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	host = strings.ToLower(host)
	if cookieDomain == host {
		return true
	}
	if strings.HasSuffix(host, "."+cookieDomain) {
		return true
	}
	// eTLD+1 comparison guards against over-matching unrelated domains that
	// merely share a suffix (e.g. "notyoutube.com" vs "youtube.com").
	cd, err1 := publicsuffix.EffectiveTLDPlusOne(cookieDomain)
	hd, err2 := publicsuffix.EffectiveTLDPlusOne(host)
	return err1 == nil && err2 == nil && cd == hd
}

// HeaderValue materializes the cookies applicable to domain as an HTTP
// Cookie header value: "k1=v1; k2=v2" in insertion-stable (sorted by name)
// order, so header_value(set) round-trips into the same name/value pairs.
func (j *Jar) HeaderValue(domain string) string {
	cs := j.ForDomain(domain)
	sortCookiesByName(cs)
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

func sortCookiesByName(cs []Cookie) {
	for i := 1; i < len(cs); i++ {
		for j := i; j > 0 && cs[j-1].Name > cs[j].Name; j-- {
			cs[j-1], cs[j] = cs[j], cs[j-1]
		}
	}
}

func isAuthCookieName(name string) bool {
	switch name {
	case "SAPISID", "__Secure-1PAPISID", "__Secure-3PAPISID", "LOGIN_INFO":
		return true
	default:
		return false
	}
}

// HasAuthCookies reports whether LOGIN_INFO is present AND at least one of
// SAPISID / __Secure-1PAPISID / __Secure-3PAPISID is present. Grounded on
// original_source's has_auth_cookies predicate.
func (j *Jar) HasAuthCookies() bool {
	_, hasLogin := j.Get("www.youtube.com", "LOGIN_INFO")
	if !hasLogin {
		return false
	}
	for _, name := range []string{"SAPISID", "__Secure-1PAPISID", "__Secure-3PAPISID"} {
		if _, ok := j.Get("www.youtube.com", name); ok {
			return true
		}
	}
	return false
}

// IsAuthenticated is an alias for HasAuthCookies, matching
// original_source's is_authenticated naming.
func (j *Jar) IsAuthenticated() bool { return j.HasAuthCookies() }
