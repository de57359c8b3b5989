package cookies

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// ParseNetscape parses a Netscape cookies.txt body: 7 tab-separated fields
// per line (domain, include-subdomains, path, secure, expiration, name,
// value). Lines starting with '#' or blank are skipped; malformed rows are
// silently dropped. Domains are left-dotted when include-subdomains is
// TRUE and not already dotted.
func ParseNetscape(r io.Reader) ([]Cookie, error) {
	var out []Cookie
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "\t")
		if len(parts) < 7 {
			continue
		}

		domain := parts[0]
		includeSubdomains := strings.EqualFold(parts[1], "TRUE")
		path := parts[2]
		secure := strings.EqualFold(parts[3], "TRUE")
		expires, err := strconv.ParseInt(parts[4], 10, 64)
		if err != nil {
			continue
		}
		name := parts[5]
		value := parts[6]

		if includeSubdomains && !strings.HasPrefix(domain, ".") {
			domain = "." + domain
		}

		c := NewCookie(name, value, domain)
		c.Path = path
		c.Secure = secure
		c.Expiration = expires
		out = append(out, c)
	}

	return out, scanner.Err()
}

// LoadNetscapeInto parses body and inserts every resulting cookie into j.
func LoadNetscapeInto(j *Jar, r io.Reader) error {
	cs, err := ParseNetscape(r)
	if err != nil {
		return err
	}
	j.SetAll(cs)
	return nil
}
