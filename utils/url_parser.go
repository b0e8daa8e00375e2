package utils

import (
	"net/http"
	"net/url"
	"strings"
)

func ishex(c byte) bool {
	switch {
	case '0' <= c && c <= '9':
		return true
	case 'a' <= c && c <= 'f':
		return true
	case 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// unescapeURL is a tolerant percent-decoder. Malformed escape
// sequences pass through verbatim instead of failing the whole
// query the way net/url does.
func unescapeURL(s string) string {
	n := 0
	for i := 0; i < len(s); {
		if s[i] == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]) {
			n++
			i += 3
		} else {
			i++
		}
	}
	if n == 0 {
		return strings.Replace(s, "+", " ", -1)
	}

	t := make([]byte, len(s)-2*n)
	j := 0
	for i := 0; i < len(s); {
		switch {
		case s[i] == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]):
			t[j] = unhex(s[i+1])<<4 | unhex(s[i+2])
			j++
			i += 3
		case s[i] == '+':
			t[j] = ' '
			j++
			i++
		default:
			t[j] = s[i]
			j++
			i++
		}
	}
	return string(t)
}

// ParseQuery splits a raw query string into lower-cased keys
// and decoded values.
func ParseQuery(query string) (url.Values, error) {
	m := make(url.Values)
	for _, kv := range strings.Split(query, "&") {
		if len(kv) == 0 {
			continue
		}
		iSep := strings.Index(kv, "=")
		if iSep < 0 {
			m[strings.ToLower(unescapeURL(kv))] = append(m[strings.ToLower(unescapeURL(kv))], "")
			continue
		}
		key := strings.ToLower(unescapeURL(kv[:iSep]))
		m[key] = append(m[key], unescapeURL(kv[iSep+1:]))
	}
	return m, nil
}

// ParseRemoteAddr prefers the X-Forwarded-For header set by
// reverse proxies over the socket peer address.
func ParseRemoteAddr(r *http.Request) string {
	forwarded := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0])
	if len(forwarded) > 0 {
		return forwarded
	}
	return r.RemoteAddr
}
