package oauth1

import (
	"net/url"
	"sort"
	"strings"
)

// PercentEncode encodes s per RFC 3986 section 2.1 as required by RFC 5849
// section 3.6: only ALPHA, DIGIT, '-', '.', '_' and '~' are left as is.
func PercentEncode(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-', c == '.', c == '_', c == '~':
		return true
	}
	return false
}

// NormalizeParameters builds the parameter string of the signature base
// string: every pair encoded, sorted by name then value, joined with '&'.
// oauth_signature and realm never take part in the signature.
func NormalizeParameters(params url.Values) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	for k, values := range params {
		if k == "oauth_signature" || k == "realm" {
			continue
		}
		ek := PercentEncode(k)
		for _, v := range values {
			pairs = append(pairs, pair{k: ek, v: PercentEncode(v)})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].k != pairs[j].k {
			return pairs[i].k < pairs[j].k
		}
		return pairs[i].v < pairs[j].v
	})

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.k)
		b.WriteByte('=')
		b.WriteString(p.v)
	}
	return b.String()
}

// BaseStringURI returns the base string URI of RFC 5849 section 3.4.1.2:
// lowercase scheme and host, default port removed, no query or fragment.
func BaseStringURI(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" {
		if !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
			host = host + ":" + port
		}
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return scheme + "://" + host + path
}

// BaseString builds the signature base string for method, the request URL
// and the full parameter set (query, form body and oauth parameters).
func BaseString(method string, u *url.URL, params url.Values) string {
	return strings.ToUpper(method) + "&" +
		PercentEncode(BaseStringURI(u)) + "&" +
		PercentEncode(NormalizeParameters(params))
}

func mergeValues(dst url.Values, src url.Values) {
	for k, values := range src {
		dst[k] = append(dst[k], values...)
	}
}
