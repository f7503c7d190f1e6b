// Package requestmeta resolves request scheme, origin, and client address.
package requestmeta

import (
	"net/http"
	"net/url"
	"strings"
)

// SchemePolicy controls whether proxy headers are trusted. Enable it only
// behind a proxy that overwrites X-Forwarded-Proto and X-Forwarded-Host.
type SchemePolicy struct {
	TrustForwardedProto bool
}

// IsHTTPS reports whether a request should be treated as HTTPS.
func IsHTTPS(r *http.Request, policy SchemePolicy) bool {
	return requestScheme(r, policy) == "https"
}

// HasSameOriginProof reports whether the Origin header, or the Referer when
// Origin is absent, names the same scheme, host, and port as the request.
func HasSameOriginProof(r *http.Request, policy SchemePolicy) bool {
	if r == nil {
		return false
	}
	want, ok := requestEndpoint(r, policy)
	if !ok {
		return false
	}
	proof := strings.TrimSpace(r.Header.Get("Origin"))
	if proof == "" {
		proof = strings.TrimSpace(r.Header.Get("Referer"))
	}
	if proof == "" {
		return false
	}
	got, ok := urlEndpoint(proof)
	return ok && got == want
}

type endpoint struct {
	scheme string
	host   string
	port   string
}

func urlEndpoint(raw string) (endpoint, bool) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return endpoint{}, false
	}
	e := endpoint{
		scheme: strings.ToLower(parsed.Scheme),
		host:   strings.ToLower(parsed.Hostname()),
		port:   parsed.Port(),
	}
	if e.port == "" {
		e.port = defaultPort(e.scheme)
	}
	return e, e.scheme != "" && e.host != "" && e.port != ""
}

func requestEndpoint(r *http.Request, policy SchemePolicy) (endpoint, bool) {
	e := endpoint{scheme: requestScheme(r, policy)}
	e.host, e.port = splitHost(r.Host)
	if e.host == "" && r.URL != nil {
		e.host, e.port = splitHost(r.URL.Host)
	}
	if e.port == "" {
		e.port = defaultPort(e.scheme)
	}
	return e, e.host != ""
}

func requestScheme(r *http.Request, policy SchemePolicy) string {
	if r == nil {
		return ""
	}
	if policy.TrustForwardedProto {
		if forwarded := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); forwarded == "http" || forwarded == "https" {
			return forwarded
		}
	}
	if r.URL != nil {
		if scheme := strings.ToLower(r.URL.Scheme); scheme == "http" || scheme == "https" {
			return scheme
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

func defaultPort(scheme string) string {
	switch scheme {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}

func splitHost(rawHost string) (string, string) {
	parsed, err := url.Parse("//" + strings.TrimSpace(rawHost))
	if err != nil {
		return "", ""
	}
	return strings.ToLower(parsed.Hostname()), parsed.Port()
}

// DefaultOrigin is used when no base URL is configured and the request
// carries no usable host.
const DefaultOrigin = "http://localhost:8080"

// Origin resolves the public origin for building absolute URLs such as the
// OAuth callback: baseURL when set, then trusted forwarded headers, then the
// request host.
func Origin(r *http.Request, baseURL string, policy SchemePolicy) string {
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		return base
	}
	if r == nil {
		return DefaultOrigin
	}
	host := strings.TrimSpace(r.Host)
	if policy.TrustForwardedProto {
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); forwarded != "" {
			host, _, _ = strings.Cut(forwarded, ",")
			host = strings.TrimSpace(host)
		}
	}
	if host == "" {
		return DefaultOrigin
	}
	return requestScheme(r, policy) + "://" + host
}

// ClientIP returns the first X-Forwarded-For hop, else the remote address
// without its port.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _ := splitHost(r.RemoteAddr)
	return host
}
