// Package egress decides whether a network call may proceed under the
// configured privacy mode, and through which proxy. The gate is a pure
// function over its inputs: it performs no I/O and no DNS resolution,
// so offline-mode checks are limited to literal loopback hosts.
package egress

import (
	"net"
	"net/url"
	"strings"

	"github.com/arclabs561/webpipe/pkg/config"
)

// BackendClass distinguishes backends by how they can be proxied.
// Direct-socket backends accept a SOCKS proxy; the render backend can
// only be proxied at the HTTP layer.
type BackendClass string

const (
	ClassDirect BackendClass = "direct"
	ClassRender BackendClass = "render"
)

// DenyReason is a closed set of gate denial causes.
type DenyReason string

const (
	DenyNone                   DenyReason = ""
	DenyInvalidURL             DenyReason = "invalid_url"
	DenyNetworkDisabledOffline DenyReason = "network_disabled_offline"
	DenyProxyRequiredAnonymous DenyReason = "proxy_required_anonymous"
)

// Decision is the gate's verdict for one URL.
type Decision struct {
	Allowed bool
	// Proxy is the proxy URL the fetch must use; empty means direct.
	Proxy  string
	Reason DenyReason
}

// Permit evaluates one URL against the privacy mode. It fails closed:
// in anonymous mode a missing proxy denies the fetch rather than
// silently degrading to direct egress.
func Permit(rawURL string, mode config.PrivacyMode, proxy config.ProxyConfig, class BackendClass) Decision {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return Decision{Reason: DenyInvalidURL}
	}

	switch mode {
	case config.PrivacyOffline:
		if isLoopbackHost(u.Hostname()) {
			return Decision{Allowed: true}
		}
		return Decision{Reason: DenyNetworkDisabledOffline}
	case config.PrivacyAnonymous:
		// Loopback targets never leave the machine; no proxy needed.
		if isLoopbackHost(u.Hostname()) {
			return Decision{Allowed: true}
		}
		p := proxyFor(proxy, class)
		if p == "" {
			return Decision{Reason: DenyProxyRequiredAnonymous}
		}
		return Decision{Allowed: true, Proxy: p}
	default:
		return Decision{Allowed: true}
	}
}

func proxyFor(proxy config.ProxyConfig, class BackendClass) string {
	switch class {
	case ClassRender:
		return strings.TrimSpace(proxy.HTTP)
	default:
		if s := strings.TrimSpace(proxy.SOCKS); s != "" {
			return s
		}
		return strings.TrimSpace(proxy.HTTP)
	}
}

func isLoopbackHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
