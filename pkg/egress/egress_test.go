package egress

import (
	"testing"

	"github.com/arclabs561/webpipe/pkg/config"
)

func TestPermitNormalModeAllowsDirect(t *testing.T) {
	d := Permit("https://example.com/page", config.PrivacyNormal, config.ProxyConfig{}, ClassDirect)
	if !d.Allowed || d.Proxy != "" {
		t.Fatalf("expected direct allow, got %+v", d)
	}
}

func TestPermitOfflineMode(t *testing.T) {
	tests := []struct {
		url   string
		allow bool
	}{
		{"http://127.0.0.1:8080/x", true},
		{"http://localhost/x", true},
		{"http://[::1]/x", true},
		{"https://example.com/", false},
		{"https://10.0.0.5/", false},
	}
	for _, tt := range tests {
		d := Permit(tt.url, config.PrivacyOffline, config.ProxyConfig{}, ClassDirect)
		if d.Allowed != tt.allow {
			t.Errorf("Permit(%q offline) allowed=%v, want %v", tt.url, d.Allowed, tt.allow)
		}
		if !tt.allow && d.Reason != DenyNetworkDisabledOffline {
			t.Errorf("Permit(%q offline) reason=%q, want %q", tt.url, d.Reason, DenyNetworkDisabledOffline)
		}
	}
}

func TestPermitAnonymousFailsClosedWithoutProxy(t *testing.T) {
	d := Permit("https://example.com/", config.PrivacyAnonymous, config.ProxyConfig{}, ClassDirect)
	if d.Allowed {
		t.Fatalf("expected deny, got %+v", d)
	}
	if d.Reason != DenyProxyRequiredAnonymous {
		t.Fatalf("reason=%q, want %q", d.Reason, DenyProxyRequiredAnonymous)
	}
}

func TestPermitAnonymousUsesConfiguredProxy(t *testing.T) {
	proxy := config.ProxyConfig{SOCKS: "socks5://127.0.0.1:9050", HTTP: "http://127.0.0.1:8118"}

	d := Permit("https://example.com/", config.PrivacyAnonymous, proxy, ClassDirect)
	if !d.Allowed || d.Proxy != "socks5://127.0.0.1:9050" {
		t.Fatalf("direct class: got %+v", d)
	}

	d = Permit("https://example.com/", config.PrivacyAnonymous, proxy, ClassRender)
	if !d.Allowed || d.Proxy != "http://127.0.0.1:8118" {
		t.Fatalf("render class: got %+v", d)
	}
}

func TestPermitAnonymousRenderRequiresHTTPProxy(t *testing.T) {
	// SOCKS alone is not enough for the render backend.
	proxy := config.ProxyConfig{SOCKS: "socks5://127.0.0.1:9050"}
	d := Permit("https://example.com/", config.PrivacyAnonymous, proxy, ClassRender)
	if d.Allowed {
		t.Fatalf("expected deny, got %+v", d)
	}
}

func TestPermitAnonymousLoopbackSkipsProxy(t *testing.T) {
	d := Permit("http://127.0.0.1:9/x", config.PrivacyAnonymous, config.ProxyConfig{}, ClassDirect)
	if !d.Allowed || d.Proxy != "" {
		t.Fatalf("expected direct loopback allow, got %+v", d)
	}
}

func TestPermitRejectsInvalidURLs(t *testing.T) {
	for _, raw := range []string{"", "ftp://example.com/x", "not a url", "file:///etc/passwd"} {
		d := Permit(raw, config.PrivacyNormal, config.ProxyConfig{}, ClassDirect)
		if d.Allowed {
			t.Errorf("Permit(%q) allowed, want deny", raw)
		}
		if d.Reason != DenyInvalidURL {
			t.Errorf("Permit(%q) reason=%q, want %q", raw, d.Reason, DenyInvalidURL)
		}
	}
}
