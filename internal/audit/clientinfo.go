package audit

import (
	"context"
	"strings"

	"github.com/mssola/useragent"

	"biorempp/pkg/requestcontext"
)

// ClientInfo describes the submitting client as captured at the transport
// edge.
type ClientInfo struct {
	IP        string
	UserAgent string
	Device    string
}

// ClientInfoFromContext builds ClientInfo from the request-scoped metadata
// the middleware chain stored.
func ClientInfoFromContext(ctx context.Context) ClientInfo {
	ua := requestcontext.UserAgent(ctx)
	return ClientInfo{
		IP:        requestcontext.ClientIP(ctx),
		UserAgent: ua,
		Device:    ParseUserAgent(ua),
	}
}

// ParseUserAgent returns a short "Browser on OS" description for audit
// records. Empty input yields "Unknown Device".
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}

	platform := ua.OSInfo().Name
	if ua.Mobile() && ua.Platform() != "" {
		platform = ua.Platform()
	}
	if platform == "" {
		platform = "Unknown OS"
	}

	return strings.TrimSpace(browser + " on " + platform)
}
