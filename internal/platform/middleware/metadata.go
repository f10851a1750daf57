package middleware

import (
	"net/http"
	"strings"

	"stampd/pkg/requestcontext"

	"github.com/mssola/useragent"
)

// ClientMetadata extracts the client IP and a normalized user-agent summary
// into the request context. The summary (browser/os/platform) is what audit
// events record; the raw header is never stored.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), clientIP(r))

		if raw := r.UserAgent(); raw != "" {
			ctx = requestcontext.WithUserAgent(ctx, summarizeUserAgent(raw))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// summarizeUserAgent reduces a raw User-Agent header to "browser/os/platform".
func summarizeUserAgent(raw string) string {
	ua := useragent.New(raw)

	browser, _ := ua.Browser()
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}

	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}

	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	}

	return browser + "/" + os + "/" + platform
}
