package calclient

import (
	"net/url"
	"strings"

	"github.com/theakshaypant/crmcal/internal/core"
)

// RedirectPolicy decides which redirect URI a provider's consent flow uses.
type RedirectPolicy struct {
	// URI registered with Google; also the production fallback for Microsoft
	PinnedURI string
	// Host served by the production deployment
	ProductionHost string
}

// RedirectURI returns the redirect URI for kind when the callback is served
// from origin. Google always uses the single pinned URI. Microsoft derives
// origin + "/", except on the production host where the pinned URI is used.
func (p RedirectPolicy) RedirectURI(kind core.ProviderKind, origin string) string {
	if kind != core.ProviderMicrosoft {
		return p.PinnedURI
	}
	u, err := url.Parse(origin)
	if origin == "" || err != nil || u.Host == "" {
		return p.PinnedURI
	}
	if p.ProductionHost != "" && strings.EqualFold(u.Hostname(), p.ProductionHost) {
		return p.PinnedURI
	}
	return u.Scheme + "://" + u.Host + "/"
}

// StripQuery returns u without its query and fragment, the URL the user
// should see once a redirect has been handled.
func StripQuery(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}
	clean := *u
	clean.RawQuery = ""
	clean.Fragment = ""
	clean.RawFragment = ""
	return &clean
}

// Origin returns scheme://host of a URL string, or "" if it has none.
func Origin(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
