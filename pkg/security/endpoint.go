package security

import (
	"net/netip"
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

var ErrEndpointNotAllowed = errors.New("endpoint not allowed")

// EndpointPolicy controls which upstream model endpoints may receive an API key.
type EndpointPolicy struct {
	// AllowHTTP permits plain http endpoints. https is always allowed.
	AllowHTTP bool
	// AllowLocal permits localhost, loopback and private network targets.
	AllowLocal bool
}

// ValidateEndpoint checks that raw is an absolute URL the policy lets us send
// credentials to. An empty raw means "use the built-in default" and passes.
//
// IP literals are checked without DNS lookups, hostnames only by name.
func (p EndpointPolicy) ValidateEndpoint(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", raw)
	}

	switch u.Scheme {
	case "https":
	case "http":
		if !p.AllowHTTP {
			return errors.Wrapf(ErrEndpointNotAllowed, "%q: plain http", raw)
		}
	default:
		return errors.Wrapf(ErrEndpointNotAllowed, "%q: scheme %q", raw, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return errors.Wrapf(ErrEndpointNotAllowed, "%q: missing host", raw)
	}
	if p.AllowLocal {
		return nil
	}

	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return errors.Wrapf(ErrEndpointNotAllowed, "%q: local host name", raw)
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		// not an IP literal
		return nil
	}
	if addr.Zone() != "" {
		return errors.Wrapf(ErrEndpointNotAllowed, "%q: zoned address", raw)
	}
	addr = addr.Unmap()
	if addr.IsUnspecified() || addr.IsMulticast() ||
		addr.IsLoopback() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() {
		return errors.Wrapf(ErrEndpointNotAllowed, "%q: local network address", raw)
	}
	return nil
}
