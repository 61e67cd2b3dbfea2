package urlintel

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

var (
	errNoScheme = errors.New("missing scheme")
	errNoHost   = errors.New("missing host")
)

// parts is a URL broken into the pieces the checks look at
type parts struct {
	host      string // ASCII form, lowercased
	path      string // lowercased, as written
	domain    string // registrable domain, or the host for IPs and bare suffixes
	suffix    string // public suffix, empty for IPs
	subdomain string
	label     string // domain without its suffix
	isIP      bool
}

// subdomainDepth counts the labels left of the registrable domain
func (p parts) subdomainDepth() int {
	if p.subdomain == "" {
		return 0
	}
	return strings.Count(p.subdomain, ".") + 1
}

func parse(raw string) (parts, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return parts{}, err
	}
	if u.Scheme == "" {
		return parts{}, errNoScheme
	}
	hostname := u.Hostname()
	if hostname == "" {
		return parts{}, errNoHost
	}

	p := parts{path: strings.ToLower(u.EscapedPath())}

	if ip := net.ParseIP(hostname); ip != nil {
		p.host = hostname
		p.domain = hostname
		p.label = hostname
		p.isIP = true
		return p, nil
	}

	host, err := idna.Punycode.ToASCII(strings.ToLower(hostname))
	if err != nil {
		return parts{}, fmt.Errorf("invalid host %q: %w", hostname, err)
	}
	host = strings.TrimSuffix(host, ".")
	p.host = host

	p.suffix, _ = publicsuffix.PublicSuffix(host)
	p.domain, err = publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		// host is itself a public suffix
		p.domain = host
		p.label = host
		return p, nil
	}

	p.label = strings.TrimSuffix(p.domain, "."+p.suffix)
	if host != p.domain {
		p.subdomain = strings.TrimSuffix(host, "."+p.domain)
	}
	return p, nil
}
