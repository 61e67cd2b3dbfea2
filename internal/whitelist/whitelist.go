package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// DefaultTrustedDomains are registrable domains whose names legitimately
// contain brand strings
var DefaultTrustedDomains = []string{
	"google.com",
	"microsoft.com",
	"apple.com",
	"amazon.com",
	"paypal.com",
	"facebook.com",
	"github.com",
	"stackoverflow.com",
	"wikipedia.org",
}

// Checker answers whether a host or sender belongs to a trusted domain
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new trusted domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	set := make(map[string]struct{}, len(domains))
	normalized := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := normalize(domain)
		if d == "" {
			continue
		}
		if _, dup := set[d]; dup {
			continue
		}
		set[d] = struct{}{}
		normalized = append(normalized, d)
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized trusted domain checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: set,
		logger:  logger,
	}
}

// IsTrustedHost reports whether host equals a trusted domain or is a subdomain of one
func (c *Checker) IsTrustedHost(host string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	host = normalize(host)
	for host != "" {
		if _, ok := c.domains[host]; ok {
			if c.logger != nil {
				c.logger.Debug("Host is trusted", zap.String("host", host))
			}
			return true
		}
		dot := strings.IndexByte(host, '.')
		if dot < 0 {
			break
		}
		host = host[dot+1:]
	}
	return false
}

func normalize(domain string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(domain)), ".")
}
