// Package routing maps inbound requests to tenants. Each request is
// classified by host and path, checked against the registry and the access
// checker, and then rewritten to the tenant-scoped route, denied, or passed
// through untouched.
package routing

import (
	"net"
	"strings"
)

// Config holds the domains and paths the resolver classifies against.
type Config struct {
	// ProductionDomain is the apex of the production wildcard domain,
	// e.g. "forgewealth.app".
	ProductionDomain string
	// PreviewDomain is the apex of the preview wildcard domain.
	PreviewDomain string
	// LocalHosts are hostnames (without port) served path-based.
	LocalHosts []string
	// TenantPrefix is the route prefix tenant requests are rewritten to.
	TenantPrefix string
	// ExemptPrefixes are path prefixes that never belong to a tenant.
	ExemptPrefixes []string
	// ReservedLabels are labels that never name a tenant.
	ReservedLabels []string
}

// Source tells where a tenant identifier was taken from.
type Source int

const (
	SourceNone Source = iota
	SourceSubdomain
	SourcePathPrefix
)

func (s Source) String() string {
	switch s {
	case SourceSubdomain:
		return "subdomain"
	case SourcePathPrefix:
		return "path"
	default:
		return "none"
	}
}

// Classification is the result of looking at a host and path only.
type Classification struct {
	TenantID string
	// Rest is the path below the tenant. For path-prefixed tenants the
	// tenant segment has been removed.
	Rest   string
	Source Source
}

// Found reports whether a tenant identifier was extracted.
func (c Classification) Found() bool {
	return c.Source != SourceNone
}

// Classify extracts the candidate tenant from host and path. It does not
// validate the identifier or consult the registry.
func (c Config) Classify(host, path string) Classification {
	if path == "" {
		path = "/"
	}
	if c.exempt(path) {
		return Classification{Rest: path}
	}

	hostname := normalizeHost(host)
	var cls Classification
	switch {
	case hostname == "":
	case c.isLocal(hostname):
		cls = classifyPath(path)
	case net.ParseIP(hostname) != nil:
	default:
		cls = c.classifyHost(hostname, path)
	}

	if cls.Found() && c.reserved(cls.TenantID) {
		return Classification{Rest: path}
	}
	if !cls.Found() {
		cls.Rest = path
	}
	return cls
}

func (c Config) classifyHost(hostname, path string) Classification {
	// Longest domain first: the preview apex is usually a subdomain of the
	// production apex.
	domains := []string{c.PreviewDomain, c.ProductionDomain}
	if len(c.ProductionDomain) > len(c.PreviewDomain) {
		domains[0], domains[1] = domains[1], domains[0]
	}
	for _, d := range domains {
		if d == "" {
			continue
		}
		if hostname == d {
			return Classification{}
		}
		if strings.HasSuffix(hostname, "."+d) {
			return subdomain(hostname, path)
		}
	}

	// Custom domain: only a genuine subdomain names a tenant.
	if strings.Count(hostname, ".") >= 2 {
		return subdomain(hostname, path)
	}
	return Classification{}
}

func subdomain(hostname, path string) Classification {
	label, _, _ := strings.Cut(hostname, ".")
	if label == "" {
		return Classification{}
	}
	return Classification{TenantID: label, Rest: trimRoot(path), Source: SourceSubdomain}
}

// classifyPath takes the first path segment as the tenant and strips it
// exactly once.
func classifyPath(path string) Classification {
	trimmed := strings.TrimPrefix(path, "/")
	segment, rest, hasRest := strings.Cut(trimmed, "/")
	if segment == "" {
		return Classification{}
	}
	if hasRest {
		rest = "/" + rest
	}
	return Classification{TenantID: segment, Rest: trimRoot(rest), Source: SourcePathPrefix}
}

func trimRoot(path string) string {
	if path == "/" {
		return ""
	}
	return path
}

func (c Config) exempt(path string) bool {
	for _, p := range c.ExemptPrefixes {
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func (c Config) isLocal(hostname string) bool {
	for _, h := range c.LocalHosts {
		if strings.EqualFold(h, hostname) {
			return true
		}
	}
	return false
}

func (c Config) reserved(label string) bool {
	for _, r := range c.ReservedLabels {
		if strings.EqualFold(r, label) {
			return true
		}
	}
	return false
}

// normalizeHost lowercases host and removes the port and any trailing dot.
// Bracketed and bare IPv6 literals are returned without brackets.
func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	} else {
		host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	}
	return strings.TrimSuffix(host, ".")
}
