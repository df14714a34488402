package routing

import (
	"fmt"
	"net/url"
)

// Mode is the deployment shape tenant URLs are generated for.
type Mode string

const (
	ModeLocal      Mode = "local"
	ModePreview    Mode = "preview"
	ModeProduction Mode = "production"
)

// ModeForEnvironment maps a configured environment (DEV, PREVIEW, PROD) to a
// Mode. Unknown environments are treated as local.
func ModeForEnvironment(env string) Mode {
	switch env {
	case "PROD":
		return ModeProduction
	case "PREVIEW":
		return ModePreview
	default:
		return ModeLocal
	}
}

// URLBuilder generates public tenant URLs.
type URLBuilder struct {
	Mode             Mode
	LocalPort        int
	ProductionDomain string
	PreviewDomain    string
}

// TenantURL returns the URL of tenantID for the deployment described by b:
// http://localhost:<port>/<id> locally and https://<id>.<domain> otherwise.
func (b URLBuilder) TenantURL(tenantID string) string {
	switch b.Mode {
	case ModeProduction:
		return "https://" + tenantID + "." + b.ProductionDomain
	case ModePreview:
		return "https://" + tenantID + "." + b.PreviewDomain
	default:
		u := url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("localhost:%d", b.LocalPort),
			Path:   "/" + tenantID,
		}
		return u.String()
	}
}
