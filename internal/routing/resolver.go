package routing

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"forgewealth/storefront/internal/metrics"
	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/pkg/models"
)

// Outcome is what the resolver decided to do with a request.
type Outcome int

const (
	PassThrough Outcome = iota
	Rewrite
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Rewrite:
		return "rewrite"
	case Deny:
		return "deny"
	default:
		return "pass_through"
	}
}

// DenyReason qualifies a Deny outcome.
type DenyReason int

const (
	ReasonNone DenyReason = iota
	NotFound
	Forbidden
)

func (r DenyReason) String() string {
	switch r {
	case NotFound:
		return "not_found"
	case Forbidden:
		return "forbidden"
	default:
		return ""
	}
}

// Decision is the resolver's verdict for one request.
type Decision struct {
	Outcome  Outcome
	Reason   DenyReason
	TenantID string
	// Path is the rewritten path; set only for Rewrite.
	Path string
	// RawQuery is the query string, copied verbatim.
	RawQuery string
}

// Request is the part of an inbound request the resolver looks at.
type Request struct {
	Host      string
	Path      string
	RawQuery  string
	Principal models.Principal
}

// TenantLookup reads tenants from the registry.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID string) (*models.TenantConfig, error)
}

// AccessChecker decides whether a principal may enter a tenant.
type AccessChecker interface {
	CheckAccess(ctx context.Context, principal models.Principal, tenant *models.TenantConfig) (bool, error)
}

// AccessFunc adapts a function to AccessChecker.
type AccessFunc func(ctx context.Context, principal models.Principal, tenant *models.TenantConfig) (bool, error)

// CheckAccess calls f.
func (f AccessFunc) CheckAccess(ctx context.Context, principal models.Principal, tenant *models.TenantConfig) (bool, error) {
	return f(ctx, principal, tenant)
}

// Resolver turns requests into decisions.
type Resolver struct {
	cfg     Config
	tenants TenantLookup
	access  AccessChecker
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewResolver creates a Resolver. m may be nil.
func NewResolver(cfg Config, tenants TenantLookup, access AccessChecker, m *metrics.Metrics) *Resolver {
	return &Resolver{
		cfg:     cfg,
		tenants: tenants,
		access:  access,
		metrics: m,
		tracer:  otel.Tracer("forgewealth/storefront/routing"),
	}
}

// Config returns the resolver configuration.
func (r *Resolver) Config() Config {
	return r.cfg
}

// Resolve classifies req, then checks that the tenant exists and that the
// principal may access it. A non-nil error means the registry or the access
// checker failed; the decision is then meaningless.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Decision, error) {
	return r.Decide(ctx, r.cfg.Classify(req.Host, req.Path), req)
}

// Decide is Resolve for a request that was already classified. req.Host and
// req.Path are not looked at again.
func (r *Resolver) Decide(ctx context.Context, cls Classification, req Request) (Decision, error) {
	ctx, span := r.tracer.Start(ctx, "Resolver.Resolve",
		trace.WithAttributes(attribute.String("http.host", req.Host)))
	defer span.End()

	d, err := r.decide(ctx, cls, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Decision{}, err
	}
	span.SetAttributes(
		attribute.String("tenant.id", d.TenantID),
		attribute.String("resolver.outcome", d.Outcome.String()),
	)
	r.metrics.ObserveDecision(d.Outcome.String(), d.Reason.String())
	return d, nil
}

func (r *Resolver) decide(ctx context.Context, cls Classification, req Request) (Decision, error) {
	if !cls.Found() {
		return Decision{Outcome: PassThrough, RawQuery: req.RawQuery}, nil
	}

	deny := func(reason DenyReason) Decision {
		return Decision{Outcome: Deny, Reason: reason, TenantID: cls.TenantID, RawQuery: req.RawQuery}
	}

	if !models.ValidTenantID(cls.TenantID) {
		return deny(NotFound), nil
	}

	tenant, err := r.tenants.GetTenant(ctx, cls.TenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return deny(NotFound), nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("lookup tenant %s: %w", cls.TenantID, err)
	}

	allowed, err := r.access.CheckAccess(ctx, req.Principal, tenant)
	if err != nil {
		return Decision{}, fmt.Errorf("check access to tenant %s: %w", cls.TenantID, err)
	}
	if !allowed {
		return deny(Forbidden), nil
	}

	return Decision{
		Outcome:  Rewrite,
		TenantID: cls.TenantID,
		Path:     r.cfg.TenantPrefix + "/" + cls.TenantID + cls.Rest,
		RawQuery: req.RawQuery,
	}, nil
}
