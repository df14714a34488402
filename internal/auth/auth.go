package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"

	"forgewealth/storefront/internal/config"
	"forgewealth/storefront/pkg/models"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

const (
	idTokenCookie = "id_token"
	stateCookie   = "oauthstate"
)

// DevPrincipal is the caller every request is attributed to when the
// authentication bypass is active.
var DevPrincipal = models.Principal{
	Subject: "dev",
	Email:   "dev@localhost",
	Bypass:  true,
}

// Auth contains configuration and helpers for performing OpenID Connect
// authentication and for deciding tenant access.
type Auth struct {
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
	apiVerifier  *oidc.IDTokenVerifier
	groupsClaim  string
	logger       Logger
	devMode      bool
	authBypass   bool
	secure       bool
}

// New creates a new Auth object using values from the application
// configuration. It establishes a connection to the provider and prepares the
// ID token and access token verifiers.
func New(ctx context.Context, cfg *config.Config, logger Logger) (*Auth, error) {
	isDev := cfg.IsDev()
	shouldBypass := isDev && cfg.DevModeBypass

	var oauth2Config *oauth2.Config
	var verifier *oidc.IDTokenVerifier
	var apiVerifier *oidc.IDTokenVerifier

	if !shouldBypass {
		if cfg.Auth.Issuer == "" || cfg.Auth.ClientID == "" ||
			cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
			return nil, errors.New("auth configuration is incomplete")
		}

		provider, err := oidc.NewProvider(ctx, cfg.Auth.Issuer)
		if err != nil {
			return nil, err
		}

		oauth2Config = &oauth2.Config{
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.Auth.RedirectURL,
			Scopes:       LoginScopes,
		}

		verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})

		// Access tokens carry an API audience rather than the client ID.
		apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	}

	groupsClaim := cfg.Auth.GroupsClaim
	if groupsClaim == "" {
		groupsClaim = "groups"
	}

	return &Auth{
		oauth2Config: oauth2Config,
		verifier:     verifier,
		apiVerifier:  apiVerifier,
		groupsClaim:  groupsClaim,
		logger:       logger,
		devMode:      isDev,
		authBypass:   shouldBypass,
		secure:       !isDev,
	}, nil
}

// Bypass reports whether authentication is disabled.
func (a *Auth) Bypass() bool {
	return a.authBypass
}

// LoginHandler initiates the OAuth2 authorization code flow by redirecting the
// user to the provider's authorization endpoint. A random state value is
// stored in a cookie to mitigate CSRF attacks.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		HttpOnly: true,
		Path:     "/",
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the redirect back from the provider. It verifies
// the state parameter, exchanges the code for tokens, validates the ID token,
// and sets a session cookie containing the raw ID token.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.logger.Error("token exchange failed", "error", err)
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}

	idToken, err := a.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}
	a.logger.Info("user signed in", "sub", idToken.Subject)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     idTokenCookie,
		Value:    rawIDToken,
		HttpOnly: true,
		Path:     "/",
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// LogoutHandler clears the session cookie and redirects to the home page.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   idTokenCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Principal identifies the caller of r from a Bearer access token or the
// id_token session cookie. Missing or invalid credentials yield the
// anonymous principal.
func (a *Auth) Principal(r *http.Request) models.Principal {
	if a.authBypass {
		return DevPrincipal
	}

	p, err := a.verify(r)
	if err != nil {
		a.logger.Info("ignoring invalid credentials", "error", err)
		return models.Principal{}
	}
	return p
}

func (a *Auth) verify(r *http.Request) (models.Principal, error) {
	var token *oidc.IDToken
	var err error

	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		if a.apiVerifier == nil {
			return models.Principal{}, errors.New("bearer tokens are not accepted")
		}
		token, err = a.apiVerifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	} else {
		cookie, cerr := r.Cookie(idTokenCookie)
		if cerr != nil || cookie.Value == "" {
			return models.Principal{}, nil
		}
		if a.verifier == nil {
			return models.Principal{}, errors.New("session cookies are not accepted")
		}
		token, err = a.verifier.Verify(r.Context(), cookie.Value)
	}
	if err != nil {
		return models.Principal{}, err
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return models.Principal{}, err
	}

	p := models.Principal{Subject: token.Subject}
	if email, ok := claims["email"].(string); ok {
		p.Email = email
	}
	p.Groups = stringList(claims[a.groupsClaim])
	if orgID, ok := claims["org_id"].(string); ok && orgID != "" {
		p.Groups = append(p.Groups, orgID)
	}
	return p, nil
}

// stringList accepts a claim that is either a string or a list of strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// CheckAccess decides whether principal may enter tenant. Members of a
// group named after the tenant or after its organization are allowed.
func (a *Auth) CheckAccess(_ context.Context, principal models.Principal, tenant *models.TenantConfig) (bool, error) {
	if principal.Bypass {
		return true, nil
	}
	if principal.Anonymous() || tenant == nil {
		return false, nil
	}
	return principal.HasGroup(tenant.TenantID) || principal.HasGroup(tenant.OrgID), nil
}

type principalKey struct{}

// PrincipalFromContext returns the principal stored by RequireAuth.
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(models.Principal)
	return p, ok
}

// RequireAuth is middleware that ensures the caller is authenticated. Browser
// callers without a session are redirected to the login page; invalid
// tokens get a 401.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p models.Principal
		if a.authBypass {
			p = DevPrincipal
		} else {
			var err error
			p, err = a.verify(r)
			if err != nil {
				http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}
			if p.Anonymous() {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
		}

		ctx := context.WithValue(r.Context(), principalKey{}, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
