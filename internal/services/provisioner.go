package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrgProvisioner manages the identity-provider organization that mirrors a
// tenant. Members of the organization are allowed into the tenant.
type OrgProvisioner interface {
	// CreateOrganization creates an organization named after the tenant and
	// returns its identifier.
	CreateOrganization(ctx context.Context, name string) (string, error)
	// DeleteOrganization removes an organization. Deleting an unknown
	// organization is not an error.
	DeleteOrganization(ctx context.Context, orgID string) error
}

// HTTPOrgProvisioner talks to the identity provider's organization admin API.
type HTTPOrgProvisioner struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPOrgProvisioner creates a new HTTPOrgProvisioner.
func NewHTTPOrgProvisioner(baseURL, apiKey string, timeout time.Duration) *HTTPOrgProvisioner {
	return &HTTPOrgProvisioner{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type createOrganizationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type organizationResponse struct {
	ID string `json:"id"`
}

// CreateOrganization creates an organization.
func (p *HTTPOrgProvisioner) CreateOrganization(ctx context.Context, name string) (string, error) {
	requestBody, err := json.Marshal(createOrganizationRequest{Name: name, Slug: name})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/organizations", bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("failed to create organization: status code %d", resp.StatusCode)
	}

	var org organizationResponse
	if err := json.NewDecoder(resp.Body).Decode(&org); err != nil {
		return "", fmt.Errorf("failed to decode response body: %w", err)
	}
	if org.ID == "" {
		return "", fmt.Errorf("failed to create organization: empty id in response")
	}
	return org.ID, nil
}

// DeleteOrganization deletes an organization.
func (p *HTTPOrgProvisioner) DeleteOrganization(ctx context.Context, orgID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, p.baseURL+"/organizations/"+url.PathEscape(orgID), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	p.authorize(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return fmt.Errorf("failed to delete organization: status code %d", resp.StatusCode)
	}
}

func (p *HTTPOrgProvisioner) authorize(req *http.Request) {
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
}

// LocalOrgProvisioner hands out random organization IDs without calling
// anything. Used in development and tests.
type LocalOrgProvisioner struct{}

// CreateOrganization returns a fresh organization ID.
func (LocalOrgProvisioner) CreateOrganization(context.Context, string) (string, error) {
	return "org_" + strings.ReplaceAll(uuid.New().String(), "-", ""), nil
}

// DeleteOrganization does nothing.
func (LocalOrgProvisioner) DeleteOrganization(context.Context, string) error {
	return nil
}
