package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"forgewealth/storefront/internal/logging"
	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/internal/routing"
	"forgewealth/storefront/internal/services"
)

func newTestServer() *Server {
	urls := routing.URLBuilder{Mode: routing.ModeLocal, LocalPort: 8080}
	svc := services.NewTenantService(repository.NewMemoryRegistry(), services.LocalOrgProvisioner{}, urls, nil, logging.Nop())
	return NewServer(svc, routing.Config{
		ProductionDomain: "forgewealth.app",
		LocalHosts:       []string{"localhost"},
		TenantPrefix:     "/tenants",
		ExemptPrefixes:   []string{"/api"},
		ReservedLabels:   []string{"www"},
	})
}

func call(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestCreateAndGetTenant(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleCreateTenant(ctx, call("create_tenant", map[string]any{
		"tenant_id":    "acme",
		"company_name": "Acme Wealth",
	}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	var created createdTenant
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &created))
	assert.Equal(t, "http://localhost:8080/acme", created.URL)
	assert.Equal(t, "#1E40AF", created.Tenant.Colors.Primary)

	res, err = s.handleGetTenant(ctx, call("get_tenant", map[string]any{"tenant_id": "acme"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, text(t, res), `"companyName":"Acme Wealth"`)

	res, err = s.handleCreateTenant(ctx, call("create_tenant", map[string]any{
		"tenant_id":    "acme",
		"company_name": "Again",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "already exists")
}

func TestCreateTenant_InvalidInput(t *testing.T) {
	s := newTestServer()

	res, err := s.handleCreateTenant(context.Background(), call("create_tenant", map[string]any{
		"tenant_id":     "acme",
		"company_name":  "Acme",
		"primary_color": "blue",
	}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, text(t, res), "config.colors.primary")

	res, err = s.handleCreateTenant(context.Background(), call("create_tenant", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGetTenant_NotFound(t *testing.T) {
	res, err := newTestServer().handleGetTenant(context.Background(), call("get_tenant", map[string]any{"tenant_id": "ghost"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestResolveHost(t *testing.T) {
	s := newTestServer()
	tests := []struct {
		host, path string
		want       resolution
	}{
		{"acme.forgewealth.app", "/billing", resolution{TenantID: "acme", Source: "subdomain", RewrittenPath: "/tenants/acme/billing", ValidID: true}},
		{"localhost:3000", "/acme/billing", resolution{TenantID: "acme", Source: "path", RewrittenPath: "/tenants/acme/billing", ValidID: true}},
		{"localhost:3000", "/", resolution{Source: "none"}},
		{"www.example.com", "/", resolution{Source: "none"}},
		{"localhost", "/Bad_ID", resolution{TenantID: "Bad_ID", Source: "path"}},
	}
	for _, tt := range tests {
		t.Run(tt.host+tt.path, func(t *testing.T) {
			res, err := s.handleResolveHost(context.Background(), call("resolve_host", map[string]any{"host": tt.host, "path": tt.path}))
			require.NoError(t, err)
			var got resolution
			require.NoError(t, json.Unmarshal([]byte(text(t, res)), &got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMountHTTPHandlers_StreamableInitialize(t *testing.T) {
	mux := http.NewServeMux()
	MountHTTPHandlers(mux, newTestServer().GetMCPServer())

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0.0"}}}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "ForgeWealth Storefront")
}

func TestMountHTTPHandlers_MessageNeedsSession(t *testing.T) {
	mux := http.NewServeMux()
	MountHTTPHandlers(mux, newTestServer().GetMCPServer())

	req := httptest.NewRequest(http.MethodPost, "/mcp/message", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
