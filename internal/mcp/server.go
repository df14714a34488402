// Package mcp exposes tenant administration as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"forgewealth/storefront/internal/repository"
	"forgewealth/storefront/internal/routing"
	"forgewealth/storefront/internal/services"
	"forgewealth/storefront/pkg/models"
)

// TenantService is what the tools need from services.TenantService.
type TenantService interface {
	Create(ctx context.Context, in services.CreateTenantInput) (*models.TenantConfig, string, error)
	Get(ctx context.Context, tenantID string) (*models.TenantConfig, error)
	TenantURL(tenantID string) string
}

type Server struct {
	mcpServer *server.MCPServer
	tenants   TenantService
	routing   routing.Config
}

func NewServer(tenants TenantService, routingConfig routing.Config) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"ForgeWealth Storefront",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		tenants: tenants,
		routing: routingConfig,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"create_tenant",
			mcp.WithDescription("Create a new branded tenant and return its URL"),
			mcp.WithString("tenant_id", mcp.Required(), mcp.Description("Subdomain identifier: 3-63 lowercase letters, digits and inner hyphens")),
			mcp.WithString("company_name", mcp.Required(), mcp.Description("Display name of the company")),
			mcp.WithString("tax_jurisdiction", mcp.Enum("US", "UK", "EU", "CA", "AU"), mcp.DefaultString("US")),
			mcp.WithString("currency", mcp.Enum("USD", "EUR", "GBP", "CAD", "AUD"), mcp.DefaultString("USD")),
			mcp.WithString("primary_color", mcp.Description("Hex color #RRGGBB"), mcp.DefaultString("#1E40AF")),
			mcp.WithString("secondary_color", mcp.Description("Hex color #RRGGBB"), mcp.DefaultString("#60A5FA")),
		),
		s.handleCreateTenant,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"get_tenant",
			mcp.WithDescription("Get the configuration of a tenant"),
			mcp.WithString("tenant_id", mcp.Required(), mcp.Description("The tenant identifier")),
		),
		s.handleGetTenant,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"resolve_host",
			mcp.WithDescription("Show which tenant a host and path would be routed to, without checking access"),
			mcp.WithString("host", mcp.Required(), mcp.Description("Request host, optionally with port")),
			mcp.WithString("path", mcp.Description("Request path"), mcp.DefaultString("/")),
		),
		s.handleResolveHost,
	)
}

type createdTenant struct {
	Tenant *models.TenantConfig `json:"tenant"`
	URL    string               `json:"url"`
}

func (s *Server) handleCreateTenant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID, err := request.RequireString("tenant_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: tenant_id"), nil
	}
	companyName, err := request.RequireString("company_name")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: company_name"), nil
	}

	in := services.CreateTenantInput{
		TenantID: tenantID,
		Config: services.TenantSettings{
			CompanyName:     companyName,
			TaxJurisdiction: request.GetString("tax_jurisdiction", "US"),
			Currency:        request.GetString("currency", "USD"),
			Colors: services.ColorsInput{
				Primary:   request.GetString("primary_color", "#1E40AF"),
				Secondary: request.GetString("secondary_color", "#60A5FA"),
			},
		},
	}

	tenant, url, err := s.tenants.Create(ctx, in)
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			return mcp.NewToolResultError(verr.Error()), nil
		case errors.Is(err, repository.ErrConflict):
			return mcp.NewToolResultError(fmt.Sprintf("Tenant %q already exists", tenantID)), nil
		default:
			return mcp.NewToolResultError(fmt.Sprintf("Failed to create tenant: %v", err)), nil
		}
	}

	jsonBytes, _ := json.Marshal(createdTenant{Tenant: tenant, URL: url})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleGetTenant(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tenantID, err := request.RequireString("tenant_id")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: tenant_id"), nil
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Tenant %q not found", tenantID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to get tenant: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(createdTenant{Tenant: tenant, URL: s.tenants.TenantURL(tenant.TenantID)})
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

type resolution struct {
	TenantID      string `json:"tenantId,omitempty"`
	Source        string `json:"source"`
	RewrittenPath string `json:"rewrittenPath,omitempty"`
	ValidID       bool   `json:"validId"`
}

func (s *Server) handleResolveHost(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host, err := request.RequireString("host")
	if err != nil {
		return mcp.NewToolResultError("Missing required parameter: host"), nil
	}
	path := request.GetString("path", "/")

	cls := s.routing.Classify(host, path)
	res := resolution{Source: cls.Source.String()}
	if cls.Found() {
		res.TenantID = cls.TenantID
		res.ValidID = models.ValidTenantID(cls.TenantID)
		if res.ValidID {
			res.RewrittenPath = s.routing.TenantPrefix + "/" + cls.TenantID + cls.Rest
		}
	}

	jsonBytes, _ := json.Marshal(res)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

// MountHTTPHandlers serves the streamable HTTP transport at /mcp and the
// legacy SSE transport at /mcp/sse with messages posted to /mcp/message.
func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpServer))

	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))
	mux.Handle("/mcp/sse", sseServer.SSEHandler())
	mux.Handle("/mcp/message", sseServer.MessageHandler())
}
