package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"forgewealth/storefront/pkg/models"
)

//go:embed schema.sql
var schemaSQL string

const uniqueViolation = "23505"

// Migrate creates the tenants table if it does not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// PostgresRegistry is a PostgreSQL implementation of the Registry interface.
type PostgresRegistry struct {
	db *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgresRegistry.
func NewPostgresRegistry(db *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{db: db}
}

// GetTenant retrieves a tenant by its identifier.
func (s *PostgresRegistry) GetTenant(ctx context.Context, tenantID string) (*models.TenantConfig, error) {
	var t models.TenantConfig
	err := s.db.QueryRow(ctx,
		`SELECT tenant_id, company_name, tax_jurisdiction, currency, colors, org_id, created_at
		 FROM tenants WHERE tenant_id = $1`, tenantID,
	).Scan(&t.TenantID, &t.CompanyName, &t.TaxJurisdiction, &t.Currency, &t.Colors, &t.OrgID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select tenant %s: %w", tenantID, err)
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// CreateTenant inserts the tenant and provisions its organization in one
// transaction. The primary key decides the winner of concurrent creates:
// a competing INSERT waits for the first transaction and then inserts
// nothing.
func (s *PostgresRegistry) CreateTenant(ctx context.Context, tenant *models.TenantConfig, provision ProvisionFunc) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	err = tx.QueryRow(ctx,
		`INSERT INTO tenants (tenant_id, company_name, tax_jurisdiction, currency, colors)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id) DO NOTHING
		 RETURNING created_at`,
		tenant.TenantID, tenant.CompanyName, tenant.TaxJurisdiction, tenant.Currency, tenant.Colors,
	).Scan(&tenant.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrConflict
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert tenant %s: %w", tenant.TenantID, err)
	}

	if provision != nil {
		orgID, perr := provision(ctx, tenant.TenantID)
		if perr != nil {
			err = fmt.Errorf("provision organization: %w", perr)
			return err
		}
		if _, err = tx.Exec(ctx, `UPDATE tenants SET org_id = $2 WHERE tenant_id = $1`, tenant.TenantID, orgID); err != nil {
			return fmt.Errorf("set org id: %w", err)
		}
		tenant.OrgID = orgID
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	tenant.CreatedAt = tenant.CreatedAt.UTC()
	return nil
}

// Ping checks the database connection.
func (s *PostgresRegistry) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}
