package core

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CompanyService resolves the mill company whose code is stamped onto
// new weighings and gradings.
type CompanyService interface {
	// ActiveCompany returns the single enabled company. Fails with
	// ErrConfiguration when none is active.
	ActiveCompany(ctx context.Context) (*Company, error)

	// GetByCode returns a company regardless of its active flag.
	GetByCode(ctx context.Context, companyCode string) (*Company, error)

	// Activate makes companyCode the only active company.
	Activate(ctx context.Context, companyCode string) (*Company, error)
}

type companyService struct {
	pool *pgxpool.Pool
}

func NewCompanyService(pool *pgxpool.Pool) CompanyService {
	return &companyService{pool: pool}
}

func (s *companyService) ActiveCompany(ctx context.Context) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_code, name, is_active
		FROM companies
		WHERE is_active
		LIMIT 1`,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: no active company configured", ErrConfiguration)
		}
		return nil, fmt.Errorf("failed to resolve active company: %w", err)
	}
	return c, nil
}

func (s *companyService) GetByCode(ctx context.Context, companyCode string) (*Company, error) {
	c := &Company{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_code, name, is_active
		FROM companies
		WHERE company_code = $1`,
		companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: company %s", ErrNotFound, companyCode)
		}
		return nil, fmt.Errorf("failed to fetch company %s: %w", companyCode, err)
	}
	return c, nil
}

func (s *companyService) Activate(ctx context.Context, companyCode string) (*Company, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Deactivate first: the partial unique index on is_active admits one row only.
	if _, err := tx.Exec(ctx, "UPDATE companies SET is_active = false WHERE is_active AND company_code <> $1", companyCode); err != nil {
		return nil, fmt.Errorf("failed to deactivate companies: %w", err)
	}

	c := &Company{}
	err = tx.QueryRow(ctx, `
		UPDATE companies SET is_active = true
		WHERE company_code = $1
		RETURNING id, company_code, name, is_active`,
		companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: company %s", ErrNotFound, companyCode)
		}
		return nil, fmt.Errorf("failed to activate company %s: %w", companyCode, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit company activation: %w", err)
	}
	log.Printf("[COMPANY] %s is now the active company", companyCode)
	return c, nil
}

// Context returns the explicit company dependency passed into ledger operations.
func (c *Company) Context() CompanyContext {
	return CompanyContext{ID: c.ID, Code: c.CompanyCode}
}
