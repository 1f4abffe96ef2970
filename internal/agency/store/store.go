package store

import (
	"context"

	"sayit/internal/agency"
	id "sayit/pkg/domain"
)

// Store is the read surface the lifecycle engine needs: category-to-agency
// routing and agency existence checks.
type Store interface {
	SaveAgency(ctx context.Context, a *agency.Agency) error
	FindAgency(ctx context.Context, agencyID id.AgencyID) (*agency.Agency, error)
	SaveCategory(ctx context.Context, c *agency.Category) error
	FindCategory(ctx context.Context, categoryID id.CategoryID) (*agency.Category, error)
	ListAgencies(ctx context.Context) ([]agency.Agency, error)
}
