package store

import (
	"context"
	"time"

	"sayit/internal/agency"
	id "sayit/pkg/domain"
)

// Seed installs a starter set of agencies and categories for local
// development and the end-to-end suites. Production data arrives through
// administrative channels, not this function.
func Seed(ctx context.Context, s Store) error {
	now := time.Now()

	publicWorks := agency.Agency{ID: id.NewAgencyID(), Name: "Department of Public Works", Email: "works@city.example", Active: true, CreatedAt: now}
	sanitation := agency.Agency{ID: id.NewAgencyID(), Name: "Sanitation Authority", Email: "sanitation@city.example", Active: true, CreatedAt: now}
	transit := agency.Agency{ID: id.NewAgencyID(), Name: "Transit Board", Email: "transit@city.example", Active: true, CreatedAt: now}

	for _, a := range []agency.Agency{publicWorks, sanitation, transit} {
		a := a
		if err := s.SaveAgency(ctx, &a); err != nil {
			return err
		}
	}

	categories := []agency.Category{
		{ID: id.NewCategoryID(), Name: "Roads and Potholes", AgencyID: publicWorks.ID, CreatedAt: now},
		{ID: id.NewCategoryID(), Name: "Street Lighting", AgencyID: publicWorks.ID, CreatedAt: now},
		{ID: id.NewCategoryID(), Name: "Waste Collection", AgencyID: sanitation.ID, CreatedAt: now},
		{ID: id.NewCategoryID(), Name: "Public Transport", AgencyID: transit.ID, CreatedAt: now},
	}
	for _, c := range categories {
		c := c
		if err := s.SaveCategory(ctx, &c); err != nil {
			return err
		}
	}
	return nil
}
