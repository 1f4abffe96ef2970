package agency

import (
	"time"

	id "sayit/pkg/domain"
)

// Agency is a government body that complaints are routed to. The list is
// flat: no org hierarchy, no tenancy.
type Agency struct {
	ID        id.AgencyID
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
}

// Category classifies complaints and carries the default routing: a complaint
// filed under a category lands at the category's agency unless the filer
// overrides it.
type Category struct {
	ID        id.CategoryID
	Name      string
	AgencyID  id.AgencyID
	CreatedAt time.Time
}
