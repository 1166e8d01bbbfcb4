// internal/service/crm/state.go
package crm

import (
	"time"

	"minicrm-service/internal/domain/auth"
	"minicrm-service/internal/domain/customer"
	"minicrm-service/internal/service/projection"
)

type View string

const (
	ViewDashboard View = "dashboard"
	ViewCustomers View = "customers"
	ViewDetail    View = "detail"
)

// State is everything one logged-in session knows. Actions take a State and
// return the next one; nothing here is shared between sessions.
type State struct {
	User *auth.User

	// Customers is the snapshot, newest first, as last loaded.
	Customers []customer.Customer
	LoadedAt  time.Time

	View          View
	SelectedID    int64
	PendingDelete int64

	Search       string
	StatusFilter string
}

// Authenticated reports whether a user is logged in.
func (s State) Authenticated() bool {
	return s.User != nil
}

// Find returns the snapshot copy of customer id.
func (s State) Find(id int64) (customer.Customer, bool) {
	for _, c := range s.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return customer.Customer{}, false
}

// Selected returns the selected customer from the current snapshot.
func (s State) Selected() (customer.Customer, bool) {
	if s.SelectedID == 0 {
		return customer.Customer{}, false
	}
	return s.Find(s.SelectedID)
}

func newState() State {
	return State{View: ViewDashboard, StatusFilter: projection.StatusAll}
}

// clearSelection drops a selection and goes back to the list.
func (s State) clearSelection() State {
	s.SelectedID = 0
	s.PendingDelete = 0
	if s.View == ViewDetail {
		s.View = ViewCustomers
	}
	return s
}

// reconcile drops references the snapshot no longer backs.
func (s State) reconcile() State {
	if s.SelectedID != 0 {
		if _, ok := s.Find(s.SelectedID); !ok {
			s = s.clearSelection()
		}
	}
	if s.PendingDelete != 0 {
		if _, ok := s.Find(s.PendingDelete); !ok {
			s.PendingDelete = 0
		}
	}
	if s.View == ViewDetail && s.SelectedID == 0 {
		s.View = ViewCustomers
	}
	return s
}
