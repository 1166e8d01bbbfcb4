// internal/service/crm/views.go
package crm

import (
	"time"

	"minicrm-service/internal/domain/auth"
	"minicrm-service/internal/domain/customer"
	"minicrm-service/internal/domain/pipeline"
	"minicrm-service/internal/service/projection"
)

type DashboardView struct {
	User     auth.UserInfo                    `json:"user"`
	Stats    []projection.StageStat           `json:"stats"`
	Counts   map[string]int                   `json:"counts"`
	Recent   []CustomerSummary                `json:"recent"`
	Upcoming []projection.UpcomingAppointment `json:"upcoming"`
	LoadedAt time.Time                        `json:"loaded_at"`
}

type ListView struct {
	Search    string            `json:"search"`
	Status    string            `json:"status"`
	Total     int               `json:"total"`
	Customers []CustomerSummary `json:"customers"`
	LoadedAt  time.Time         `json:"loaded_at"`
}

type DetailView struct {
	Customer      customer.Customer        `json:"customer"`
	Stage         *pipeline.Stage          `json:"stage"`
	Progress      []pipeline.StageProgress `json:"progress"`
	PendingDelete bool                     `json:"pending_delete"`
}

// CustomerSummary is a list row: the customer plus its resolved stage.
// Stage is nil for statuses outside the pipeline.
type CustomerSummary struct {
	customer.Customer
	Stage *pipeline.Stage `json:"stage"`
}

func summarize(cs []customer.Customer) []CustomerSummary {
	out := make([]CustomerSummary, 0, len(cs))
	for _, c := range cs {
		out = append(out, CustomerSummary{Customer: c, Stage: stageOf(c.Status)})
	}
	return out
}

func stageOf(status string) *pipeline.Stage {
	s, ok := pipeline.Lookup(status)
	if !ok {
		return nil
	}
	return &s
}

// Dashboard is computed from the snapshot on every call.
func (s *CRMService) Dashboard(st State) (DashboardView, error) {
	if !st.Authenticated() {
		return DashboardView{}, ErrNotAuthenticated
	}
	return DashboardView{
		User:     st.User.Info(),
		Stats:    projection.Stats(st.Customers),
		Counts:   projection.StageCounts(st.Customers),
		Recent:   summarize(projection.Recent(st.Customers, projection.RecentLimit)),
		Upcoming: projection.Upcoming(st.Customers, projection.UpcomingLimit),
		LoadedAt: st.LoadedAt,
	}, nil
}

// List applies the state's search and status filter to the snapshot.
func (s *CRMService) List(st State) (ListView, error) {
	if !st.Authenticated() {
		return ListView{}, ErrNotAuthenticated
	}
	filtered := projection.Filter(st.Customers, st.Search, st.StatusFilter)
	return ListView{
		Search:    st.Search,
		Status:    st.StatusFilter,
		Total:     len(filtered),
		Customers: summarize(filtered),
		LoadedAt:  st.LoadedAt,
	}, nil
}

// Detail renders the selected customer. A selection the snapshot no longer
// backs is cleared and reported as ErrNotFound.
func (s *CRMService) Detail(st State) (State, DetailView, error) {
	if !st.Authenticated() {
		return st, DetailView{}, ErrNotAuthenticated
	}
	c, ok := st.Selected()
	if !ok {
		return st.clearSelection(), DetailView{}, ErrNotFound
	}
	if c.Contacts == nil {
		c.Contacts = []customer.Contact{}
	}
	if c.Appointments == nil {
		c.Appointments = []customer.Appointment{}
	}
	return st, DetailView{
		Customer:      c,
		Stage:         stageOf(c.Status),
		Progress:      pipeline.Progress(c.Status),
		PendingDelete: st.PendingDelete == c.ID,
	}, nil
}
