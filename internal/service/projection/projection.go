// internal/service/projection/projection.go
package projection

import (
	"sort"
	"strings"
	"time"

	"minicrm-service/internal/domain/customer"
	"minicrm-service/internal/domain/pipeline"
)

const (
	// UpcomingLimit is how many appointments the dashboard lists.
	UpcomingLimit = 5
	// RecentLimit is how many newest customers the dashboard lists.
	RecentLimit = 5

	// StatusAll disables the status filter.
	StatusAll = "all"
)

// StageCounts counts customers per pipeline stage. Every stage has a key.
// Customers with an unknown status are not counted anywhere.
func StageCounts(customers []customer.Customer) map[string]int {
	counts := make(map[string]int, len(pipeline.Stages()))
	for _, s := range pipeline.Stages() {
		counts[s.ID] = 0
	}
	for _, c := range customers {
		if _, ok := counts[c.Status]; ok {
			counts[c.Status]++
		}
	}
	return counts
}

// Matches reports whether c passes the search query and the status filter.
func Matches(c customer.Customer, query, status string) bool {
	q := strings.ToLower(query)
	hit := strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Email), q) ||
		strings.Contains(c.Phone, query)
	if !hit {
		return false
	}
	return status == "" || status == StatusAll || c.Status == status
}

// Filter returns the customers matching query and status, in snapshot order.
func Filter(customers []customer.Customer, query, status string) []customer.Customer {
	out := make([]customer.Customer, 0, len(customers))
	for _, c := range customers {
		if Matches(c, query, status) {
			out = append(out, c)
		}
	}
	return out
}

// UpcomingAppointment is an appointment with its owner attached.
type UpcomingAppointment struct {
	customer.Appointment
	CustomerName string `json:"customer_name"`
}

// ParseDate parses an appointment date. Unparseable dates map to the zero
// time so they sort before every valid date.
func ParseDate(date string) time.Time {
	t, err := time.Parse(customer.DateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Upcoming flattens all appointments, sorts them ascending by date and keeps
// the first limit entries. Ties keep snapshot order.
func Upcoming(customers []customer.Customer, limit int) []UpcomingAppointment {
	var all []UpcomingAppointment
	for _, c := range customers {
		for _, a := range c.Appointments {
			a.CustomerID = c.ID
			all = append(all, UpcomingAppointment{Appointment: a, CustomerName: c.Name})
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return ParseDate(all[i].Date).Before(ParseDate(all[j].Date))
	})

	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	if all == nil {
		all = []UpcomingAppointment{}
	}
	return all
}

// Recent returns the first n customers of the snapshot, which the repository
// orders newest first.
func Recent(customers []customer.Customer, n int) []customer.Customer {
	if n < 0 || len(customers) <= n {
		n = len(customers)
	}
	out := make([]customer.Customer, n)
	copy(out, customers[:n])
	return out
}

// StageStat is one dashboard tile.
type StageStat struct {
	pipeline.Stage
	Count int `json:"count"`
}

// Stats returns the stage counts as tiles in pipeline order.
func Stats(customers []customer.Customer) []StageStat {
	counts := StageCounts(customers)
	out := make([]StageStat, 0, len(counts))
	for _, s := range pipeline.Stages() {
		out = append(out, StageStat{Stage: s, Count: counts[s.ID]})
	}
	return out
}
