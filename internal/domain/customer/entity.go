// internal/domain/customer/entity.go
package customer

import (
	"strings"
	"time"
)

type Customer struct {
	ID int64 `json:"id" db:"id"`

	// Customer details
	Name    string `json:"name" db:"name"`
	Company string `json:"company" db:"company"`
	Email   string `json:"email" db:"email"`
	Phone   string `json:"phone" db:"phone"`
	Address string `json:"address" db:"address"`

	// Pipeline stage id
	Status string `json:"status" db:"status"`

	// Additional info
	Notes string   `json:"notes" db:"notes"`
	Tags  []string `json:"tags" db:"tags"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`

	Contacts     []Contact     `json:"contacts"`
	Appointments []Appointment `json:"appointments"`
}

type ContactType string

const (
	ContactPhone   ContactType = "Telefon"
	ContactEmail   ContactType = "E-Mail"
	ContactMeeting ContactType = "Meeting"
	ContactNote    ContactType = "Notiz"
)

// ContactTypes lists the accepted contact types, default first.
var ContactTypes = []ContactType{ContactPhone, ContactEmail, ContactMeeting, ContactNote}

func (t ContactType) Valid() bool {
	for _, ct := range ContactTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Contact is one entry of a customer's contact history.
type Contact struct {
	ID         int64       `json:"id" db:"id"`
	CustomerID int64       `json:"customer_id" db:"customer_id"`
	Type       ContactType `json:"type" db:"type"`
	Note       string      `json:"note" db:"note"`
	Date       string      `json:"date" db:"date"` // YYYY-MM-DD
}

type Appointment struct {
	ID         int64  `json:"id" db:"id"`
	CustomerID int64  `json:"customer_id" db:"customer_id"`
	Title      string `json:"title" db:"title"`
	Date       string `json:"date" db:"date"` // YYYY-MM-DD
	Time       string `json:"time" db:"time"` // HH:MM, optional
	Reminder   bool   `json:"reminder" db:"reminder"`
}

// DateLayout is the calendar date format used for contacts and appointments.
const DateLayout = "2006-01-02"

// AvailableTags are the tags offered by the customer form.
var AvailableTags = []string{
	"VIP",
	"Privat",
	"Gewerbe",
	"BU-Interesse",
	"Altersvorsorge",
	"Bestandskunde",
	"Empfehlung",
}

// NormalizeTags trims tags and drops empties and duplicates. Order of first
// occurrence is kept so round trips are stable.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
