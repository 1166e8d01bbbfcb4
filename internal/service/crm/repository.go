// internal/service/crm/repository.go
package crm

import (
	"context"

	"minicrm-service/internal/domain/customer"
)

// CustomerRepository is the persistence boundary for customers and their
// contact and appointment logs. ListCustomers returns the whole collection
// newest first with children attached.
type CustomerRepository interface {
	ListCustomers(ctx context.Context) ([]customer.Customer, error)
	CreateCustomer(ctx context.Context, c *customer.Customer) error
	UpdateCustomer(ctx context.Context, id int64, changes customer.Changes) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	DeleteCustomer(ctx context.Context, id int64) error
	CreateContact(ctx context.Context, c *customer.Contact) error
	CreateAppointment(ctx context.Context, a *customer.Appointment) error
}
