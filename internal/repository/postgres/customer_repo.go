// internal/repository/postgres/customer_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"

	"minicrm-service/internal/domain/customer"
	xerrors "minicrm-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
)

// snapshotRead makes the three list queries see one consistent snapshot.
var snapshotRead = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

type CustomerRepository struct {
	db *DB
}

func NewCustomerRepository(db *DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// ========== Query ==========

// ListCustomers returns every customer, newest first, with contacts and
// appointments attached in id order. The three reads share one snapshot.
func (r *CustomerRepository) ListCustomers(ctx context.Context) ([]customer.Customer, error) {
	var customers []customer.Customer

	err := r.db.WithTx(ctx, snapshotRead, func(tx pgx.Tx) error {
		var err error
		customers, err = r.listCustomerRows(ctx, tx)
		if err != nil {
			return err
		}

		index := make(map[int64]int, len(customers))
		for i := range customers {
			index[customers[i].ID] = i
		}

		if err := r.attachContacts(ctx, tx, customers, index); err != nil {
			return err
		}
		return r.attachAppointments(ctx, tx, customers, index)
	})
	if err != nil {
		return nil, err
	}

	return customers, nil
}

func (r *CustomerRepository) listCustomerRows(ctx context.Context, tx pgx.Tx) ([]customer.Customer, error) {
	query := `
		SELECT id, name, COALESCE(company, ''), COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(address, ''), COALESCE(status, ''), COALESCE(notes, ''),
		       COALESCE(tags, '{}'), created_at
		FROM customers
		ORDER BY created_at DESC, id DESC
	`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	defer rows.Close()

	customers := []customer.Customer{}
	for rows.Next() {
		var c customer.Customer
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Company, &c.Email, &c.Phone,
			&c.Address, &c.Status, &c.Notes,
			&c.Tags, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		c.Contacts = []customer.Contact{}
		c.Appointments = []customer.Appointment{}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate customers: %w", err)
	}

	return customers, nil
}

func (r *CustomerRepository) attachContacts(ctx context.Context, tx pgx.Tx, customers []customer.Customer, index map[int64]int) error {
	query := `
		SELECT id, customer_id, COALESCE(type, ''), COALESCE(note, ''), COALESCE(date, '')
		FROM contacts
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ct customer.Contact
		if err := rows.Scan(&ct.ID, &ct.CustomerID, &ct.Type, &ct.Note, &ct.Date); err != nil {
			return fmt.Errorf("failed to scan contact: %w", err)
		}
		if i, ok := index[ct.CustomerID]; ok {
			customers[i].Contacts = append(customers[i].Contacts, ct)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return nil
}

func (r *CustomerRepository) attachAppointments(ctx context.Context, tx pgx.Tx, customers []customer.Customer, index map[int64]int) error {
	query := `
		SELECT id, customer_id, title, date, COALESCE(time, ''), reminder
		FROM appointments
		ORDER BY id
	`

	rows, err := tx.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a customer.Appointment
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Title, &a.Date, &a.Time, &a.Reminder); err != nil {
			return fmt.Errorf("failed to scan appointment: %w", err)
		}
		if i, ok := index[a.CustomerID]; ok {
			customers[i].Appointments = append(customers[i].Appointments, a)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return nil
}

// ========== Insert ==========

// CreateCustomer inserts c and fills in its id and creation time.
func (r *CustomerRepository) CreateCustomer(ctx context.Context, c *customer.Customer) error {
	query := `
		INSERT INTO customers (name, company, email, phone, address, status, notes, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	tags := c.Tags
	if tags == nil {
		tags = []string{}
	}

	err := r.db.Pool().QueryRow(
		ctx, query,
		c.Name, c.Company, c.Email, c.Phone, c.Address, c.Status, c.Notes, tags,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create customer: %w", err)
	}

	return nil
}

func (r *CustomerRepository) CreateContact(ctx context.Context, ct *customer.Contact) error {
	query := `
		INSERT INTO contacts (customer_id, type, note, date)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.db.Pool().QueryRow(ctx, query, ct.CustomerID, ct.Type, ct.Note, ct.Date).Scan(&ct.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

func (r *CustomerRepository) CreateAppointment(ctx context.Context, a *customer.Appointment) error {
	query := `
		INSERT INTO appointments (customer_id, title, date, time, reminder)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.Pool().QueryRow(ctx, query, a.CustomerID, a.Title, a.Date, a.Time, a.Reminder).Scan(&a.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return xerrors.ErrNotFound
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	return nil
}

// ========== Update ==========

// UpdateCustomer writes only the fields set in changes.
func (r *CustomerRepository) UpdateCustomer(ctx context.Context, id int64, changes customer.Changes) error {
	if changes.IsEmpty() {
		return nil
	}

	setClause, args := buildCustomerUpdate(changes)
	args = append(args, id)
	query := fmt.Sprintf("UPDATE customers SET %s WHERE id = $%d", setClause, len(args))

	result, err := r.db.Pool().Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

func (r *CustomerRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.Pool().Exec(ctx, `UPDATE customers SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// ========== Delete ==========

// DeleteCustomer removes the customer; contacts and appointments go with it.
func (r *CustomerRepository) DeleteCustomer(ctx context.Context, id int64) error {
	result, err := r.db.Pool().Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete customer: %w", err)
	}
	if result.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}

	return nil
}

// buildCustomerUpdate returns the SET clause for the non-nil fields of
// changes and its positional arguments, starting at $1.
func buildCustomerUpdate(changes customer.Changes) (string, []any) {
	var sets []string
	var args []any
	argPos := 1

	add := func(column string, v any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, v)
		argPos++
	}

	if changes.Name != nil {
		add("name", *changes.Name)
	}
	if changes.Company != nil {
		add("company", *changes.Company)
	}
	if changes.Email != nil {
		add("email", *changes.Email)
	}
	if changes.Phone != nil {
		add("phone", *changes.Phone)
	}
	if changes.Address != nil {
		add("address", *changes.Address)
	}
	if changes.Status != nil {
		add("status", *changes.Status)
	}
	if changes.Notes != nil {
		add("notes", *changes.Notes)
	}
	if changes.Tags != nil {
		add("tags", changes.Tags)
	}

	return strings.Join(sets, ", "), args
}
