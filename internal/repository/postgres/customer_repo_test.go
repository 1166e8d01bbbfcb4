package postgres

import (
	"errors"
	"fmt"
	"testing"

	"minicrm-service/internal/domain/customer"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestBuildCustomerUpdate(t *testing.T) {
	name := "Anna Schmidt"
	email := ""
	status := "konzept"

	set, args := buildCustomerUpdate(customer.Changes{
		Name:   &name,
		Email:  &email,
		Status: &status,
		Tags:   []string{"VIP"},
	})

	assert.Equal(t, "name = $1, email = $2, status = $3, tags = $4", set)
	assert.Equal(t, []any{"Anna Schmidt", "", "konzept", []string{"VIP"}}, args)
}

func TestBuildCustomerUpdateSingleField(t *testing.T) {
	notes := "ruft zurück"
	set, args := buildCustomerUpdate(customer.Changes{Notes: &notes})

	assert.Equal(t, "notes = $1", set)
	assert.Len(t, args, 1)
}

func TestBuildCustomerUpdateClearsTags(t *testing.T) {
	set, args := buildCustomerUpdate(customer.Changes{Tags: []string{}})

	assert.Equal(t, "tags = $1", set)
	assert.Equal(t, []any{[]string{}}, args)
}

func TestIsForeignKeyViolation(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503"}
	assert.True(t, isForeignKeyViolation(fk))
	assert.True(t, isForeignKeyViolation(fmt.Errorf("insert: %w", fk)))
	assert.False(t, isForeignKeyViolation(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isForeignKeyViolation(errors.New("boom")))
}

func TestListSnapshotIsRepeatableReadOnly(t *testing.T) {
	assert.Equal(t, pgx.RepeatableRead, snapshotRead.IsoLevel)
	assert.Equal(t, pgx.ReadOnly, snapshotRead.AccessMode)
}
