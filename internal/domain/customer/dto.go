// internal/domain/customer/dto.go
package customer

// SaveCustomerRequest is the customer form. ID == 0 creates, anything else updates.
type SaveCustomerRequest struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name" binding:"max=255"`
	Company *string  `json:"company" binding:"omitempty,max=255"`
	Email   *string  `json:"email" binding:"omitempty,max=255"`
	Phone   *string  `json:"phone" binding:"omitempty,max=50"`
	Address *string  `json:"address"`
	Status  *string  `json:"status"`
	Notes   *string  `json:"notes"`
	Tags    []string `json:"tags"`
}

// Changes is a partial update of the mutable customer fields. Nil means untouched.
type Changes struct {
	Name    *string
	Company *string
	Email   *string
	Phone   *string
	Address *string
	Status  *string
	Notes   *string
	Tags    []string
}

// IsEmpty reports whether no field is set.
func (c Changes) IsEmpty() bool {
	return c.Name == nil && c.Company == nil && c.Email == nil && c.Phone == nil &&
		c.Address == nil && c.Status == nil && c.Notes == nil && c.Tags == nil
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type AddContactRequest struct {
	Type ContactType `json:"type"`
	Note string      `json:"note"`
}

type AddAppointmentRequest struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Time     string `json:"time"`
	Reminder *bool  `json:"reminder"`
}

type ListFilters struct {
	Search string  `form:"search"`
	Status *string `form:"status"`
}
