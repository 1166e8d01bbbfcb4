// internal/service/crm/service.go
package crm

import (
	"context"
	"strings"
	"time"

	"minicrm-service/internal/domain/auth"
	"minicrm-service/internal/domain/customer"
	"minicrm-service/internal/domain/pipeline"
	"minicrm-service/internal/events"
	xerrors "minicrm-service/internal/pkg/errors"
	"minicrm-service/internal/service/projection"

	"go.uber.org/zap"
)

type CRMService struct {
	customerRepo CustomerRepository
	publisher    events.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

func NewCRMService(customerRepo CustomerRepository, publisher events.Publisher, logger *zap.Logger) *CRMService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CRMService{
		customerRepo: customerRepo,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}
}

// WithClock replaces the clock used for contact dates.
func (s *CRMService) WithClock(now func() time.Time) *CRMService {
	s.now = now
	return s
}

// ========== Session ==========

// Start builds the state of a freshly authenticated user and loads the snapshot.
func (s *CRMService) Start(ctx context.Context, user *auth.User) (State, error) {
	if user == nil {
		return State{}, ErrNotAuthenticated
	}
	st := newState()
	st.User = user
	return s.Reload(ctx, st)
}

// Logout discards the whole state.
func (s *CRMService) Logout(State) State {
	return State{}
}

// Reload replaces the snapshot with the repository's current collection.
// On failure the previous snapshot is kept as is.
func (s *CRMService) Reload(ctx context.Context, st State) (State, error) {
	if !st.Authenticated() {
		return st, ErrNotAuthenticated
	}

	customers, err := s.customerRepo.ListCustomers(ctx)
	if err != nil {
		s.logger.Error("failed to load customers", zap.Error(err))
		return st, backend("load customers", err)
	}
	if customers == nil {
		customers = []customer.Customer{}
	}

	st.Customers = customers
	st.LoadedAt = s.now()
	return st.reconcile(), nil
}

// ========== Navigation ==========

func (s *CRMService) Navigate(st State, view View) State {
	switch view {
	case ViewDashboard, ViewCustomers:
		st.View = view
		st.SelectedID = 0
		st.PendingDelete = 0
	case ViewDetail:
		if _, ok := st.Selected(); ok {
			st.View = view
		}
	}
	return st
}

// Select opens the detail view of a customer from the snapshot.
func (s *CRMService) Select(st State, id int64) (State, error) {
	if _, ok := st.Find(id); !ok {
		return st.clearSelection(), ErrNotFound
	}
	st.SelectedID = id
	st.PendingDelete = 0
	st.View = ViewDetail
	return st, nil
}

// Back leaves the detail view.
func (s *CRMService) Back(st State) State {
	st.SelectedID = 0
	st.PendingDelete = 0
	st.View = ViewCustomers
	return st
}

func (s *CRMService) SetSearch(st State, query string) State {
	st.Search = query
	return st
}

func (s *CRMService) SetStatusFilter(st State, status string) (State, error) {
	if status == "" {
		status = projection.StatusAll
	}
	if status != projection.StatusAll && !pipeline.IsKnown(status) {
		return st, ErrUnknownStage
	}
	st.StatusFilter = status
	return st, nil
}

// ========== Mutations ==========

// SaveCustomer creates the customer when req.ID is zero and updates it otherwise.
func (s *CRMService) SaveCustomer(ctx context.Context, st State, req *customer.SaveCustomerRequest) (State, error) {
	if !st.Authenticated() {
		return st, ErrNotAuthenticated
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return st, ErrNameRequired
	}
	if req.Status != nil && !pipeline.IsKnown(*req.Status) {
		return st, ErrUnknownStage
	}

	if req.ID == 0 {
		return s.createCustomer(ctx, st, name, req)
	}
	return s.updateCustomer(ctx, st, name, req)
}

func (s *CRMService) createCustomer(ctx context.Context, st State, name string, req *customer.SaveCustomerRequest) (State, error) {
	c := &customer.Customer{
		Name:    name,
		Company: deref(req.Company),
		Email:   deref(req.Email),
		Phone:   deref(req.Phone),
		Address: deref(req.Address),
		Status:  pipeline.Default().ID,
		Notes:   deref(req.Notes),
		Tags:    customer.NormalizeTags(req.Tags),
	}
	if req.Status != nil {
		c.Status = *req.Status
	}

	if err := s.customerRepo.CreateCustomer(ctx, c); err != nil {
		s.logger.Error("failed to create customer", zap.Error(err))
		return st, backend("create customer", err)
	}

	s.logger.Info("customer created",
		zap.Int64("customer_id", c.ID),
		zap.String("status", c.Status),
		zap.Int64("user_id", st.User.ID),
	)
	s.publish(ctx, st, events.CustomerCreated, c.ID, nil)

	return s.Reload(ctx, st)
}

func (s *CRMService) updateCustomer(ctx context.Context, st State, name string, req *customer.SaveCustomerRequest) (State, error) {
	if _, ok := st.Find(req.ID); !ok {
		return st.clearSelection(), ErrNotFound
	}

	changes := customer.Changes{
		Name:    &name,
		Company: req.Company,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Status:  req.Status,
		Notes:   req.Notes,
	}
	if req.Tags != nil {
		changes.Tags = customer.NormalizeTags(req.Tags)
	}

	if err := s.customerRepo.UpdateCustomer(ctx, req.ID, changes); err != nil {
		return s.afterFailedWrite(ctx, st, "update customer", err)
	}

	s.logger.Info("customer updated", zap.Int64("customer_id", req.ID))
	s.publish(ctx, st, events.CustomerUpdated, req.ID, nil)

	return s.Reload(ctx, st)
}

// RequestDelete marks a customer for deletion. Nothing is removed until
// ConfirmDelete is called with the same id.
func (s *CRMService) RequestDelete(st State, id int64) (State, error) {
	if _, ok := st.Find(id); !ok {
		return st.clearSelection(), ErrNotFound
	}
	st.PendingDelete = id
	return st, nil
}

func (s *CRMService) CancelDelete(st State) State {
	st.PendingDelete = 0
	return st
}

// ConfirmDelete removes the customer marked by RequestDelete, reloads and
// returns to the list view.
func (s *CRMService) ConfirmDelete(ctx context.Context, st State, id int64) (State, error) {
	if !st.Authenticated() {
		return st, ErrNotAuthenticated
	}
	if id == 0 || st.PendingDelete != id {
		return st, ErrConfirmationRequired
	}

	err := s.customerRepo.DeleteCustomer(ctx, id)
	if err != nil && !xerrors.IsNotFound(err) {
		s.logger.Error("failed to delete customer", zap.Int64("customer_id", id), zap.Error(err))
		return st, backend("delete customer", err)
	}

	if err == nil {
		s.logger.Info("customer deleted", zap.Int64("customer_id", id))
		s.publish(ctx, st, events.CustomerDeleted, id, nil)
	}

	st.PendingDelete = 0
	st.SelectedID = 0
	st.View = ViewCustomers
	return s.Reload(ctx, st)
}

// SetStatus moves a customer to another pipeline stage. Any stage may follow
// any other.
func (s *CRMService) SetStatus(ctx context.Context, st State, id int64, stageID string) (State, error) {
	if !st.Authenticated() {
		return st, ErrNotAuthenticated
	}
	if !pipeline.IsKnown(stageID) {
		return st, ErrUnknownStage
	}
	if _, ok := st.Find(id); !ok {
		return st.clearSelection(), ErrNotFound
	}

	if err := s.customerRepo.UpdateStatus(ctx, id, stageID); err != nil {
		return s.afterFailedWrite(ctx, st, "update status", err)
	}

	s.logger.Info("customer status updated",
		zap.Int64("customer_id", id),
		zap.String("status", stageID),
	)
	s.publish(ctx, st, events.CustomerStatusChanged, id, map[string]string{"status": stageID})

	return s.Reload(ctx, st)
}

// AddContact appends a contact history entry dated today.
func (s *CRMService) AddContact(ctx context.Context, st State, customerID int64, req *customer.AddContactRequest) (State, error) {
	if !st.Authenticated() {
		return st, ErrNotAuthenticated
	}
	contactType := req.Type
	if contactType == "" {
		contactType = customer.ContactPhone
	}
	if !contactType.Valid() {
		return st, ErrInvalidContactType
	}
	if _, ok := st.Find(customerID); !ok {
		return st.clearSelection(), ErrNotFound
	}

	c := &customer.Contact{
		CustomerID: customerID,
		Type:       contactType,
		Note:       req.Note,
		Date:       s.now().UTC().Format(customer.DateLayout),
	}
	if err := s.customerRepo.CreateContact(ctx, c); err != nil {
		return s.afterFailedWrite(ctx, st, "add contact", err)
	}

	s.logger.Info("contact added",
		zap.Int64("customer_id", customerID),
		zap.String("type", string(c.Type)),
	)
	s.publish(ctx, st, events.ContactAdded, customerID, c)

	return s.Reload(ctx, st)
}

// AddAppointment appends an appointment. Title and date are required.
func (s *CRMService) AddAppointment(ctx context.Context, st State, customerID int64, req *customer.AddAppointmentRequest) (State, error) {
	if !st.Authenticated() {
		return st, ErrNotAuthenticated
	}
	title := strings.TrimSpace(req.Title)
	date := strings.TrimSpace(req.Date)
	if title == "" || date == "" {
		return st, ErrInvalidAppointment
	}
	if _, err := time.Parse(customer.DateLayout, date); err != nil {
		return st, ErrInvalidAppointment
	}
	if _, ok := st.Find(customerID); !ok {
		return st.clearSelection(), ErrNotFound
	}

	reminder := true
	if req.Reminder != nil {
		reminder = *req.Reminder
	}
	a := &customer.Appointment{
		CustomerID: customerID,
		Title:      title,
		Date:       date,
		Time:       strings.TrimSpace(req.Time),
		Reminder:   reminder,
	}
	if err := s.customerRepo.CreateAppointment(ctx, a); err != nil {
		return s.afterFailedWrite(ctx, st, "add appointment", err)
	}

	s.logger.Info("appointment added",
		zap.Int64("customer_id", customerID),
		zap.String("date", a.Date),
	)
	s.publish(ctx, st, events.AppointmentAdded, customerID, a)

	return s.Reload(ctx, st)
}

// ========== Helpers ==========

// afterFailedWrite handles a write that hit a customer the backend no longer
// has: reload so the stale reference disappears, then report NotFound.
func (s *CRMService) afterFailedWrite(ctx context.Context, st State, op string, err error) (State, error) {
	if !xerrors.IsNotFound(err) {
		s.logger.Error("failed to "+op, zap.Error(err))
		return st, backend(op, err)
	}

	next, reloadErr := s.Reload(ctx, st)
	if reloadErr != nil {
		return st.clearSelection(), reloadErr
	}
	return next.clearSelection(), ErrNotFound
}

func (s *CRMService) publish(ctx context.Context, st State, t events.Type, customerID int64, data any) {
	ev := events.Event{
		Type:       t,
		CustomerID: customerID,
		Data:       data,
		OccurredAt: s.now(),
	}
	if st.User != nil {
		ev.UserID = st.User.ID
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish event",
			zap.String("type", string(t)),
			zap.Int64("customer_id", customerID),
			zap.Error(err),
		)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
