// internal/handlers/crm/crm_handler.go
package crm

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"minicrm-service/internal/domain/auth"
	"minicrm-service/internal/domain/customer"
	"minicrm-service/internal/domain/pipeline"
	"minicrm-service/internal/middleware"
	"minicrm-service/internal/pkg/response"
	"minicrm-service/internal/pkg/session"
	crmsvc "minicrm-service/internal/service/crm"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CRMHandler struct {
	crmService *crmsvc.CRMService
	workspaces *session.Workspaces[crmsvc.State]
	logger     *zap.Logger
}

func NewCRMHandler(crmService *crmsvc.CRMService, workspaces *session.Workspaces[crmsvc.State], logger *zap.Logger) *CRMHandler {
	return &CRMHandler{
		crmService: crmService,
		workspaces: workspaces,
		logger:     logger,
	}
}

// action is one step on a session's state.
type action func(ctx context.Context, st crmsvc.State) (crmsvc.State, error)

// ========== Session hooks ==========

// Open loads the snapshot for a fresh login. A failed load leaves the
// session logged in with an empty snapshot.
func (h *CRMHandler) Open(ctx context.Context, jti string, user *auth.User) error {
	return h.workspaces.With(jti, func(st *crmsvc.State) error {
		next, err := h.crmService.Start(ctx, user)
		*st = next
		return err
	})
}

// Close discards a session's state.
func (h *CRMHandler) Close(jti string) {
	_ = h.workspaces.With(jti, func(st *crmsvc.State) error {
		*st = h.crmService.Logout(*st)
		return nil
	})
	h.workspaces.Drop(jti)
}

// run applies fn to the caller's state while holding the session lock and
// returns the resulting state. A session without state, for example after a
// restart, is started first.
func (h *CRMHandler) run(c *gin.Context, fn action) (crmsvc.State, error) {
	jti := middleware.MustGetJTI(c)
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return crmsvc.State{}, crmsvc.ErrNotAuthenticated
	}

	var out crmsvc.State
	err := h.workspaces.With(jti, func(st *crmsvc.State) error {
		ctx := c.Request.Context()
		if !st.Authenticated() {
			started, err := h.crmService.Start(ctx, user)
			*st = started
			if err != nil {
				out = *st
				return err
			}
		}

		next, err := fn(ctx, *st)
		*st = next
		out = next
		return err
	})
	return out, err
}

// ========== Reference data ==========

// GetPipeline returns the stages in order.
func (h *CRMHandler) GetPipeline(c *gin.Context) {
	response.Success(c, http.StatusOK, "pipeline retrieved", pipeline.Stages())
}

// GetTags returns the suggested tags.
func (h *CRMHandler) GetTags(c *gin.Context) {
	response.Success(c, http.StatusOK, "tags retrieved", customer.AvailableTags)
}

// ========== Views ==========

func (h *CRMHandler) GetDashboard(c *gin.Context) {
	st, err := h.run(c, func(_ context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.Navigate(st, crmsvc.ViewDashboard), nil
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}

	view, err := h.crmService.Dashboard(st)
	if err != nil {
		h.fail(c, err, st)
		return
	}
	response.Success(c, http.StatusOK, "dashboard retrieved", view)
}

// ListCustomers stores the query filters in the session and renders the list.
// Filters that are not given keep their previous value.
func (h *CRMHandler) ListCustomers(c *gin.Context) {
	var filters customer.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		response.ValidationError(c, "invalid query", err)
		return
	}
	_, hasSearch := c.GetQuery("search")

	st, err := h.run(c, func(_ context.Context, st crmsvc.State) (crmsvc.State, error) {
		st = h.crmService.Navigate(st, crmsvc.ViewCustomers)
		if hasSearch {
			st = h.crmService.SetSearch(st, filters.Search)
		}
		if filters.Status != nil {
			return h.crmService.SetStatusFilter(st, *filters.Status)
		}
		return st, nil
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}

	h.renderList(c, http.StatusOK, "customers retrieved", st)
}

func (h *CRMHandler) ReloadCustomers(c *gin.Context) {
	st, err := h.run(c, h.crmService.Reload)
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderList(c, http.StatusOK, "customers reloaded", st)
}

// GetCustomer selects a customer and renders its detail view.
func (h *CRMHandler) GetCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	st, err := h.run(c, func(_ context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.Select(st, id)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderDetail(c, http.StatusOK, "customer retrieved", st)
}

func (h *CRMHandler) Back(c *gin.Context) {
	st, err := h.run(c, func(_ context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.Back(st), nil
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderList(c, http.StatusOK, "back to list", st)
}

// ========== Mutations ==========

func (h *CRMHandler) CreateCustomer(c *gin.Context) {
	var req customer.SaveCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	req.ID = 0

	st, err := h.run(c, func(ctx context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.SaveCustomer(ctx, st, &req)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderList(c, http.StatusCreated, "customer created", st)
}

func (h *CRMHandler) UpdateCustomer(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req customer.SaveCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}
	req.ID = id

	st, err := h.run(c, func(ctx context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.SaveCustomer(ctx, st, &req)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderCurrent(c, "customer updated", st)
}

func (h *CRMHandler) UpdateStatus(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req customer.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	st, err := h.run(c, func(ctx context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.SetStatus(ctx, st, id, req.Status)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderCurrent(c, "status updated", st)
}

func (h *CRMHandler) AddContact(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req customer.AddContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	st, err := h.run(c, func(ctx context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.AddContact(ctx, st, id, &req)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderCurrent(c, "contact added", st)
}

func (h *CRMHandler) AddAppointment(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	var req customer.AddAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request", err)
		return
	}

	st, err := h.run(c, func(ctx context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.AddAppointment(ctx, st, id, &req)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderCurrent(c, "appointment added", st)
}

// RequestDelete marks a customer for deletion; nothing is removed yet.
func (h *CRMHandler) RequestDelete(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	st, err := h.run(c, func(_ context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.RequestDelete(st, id)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	response.Success(c, http.StatusOK, "confirm deletion", gin.H{"pending_delete": st.PendingDelete})
}

func (h *CRMHandler) ConfirmDelete(c *gin.Context) {
	id, ok := customerID(c)
	if !ok {
		return
	}

	st, err := h.run(c, func(ctx context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.ConfirmDelete(ctx, st, id)
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderList(c, http.StatusOK, "customer deleted", st)
}

func (h *CRMHandler) CancelDelete(c *gin.Context) {
	st, err := h.run(c, func(_ context.Context, st crmsvc.State) (crmsvc.State, error) {
		return h.crmService.CancelDelete(st), nil
	})
	if err != nil {
		h.fail(c, err, st)
		return
	}
	h.renderCurrent(c, "deletion cancelled", st)
}

// ========== Rendering ==========

func (h *CRMHandler) renderList(c *gin.Context, status int, message string, st crmsvc.State) {
	view, err := h.crmService.List(st)
	if err != nil {
		h.fail(c, err, st)
		return
	}
	response.Success(c, status, message, view)
}

func (h *CRMHandler) renderDetail(c *gin.Context, status int, message string, st crmsvc.State) {
	_, view, err := h.crmService.Detail(st)
	if err != nil {
		h.fail(c, err, st)
		return
	}
	response.Success(c, status, message, view)
}

// renderCurrent shows the detail view while a customer is selected and the
// list otherwise.
func (h *CRMHandler) renderCurrent(c *gin.Context, message string, st crmsvc.State) {
	if _, ok := st.Selected(); ok {
		h.renderDetail(c, http.StatusOK, message, st)
		return
	}
	h.renderList(c, http.StatusOK, message, st)
}

func customerID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ValidationError(c, "invalid customer id", err)
		return 0, false
	}
	return id, true
}

// fail maps service errors to responses. NotFound carries the list view the
// client falls back to.
func (h *CRMHandler) fail(c *gin.Context, err error, st crmsvc.State) {
	switch {
	case errors.Is(err, crmsvc.ErrNotAuthenticated):
		response.Fail(c, http.StatusUnauthorized, "not_authenticated", "Bitte melden Sie sich an")
	case errors.Is(err, crmsvc.ErrNameRequired):
		response.Fail(c, http.StatusBadRequest, "name_required", "Name ist ein Pflichtfeld")
	case errors.Is(err, crmsvc.ErrUnknownStage):
		response.Fail(c, http.StatusBadRequest, "unknown_stage", "Unbekannter Status")
	case errors.Is(err, crmsvc.ErrInvalidContactType):
		response.Fail(c, http.StatusBadRequest, "invalid_contact_type", "Unbekannte Kontaktart")
	case errors.Is(err, crmsvc.ErrInvalidAppointment):
		response.Fail(c, http.StatusBadRequest, "invalid_appointment", "Titel und Datum sind Pflichtfelder")
	case errors.Is(err, crmsvc.ErrConfirmationRequired):
		response.Fail(c, http.StatusBadRequest, "confirmation_required", "Löschen muss bestätigt werden")
	case errors.Is(err, crmsvc.ErrNotFound):
		var fallback interface{}
		if view, listErr := h.crmService.List(st); listErr == nil {
			fallback = view
		}
		response.Fail(c, http.StatusNotFound, "not_found", "Kunde nicht gefunden", fallback)
	case crmsvc.IsBackend(err):
		h.logger.Error("backend call failed", zap.Error(err), zap.String("path", c.FullPath()))
		response.Fail(c, http.StatusBadGateway, "backend_unavailable", "Daten konnten nicht geladen oder gespeichert werden")
	default:
		h.logger.Error("unexpected error", zap.Error(err), zap.String("path", c.FullPath()))
		response.Fail(c, http.StatusInternalServerError, "internal", "internal server error")
	}
}
