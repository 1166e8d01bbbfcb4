package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"minicrm-service/internal/domain/auth"
	"minicrm-service/internal/domain/customer"
	"minicrm-service/internal/middleware"
	xerrors "minicrm-service/internal/pkg/errors"
	"minicrm-service/internal/pkg/jwt"
	"minicrm-service/internal/pkg/session"
	crmsvc "minicrm-service/internal/service/crm"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memRepo struct {
	nextID    int64
	customers []customer.Customer
	failList  bool
}

func (r *memRepo) ListCustomers(context.Context) ([]customer.Customer, error) {
	if r.failList {
		return nil, errors.New("connection refused")
	}
	out := append([]customer.Customer(nil), r.customers...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memRepo) CreateCustomer(_ context.Context, c *customer.Customer) error {
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	r.customers = append(r.customers, *c)
	return nil
}

func (r *memRepo) find(id int64) *customer.Customer {
	for i := range r.customers {
		if r.customers[i].ID == id {
			return &r.customers[i]
		}
	}
	return nil
}

func (r *memRepo) UpdateCustomer(_ context.Context, id int64, ch customer.Changes) error {
	c := r.find(id)
	if c == nil {
		return xerrors.ErrNotFound
	}
	if ch.Name != nil {
		c.Name = *ch.Name
	}
	if ch.Email != nil {
		c.Email = *ch.Email
	}
	return nil
}

func (r *memRepo) UpdateStatus(_ context.Context, id int64, status string) error {
	c := r.find(id)
	if c == nil {
		return xerrors.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *memRepo) DeleteCustomer(_ context.Context, id int64) error {
	for i := range r.customers {
		if r.customers[i].ID == id {
			r.customers = append(r.customers[:i], r.customers[i+1:]...)
			return nil
		}
	}
	return xerrors.ErrNotFound
}

func (r *memRepo) CreateContact(_ context.Context, ct *customer.Contact) error {
	c := r.find(ct.CustomerID)
	if c == nil {
		return xerrors.ErrNotFound
	}
	r.nextID++
	ct.ID = r.nextID
	c.Contacts = append(c.Contacts, *ct)
	return nil
}

func (r *memRepo) CreateAppointment(_ context.Context, a *customer.Appointment) error {
	c := r.find(a.CustomerID)
	if c == nil {
		return xerrors.ErrNotFound
	}
	r.nextID++
	a.ID = r.nextID
	c.Appointments = append(c.Appointments, *a)
	return nil
}

type tokenStub struct{}

func (tokenStub) TouchSession(context.Context, int64, string) error { return nil }

func (tokenStub) ValidateToken(_ context.Context, token string) (*jwt.Claims, error) {
	if token == "" || token == "bad" {
		return nil, errors.New("bad token")
	}
	return &jwt.Claims{
		UserID:           1,
		Username:         "admin",
		Name:             "Admin",
		RegisteredClaims: gojwt.RegisteredClaims{ID: token},
	}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type harness struct {
	t       *testing.T
	repo    *memRepo
	handler *CRMHandler
	router  *gin.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := &memRepo{}
	svc := crmsvc.NewCRMService(repo, nil, zap.NewNop())
	h := NewCRMHandler(svc, session.NewWorkspaces[crmsvc.State](), zap.NewNop())

	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.NewAuthMiddleware(tokenStub{}).Auth())
	RegisterRoutes(api, h)

	return &harness{t: t, repo: repo, handler: h, router: r}
}

func (h *harness) do(method, path, token string, body interface{}) (int, envelope) {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestRequiresToken(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(http.MethodGet, "/api/v1/customers", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCreateListAndFilter(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodPost, "/api/v1/customers", "s1", map[string]interface{}{"name": "Max Mustermann", "email": "max@example.de"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	code, _ = h.do(http.MethodPost, "/api/v1/customers", "s1", map[string]interface{}{"name": "Anna Schmidt", "status": "konzept"})
	require.Equal(t, http.StatusCreated, code)

	code, env = h.do(http.MethodGet, "/api/v1/customers?search=max", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	list := decode[crmsvc.ListView](t, env.Data)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Max Mustermann", list.Customers[0].Name)

	// The search sticks to the session until changed.
	_, env = h.do(http.MethodGet, "/api/v1/customers", "s1", nil)
	assert.Equal(t, 1, decode[crmsvc.ListView](t, env.Data).Total)

	_, env = h.do(http.MethodGet, "/api/v1/customers?search=&status=konzept", "s1", nil)
	list = decode[crmsvc.ListView](t, env.Data)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "Anna Schmidt", list.Customers[0].Name)

	// Another session has its own filters.
	_, env = h.do(http.MethodGet, "/api/v1/customers", "s2", nil)
	assert.Equal(t, 2, decode[crmsvc.ListView](t, env.Data).Total)

	code, env = h.do(http.MethodGet, "/api/v1/customers?status=gewonnen", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "unknown_stage", env.Code)
}

func TestCreateRequiresName(t *testing.T) {
	h := newHarness(t)
	code, env := h.do(http.MethodPost, "/api/v1/customers", "s1", map[string]interface{}{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "name_required", env.Code)
	assert.Empty(t, h.repo.customers)
}

func TestDetailStatusAndHistory(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/api/v1/customers", "s1", map[string]interface{}{"name": "Anna Schmidt"})
	id := h.repo.customers[0].ID
	base := "/api/v1/customers/" + itoa(id)

	code, env := h.do(http.MethodGet, base, "s1", nil)
	require.Equal(t, http.StatusOK, code)
	detail := decode[crmsvc.DetailView](t, env.Data)
	assert.Equal(t, "erstkontakt", detail.Customer.Status)

	code, env = h.do(http.MethodPut, base+"/status", "s1", map[string]string{"status": "abschluss"})
	require.Equal(t, http.StatusOK, code)
	detail = decode[crmsvc.DetailView](t, env.Data)
	assert.Equal(t, "abschluss", detail.Customer.Status)
	require.NotNil(t, detail.Stage)
	assert.Equal(t, "Abschluss", detail.Stage.Label)

	code, env = h.do(http.MethodPost, base+"/contacts", "s1", map[string]string{"note": "Angebot geschickt", "type": "E-Mail"})
	require.Equal(t, http.StatusOK, code)
	detail = decode[crmsvc.DetailView](t, env.Data)
	require.Len(t, detail.Customer.Contacts, 1)
	assert.Equal(t, customer.ContactEmail, detail.Customer.Contacts[0].Type)

	code, env = h.do(http.MethodPost, base+"/appointments", "s1", map[string]string{"title": "", "date": "2024-01-05"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid_appointment", env.Code)

	code, _ = h.do(http.MethodPost, base+"/appointments", "s1", map[string]string{"title": "Beratung", "date": "2024-01-05", "time": "10:00"})
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(http.MethodGet, "/api/v1/dashboard", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	dash := decode[crmsvc.DashboardView](t, env.Data)
	assert.Equal(t, 1, dash.Counts["abschluss"])
	require.Len(t, dash.Upcoming, 1)
	assert.Equal(t, "Anna Schmidt", dash.Upcoming[0].CustomerName)
	assert.Equal(t, "Admin", dash.User.Name)
}

func TestDeleteConfirmGate(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/api/v1/customers", "s1", map[string]interface{}{"name": "Weg"})
	id := h.repo.customers[0].ID
	base := "/api/v1/customers/" + itoa(id)

	code, env := h.do(http.MethodPost, base+"/delete/confirm", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "confirmation_required", env.Code)
	require.Len(t, h.repo.customers, 1)

	h.do(http.MethodGet, base, "s1", nil)
	code, _ = h.do(http.MethodPost, base+"/delete", "s1", nil)
	require.Equal(t, http.StatusOK, code)

	code, env = h.do(http.MethodPost, "/api/v1/customers/delete/cancel", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decode[crmsvc.DetailView](t, env.Data).PendingDelete)

	code, _ = h.do(http.MethodPost, base+"/delete/confirm", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	h.do(http.MethodPost, base+"/delete", "s1", nil)
	code, env = h.do(http.MethodPost, base+"/delete/confirm", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, decode[crmsvc.ListView](t, env.Data).Total)
	assert.Empty(t, h.repo.customers)

	code, env = h.do(http.MethodGet, base, "s1", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.Code)
}

func TestBackendFailure(t *testing.T) {
	h := newHarness(t)
	h.repo.failList = true

	code, env := h.do(http.MethodPost, "/api/v1/customers/reload", "s1", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "backend_unavailable", env.Code)
}

func TestOpenAndClose(t *testing.T) {
	h := newHarness(t)
	h.repo.customers = []customer.Customer{{ID: 1, Name: "Vorab", Status: "konzept"}}

	require.NoError(t, h.handler.Open(context.Background(), "s9", &auth.User{ID: 1, Name: "Admin"}))
	h.repo.customers = nil

	// The snapshot taken at login is what the session sees until a reload.
	_, env := h.do(http.MethodGet, "/api/v1/customers", "s9", nil)
	assert.Equal(t, 1, decode[crmsvc.ListView](t, env.Data).Total)

	h.handler.Close("s9")
	_, env = h.do(http.MethodGet, "/api/v1/customers", "s9", nil)
	assert.Equal(t, 0, decode[crmsvc.ListView](t, env.Data).Total)
}

func TestReferenceData(t *testing.T) {
	h := newHarness(t)

	code, env := h.do(http.MethodGet, "/api/v1/pipeline", "s1", nil)
	require.Equal(t, http.StatusOK, code)
	stages := decode[[]map[string]string](t, env.Data)
	require.Len(t, stages, 4)
	assert.Equal(t, "erstkontakt", stages[0]["id"])

	_, env = h.do(http.MethodGet, "/api/v1/tags", "s1", nil)
	assert.Contains(t, decode[[]string](t, env.Data), "VIP")
}

func TestInvalidID(t *testing.T) {
	h := newHarness(t)
	code, _ := h.do(http.MethodGet, "/api/v1/customers/abc", "s1", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
