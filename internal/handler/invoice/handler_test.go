package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/orms-api/internal/email"
	"github.com/jwalitptl/orms-api/internal/middleware"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/presenter"
	"github.com/jwalitptl/orms-api/internal/repository/memory"
	"github.com/jwalitptl/orms-api/internal/service/billing"
	"github.com/jwalitptl/orms-api/internal/service/event"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, middleware.RegisterValidators())

	now := time.Date(2026, 1, 26, 14, 30, 0, 0, time.Local)
	clock := func() time.Time { return now }

	store := memory.NewSeededStore()
	require.NoError(t, store.Patients().Create(context.Background(), &model.Patient{
		ID: "PAT-000001", FirstName: "Ana", LastName: "Cruz", Phone: "555-0101",
	}))

	svc := billing.NewService(store, event.NewEventService(), email.NewService(email.Config{}), metrics.New("test"), billing.Config{
		TaxRate:         0.10,
		DefaultDoctorID: "DOC-001",
	}).WithClock(clock)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	api := r.Group("/api", func(c *gin.Context) {
		c.Set(middleware.ContextAuth, model.AuthContext{UserID: 1, Username: "frontdesk", Role: model.RoleReceptionist})
	})
	NewHandler(svc, presenter.New(clock)).RegisterRoutes(api)
	return r
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) presenter.SubmittedInvoice {
	t.Helper()
	var out presenter.SubmittedInvoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func xray() map[string]interface{} {
	return map[string]interface{}{
		"patientId": "PAT-000001",
		"items":     []map[string]interface{}{{"description": "X-Ray", "quantity": 1, "unitPrice": 75}},
	}
}

func TestSubmitServiceRequest_CreateThenMerge(t *testing.T) {
	r := newTestRouter(t)

	w := send(r, http.MethodPost, "/api/invoices", xray())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.False(t, created.Merged)
	assert.Regexp(t, `^INV-[0-9A-F]{6}$`, created.ID)
	assert.Equal(t, 82.5, created.Total)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "Ana Cruz", created.PatientName)

	w = send(r, http.MethodPost, "/api/invoices", xray())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	merged := decode(t, w)
	assert.True(t, merged.Merged)
	assert.Equal(t, created.ID, merged.ID)
	require.Len(t, merged.Items, 1)
	assert.Equal(t, 2, merged.Items[0].Quantity)
	assert.Equal(t, 165.0, merged.Total)
}

func TestSubmitServiceRequest_Errors(t *testing.T) {
	r := newTestRouter(t)

	w := send(r, http.MethodPost, "/api/invoices", map[string]interface{}{"items": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Patient ID is required"}`, w.Body.String())

	w = send(r, http.MethodPost, "/api/invoices", map[string]interface{}{"patientId": "PAT-000001"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"At least one service item is required"}`, w.Body.String())

	body := xray()
	body["patientId"] = "PAT-FFFFFF"
	w = send(r, http.MethodPost, "/api/invoices", body)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Patient not found"}`, w.Body.String())
}

func TestGetAndListInvoices(t *testing.T) {
	r := newTestRouter(t)
	created := decode(t, send(r, http.MethodPost, "/api/invoices", xray()))

	w := send(r, http.MethodGet, "/api/invoices/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, created.ID, decode(t, w).ID)

	w = send(r, http.MethodGet, "/api/invoices/INV-000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Invoice not found"}`, w.Body.String())

	w = send(r, http.MethodGet, "/api/invoices?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []presenter.Invoice
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestUpdateInvoice(t *testing.T) {
	r := newTestRouter(t)
	created := decode(t, send(r, http.MethodPost, "/api/invoices", xray()))
	path := "/api/invoices/" + created.ID

	w := send(r, http.MethodPatch, path, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No fields to update"}`, w.Body.String())

	w = send(r, http.MethodPatch, path, map[string]interface{}{"paidDate": "last tuesday"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPatch, path, map[string]interface{}{"status": "paid", "paymentMethod": "Cash"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decode(t, w)
	assert.Equal(t, "paid", paid.Status)
	require.NotNil(t, paid.PaymentMethod)
	assert.Equal(t, "Cash", *paid.PaymentMethod)
	assert.NotNil(t, paid.PaidDate)
}
