package patient

import (
	"bytes"
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
	patientsvc "github.com/jwalitptl/orms-api/internal/service/patient"
	"github.com/jwalitptl/orms-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *memory.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	require.NoError(t, middleware.RegisterValidators())

	now := time.Date(2026, 1, 26, 14, 30, 0, 0, time.Local)
	clock := func() time.Time { return now }

	store := memory.NewSeededStore()
	events := event.NewEventService()
	patients := patientsvc.NewService(store, events, patientsvc.Config{
		TaxRate:                   0.10,
		ConsultationFallbackPrice: 150,
	}).WithClock(clock)
	visits := billing.NewService(store, events, email.NewService(email.Config{}), metrics.New("test"), billing.Config{
		TaxRate:         0.10,
		DefaultDoctorID: "DOC-001",
	}).WithClock(clock)

	r := gin.New()
	r.Use(middleware.ErrorHandler())
	api := r.Group("/api", func(c *gin.Context) {
		role := c.GetHeader("X-Test-Role")
		if role == "" {
			role = model.RoleReceptionist
		}
		c.Set(middleware.ContextAuth, model.AuthContext{UserID: 1, Username: "tester", Role: role})
	})
	NewHandler(patients, visits, presenter.New(clock)).RegisterRoutes(api)

	return &testEnv{router: r, store: store}
}

func (e *testEnv) send(method, path string, body interface{}, role string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set("X-Test-Role", role)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) register(t *testing.T) registrationResponse {
	t.Helper()
	w := e.send(http.MethodPost, "/api/patients", map[string]interface{}{
		"firstName":      "Ana",
		"lastName":       "Cruz",
		"dateOfBirth":    "1990-05-01",
		"gender":         "female",
		"sex":            "female",
		"phone":          "555-0101",
		"assignedDoctor": "Attending Physician",
		"medicalNotes":   "allergic to penicillin",
	}, "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var out registrationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreatePatient(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t)

	assert.Regexp(t, `^PAT-[0-9A-F]{6}$`, reg.Patient.ID)
	assert.Equal(t, "Ana Cruz", reg.Patient.Name)
	assert.Equal(t, "waiting", reg.Patient.Status)
	assert.Equal(t, 35, *reg.Patient.Age)
	assert.True(t, reg.Patient.IsNew)
	require.NotNil(t, reg.Patient.AssignedDoctor)
	assert.Equal(t, "Attending Physician", *reg.Patient.AssignedDoctor)

	assert.Equal(t, reg.Patient.ID, reg.Invoice.PatientID)
	require.Len(t, reg.Invoice.Items, 1)
	assert.Equal(t, "Consultation Fee", reg.Invoice.Items[0].Description)
	assert.Equal(t, 165.0, reg.Invoice.Total)
}

func TestCreatePatient_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.send(http.MethodPost, "/api/patients", map[string]interface{}{
		"lastName": "Cruz", "dateOfBirth": "1990-05-01", "gender": "female", "phone": "555",
	}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"firstName is required"}`, w.Body.String())

	w = env.send(http.MethodPost, "/api/patients", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Request body is required"}`, w.Body.String())
}

func TestGetPatient_NotFound(t *testing.T) {
	env := newTestEnv(t)

	w := env.send(http.MethodGet, "/api/patients/PAT-FFFFFF", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Patient not found"}`, w.Body.String())
}

func TestListQueueAndStats(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t)

	w := env.send(http.MethodGet, "/api/patients?search=ana", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []presenter.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, reg.Patient.ID, list[0].ID)

	w = env.send(http.MethodGet, "/api/patients/queue", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = env.send(http.MethodGet, "/api/dashboard/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total":1,"checkedIn":0,"waiting":1,"completed":0,"newToday":1}`, w.Body.String())
}

func TestUpdateVisitStatus(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t)
	path := "/api/patients/" + reg.Patient.ID + "/status"

	w := env.send(http.MethodPatch, path, map[string]interface{}{"status": "discharged"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid status"}`, w.Body.String())

	w = env.send(http.MethodPatch, path, map[string]interface{}{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Status is required"}`, w.Body.String())

	w = env.send(http.MethodPatch, path, map[string]interface{}{"status": "checked-in"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p presenter.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "checked-in", p.Status)
	assert.NotNil(t, p.CheckInTime)
}

func TestUpdatePatient(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t)

	w := env.send(http.MethodPatch, "/api/patients/"+reg.Patient.ID, map[string]interface{}{
		"name":  "Ana Maria Cruz",
		"phone": "555-0199",
	}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var p presenter.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	assert.Equal(t, "Ana Maria Cruz", p.Name)
	assert.Equal(t, "555-0199", p.Phone)
}

func TestVisitsAndFollowUp(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t)

	w := env.send(http.MethodGet, "/api/patients/"+reg.Patient.ID+"/visits", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var visits []presenter.Visit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &visits))
	require.Len(t, visits, 1)
	assert.Equal(t, "waiting", visits[0].Status)

	w = env.send(http.MethodGet, "/api/patients/"+reg.Patient.ID+"/followup-check", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"hasFollowUp":false,"visitId":null,"visitDate":null,"chiefComplaint":null,"doctor":null}`, w.Body.String())

	w = env.send(http.MethodGet, "/api/patients/PAT-FFFFFF/visits", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePatient(t *testing.T) {
	env := newTestEnv(t)
	reg := env.register(t)
	path := "/api/patients/" + reg.Patient.ID

	w := env.send(http.MethodDelete, path, nil, model.RoleReceptionist)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"message":"Patient deleted successfully"}`, w.Body.String())
	assert.Equal(t, 0, env.store.Counts()["patients"])

	w = env.send(http.MethodDelete, path, nil, model.RoleReceptionist)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
