package api_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerPatient(t *testing.T, token string) (patientID, invoiceID string) {
	t.Helper()
	resp := makeRequest(t, http.MethodPost, "/api/patients", map[string]interface{}{
		"firstName":      "Juan",
		"lastName":       fmt.Sprintf("Dela Cruz %d", time.Now().UnixNano()),
		"dateOfBirth":    "1985-03-14",
		"gender":         "male",
		"sex":            "male",
		"phone":          "555-0199",
		"assignedDoctor": "Attending Physician",
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.RawData))

	patient, ok := resp.Body["patient"].(map[string]interface{})
	require.True(t, ok)
	invoice, ok := resp.Body["invoice"].(map[string]interface{})
	require.True(t, ok)
	return patient["id"].(string), invoice["id"].(string)
}

func TestPublicEndpoints(t *testing.T) {
	resp := makeRequest(t, http.MethodGet, "/api/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "connected", resp.GetString("database"))

	resp = makeRequest(t, http.MethodGet, "/api/nowhere", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "Endpoint not found", resp.Error())

	resp = makeRequest(t, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, string(resp.RawData), "go_goroutines")
}

func TestAuthentication(t *testing.T) {
	resp := makeRequest(t, http.MethodGet, "/api/patients", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = makeRequest(t, http.MethodGet, "/api/patients", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = makeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": adminEmail, "password": "wrong-password",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Invalid credentials", resp.Error())

	token := login(t, adminEmail)
	resp = makeRequest(t, http.MethodGet, "/api/auth/verify", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, true, resp.Body["valid"])
}

func TestVisitBillingFlow(t *testing.T) {
	token := login(t, receptionistEmail)
	patientID, invoiceID := registerPatient(t, token)

	// A same-day service request folds into the registration invoice.
	resp := makeRequest(t, http.MethodPost, "/api/invoices", map[string]interface{}{
		"patientId": patientID,
		"items": []map[string]interface{}{
			{"description": "Blood Test", "quantity": 1, "unitPrice": 50},
		},
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.RawData))
	assert.Equal(t, invoiceID, resp.GetString("id"))
	assert.Equal(t, true, resp.Body["merged"])
	assert.Equal(t, 220.0, resp.Body["total"])

	resp = makeRequest(t, http.MethodPatch, "/api/patients/"+patientID+"/status", map[string]interface{}{
		"status": "checked-in",
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.RawData))

	resp = makeRequest(t, http.MethodPatch, "/api/patients/"+patientID+"/status", map[string]interface{}{
		"status": "discharged",
	}, token)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "Invalid status", resp.Error())

	resp = makeRequest(t, http.MethodPatch, "/api/invoices/"+invoiceID, map[string]interface{}{
		"status": "paid", "paymentMethod": "Cash",
	}, token)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.RawData))
	assert.Equal(t, "paid", resp.GetString("status"))
	assert.Equal(t, "Cash", resp.GetString("paymentMethod"))

	// Once paid, the next request opens a new invoice.
	resp = makeRequest(t, http.MethodPost, "/api/invoices", map[string]interface{}{
		"patientId": patientID,
		"items": []map[string]interface{}{
			{"description": "X-Ray", "quantity": 1, "unitPrice": 75},
		},
	}, token)
	require.Equal(t, http.StatusCreated, resp.Code, string(resp.RawData))
	assert.NotEqual(t, invoiceID, resp.GetString("id"))
	assert.Equal(t, false, resp.Body["merged"])

	resp = makeRequest(t, http.MethodGet, "/api/patients/"+patientID+"/visits", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotEmpty(t, resp.List)

	resp = makeRequest(t, http.MethodGet, "/api/patients/"+patientID+"/followup-check", nil, token)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestDeletePatient(t *testing.T) {
	receptionist := login(t, receptionistEmail)
	patientID, _ := registerPatient(t, receptionist)

	resp := makeRequest(t, http.MethodDelete, "/api/patients/"+patientID, nil, receptionist)
	require.Equal(t, http.StatusOK, resp.Code, string(resp.RawData))
	assert.Equal(t, "Patient deleted successfully", resp.GetString("message"))

	resp = makeRequest(t, http.MethodGet, "/api/patients/"+patientID, nil, receptionist)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = makeRequest(t, http.MethodDelete, "/api/patients/"+patientID, nil, receptionist)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestReferenceData(t *testing.T) {
	token := login(t, receptionistEmail)

	resp := makeRequest(t, http.MethodGet, "/api/payment-methods", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.List, "Cash")

	resp = makeRequest(t, http.MethodGet, "/api/dashboard/stats", nil, token)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body, "newToday")
}
