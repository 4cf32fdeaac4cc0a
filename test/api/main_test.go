package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/orms-api/internal/app"
	"github.com/jwalitptl/orms-api/internal/config"
	"github.com/jwalitptl/orms-api/internal/model"
	"github.com/jwalitptl/orms-api/internal/repository/memory"
	"github.com/jwalitptl/orms-api/pkg/logger"
	"github.com/jwalitptl/orms-api/pkg/security"
)

const (
	adminEmail        = "admin@hospital.com"
	receptionistEmail = "receptionist@hospital.com"
	testPassword      = "password123"
)

var (
	server *httptest.Server
	store  *memory.Store
)

// Response holds the decoded body of an API call.
type Response struct {
	Code    int
	Body    map[string]interface{}
	List    []interface{}
	RawData []byte
}

func (r Response) GetString(key string) string {
	if v, ok := r.Body[key].(string); ok {
		return v
	}
	return ""
}

func (r Response) Error() string {
	return r.GetString("error")
}

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Server:  config.ServerConfig{Mode: gin.TestMode, TimeoutSeconds: 10, MaxBodyBytes: 1 << 20},
		JWT:     config.JWTConfig{Secret: "e2e-secret", ExpiryHours: 1},
		Billing: config.BillingConfig{TaxRate: 0.10, DefaultDoctorID: "DOC-001", ConsultationFallbackPrice: 150},
	}
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Format: logger.FormatJSON, Output: io.Discard})

	store = memory.NewSeededStore()
	if err := seedUsers(store); err != nil {
		fmt.Fprintf(os.Stderr, "seed users: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(cfg, store, log, app.Options{BcryptCost: 4})
	if err != nil {
		fmt.Fprintf(os.Stderr, "build app: %v\n", err)
		os.Exit(1)
	}
	server = httptest.NewServer(a.Router.Handler())

	code := m.Run()
	server.Close()
	os.Exit(code)
}

func seedUsers(s *memory.Store) error {
	hash, err := security.NewBcryptHasher(4).Hash(testPassword)
	if err != nil {
		return err
	}
	s.AddUser(model.User{Username: adminEmail, PasswordHash: hash, Role: model.RoleAdmin, IsActive: true})
	s.AddUser(model.User{Username: receptionistEmail, PasswordHash: hash, Role: model.RoleReceptionist, IsActive: true})
	return nil
}

func makeRequest(t *testing.T, method, path string, body interface{}, token string) Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}

	out := Response{Code: resp.StatusCode, RawData: raw}
	if len(raw) > 0 && raw[0] == '[' {
		json.Unmarshal(raw, &out.List)
	} else {
		json.Unmarshal(raw, &out.Body)
	}
	return out
}

func login(t *testing.T, email string) string {
	t.Helper()
	resp := makeRequest(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": testPassword,
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, resp.Code, resp.RawData)
	}
	return resp.GetString("token")
}
