package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"jailroster/internal/app"
	"jailroster/pkg/auth"
	"jailroster/pkg/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	directory, err := auth.SeedDefaults()
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}
	appCore := app.New(store.NewMemoryStore(), nil, nil, nil, "Shaker Heights Police", -1)
	sessions := auth.NewSessionManager(store.NewMemorySessionStore(), "test-secret", time.Hour)
	return New(Config{
		App:        appCore,
		Directory:  directory,
		Sessions:   sessions,
		SessionTTL: time.Hour,
	})
}

func login(t *testing.T, s *Server, username, password string) *http.Cookie {
	t.Helper()
	body := fmt.Sprintf(`{"username":%q,"password":%q}`, username, password)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func doJSON(s *Server, method, path string, cookie *http.Cookie, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(s, http.MethodGet, "/api/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestRosterRequiresAuth(t *testing.T) {
	s := newTestServer(t)
	rec := doJSON(s, http.MethodGet, "/api/roster", nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	s := newTestServer(t)

	var bodies []string
	for _, creds := range []string{
		`{"username":"admin","password":"wrong"}`,
		`{"username":"ghost","password":"admin123"}`,
	} {
		rec := doJSON(s, http.MethodPost, "/api/auth/login", nil, creds)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("error bodies differ: %q vs %q", bodies[0], bodies[1])
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s, "supervisor", "supervisor123")

	rec := doJSON(s, http.MethodPost, "/api/roster", cookie,
		`{"name":"John Doe","charges":"theft","bond":"$5,000"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("create response: %s", rec.Body.String())
	}

	rec = doJSON(s, http.MethodGet, "/api/roster/"+created.ID, cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(s, http.MethodPut, "/api/roster/"+created.ID, cookie, `{"bond":"$10,000"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Name    string `json:"name"`
		Charges string `json:"charges"`
		Bond    string `json:"bond"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("update response: %v", err)
	}
	if updated.Bond != "$10,000" || updated.Name != "John Doe" || updated.Charges != "theft" {
		t.Errorf("merge lost fields: %+v", updated)
	}

	rec = doJSON(s, http.MethodDelete, "/api/roster/"+created.ID, cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(s, http.MethodDelete, "/api/roster/"+created.ID, cookie, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestOfficerCannotDelete(t *testing.T) {
	s := newTestServer(t)
	supervisor := login(t, s, "supervisor", "supervisor123")
	officer := login(t, s, "officer", "officer123")

	rec := doJSON(s, http.MethodPost, "/api/roster", supervisor, `{"name":"John Doe"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &created)

	rec = doJSON(s, http.MethodDelete, "/api/roster/"+created.ID, officer, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("officer delete status = %d, want 403", rec.Code)
	}
}

func TestAdministratorPassesSupervisorGate(t *testing.T) {
	s := newTestServer(t)
	admin := login(t, s, "admin", "admin123")
	officer := login(t, s, "officer", "officer123")

	// Admin clears the role gate and fails later on the missing upload.
	rec := doJSON(s, http.MethodPost, "/api/roster/import", admin, "")
	if rec.Code == http.StatusForbidden || rec.Code == http.StatusUnauthorized {
		t.Errorf("admin blocked by supervisor gate: %d", rec.Code)
	}

	rec = doJSON(s, http.MethodPost, "/api/roster/import", officer, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("officer import status = %d, want 403", rec.Code)
	}
}

func TestClearRequiresAdministrator(t *testing.T) {
	s := newTestServer(t)
	supervisor := login(t, s, "supervisor", "supervisor123")
	admin := login(t, s, "admin", "admin123")

	rec := doJSON(s, http.MethodPost, "/api/roster/clear", supervisor, "")
	if rec.Code != http.StatusForbidden {
		t.Errorf("supervisor clear status = %d, want 403", rec.Code)
	}
	rec = doJSON(s, http.MethodPost, "/api/roster/clear", admin, "")
	if rec.Code != http.StatusOK {
		t.Errorf("admin clear status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestExportExcelEmptyRefused(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s, "officer", "officer123")
	rec := doJSON(s, http.MethodGet, "/api/roster/export", cookie, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestExportPDFEmptyAllowed(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s, "officer", "officer123")
	rec := doJSON(s, http.MethodGet, "/api/roster/export/pdf", cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Error("body is not a PDF")
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s, "officer", "officer123")

	rec := doJSON(s, http.MethodGet, "/api/auth/me", cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("me before logout: %d", rec.Code)
	}

	rec = doJSON(s, http.MethodPost, "/api/auth/logout", cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}

	rec = doJSON(s, http.MethodGet, "/api/auth/me", cookie, "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me after logout = %d, want 401", rec.Code)
	}
}

func TestChangePasswordRoute(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s, "officer", "officer123")

	rec := doJSON(s, http.MethodPost, "/api/auth/change-password", cookie,
		`{"currentPassword":"officer123","newPassword":"longenough"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("change status = %d: %s", rec.Code, rec.Body.String())
	}
	login(t, s, "officer", "longenough")
}

func TestMeReturnsSessionUser(t *testing.T) {
	s := newTestServer(t)
	cookie := login(t, s, "admin", "admin123")

	rec := doJSON(s, http.MethodGet, "/api/auth/me", cookie, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		User struct {
			Username string `json:"username"`
			Role     string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.User.Username != "admin" || resp.User.Role != "administrator" {
		t.Errorf("user = %+v", resp.User)
	}
}
