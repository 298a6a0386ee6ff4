package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dcpr.org/internal/auth"
	"dcpr.org/internal/dcpr"
	"dcpr.org/internal/notify"
	"dcpr.org/internal/stream"
)

type testEnv struct {
	api    *API
	tokens *auth.Tokens
	dir    *auth.InMemoryDirectory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := auth.NewInMemoryDirectory()
	tokens, err := auth.NewTokens("handler-test-secret", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	svc := dcpr.NewService(dcpr.NewInMemory(),
		dcpr.WithQueue(notify.NewQueue(notify.NewInMemoryJobStore())),
	)
	api := New(Options{
		Service:   svc,
		Directory: dir,
		Tokens:    tokens,
		Stream:    stream.New(),
		Version:   "test",
	})
	return &testEnv{api: api, tokens: tokens, dir: dir}
}

func (e *testEnv) token(t *testing.T, p auth.Principal) string {
	t.Helper()
	token, _, err := e.tokens.Issue(p)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.api.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeRequest(t *testing.T, rr *httptest.ResponseRecorder) dcpr.Request {
	t.Helper()
	var req dcpr.Request
	if err := json.Unmarshal(rr.Body.Bytes(), &req); err != nil {
		t.Fatalf("decode request: %v (%s)", err, rr.Body.String())
	}
	return req
}

var createBody = map[string]any{
	"proposed_project_name":      "Coastal erosion aerial capture",
	"additional_project_context": "Annual capture season baseline",
	"capture_start_date":         "2026-10-01",
	"capture_end_date":           "2026-12-15",
	"cost_estimate":              250000,
}

func TestWorkflowOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, auth.Principal{UserID: "alice", Organizations: []string{"metro-planning"}})
	reviewer := env.token(t, auth.Principal{UserID: "bob", Organizations: []string{"NSIF"}})
	moderator := env.token(t, auth.Principal{UserID: "carol", Organizations: []string{"CSI"}})

	rr := env.do(t, http.MethodPost, "/v1/dcpr/requests", owner, createBody)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	created := decodeRequest(t, rr)
	if created.Status != dcpr.StatusUnderPreparation {
		t.Fatalf("created status: %s", created.Status)
	}
	if loc := rr.Header().Get("Location"); loc != "/v1/dcpr/requests/"+created.ReferenceID {
		t.Fatalf("location: %q", loc)
	}
	base := "/v1/dcpr/requests/" + created.ReferenceID

	rr = env.do(t, http.MethodPost, base+"/submit", owner, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("submit: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, base+"/claim/nsif", reviewer, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("claim: %d %s", rr.Code, rr.Body.String())
	}
	if got := decodeRequest(t, rr); got.NSIFReviewer != "bob" {
		t.Fatalf("reviewer: %q", got.NSIFReviewer)
	}

	rr = env.do(t, http.MethodPost, base+"/moderate/nsif", reviewer, map[string]any{
		"action": "APPROVE",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("nsif approve: %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(t, http.MethodPost, base+"/claim/csi", moderator, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("csi claim: %d %s", rr.Code, rr.Body.String())
	}
	rr = env.do(t, http.MethodPost, base+"/moderate/csi", moderator, map[string]any{
		"action": "APPROVE",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("csi approve: %d %s", rr.Code, rr.Body.String())
	}
	if got := decodeRequest(t, rr); got.Status != dcpr.StatusAccepted {
		t.Fatalf("final status: %s", got.Status)
	}

	// Accepted requests are public: no token needed.
	rr = env.do(t, http.MethodGet, base, "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public show: %d", rr.Code)
	}
	rr = env.do(t, http.MethodGet, base+"/activities", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("public activities: %d", rr.Code)
	}
	var acts listActivitiesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &acts); err != nil {
		t.Fatalf("decode activities: %v", err)
	}
	if len(acts.Items) != 6 {
		t.Fatalf("expected 6 activities, got %d", len(acts.Items))
	}
}

func TestCreateRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodPost, "/v1/dcpr/requests", "", createBody)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestCreateValidationErrorListsFields(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, auth.Principal{UserID: "alice", Organizations: []string{"metro-planning"}})

	rr := env.do(t, http.MethodPost, "/v1/dcpr/requests", owner, map[string]any{
		"proposed_project_name": "x",
		"cost_estimate":         -1,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Fields) == 0 {
		t.Fatalf("expected field errors, got %s", rr.Body.String())
	}
}

func TestModerateByStrangerIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner := env.token(t, auth.Principal{UserID: "alice", Organizations: []string{"metro-planning"}})
	reviewer := env.token(t, auth.Principal{UserID: "bob", Organizations: []string{"NSIF"}})
	stranger := env.token(t, auth.Principal{UserID: "mallory", Organizations: []string{"NSIF"}})

	rr := env.do(t, http.MethodPost, "/v1/dcpr/requests", owner, createBody)
	created := decodeRequest(t, rr)
	base := "/v1/dcpr/requests/" + created.ReferenceID
	env.do(t, http.MethodPost, base+"/submit", owner, nil)
	env.do(t, http.MethodPost, base+"/claim/nsif", reviewer, nil)

	rr = env.do(t, http.MethodPost, base+"/moderate/nsif", stranger, map[string]any{"action": "APPROVE"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestUnknownReviewBodyIs404(t *testing.T) {
	env := newTestEnv(t)
	reviewer := env.token(t, auth.Principal{UserID: "bob", Organizations: []string{"NSIF"}})
	rr := env.do(t, http.MethodPost, "/v1/dcpr/requests/DCPR-X/claim/fbi", reviewer, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestShowUnknownRequestIs404(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/v1/dcpr/requests/DCPR-MISSING", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestAuthTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	hash, err := auth.HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	user := &auth.User{Name: "bob", PasswordHash: hash}
	if err := env.dir.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}
	org := &auth.Organization{Name: "NSIF"}
	if err := env.dir.CreateOrganization(ctx, org); err != nil {
		t.Fatal(err)
	}
	if err := env.dir.AddMember(ctx, auth.Membership{UserID: user.ID, OrganizationID: org.ID}); err != nil {
		t.Fatal(err)
	}

	rr := env.do(t, http.MethodPost, "/v1/auth/token", "", map[string]any{
		"name":     "bob",
		"password": "hunter2",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("token: %d %s", rr.Code, rr.Body.String())
	}
	var resp tokenResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	principal, err := env.tokens.Verify(resp.Token)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if principal.UserID != user.ID || !principal.MemberOf("NSIF") {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	rr = env.do(t, http.MethodPost, "/v1/auth/token", "", map[string]any{
		"name":     "bob",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestHealthAndInfoArePublic(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/healthz", "/readyz", "/v1/info", "/openapi.yaml"} {
		rr := env.do(t, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: %d", path, rr.Code)
		}
	}
}
