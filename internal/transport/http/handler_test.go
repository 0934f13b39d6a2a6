package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/bcrypt"

	"survey-service/internal/app"
	"survey-service/internal/auth"
	"survey-service/internal/domain"
	"survey-service/internal/infra/memory"
)

const adminEmail = "owner@example.com"

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	ctx := context.Background()
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q1", Text: "Name", Type: domain.QuestionShortText, Order: 1})
	_ = store.CreateQuestion(ctx, domain.Question{ID: "q2", Text: "Colors", Type: domain.QuestionCheckbox, Options: []string{"Red", "Blue"}, Order: 2})

	tokens := auth.NewTokens("test-secret", "survey-test", memory.NewRevocationStore())
	settings := app.NewSettingsService(store, "").WithBcryptCost(bcrypt.MinCost)
	dashboard := app.NewDashboard(store, store)
	allow := auth.NewAllowlist([]string{adminEmail})

	handler := NewHandler(Services{
		Tokens:      tokens,
		Admin:       auth.NewAdminAuthenticator(allow, settings, tokens, time.Hour),
		Questions:   app.NewQuestionService(store, dashboard),
		Eligibility: app.NewEligibilityChecker(store, settings),
		Submissions: app.NewSubmissionService(store, store, dashboard),
		Settings:    settings,
		Dashboard:   dashboard,
	})
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)
	return &testEnv{server: server, store: store, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := e.tokens.Sign(domain.Identity{Email: email, Name: "Test"}, auth.RoleUser, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func validAnswers() map[string]any {
	return map[string]any{"answers": map[string]any{"q1": "Ann", "q2": []string{"Red"}}}
}

func TestSubmitThenRepeatIsRejected(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "user@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/survey/responses", tok, validAnswers())
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var stored domain.Response
	if err := json.Unmarshal(body, &stored); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stored.UserEmail != "user@example.com" || len(stored.Answers) != 2 {
		t.Fatalf("unexpected response: %+v", stored)
	}

	resp, body = env.do(t, http.MethodGet, "/api/survey/eligibility", tok, nil)
	var e app.Eligibility
	_ = json.Unmarshal(body, &e)
	if resp.StatusCode != http.StatusOK || e.CanSubmit || !e.HasResponded {
		t.Fatalf("unexpected eligibility %d: %s", resp.StatusCode, body)
	}

	resp, _ = env.do(t, http.MethodPost, "/api/survey/responses", tok, validAnswers())
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestSubmitValidationProblems(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "user@example.com")

	resp, body := env.do(t, http.MethodPost, "/api/survey/responses", tok, map[string]any{
		"answers": map[string]any{"q1": "", "q2": []string{"Green"}},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(eb.Problems) != 2 {
		t.Fatalf("expected 2 problems, got %+v", eb.Problems)
	}
	if n, _ := env.store.CountResponsesByEmail(context.Background(), "user@example.com"); n != 0 {
		t.Fatalf("expected nothing stored, got %d", n)
	}
}

func TestRequestsNeedValidToken(t *testing.T) {
	env := newTestEnv(t)
	if resp, _ := env.do(t, http.MethodGet, "/api/questions", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/questions", "garbage", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}

	tok := env.token(t, "user@example.com")
	resp, body := env.do(t, http.MethodGet, "/api/questions", tok, nil)
	var qs []domain.Question
	_ = json.Unmarshal(body, &qs)
	if resp.StatusCode != http.StatusOK || len(qs) != 2 || qs[0].ID != "q1" {
		t.Fatalf("unexpected questions %d: %s", resp.StatusCode, body)
	}
}

func TestSignOutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, "user@example.com")

	if resp, _ := env.do(t, http.MethodPost, "/api/signout", tok, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/me", tok, nil); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", resp.StatusCode)
	}
}

func TestAdminRoutesCheckAllowlist(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/admin/stats", env.token(t, "user@example.com"), nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}

	admin := env.token(t, strings.ToUpper(adminEmail))
	resp, body := env.do(t, http.MethodGet, "/api/me", admin, nil)
	var me meResponse
	_ = json.Unmarshal(body, &me)
	if resp.StatusCode != http.StatusOK || !me.IsAdmin {
		t.Fatalf("expected admin identity, got %d: %s", resp.StatusCode, body)
	}
	if resp, _ := env.do(t, http.MethodGet, "/api/admin/stats", admin, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for allowlisted identity, got %d", resp.StatusCode)
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Email: adminEmail, Password: "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Email: "user@example.com", Password: "admin123"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-allowlisted email, got %d", resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Email: adminEmail, Password: "admin123"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil || lr.Token == "" {
		t.Fatalf("expected token, got %s", body)
	}

	resp, _ = env.do(t, http.MethodPut, "/api/admin/settings/password", lr.Token, passwordRequest{CurrentPassword: "admin123", NewPassword: "s3cure-pass"})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/admin/login", "", loginRequest{Email: adminEmail, Password: "admin123"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected old password to fail, got %d", resp.StatusCode)
	}
}

func TestAdminQuestionCRUD(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, adminEmail)

	resp, body := env.do(t, http.MethodPost, "/api/admin/questions", admin, app.QuestionInput{
		Text: "Pick one", Type: domain.QuestionMultipleChoice, Options: []string{"Yes"}, Order: 3,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a single option, got %d: %s", resp.StatusCode, body)
	}

	resp, body = env.do(t, http.MethodPost, "/api/admin/questions", admin, app.QuestionInput{
		Text: "Pick one", Type: domain.QuestionMultipleChoice, Options: []string{"Yes", "No"}, Order: 3,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created domain.Question
	_ = json.Unmarshal(body, &created)
	if created.ID == "" {
		t.Fatalf("expected assigned id")
	}

	resp, _ = env.do(t, http.MethodPut, "/api/admin/questions/"+created.ID, admin, app.QuestionInput{
		Text: "Pick one please", Type: domain.QuestionMultipleChoice, Options: []string{"Yes", "No"}, Order: 0,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPut, "/api/admin/questions/missing", admin, app.QuestionInput{
		Text: "x", Type: domain.QuestionShortText,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	_, body = env.do(t, http.MethodGet, "/api/admin/questions", admin, nil)
	var qs []domain.Question
	_ = json.Unmarshal(body, &qs)
	if len(qs) != 3 || qs[0].ID != created.ID {
		t.Fatalf("expected updated question first, got %s", body)
	}

	if resp, _ := env.do(t, http.MethodDelete, "/api/admin/questions/"+created.ID, admin, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodDelete, "/api/admin/questions/"+created.ID, admin, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSettingsToggleAllowsRepeat(t *testing.T) {
	env := newTestEnv(t)
	admin := env.token(t, adminEmail)
	user := env.token(t, "user@example.com")

	if resp, _ := env.do(t, http.MethodPost, "/api/survey/responses", user, validAnswers()); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodPut, "/api/admin/settings", admin, map[string]any{}); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing value, got %d", resp.StatusCode)
	}
	resp, body := env.do(t, http.MethodPut, "/api/admin/settings", admin, map[string]any{"allow_multiple_responses": true})
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"allow_multiple_responses":true`) {
		t.Fatalf("unexpected settings update %d: %s", resp.StatusCode, body)
	}
	if strings.Contains(string(body), "password") {
		t.Fatalf("settings leaked password material: %s", body)
	}
	if resp, _ := env.do(t, http.MethodPost, "/api/survey/responses", user, validAnswers()); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected repeat to be accepted, got %d", resp.StatusCode)
	}

	_, body = env.do(t, http.MethodGet, "/api/admin/responses", admin, nil)
	var views []domain.ResponseView
	if err := json.Unmarshal(body, &views); err != nil || len(views) != 2 {
		t.Fatalf("expected 2 response views, got %s", body)
	}
}

func TestStatsFeedPushesUpdates(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/admin/stats?token=" + env.token(t, adminEmail)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readStats(t, conn)
	if initial.TotalResponses != 0 || initial.TotalQuestions != 2 {
		t.Fatalf("unexpected initial stats: %+v", initial)
	}

	if resp, _ := env.do(t, http.MethodPost, "/api/survey/responses", env.token(t, "user@example.com"), validAnswers()); resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	updated := readStats(t, conn)
	if updated.TotalResponses != 1 || updated.QuestionStats[0].Frequency["Ann"] != 1 {
		t.Fatalf("unexpected updated stats: %+v", updated)
	}
}

func TestStatsFeedRejectsNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/admin/stats?token=" + env.token(t, "user@example.com")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %v", resp)
	}
}

func readStats(t *testing.T, conn *websocket.Conn) domain.Stats {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg outboundMessage[domain.Stats]
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "stats" {
		t.Fatalf("expected stats message, got %s", msg.Type)
	}
	return msg.Payload
}
