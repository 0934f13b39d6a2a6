package http

import (
	"errors"
	"log/slog"
	"net/http"

	"survey-service/internal/app"
	"survey-service/internal/auth"
	"survey-service/internal/domain"
)

// Services groups the use cases exposed over HTTP.
type Services struct {
	Tokens      *auth.Tokens
	Admin       *auth.AdminAuthenticator
	Questions   *app.QuestionService
	Eligibility *app.EligibilityChecker
	Submissions *app.SubmissionService
	Settings    *app.SettingsService
	Dashboard   *app.Dashboard
}

// Handler serves the survey JSON API and the live dashboard feed.
type Handler struct {
	tokens      *auth.Tokens
	admin       *auth.AdminAuthenticator
	questions   *app.QuestionService
	eligibility *app.EligibilityChecker
	submissions *app.SubmissionService
	settings    *app.SettingsService
	dashboard   *app.Dashboard
	stats       *StatsFeed
}

func NewHandler(s Services) *Handler {
	h := &Handler{
		tokens:      s.Tokens,
		admin:       s.Admin,
		questions:   s.Questions,
		eligibility: s.Eligibility,
		submissions: s.Submissions,
		settings:    s.Settings,
		dashboard:   s.Dashboard,
	}
	h.stats = NewStatsFeed(s.Dashboard, s.Tokens, s.Admin)
	return h
}

// Routes builds the request multiplexer.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /api/me", h.requireUser(h.me))
	mux.HandleFunc("POST /api/signout", h.requireUser(h.signOut))
	mux.HandleFunc("GET /api/questions", h.requireUser(h.listQuestions))
	mux.HandleFunc("GET /api/survey/eligibility", h.requireUser(h.checkEligibility))
	mux.HandleFunc("POST /api/survey/responses", h.requireUser(h.submit))

	mux.HandleFunc("POST /api/admin/login", h.adminLogin)
	mux.HandleFunc("GET /api/admin/stats", h.requireAdmin(h.adminStats))
	mux.HandleFunc("GET /api/admin/responses", h.requireAdmin(h.adminResponses))
	mux.HandleFunc("GET /api/admin/questions", h.requireAdmin(h.listQuestions))
	mux.HandleFunc("POST /api/admin/questions", h.requireAdmin(h.createQuestion))
	mux.HandleFunc("PUT /api/admin/questions/{id}", h.requireAdmin(h.updateQuestion))
	mux.HandleFunc("DELETE /api/admin/questions/{id}", h.requireAdmin(h.deleteQuestion))
	mux.HandleFunc("GET /api/admin/settings", h.requireAdmin(h.getSettings))
	mux.HandleFunc("PUT /api/admin/settings", h.requireAdmin(h.updateSettings))
	mux.HandleFunc("PUT /api/admin/settings/password", h.requireAdmin(h.changePassword))

	mux.HandleFunc("GET /ws/admin/stats", h.stats.ServeWS)
	return withLogging(mux)
}

type meResponse struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	IsAdmin bool   `json:"is_admin"`
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r.Context())
	writeJSON(w, http.StatusOK, meResponse{
		Email:   claims.Email,
		Name:    claims.Name,
		IsAdmin: h.admin.IsAdmin(claims),
	})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.tokens.Revoke(r.Context(), claimsFrom(r.Context())); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.questions.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) checkEligibility(w http.ResponseWriter, r *http.Request) {
	e, err := h.eligibility.Check(r.Context(), claimsFrom(r.Context()).Identity())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

type submitRequest struct {
	Answers map[string]domain.AnswerInput `json:"answers"`
}

// submit gates the write on eligibility. Two concurrent submissions from one identity can both pass.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	identity := claimsFrom(r.Context()).Identity()

	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.eligibility.Check(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	if !e.CanSubmit {
		writeError(w, domain.ErrAlreadyResponded)
		return
	}

	resp, err := h.submissions.Submit(r.Context(), identity, req.Answers)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := h.admin.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token})
}

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboard.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) adminResponses(w http.ResponseWriter, r *http.Request) {
	views, err := h.dashboard.Responses(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.questions.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var in app.QuestionInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	q, err := h.questions.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.questions.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type settingsRequest struct {
	AllowMultipleResponses *bool `json:"allow_multiple_responses"`
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.AllowMultipleResponses == nil {
		verr := &domain.ValidationError{}
		verr.Add("", "allow_multiple_responses", "value is required")
		writeError(w, verr)
		return
	}
	s, err := h.settings.SetAllowMultipleResponses(r.Context(), *req.AllowMultipleResponses)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	err := h.settings.ChangeAdminPassword(r.Context(), req.CurrentPassword, req.NewPassword)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		slog.Warn("admin password change rejected", "email", claimsFrom(r.Context()).Email)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
