package http

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"survey-service/internal/auth"
	"survey-service/internal/domain"
)

type claimsCtxKey struct{}

func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*auth.Claims)
	return c
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over connections that pass through withLogging.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// withLogging logs every request with its status and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// requireUser verifies the identity token and stores its claims in the request context.
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			writeError(w, domain.ErrUnauthorized)
			return
		}
		claims, err := h.tokens.Verify(r.Context(), tok)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), claimsCtxKey{}, claims)))
	}
}

// requireAdmin additionally checks the admin allowlist on every request.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !h.admin.IsAdmin(claimsFrom(r.Context())) {
			writeError(w, domain.ErrForbidden)
			return
		}
		next(w, r)
	})
}

type errorBody struct {
	Error    string           `json:"error"`
	Message  string           `json:"message"`
	Problems []domain.Problem `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// writeError maps domain errors to a status code and a short human-readable message.
func writeError(w http.ResponseWriter, err error) {
	status, message := classify(err)
	body := errorBody{Error: http.StatusText(status), Message: message}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.Problems = verr.Problems
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "status", status, "error", err)
	} else {
		slog.Debug("request rejected", "status", status, "error", err)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, string) {
	var (
		verr *domain.ValidationError
		serr *domain.StoreError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "please check your answers and try again"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAlreadyResponded):
		return http.StatusConflict, "you have already answered this survey"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid email or password"
	case errors.Is(err, domain.ErrTokenRevoked), errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "please sign in"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "administrator access required"
	case errors.As(err, &serr):
		return http.StatusServiceUnavailable, "storage is unavailable, please retry"
	default:
		return http.StatusInternalServerError, "something went wrong"
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		verr := &domain.ValidationError{}
		verr.Add("", "body", "invalid JSON payload")
		return verr
	}
	return nil
}
