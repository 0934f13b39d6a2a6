package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"survey-service/internal/app"
	"survey-service/internal/auth"
	"survey-service/internal/domain"
)

// StatsFeed streams dashboard statistics to administrators over a websocket.
type StatsFeed struct {
	dashboard *app.Dashboard
	tokens    auth.Provider
	admin     *auth.AdminAuthenticator
	upgrader  websocket.Upgrader
}

func NewStatsFeed(dashboard *app.Dashboard, tokens auth.Provider, admin *auth.AdminAuthenticator) *StatsFeed {
	return &StatsFeed{
		dashboard: dashboard,
		tokens:    tokens,
		admin:     admin,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS authenticates the admin from the token query parameter, then pushes a stats
// snapshot immediately and again after every submission or question change.
func (f *StatsFeed) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		writeError(w, domain.ErrUnauthorized)
		return
	}
	claims, err := f.tokens.Verify(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	if !f.admin.IsAdmin(claims) {
		writeError(w, domain.ErrForbidden)
		return
	}

	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	// the feed is long-lived; drop the server's per-request deadlines
	_ = conn.UnderlyingConn().SetDeadline(time.Time{})

	updates, cancel, err := f.dashboard.Subscribe(r.Context())
	if err != nil {
		_, message := classify(err)
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
		return
	}
	defer cancel()

	// The reader only watches for the client going away; the feed is push-only.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case stats, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.Stats]{Type: "stats", Payload: stats}); err != nil {
				slog.Warn("ws write error", "error", err)
				return
			}
		case <-closed:
			return
		}
	}
}
