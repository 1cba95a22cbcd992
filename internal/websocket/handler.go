package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const defaultMaxMessageBytes = 8 << 20

type HandlerOptions struct {
	// AllowedOrigins lists browser origins permitted to connect; "*" or an
	// empty list allows any.
	AllowedOrigins  []string
	MaxMessageBytes int64
	Logger          *slog.Logger
}

type Handler struct {
	hub             *Hub
	events          EventHandler
	upgrader        websocket.Upgrader
	maxMessageBytes int64
	log             *slog.Logger
}

func NewHandler(h *Hub, events EventHandler, opts HandlerOptions) *Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	maxBytes := opts.MaxMessageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxMessageBytes
	}

	return &Handler{
		hub:    h,
		events: events,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
		maxMessageBytes: maxBytes,
		log:             log,
	}
}

// ServeWS upgrades the request and admits the client. The token is taken
// before the upgrade since headers are unavailable afterwards.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	token := TokenFromRequest(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", "error", err, "origin", r.Header.Get("Origin"))
		return
	}

	cl := newClient(conn, h.hub, uuid.NewString(), h.log)
	h.hub.Register(cl)
	h.events.Connect(cl, token)

	go cl.keepAlive()
	go cl.writeMessage()
	go cl.readMessage(h.events, h.maxMessageBytes)
}

// TokenFromRequest reads the handshake token from the token query parameter,
// falling back to a bearer Authorization header.
func TokenFromRequest(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

func originChecker(allowed []string) func(*http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[origin] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}
