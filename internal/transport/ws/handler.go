package ws

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gridwise/layout-backend/internal/auth"
	"github.com/gridwise/layout-backend/internal/config"
	"github.com/gridwise/layout-backend/pkg/ctxutil"
)

// tokenValidator validates access tokens presented on connection upgrade.
type tokenValidator interface {
	ValidateAccessToken(token string) (auth.Identity, error)
}

// Handler upgrades GET /ws/layouts/{layout_id} to a websocket session.
// Each connection gets a fresh server-assigned session id; all presence and
// locks tied to it are torn down when the connection closes.
type Handler struct {
	hub      *Hub
	collab   collabService
	tokens   tokenValidator
	cfg      config.ChannelConfig
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket Handler.
func NewHandler(
	log *slog.Logger,
	hub *Hub,
	collabSvc collabService,
	tokens tokenValidator,
	cfg config.ChannelConfig,
	cors config.CORSConfig,
) *Handler {
	return &Handler{
		hub:    hub,
		collab: collabSvc,
		tokens: tokens,
		cfg:    cfg,
		log:    log.With("handler", "ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cors.AllowedOrigins),
		},
	}
}

// ServeHTTP authenticates, upgrades, and runs the connection's pumps until
// the client goes away.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	layoutID, err := uuid.Parse(r.PathValue("layout_id"))
	if err != nil {
		http.Error(w, "invalid layout id", http.StatusBadRequest)
		return
	}

	identity, err := h.tokens.ValidateAccessToken(connectionToken(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.log.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	sessionID := uuid.New()
	ctx := ctxutil.WithUserID(r.Context(), identity.UserID)
	ctx = ctxutil.WithTenantID(ctx, identity.TenantID)
	ctx = ctxutil.WithSessionID(ctx, sessionID)

	client := &Client{
		hub:       h.hub,
		conn:      conn,
		collab:    h.collab,
		cfg:       h.cfg,
		log:       h.log,
		layoutID:  layoutID,
		sessionID: sessionID,
		ctx:       ctx,
		send:      make(chan []byte, h.cfg.SendBufferSize),
	}

	h.hub.register(client)
	h.log.InfoContext(ctx, "session connected",
		slog.String("layout_id", layoutID.String()),
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", identity.UserID.String()),
	)

	go client.writePump()
	client.readPump()

	h.hub.unregister(client)
	close(client.send)
	h.collab.DisconnectSession(sessionID)
	h.log.InfoContext(ctx, "session disconnected",
		slog.String("layout_id", layoutID.String()),
		slog.String("session_id", sessionID.String()),
	)
}

// connectionToken reads the access token from the Authorization header, or
// from the token query parameter for browser clients that cannot set headers
// on websocket upgrades.
func connectionToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func originChecker(allowed string) func(r *http.Request) bool {
	if allowed == "*" {
		return func(*http.Request) bool { return true }
	}
	origins := strings.Split(allowed, ",")
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range origins {
			if strings.EqualFold(strings.TrimSpace(o), origin) {
				return true
			}
		}
		return false
	}
}
