package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/cors"

	"github.com/JaykaiDos/signaling-server/internal/metrics"
	"github.com/JaykaiDos/signaling-server/internal/relay"
	"github.com/JaykaiDos/signaling-server/internal/signaling"
)

// Options configures the HTTP surface.
type Options struct {
	// CORSAllow lists permitted origins. "*" permits any.
	CORSAllow []string

	// Gatherer backs /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	// AdminToken must be presented as a bearer token to close rooms.
	// Empty rejects every close request.
	AdminToken string

	Logger *slog.Logger
}

// RoomsResponse is the body of GET /rooms.
type RoomsResponse struct {
	Rooms       []relay.RoomInfo `json:"rooms"`
	Connections int              `json:"connections"`
}

// NewRouter wires every route onto a fresh mux wrapped in the CORS policy.
func NewRouter(hub *signaling.Hub, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheckHandler)
	mux.HandleFunc("GET /ws", ServeWs(hub, newUpgrader(opts.CORSAllow), log))
	mux.HandleFunc("GET /rooms", listRooms(hub, log))
	mux.HandleFunc("DELETE /rooms/{id}", requireAdmin(opts.AdminToken, closeRoom(hub, log)))
	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(opts.Gatherer))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: opts.CORSAllow,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(mux)
}

// Health Check endpoint
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

// newUpgrader configures the websocket upgrader. The origin check follows
// the CORS allowlist; non-browser clients send no Origin and are accepted.
func newUpgrader(allow []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  64 * 1024, // 64 KB
		WriteBufferSize: 64 * 1024, // 64 KB
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allow, "*") {
				return true
			}
			return slices.ContainsFunc(allow, func(o string) bool {
				return strings.EqualFold(o, origin)
			})
		},
	}
}

// ServeWs returns an http.HandlerFunc that handles websocket requests.
// It takes the hub as a dependency.
func ServeWs(hub *signaling.Hub, upgrader *websocket.Upgrader, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Upgrade the HTTP connection to a WebSocket
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("failed to upgrade connection", "remote", r.RemoteAddr, "err", err)
			return
		}

		client := signaling.NewClient(hub, conn)
		log.Debug("client connected", "client", client.ID, "remote", r.RemoteAddr)

		// Registers with the hub and starts the read and write pumps.
		client.Start()
	}
}

func listRooms(hub *signaling.Hub, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := hub.Rooms(r.Context())
		if err != nil {
			log.Error("list rooms failed", "err", err)
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		stats, err := hub.Stats(r.Context())
		if err != nil {
			log.Error("read stats failed", "err", err)
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, RoomsResponse{Rooms: rooms, Connections: stats.Connections})
	}
}

// requireAdmin rejects requests that do not carry the admin bearer token.
func requireAdmin(token string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			http.Error(w, "admin API disabled", http.StatusForbidden)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func closeRoom(hub *signaling.Hub, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		closed, err := hub.CloseRoom(r.Context(), id)
		if err != nil {
			log.Error("close room failed", "room", id, "err", err)
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		if !closed {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
