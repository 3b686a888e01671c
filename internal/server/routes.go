package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/healthz", s.HealthHandler)
	r.HandleFunc("/rooms", s.ListRoomsHandler)
	r.HandleFunc("/ws", s.HandleWebSocket)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"rooms":  s.registry.Count(),
	})
}

// ListRoomsHandler reports public rooms with their occupancy, the same
// data LIST_ROOMS carries on the stream protocol.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	type roomEntry struct {
		Code       string `json:"code"`
		Occupancy  int    `json:"occupancy"`
		MaxPlayers int    `json:"max_players"`
	}

	infos := s.registry.ListPublic()
	entries := make([]roomEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, roomEntry{
			Code:       info.Code,
			Occupancy:  info.Occupancy,
			MaxPlayers: info.MaxPlayers,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		zap.S().Errorf("[ListRoomsHandler] encoding response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// HandleWebSocket upgrades the request and runs the same connection
// handler the TCP listener uses.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnf("[HandleWebSocket] upgrade failed: %v", err)
		return
	}
	newClient(s, newWSLineConn(conn)).run()
}
