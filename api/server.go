package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/bingo-server/game/bingo"
	"github.com/wricardo/bingo-server/game/room"
)

// HealthMessage is the body of GET /health.
const HealthMessage = "Bingo server is running"

// RoomReader is the read-only registry surface the API needs.
type RoomReader interface {
	List() []room.Snapshot
	Get(roomID string) (room.Snapshot, error)
}

// Server represents the REST API server
type Server struct {
	rooms     RoomReader
	validator bingo.Validator
	ws        http.Handler
	router    *mux.Router
}

// NewServer creates a new API server. ws serves the /ws upgrade and may be nil.
func NewServer(rooms RoomReader, validator bingo.Validator, ws http.Handler) *Server {
	s := &Server{
		rooms:     rooms,
		validator: validator,
		ws:        ws,
		router:    mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/rooms", s.handleListRooms).Methods("GET")
	api.HandleFunc("/rooms/{id}", s.handleGetRoom).Methods("GET")
	api.HandleFunc("/rooms/{id}/calls", s.handleGetCalls).Methods("GET")
	api.HandleFunc("/rooms/{id}/check", s.handleCheckCard).Methods("POST")
	api.HandleFunc("/rules", s.handleRules).Methods("GET")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) lookupRoom(w http.ResponseWriter, r *http.Request) (room.Snapshot, bool) {
	roomID := mux.Vars(r)["id"]

	snap, err := s.rooms.Get(roomID)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			respondError(w, http.StatusNotFound, "Room does not exist")
		} else {
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return room.Snapshot{}, false
	}
	return snap, true
}

// Room Handlers

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms := s.rooms.List()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(rooms),
		"rooms": rooms,
	})
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetCalls(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room_id":   snap.ID,
		"calls":     snap.Calls,
		"remaining": snap.Remaining(),
	})
}

// handleCheckCard evaluates a card against the room's draws without recording
// or announcing anything.
func (s *Server) handleCheckCard(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	var req struct {
		Card bingo.Card `json:"card"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Card.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	winning := s.validator.IsWinning(req.Card, snap.Drawn())

	log.Debug().Str("module", "api").Str("room", snap.ID).Bool("winning", winning).Msg("card checked")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"room_id": snap.ID,
		"winning": winning,
		"rule":    s.validator.Rule(),
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rule := s.validator.Rule()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"rule":        rule,
		"description": rule.Describe(),
		"bands": map[string]string{
			"B": "1-15",
			"I": "16-30",
			"N": "31-45",
			"G": "46-60",
			"O": "61-75",
		},
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.ws == nil {
		respondError(w, http.StatusServiceUnavailable, "WebSocket transport not available")
		return
	}
	s.ws.ServeHTTP(w, r)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(HealthMessage))
}
