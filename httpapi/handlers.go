package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/presence"
	"github.com/crosstalk-chat/crosstalk/store"
	"github.com/crosstalk-chat/crosstalk/translate"
	"github.com/crosstalk-chat/crosstalk/types"
	"github.com/crosstalk-chat/crosstalk/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server wires the control-plane endpoints and the websocket event plane.
type Server struct {
	store    *store.Store
	hub      *ws.Hub
	presence *presence.Manager
	gateway  *translate.Gateway
}

func NewServer(st *store.Store, hub *ws.Hub, pm *presence.Manager, gw *translate.Gateway) *Server {
	return &Server{
		store:    st,
		hub:      hub,
		presence: pm,
		gateway:  gw,
	}
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/rooms", s.createRoomHandler).Methods(http.MethodPost)
	router.HandleFunc("/rooms", s.listRoomsHandler).Methods(http.MethodGet)
	router.HandleFunc("/rooms/{code:[0-9]+}", s.checkRoomHandler).Methods(http.MethodGet)
	router.HandleFunc("/chat", s.websocketHandler).Methods(http.MethodGet)
	return router
}

type createRoomRequest struct {
	Direction string `json:"direction"`
}

type createRoomResponse struct {
	RoomCode string `json:"roomCode"`
}

type checkRoomResponse struct {
	Exists bool `json:"exists"`
}

// RoomSummary is the control-plane listing of a live room.
type RoomSummary struct {
	RoomCode             string          `json:"roomCode"`
	TranslationDirection types.Direction `json:"translationDirection"`
	UserCount            int             `json:"userCount"`
	CreatedAt            time.Time       `json:"createdAt"`
	LastActivity         time.Time       `json:"lastActivity"`
}

func (s *Server) createRoomHandler(w http.ResponseWriter, r *http.Request) {
	req := createRoomRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorMessage{Message: "invalid request body"})
		return
	}
	direction, err := types.ParseDirection(req.Direction)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorMessage{Message: err.Error()})
		return
	}
	code := s.store.CreateRoom(direction)
	writeJSON(w, http.StatusCreated, createRoomResponse{RoomCode: code})
}

func (s *Server) checkRoomHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	_, ok := s.store.GetRoom(vars["code"])
	writeJSON(w, http.StatusOK, checkRoomResponse{Exists: ok})
}

func (s *Server) listRoomsHandler(w http.ResponseWriter, r *http.Request) {
	infos := s.store.ListRooms()
	summaries := make([]RoomSummary, 0, len(infos))
	for _, info := range infos {
		summaries = append(summaries, RoomSummary{
			RoomCode:             info.Code,
			TranslationDirection: info.Direction,
			UserCount:            len(info.Users),
			CreatedAt:            info.CreatedAt,
			LastActivity:         info.LastActivity,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Handle incoming websockets. The connection joins a room via the join-room
// event, not via the URL, so a single endpoint serves all rooms.
func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}
	client := ws.NewClient(s.hub, s.presence, s.store, s.gateway, conn)
	globals.AppLogger.Debug("connection established", "connection", client.ConnID)
	go client.WriteLoop()
	client.ReadLoop()
	globals.AppLogger.Debug("connection closed", "connection", client.ConnID)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		globals.AppLogger.Error("could not write response", "error", err)
	}
}
