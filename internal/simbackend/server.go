package simbackend

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/courier-client/internal/config"
	"github.com/example/courier-client/internal/geo"
	"github.com/example/courier-client/internal/models"
)

// Server is the development backend: it implements the REST and websocket
// surfaces the courier agent consumes so the client stack can be exercised
// end to end without the production backend.
type Server struct {
	cfg    config.SimConfig
	logger *slog.Logger
	riders geo.Geo
	hub    *Hub
	mux    *mux.Router

	mu            sync.Mutex
	users         map[string]user // keyed by email
	orders        map[string]*models.Order
	notifications []models.Notification
	sessions      map[string]*discoverySession // keyed by uniqueKey
}

type user struct {
	ID       string
	Username string
	Password string
	UserType string
}

// discoverySession scopes acceptance polls to one nearby-riders query.
type discoverySession struct {
	requester   models.Coord
	acceptances map[string]models.Acceptance
}

func NewServer(cfg config.SimConfig, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		riders:   geo.NewIndex(),
		hub:      NewHub(logger),
		mux:      mux.NewRouter(),
		users:    make(map[string]user),
		orders:   make(map[string]*models.Order),
		sessions: make(map[string]*discoverySession),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	// routes registered before the authed subrouter are matched first
	s.mux.HandleFunc("/api/login", s.handleLogin).Methods("POST")
	s.mux.HandleFunc("/api/register", s.handleRegister).Methods("POST")

	// rider-side surface: location pings and the acceptance opt-in
	s.mux.HandleFunc("/internal/riders", s.handleRiderUpsert).Methods("POST")
	s.mux.HandleFunc("/internal/riders/accept", s.handleAcceptRider).Methods("POST")

	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
	s.mux.HandleFunc("/ws", s.handleWS)

	authed := s.mux.PathPrefix("/api").Subrouter()
	authed.Use(s.authMiddleware)
	authed.HandleFunc("/riders/nearby", s.handleNearbyRiders).Methods("GET")
	authed.HandleFunc("/riders/accepted", s.handleAcceptedRiders).Methods("GET")
	authed.HandleFunc("/riders/reject", s.handleRejectRider).Methods("POST")
	authed.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	authed.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	authed.HandleFunc("/orders/{order_id}/assign", s.handleAssignOrder).Methods("POST")
	authed.HandleFunc("/orders/{order_id}/status", s.handleOrderStatus).Methods("PATCH")
	authed.HandleFunc("/notifications", s.handleNotifications).Methods("GET")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its error response
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	s.hub.Add(conn)
}
