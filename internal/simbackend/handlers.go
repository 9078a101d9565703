package simbackend

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/example/courier-client/internal/models"
	"github.com/example/courier-client/internal/session"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	if reg.Email == "" || reg.Password == "" {
		writeError(w, 422, "email and password are required")
		return
	}
	if reg.UserType == "" {
		reg.UserType = "merchant"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[reg.Email]; exists {
		writeError(w, 409, "email already taken")
		return
	}
	s.users[reg.Email] = user{
		ID:       uuid.NewString(),
		Username: reg.Username,
		Password: reg.Password,
		UserType: reg.UserType,
	}
	w.WriteHeader(201)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, 400, err.Error())
		return
	}

	s.mu.Lock()
	u, ok := s.users[creds.Email]
	s.mu.Unlock()
	if !ok || u.Password != creds.Password {
		writeError(w, 401, "invalid email or password")
		return
	}

	now := time.Now()
	claims := session.Claims{
		UserID:   u.ID,
		UserType: u.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.JWTIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWTTTL)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		writeError(w, 500, "token mint failed")
		return
	}
	writeJSON(w, 200, map[string]string{"token": tok})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, 401, "missing bearer token")
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")
		claims := &session.Claims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			return []byte(s.cfg.JWTSecret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, 401, "invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRiderUpsert(w http.ResponseWriter, r *http.Request) {
	var rider models.Rider
	if err := json.NewDecoder(r.Body).Decode(&rider); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	rider.Online = true
	s.riders.Upsert(rider)
	w.WriteHeader(204)
}

func (s *Server) handleNearbyRiders(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, 400, "lat and lng are required")
		return
	}

	nearby := s.riders.Nearby(lat, lng, s.cfg.NearbyLimit)
	candidates := make([]models.Candidate, 0, len(nearby))
	for _, rd := range nearby {
		candidates = append(candidates, rd.Candidate())
	}

	key := uuid.NewString()
	s.mu.Lock()
	s.sessions[key] = &discoverySession{
		requester:   models.Coord{Lat: lat, Lng: lng},
		acceptances: make(map[string]models.Acceptance),
	}
	s.mu.Unlock()

	writeJSON(w, 200, map[string]any{"data": candidates, "uniqueKey": key})
}

func (s *Server) handleAcceptedRiders(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[key]
	if !ok {
		writeError(w, 404, "unknown discovery session")
		return
	}
	out := make([]models.Acceptance, 0, len(sess.acceptances))
	for _, a := range sess.acceptances {
		out = append(out, a)
	}
	writeJSON(w, 200, out)
}

type acceptRequest struct {
	UniqueKey string  `json:"uniqueKey"`
	PartnerID string  `json:"partnerId"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
}

// handleAcceptRider is the rider-side opt-in for a discovery session.
func (s *Server) handleAcceptRider(w http.ResponseWriter, r *http.Request) {
	var req acceptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[req.UniqueKey]
	if !ok {
		writeError(w, 404, "unknown discovery session")
		return
	}
	sess.acceptances[req.PartnerID] = models.Acceptance{PartnerID: req.PartnerID, Lat: req.Lat, Lng: req.Lng}
	w.WriteHeader(204)
}

type rejectRequest struct {
	RiderID   string `json:"riderId"`
	UniqueKey string `json:"uniqueKey"`
}

func (s *Server) handleRejectRider(w http.ResponseWriter, r *http.Request) {
	var req rejectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[req.UniqueKey]
	if !ok {
		writeError(w, 404, "unknown discovery session")
		return
	}
	delete(sess.acceptances, req.RiderID)
	w.WriteHeader(204)
}

type createOrderRequest struct {
	Address string  `json:"address"`
	Total   float64 `json:"total"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	now := time.Now()
	order := &models.Order{
		ID:        uuid.NewString(),
		Status:    "pending",
		Address:   req.Address,
		Total:     req.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.orders[order.ID] = order
	s.mu.Unlock()

	writeJSON(w, 201, order)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	s.mu.Unlock()
	writeJSON(w, 200, out)
}

type assignRequest struct {
	RiderID string  `json:"riderId"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

func (s *Server) handleAssignOrder(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err.Error())
		return
	}

	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		writeError(w, 404, "order not found")
		return
	}
	if order.Status != "pending" {
		s.mu.Unlock()
		writeError(w, 409, "order already assigned")
		return
	}
	order.Status = "assigned"
	order.UpdatedAt = time.Now()
	snapshot := *order
	s.notifications = append(s.notifications, models.Notification{
		ID:        uuid.NewString(),
		Kind:      "assignment",
		Message:   "order " + orderID + " assigned to rider " + req.RiderID,
		CreatedAt: time.Now(),
	})
	s.mu.Unlock()

	s.hub.Broadcast("orderUpdated", snapshot)
	s.hub.Broadcast("notificationUpdate", nil)
	w.WriteHeader(204)
}

type statusUpdate struct {
	Status string `json:"status"`
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := mux.Vars(r)["order_id"]
	var req statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, err.Error())
		return
	}
	if req.Status == "" {
		writeError(w, 422, "status is required")
		return
	}

	s.mu.Lock()
	order, ok := s.orders[orderID]
	if !ok {
		s.mu.Unlock()
		writeError(w, 404, "order not found")
		return
	}
	order.Status = req.Status
	order.UpdatedAt = time.Now()
	snapshot := *order
	s.mu.Unlock()

	s.hub.Broadcast("orderUpdated", snapshot)
	w.WriteHeader(204)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make([]models.Notification, len(s.notifications))
	copy(out, s.notifications)
	s.mu.Unlock()
	writeJSON(w, 200, out)
}
