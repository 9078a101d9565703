package models

import "time"

type Coord struct {
    Lat float64 `json:"lat"`
    Lng float64 `json:"lng"`
}

// Candidate is a rider returned by the nearby search. DistanceKm is set only
// while a matching acceptance exists for the current discovery session.
type Candidate struct {
    ID         string   `json:"id"`
    Username   string   `json:"username"`
    Email      string   `json:"email,omitempty"`
    DistanceKm *float64 `json:"distance_km,omitempty"`
}

// Acceptance is a rider's opt-in signal for one discovery session, reported
// with the rider's position at the time of acceptance.
type Acceptance struct {
    PartnerID string  `json:"partnerId"`
    Lat       float64 `json:"lat"`
    Lng       float64 `json:"lng"`
}

// Rider is the simulator-side view of a rider: a candidate plus live state.
type Rider struct {
    ID       string    `json:"id"`
    Username string    `json:"username"`
    Email    string    `json:"email,omitempty"`
    Loc      Coord     `json:"loc"`
    Online   bool      `json:"online"`
    Updated  time.Time `json:"updated"`
}

func (r Rider) Candidate() Candidate {
    return Candidate{ID: r.ID, Username: r.Username, Email: r.Email}
}

// Order is backend-owned; the client only edits its status.
type Order struct {
    ID        string    `json:"id"`
    Status    string    `json:"status"` // pending, assigned, picked_up, delivered, cancelled
    Address   string    `json:"address"`
    Total     float64   `json:"total"`
    CreatedAt time.Time `json:"created_at"`
    UpdatedAt time.Time `json:"updated_at"`
}

type Notification struct {
    ID        string    `json:"id"`
    Kind      string    `json:"kind"`
    Message   string    `json:"message"`
    Read      bool      `json:"read"`
    CreatedAt time.Time `json:"created_at"`
}

// Assignment records the outcome of one confirm action in the discovery flow.
type Assignment struct {
    OrderID   string
    RiderID   string
    UniqueKey string
    Requester Coord
    Address   string
    Status    string // assigned, partial_failure
    CreatedAt time.Time
    UpdatedAt time.Time
}
