package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/example/courier-client/internal/models"
)

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"userType"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token. Call on the anon client.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var out loginResponse
	if err := c.do(ctx, http.MethodPost, "login", "/api/login", creds, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "register", "/api/register", reg, nil)
}

type nearbyResponse struct {
	Data      []models.Candidate `json:"data"`
	UniqueKey string             `json:"uniqueKey"`
}

// NearbyRiders fetches candidate riders around the requester and opens a
// discovery session; the returned key scopes all acceptance polls.
func (c *Client) NearbyRiders(ctx context.Context, lat, lng float64) ([]models.Candidate, string, error) {
	path := fmt.Sprintf("/api/riders/nearby?lat=%f&lng=%f", lat, lng)
	var out nearbyResponse
	if err := c.do(ctx, http.MethodGet, "nearby_riders", path, nil, &out); err != nil {
		return nil, "", err
	}
	return out.Data, out.UniqueKey, nil
}

// AcceptedRiders returns the current acceptance set for a discovery session.
// Errors propagate: the poll loop skips the tick rather than treating a
// failure as an empty set, because an empty response here would wrongly
// clear every candidate's distance under full-replace semantics.
func (c *Client) AcceptedRiders(ctx context.Context, uniqueKey string) ([]models.Acceptance, error) {
	path := "/api/riders/accepted?key=" + url.QueryEscape(uniqueKey)
	var out []models.Acceptance
	if err := c.do(ctx, http.MethodGet, "accepted_riders", path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

type assignRequest struct {
	RiderID string  `json:"riderId"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

// AssignOrder hands the order to the chosen rider at the requester's
// location. Mutating call: errors propagate.
func (c *Client) AssignOrder(ctx context.Context, riderID, orderID string, at models.Coord, address string) error {
	body := assignRequest{RiderID: riderID, Lat: at.Lat, Lng: at.Lng, Address: address}
	return c.do(ctx, http.MethodPost, "assign_order", "/api/orders/"+url.PathEscape(orderID)+"/assign", body, nil)
}

type rejectRequest struct {
	RiderID   string `json:"riderId"`
	UniqueKey string `json:"uniqueKey"`
}

// RejectRider removes a rider from the acceptance pool so they stop showing
// as available to other concurrent discovery sessions.
func (c *Client) RejectRider(ctx context.Context, riderID, uniqueKey string) error {
	return c.do(ctx, http.MethodPost, "reject_rider", "/api/riders/reject", rejectRequest{RiderID: riderID, UniqueKey: uniqueKey}, nil)
}

// Orders is a read path: any failure degrades to an empty list so renderers
// never branch on errors.
func (c *Client) Orders(ctx context.Context) []models.Order {
	var out []models.Order
	if err := c.do(ctx, http.MethodGet, "orders", "/api/orders", nil, &out); err != nil {
		c.log.Warn("orders fetch failed", "error", err)
		return nil
	}
	return out
}

type createOrderRequest struct {
	Address string  `json:"address"`
	Total   float64 `json:"total"`
}

func (c *Client) CreateOrder(ctx context.Context, address string, total float64) (*models.Order, error) {
	var out models.Order
	if err := c.do(ctx, http.MethodPost, "create_order", "/api/orders", createOrderRequest{Address: address, Total: total}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type statusUpdate struct {
	Status string `json:"status"`
}

func (c *Client) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	return c.do(ctx, http.MethodPatch, "order_status", "/api/orders/"+url.PathEscape(orderID)+"/status", statusUpdate{Status: status}, nil)
}

// Notifications is a read path with the same empty-on-failure contract as
// Orders.
func (c *Client) Notifications(ctx context.Context) []models.Notification {
	var out []models.Notification
	if err := c.do(ctx, http.MethodGet, "notifications", "/api/notifications", nil, &out); err != nil {
		c.log.Warn("notifications fetch failed", "error", err)
		return nil
	}
	return out
}
