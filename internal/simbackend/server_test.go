package simbackend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/courier-client/internal/api"
	"github.com/example/courier-client/internal/config"
	"github.com/example/courier-client/internal/discovery"
	"github.com/example/courier-client/internal/models"
	"github.com/example/courier-client/internal/realtime"
	"github.com/example/courier-client/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSimConfig() config.SimConfig {
	return config.SimConfig{
		JWTSecret:   "test-secret",
		JWTIssuer:   "courier-sim",
		JWTTTL:      time.Hour,
		NearbyLimit: 8,
	}
}

func postJSON(t *testing.T, url string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		t.Fatalf("post %s: status %d", url, resp.StatusCode)
	}
}

type fixedLoc struct{ c models.Coord }

func (f *fixedLoc) Current(ctx context.Context) (models.Coord, error) { return f.c, nil }

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

// loginAs registers and logs a user in, returning an authed client bound to
// a fresh session.
func loginAs(t *testing.T, baseURL, email string) (*api.Client, *session.Session) {
	t.Helper()
	ctx := context.Background()
	anon := api.NewAnonClient(baseURL, 2*time.Second, testLogger())
	if err := anon.Register(ctx, api.Registration{Username: "m", Email: email, Password: "pw", UserType: "merchant"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	tok, err := anon.Login(ctx, api.Credentials{Email: email, Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	sess := session.New(session.NewMemStore(), testLogger())
	if err := sess.SetToken(tok); err != nil {
		t.Fatal(err)
	}
	return api.NewClient(baseURL, sess, 2*time.Second, testLogger()), sess
}

func TestAuthGateOnAPIRoutes(t *testing.T) {
	srv := httptest.NewServer(NewServer(testSimConfig(), testLogger()))
	defer srv.Close()

	sess := session.New(session.NewMemStore(), testLogger())
	c := api.NewClient(srv.URL, sess, 2*time.Second, testLogger())

	_, _, err := c.NearbyRiders(context.Background(), 27.70, 85.32)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Fatalf("expected 401 APIError without token, got %v", err)
	}
}

func TestDecodedClaimsCarryUserType(t *testing.T) {
	srv := httptest.NewServer(NewServer(testSimConfig(), testLogger()))
	defer srv.Close()

	_, sess := loginAs(t, srv.URL, "claims@test.dev")
	claims := sess.Claims()
	if claims == nil || claims.UserType != "merchant" || claims.UserID == "" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestDiscoveryFlowEndToEnd(t *testing.T) {
	srv := httptest.NewServer(NewServer(testSimConfig(), testLogger()))
	defer srv.Close()
	ctx := context.Background()

	// two riders near Kathmandu, one further out
	postJSON(t, srv.URL+"/internal/riders", models.Rider{ID: "r1", Username: "ram", Loc: models.Coord{Lat: 27.71, Lng: 85.33}})
	postJSON(t, srv.URL+"/internal/riders", models.Rider{ID: "r2", Username: "sita", Loc: models.Coord{Lat: 27.70, Lng: 85.32}})

	client, _ := loginAs(t, srv.URL, "merchant@test.dev")

	order, err := client.CreateOrder(ctx, "Thamel, Kathmandu", 740)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	flow := discovery.NewFlow(client, &fixedLoc{c: models.Coord{Lat: 27.70, Lng: 85.32}}, testLogger(), discovery.Options{
		Poll:    discovery.PollConfig{Interval: 20 * time.Millisecond},
		Address: "Thamel, Kathmandu",
	})
	if err := flow.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer flow.Stop()

	if flow.UniqueKey() == "" {
		t.Fatal("expected a discovery session key")
	}
	if got := len(flow.Candidates()); got != 2 {
		t.Fatalf("expected 2 candidates, got %d", got)
	}

	// rider r1 opts in; the poll should pick it up and rank r1 first
	postJSON(t, srv.URL+"/internal/riders/accept", map[string]any{
		"uniqueKey": flow.UniqueKey(), "partnerId": "r1", "lat": 27.71, "lng": 85.33,
	})
	waitFor(t, func() bool { return flow.Accepted("r1") }, "acceptance never observed by the poll loop")

	cands := flow.Candidates()
	if cands[0].ID != "r1" || cands[0].DistanceKm == nil {
		t.Fatalf("expected r1 ranked first with a distance, got %+v", cands)
	}

	if err := flow.Assign(ctx, order.ID, "r1"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if flow.State() != discovery.StateDone {
		t.Fatalf("expected done, got %s", flow.State())
	}

	// assignment is visible on the orders read path
	waitFor(t, func() bool {
		for _, o := range client.Orders(ctx) {
			if o.ID == order.ID && o.Status == "assigned" {
				return true
			}
		}
		return false
	}, "order never became assigned")

	// and the reject leg removed r1 from the acceptance pool
	accs, err := client.AcceptedRiders(ctx, flow.UniqueKey())
	if err != nil {
		t.Fatalf("accepted riders: %v", err)
	}
	for _, a := range accs {
		if a.PartnerID == "r1" {
			t.Fatal("assigned rider must be rejected from the acceptance pool")
		}
	}
}

func TestFailedWSUpgradeWritesSingleResponse(t *testing.T) {
	var logs bytes.Buffer
	srv := httptest.NewServer(NewServer(testSimConfig(), slog.New(slog.NewTextHandler(&logs, nil))))
	defer srv.Close()

	// a plain GET without the upgrade handshake makes Upgrade reject it
	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 from failed upgrade, got %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(resp.Body)
	// the upgrader writes its own error response; the handler must not
	// append a second one
	if strings.Contains(string(body), "upgrade failed") {
		t.Fatalf("handler wrote a second error response: %q", body)
	}
	if !strings.Contains(logs.String(), "ws upgrade failed") {
		t.Fatal("expected the failed upgrade to be logged")
	}
}

func TestRealtimeBroadcastReachesSubscribers(t *testing.T) {
	srv := httptest.NewServer(NewServer(testSimConfig(), testLogger()))
	defer srv.Close()
	ctx := context.Background()

	client, _ := loginAs(t, srv.URL, "listener@test.dev")
	order, err := client.CreateOrder(ctx, "Patan", 120)
	if err != nil {
		t.Fatal(err)
	}

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ch := realtime.NewChannel(wsURL, testLogger())

	updates := make(chan realtime.Event, 4)
	ch.Subscribe("orderUpdated", func(e realtime.Event) { updates <- e })
	ch.Connect(ctx)
	defer ch.Close()

	// give the dial a moment before triggering the broadcast
	waitFor(t, func() bool {
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return true
	}, "simulator not responding")
	time.Sleep(50 * time.Millisecond)

	if err := client.UpdateOrderStatus(ctx, order.ID, "picked_up"); err != nil {
		t.Fatalf("update status: %v", err)
	}

	select {
	case evt := <-updates:
		var got models.Order
		if err := json.Unmarshal(evt.Payload, &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.ID != order.ID || got.Status != "picked_up" {
			t.Fatalf("unexpected payload %+v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no orderUpdated event received")
	}
}
