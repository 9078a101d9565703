package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/courier-client/internal/api"
	"github.com/example/courier-client/internal/config"
	"github.com/example/courier-client/internal/discovery"
	"github.com/example/courier-client/internal/ingest"
	"github.com/example/courier-client/internal/location"
	"github.com/example/courier-client/internal/models"
	"github.com/example/courier-client/internal/realtime"
	"github.com/example/courier-client/internal/session"
	"github.com/example/courier-client/internal/storage"
)

type app struct {
	cfg    config.ClientConfig
	log    *slog.Logger
	sess   *session.Session
	anon   *api.Client
	client *api.Client
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password")
	_ = fs.Parse(args)
	if *email == "" || *password == "" {
		return errors.New("login requires -email and -password")
	}

	tok, err := a.anon.Login(ctx, api.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if err := a.sess.SetToken(tok); err != nil {
		return fmt.Errorf("persisting token: %w", err)
	}
	fmt.Println("logged in")
	return nil
}

func (a *app) logout() error {
	if err := a.sess.SetToken(""); err != nil {
		return err
	}
	fmt.Println("logged out")
	return nil
}

func (a *app) whoami() error {
	if !a.sess.LoggedIn() {
		fmt.Println("not logged in")
		return nil
	}
	claims := a.sess.Claims()
	if claims == nil {
		return errors.New("session token is malformed; run login again")
	}
	fmt.Printf("user:  %s\ntype:  %s\n", claims.UserID, claims.UserType)
	if claims.ExpiresAt != nil {
		fmt.Printf("until: %s\n", claims.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

func (a *app) orders(ctx context.Context) error {
	orders := a.client.Orders(ctx)
	if len(orders) == 0 {
		fmt.Println("no orders")
		return nil
	}
	for _, o := range orders {
		fmt.Printf("%-36s  %-10s  %8.2f  %s\n", o.ID, o.Status, o.Total, o.Address)
	}
	return nil
}

func (a *app) discover(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("discover", flag.ExitOnError)
	orderID := fs.String("order", "", "order to assign once a rider accepts")
	riderID := fs.String("rider", "", "assign this rider as soon as they accept")
	_ = fs.Parse(args)
	if *riderID != "" && *orderID == "" {
		return errors.New("-rider requires -order")
	}

	opt := discovery.Options{
		Poll: discovery.PollConfig{
			Interval:   a.cfg.PollInterval,
			Backoff:    a.cfg.PollBackoff,
			MaxBackoff: a.cfg.PollMaxBackoff,
		},
		Address: a.cfg.LocationAddress,
		History: a.history(),
	}
	if len(a.cfg.KafkaBrokers) > 0 {
		pub := ingest.NewKafkaPublisher(a.cfg.KafkaBrokers, a.cfg.KafkaTopic)
		defer pub.Close()
		opt.Telemetry = pub
	}

	loc := &location.Static{
		Coord:   models.Coord{Lat: a.cfg.LocationLat, Lng: a.cfg.LocationLng},
		Granted: a.cfg.LocationGranted,
	}

	flow := discovery.NewFlow(a.client, loc, a.log, opt)
	if err := flow.Start(ctx); err != nil {
		return err
	}
	defer flow.Stop()

	fmt.Printf("discovery session %s; waiting for acceptances (ctrl-c to stop)\n", flow.UniqueKey())

	ticker := time.NewTicker(a.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		printCandidates(flow.Candidates())

		if *riderID != "" && flow.Accepted(*riderID) {
			fmt.Printf("rider %s accepted; assigning order %s\n", *riderID, *orderID)
			if err := flow.Assign(ctx, *orderID, *riderID); err != nil {
				return err
			}
			fmt.Println("assigned")
			return nil
		}
	}
}

func printCandidates(cands []models.Candidate) {
	fmt.Printf("--- %d candidates at %s\n", len(cands), time.Now().Format("15:04:05"))
	for _, c := range cands {
		if c.DistanceKm != nil {
			fmt.Printf("  %-12s %-16s %6.2f km  accepted\n", c.ID, c.Username, *c.DistanceKm)
		} else {
			fmt.Printf("  %-12s %-16s      --  waiting\n", c.ID, c.Username)
		}
	}
}

func (a *app) history() storage.AssignmentStore {
	if a.cfg.PGDSN != "" {
		if ps, err := storage.NewPostgresStore(a.cfg.PGDSN); err == nil {
			return ps
		} else {
			a.log.Warn("postgres history unavailable, using memory", "error", err)
		}
	}
	return storage.NewMemoryStore()
}

func (a *app) listen(ctx context.Context) error {
	if a.cfg.MetricsAddr != "" {
		go func() {
			srv := http.Server{Addr: a.cfg.MetricsAddr, Handler: promhttp.Handler()}
			if err := srv.ListenAndServe(); err != nil {
				a.log.Warn("metrics listener stopped", "error", err)
			}
		}()
	}

	ch := realtime.NewChannel(a.cfg.WSURL, a.log)

	// events are hints: re-fetch the authoritative list, coalescing bursts
	refetch := realtime.NewRefetcher(300*time.Millisecond, func(ctx context.Context, key string) {
		switch key {
		case "orders":
			fmt.Printf("orders changed: %d total\n", len(a.client.Orders(ctx)))
		case "notifications":
			fmt.Printf("notifications changed: %d total\n", len(a.client.Notifications(ctx)))
		}
	})

	subs := []*realtime.Subscription{
		ch.Subscribe("orderUpdated", func(realtime.Event) { refetch.Invalidate(ctx, "orders") }),
		ch.Subscribe("notificationUpdate", func(realtime.Event) { refetch.Invalidate(ctx, "notifications") }),
		ch.Subscribe("newChatMessage", func(e realtime.Event) {
			fmt.Printf("chat: %s\n", string(e.Payload))
		}),
	}
	defer func() {
		for _, s := range subs {
			s.Cancel()
		}
	}()

	ch.Connect(ctx)
	defer ch.Close()

	fmt.Fprintln(os.Stderr, "listening for events (ctrl-c to stop)")
	<-ctx.Done()
	return nil
}
