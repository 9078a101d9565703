// Command courierctl is the operator CLI for the courier agent: it owns the
// login session and drives order listing, rider discovery, and realtime
// listening against the marketplace backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/example/courier-client/internal/api"
	"github.com/example/courier-client/internal/config"
	"github.com/example/courier-client/internal/discovery"
	"github.com/example/courier-client/internal/logging"
	"github.com/example/courier-client/internal/session"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: courierctl <command> [flags]

commands:
  login     -email <e> -password <p>   authenticate and persist the token
  logout                               clear the persisted token
  whoami                               print the decoded session claims
  orders                               list orders
  discover  -order <id> [-rider <id>]  run rider discovery; assign when -rider accepts
  listen                               follow realtime events and re-fetch state`)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadClientConfig()
	logger := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	var store session.Store
	if cfg.RedisAddr != "" {
		store = session.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.TokenRedisKey)
	} else {
		store = session.NewFileStore(cfg.TokenFile)
	}
	sess := session.New(store, logger)

	a := &app{
		cfg:    cfg,
		log:    logger,
		sess:   sess,
		anon:   api.NewAnonClient(cfg.APIBaseURL, cfg.HTTPTimeout, logger),
		client: api.NewClient(cfg.APIBaseURL, sess, cfg.HTTPTimeout, logger),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch os.Args[1] {
	case "login":
		runErr = a.login(ctx, os.Args[2:])
	case "logout":
		runErr = a.logout()
	case "whoami":
		runErr = a.whoami()
	case "orders":
		runErr = a.orders(ctx)
	case "discover":
		runErr = a.discover(ctx, os.Args[2:])
	case "listen":
		runErr = a.listen(ctx)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "error:", runErr)
		var partial *discovery.PartialAssignmentError
		if errors.As(runErr, &partial) {
			// the order is already assigned server-side; retrying would double-assign
			fmt.Fprintln(os.Stderr, "note: the assignment itself succeeded, do not retry it")
		}
		os.Exit(1)
	}
}
