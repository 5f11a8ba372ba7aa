// roombook is the terminal client for the room booking service: sign in once,
// browse the shared calendar of approved bookings, file and manage booking
// requests, and (for administrators) work the approval queue. Credentials are
// kept in an encrypted local vault, so a session survives restarts until the
// token expires or a logout.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/calendar"
	"github.com/example/roombook/internal/config"
	"github.com/example/roombook/internal/logging"
	"github.com/example/roombook/internal/session"
	"github.com/example/roombook/internal/settings"
	"github.com/example/roombook/internal/workflow"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		var vErr *api.ValidationError
		if errors.As(err, &vErr) {
			for field, message := range vErr.FieldErrors {
				fmt.Fprintf(os.Stderr, "error (validation): %s: %s\n", field, message)
			}
			os.Exit(1)
		}
		if kind := api.ErrorKind(err); kind != "unexpected" {
			fmt.Fprintf(os.Stderr, "error (%s): %v\n", kind, err)
		} else {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command := "calendar"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "help", "--help", "-h":
		printUsage(os.Stdout)
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(os.Stderr, cfg.LogLevel)
	ctx = logging.ContextWithLogger(ctx, logger)

	app, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	err = app.dispatch(ctx, command, args)
	// A 401 means the server no longer honors the vaulted token; tear the
	// local session down so the next command starts from the public view.
	if errors.Is(err, api.ErrAuthorizationExpired) {
		if ierr := app.sessions.Invalidate(ctx); ierr != nil {
			logger.Error("failed to invalidate session", "error", ierr)
		}
	}
	return err
}

func (a *app) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "login":
		return a.cmdLogin(ctx, args)
	case "logout":
		return a.cmdLogout(ctx, args)
	case "whoami":
		return a.cmdWhoami(ctx, args)
	case "settings":
		return a.cmdSettings(ctx, args)
	case "rooms":
		return a.cmdRooms(ctx, args)
	case "resources":
		return a.cmdResources(ctx, args)
	case "users":
		return a.cmdUsers(ctx, args)
	case "bookings":
		return a.cmdBookings(ctx, args)
	case "create":
		return a.cmdCreate(ctx, args)
	case "edit":
		return a.cmdEdit(ctx, args)
	case "approve":
		return a.cmdDecide(ctx, args, workflow.ActionApprove)
	case "reject":
		return a.cmdDecide(ctx, args, workflow.ActionReject)
	case "cancel":
		return a.cmdDecide(ctx, args, workflow.ActionCancel)
	case "delete":
		return a.cmdDelete(ctx, args)
	case "calendar":
		return a.cmdCalendar(ctx, args)
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("unknown command %q", command)
	}
}

// app bundles the wired client stack behind the subcommands.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	vault    *session.SQLiteVault
	sessions *session.Store
	client   *api.Client
	workflow *workflow.Controller
	calendar *calendar.Adapter
	settings *settings.Cache
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	vault, err := session.OpenVault(cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open state vault: %w", err)
	}

	sessions := session.NewStoreWithLogger(vault, time.Now, logger)
	client, err := api.NewClientWithLogger(cfg.APIBaseURL, sessions, cfg.HTTPTimeout, logger)
	if err != nil {
		vault.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		vault:    vault,
		sessions: sessions,
		client:   client,
		workflow: workflow.NewControllerWithLogger(client, sessions, time.Now, logger),
		calendar: calendar.NewAdapterWithLogger(client, logger),
		settings: settings.NewCacheWithLogger(client, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.vault.Close(); err != nil {
		a.logger.Error("failed to close state vault", "error", err)
	}
}

// requireSession restores the persisted session and refuses when there is
// none. Every protected command goes through here first.
func (a *app) requireSession(ctx context.Context) (session.Identity, error) {
	status, err := a.sessions.Initialize(ctx)
	if err != nil {
		return session.Identity{}, err
	}
	if status != session.StatusAuthenticated {
		return session.Identity{}, errors.New("not signed in; run 'roombook login' first")
	}
	identity, _ := a.sessions.Identity()
	return identity, nil
}

func printUsage(w *os.File) {
	fmt.Fprint(w, `roombook — terminal client for the room booking service

Usage:
  roombook [command] [flags]

Commands:
  calendar     browse the shared calendar (default, interactive)
  login        sign in and persist the session
  logout       end the session and clear the vault
  whoami       show the signed-in identity
  bookings     list bookings (own, or all for administrators)
  create       file a new booking request
  edit         rewrite a booking's details (admin)
  approve      approve a pending or rejected booking (admin)
  reject       reject a pending or approved booking (admin)
  cancel       cancel one of your bookings
  delete       permanently remove a booking (admin)
  rooms        list rooms
  resources    list bookable resources
  users        list users (admin)
  settings     show the site's public settings

Run 'roombook <command> --help' for command flags.
`)
}
