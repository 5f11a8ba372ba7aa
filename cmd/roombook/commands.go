package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/example/roombook/internal/api"
	"github.com/example/roombook/internal/tui"
	"github.com/example/roombook/internal/workflow"
)

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

// parseFlags parses args and reports whether the caller should stop because
// --help was requested.
func parseFlags(fs *pflag.FlagSet, args []string) (stop bool, err error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return true, nil
		}
		return false, err
	}
	return false, nil
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	username := fs.StringP("username", "u", "", "account username")
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	if *username == "" {
		fmt.Print("username: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil {
			return fmt.Errorf("read username: %w", err)
		}
		*username = strings.TrimSpace(line)
	}
	password, err := readPassword()
	if err != nil {
		return err
	}

	token, err := a.client.Login(ctx, *username, password)
	if err != nil {
		return err
	}
	if err := a.sessions.Login(ctx, token); err != nil {
		return err
	}

	identity, _ := a.sessions.Identity()
	fmt.Printf("signed in as %s (%s)\n", identity.Username, identity.Role)
	return nil
}

// readPassword prompts without echo on a terminal and falls back to a plain
// line read when stdin is piped.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Print("password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(raw), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) cmdLogout(ctx context.Context, args []string) error {
	if _, err := a.sessions.Initialize(ctx); err != nil {
		return err
	}
	if err := a.sessions.Logout(ctx); err != nil {
		return err
	}
	fmt.Println("signed out")
	return nil
}

func (a *app) cmdWhoami(ctx context.Context, args []string) error {
	identity, err := a.requireSession(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s), user id %d, session expires %s\n",
		identity.Username, identity.Role, identity.UserID,
		identity.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *app) cmdSettings(ctx context.Context, args []string) error {
	values, err := a.client.PublicSettings(ctx)
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%s\n", k, values[k])
	}
	return w.Flush()
}

func (a *app) cmdRooms(ctx context.Context, args []string) error {
	fs := newFlagSet("rooms")
	all := fs.Bool("all", false, "include inactive rooms")
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	rooms, err := a.client.ListRooms(ctx, !*all)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCAPACITY\tSTATUS")
	for _, room := range rooms {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", room.ID, room.RoomName, room.Capacity, room.Status)
	}
	return w.Flush()
}

func (a *app) cmdResources(ctx context.Context, args []string) error {
	resources, err := a.client.ListResources(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, r := range resources {
		fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Name)
	}
	return w.Flush()
}

func (a *app) cmdUsers(ctx context.Context, args []string) error {
	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUSERNAME\tFULL NAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.FullName, u.Role)
	}
	return w.Flush()
}

func (a *app) cmdBookings(ctx context.Context, args []string) error {
	fs := newFlagSet("bookings")
	mine := fs.Bool("mine", false, "only your own bookings (the default for non-admins)")
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	identity, err := a.requireSession(ctx)
	if err != nil {
		return err
	}

	var bookings []api.Booking
	if *mine || !identity.IsAdmin() {
		bookings, err = a.workflow.MyBookings(ctx)
	} else {
		bookings, err = a.workflow.ManageList(ctx)
	}
	if err != nil {
		return err
	}
	return printBookings(bookings)
}

func printBookings(bookings []api.Booking) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTART\tEND\tROOM\tSUBJECT")
	for _, b := range bookings {
		room := ""
		if b.Room != nil {
			room = b.Room.RoomName
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			b.ID, b.Status,
			b.StartTime.Local().Format("2006-01-02 15:04"),
			b.EndTime.Local().Format("15:04"),
			room, b.Subject)
	}
	return w.Flush()
}

func (a *app) cmdCreate(ctx context.Context, args []string) error {
	fs := newFlagSet("create")
	subject := fs.String("subject", "", "booking subject (required)")
	roomID := fs.Int64("room", 0, "room id (required)")
	start := fs.String("start", "", "start time, e.g. '2026-09-01 13:00' (required)")
	end := fs.String("end", "", "end time (required)")
	department := fs.String("department", "", "requesting department")
	phone := fs.String("phone", "", "contact phone")
	attendees := fs.Int("attendees", 0, "expected headcount")
	note := fs.String("note", "", "free-form note")
	resources := fs.StringArray("resource", nil, "resource name (repeatable)")
	layoutPath := fs.String("layout", "", "path to a room layout image to attach")
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}

	startTime, err := parseTimeFlag(*start, "--start")
	if err != nil {
		return err
	}
	endTime, err := parseTimeFlag(*end, "--end")
	if err != nil {
		return err
	}

	input := workflow.CreateInput{
		Subject:    *subject,
		RoomID:     *roomID,
		StartTime:  startTime,
		EndTime:    endTime,
		Department: *department,
		Phone:      *phone,
		Attendees:  *attendees,
		Note:       *note,
		Resources:  *resources,
	}
	if *layoutPath != "" {
		data, err := os.ReadFile(*layoutPath)
		if err != nil {
			return fmt.Errorf("read layout image: %w", err)
		}
		input.LayoutImage = &api.LayoutImage{
			Filename: filepath.Base(*layoutPath),
			Data:     data,
		}
	}

	created, err := a.workflow.Create(ctx, input)
	if err != nil {
		return err
	}
	fmt.Printf("booking #%d requested (%s), awaiting approval\n", created.ID, created.Subject)
	return nil
}

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	fs := newFlagSet("edit")
	subject := fs.String("subject", "", "new subject")
	roomID := fs.Int64("room", 0, "new room id")
	start := fs.String("start", "", "new start time")
	end := fs.String("end", "", "new end time")
	note := fs.String("note", "", "new note")
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}
	id, err := bookingIDArg(fs.Args())
	if err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	booking, err := a.workflow.FindBooking(ctx, id)
	if err != nil {
		return err
	}

	// Unset flags keep the booking's current values.
	input := workflow.EditInput{
		Subject:   booking.Subject,
		RoomID:    booking.RoomID,
		StartTime: booking.StartTime,
		EndTime:   booking.EndTime,
		Note:      booking.Note,
	}
	if fs.Changed("subject") {
		input.Subject = *subject
	}
	if fs.Changed("room") {
		input.RoomID = *roomID
	}
	if fs.Changed("start") {
		if input.StartTime, err = parseTimeFlag(*start, "--start"); err != nil {
			return err
		}
	}
	if fs.Changed("end") {
		if input.EndTime, err = parseTimeFlag(*end, "--end"); err != nil {
			return err
		}
	}
	if fs.Changed("note") {
		input.Note = *note
	}

	updated, err := a.workflow.Edit(ctx, booking, input)
	if err != nil {
		return err
	}
	fmt.Printf("booking #%d updated\n", updated.ID)
	return nil
}

func (a *app) cmdDecide(ctx context.Context, args []string, action workflow.Action) error {
	fs := newFlagSet(string(action))
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}
	id, err := bookingIDArg(fs.Args())
	if err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	booking, err := a.workflow.FindBooking(ctx, id)
	if err != nil {
		return err
	}

	switch action {
	case workflow.ActionApprove:
		err = a.workflow.Approve(ctx, booking)
	case workflow.ActionReject:
		err = a.workflow.Reject(ctx, booking)
	case workflow.ActionCancel:
		err = a.workflow.Cancel(ctx, booking)
	}
	if err != nil {
		return err
	}
	fmt.Printf("booking #%d %s\n", booking.ID, pastTense(action))
	return nil
}

func pastTense(action workflow.Action) string {
	switch action {
	case workflow.ActionApprove:
		return "approved"
	case workflow.ActionReject:
		return "rejected"
	case workflow.ActionCancel:
		return "cancelled"
	default:
		return string(action)
	}
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	force := fs.Bool("force", false, "confirm deleting an approved booking")
	if stop, err := parseFlags(fs, args); stop || err != nil {
		return err
	}
	id, err := bookingIDArg(fs.Args())
	if err != nil {
		return err
	}

	if _, err := a.requireSession(ctx); err != nil {
		return err
	}
	booking, err := a.workflow.FindBooking(ctx, id)
	if err != nil {
		return err
	}

	if err := a.workflow.Delete(ctx, booking, *force); err != nil {
		if errors.Is(err, workflow.ErrConfirmationRequired) {
			return fmt.Errorf("booking #%d is approved; pass --force to delete it anyway", id)
		}
		return err
	}
	fmt.Printf("booking #%d deleted\n", id)
	return nil
}

func (a *app) cmdCalendar(ctx context.Context, args []string) error {
	// The calendar is public; a persisted session simply unlocks the list
	// tabs and their actions.
	if _, err := a.sessions.Initialize(ctx); err != nil {
		a.logger.Warn("session restore failed, continuing unauthenticated", "error", err)
	}
	a.settings.Load(ctx)

	model := tui.NewModel(ctx, tui.Deps{
		Workflow: a.workflow,
		Calendar: a.calendar,
		Sessions: a.sessions,
		Settings: a.settings,
	})
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

func bookingIDArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errors.New("expected exactly one booking id argument")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid booking id %q", args[0])
	}
	return id, nil
}

// parseTimeFlag accepts a few human formats, interpreted in local time.
func parseTimeFlag(value, flag string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("%s is required", flag)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: cannot parse %q (use e.g. '2026-09-01 13:00')", flag, value)
}
