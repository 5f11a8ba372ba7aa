package testfixtures

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/example/roombook/internal/api"
)

// BookingServer is an in-process stand-in for the remote booking API. It
// implements just enough of the REST surface for client tests: login, the
// booking list with window/status/owner filters, status mutation, delete,
// update, multipart create, and the reference-data reads.
type BookingServer struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	bookings  map[int64]api.Booking
	nextID    int64
	rooms     []api.Room
	resources []api.Resource
	users     []api.User
	settings  map[string]string
	accounts  map[string]account
	requests  []string

	// ExpectToken, when non-empty, makes every protected endpoint demand
	// exactly this bearer token and answer 401 otherwise.
	ExpectToken string
	// MutationStatus, when non-zero, makes every booking mutation fail with
	// this HTTP status and a short error body.
	MutationStatus int
}

type account struct {
	password string
	token    string
}

// NewBookingServer starts the fixture server. It is closed automatically at
// test cleanup.
func NewBookingServer(t *testing.T) *BookingServer {
	t.Helper()

	s := &BookingServer{
		t:        t,
		bookings: make(map[int64]api.Booking),
		nextID:   1,
		settings: map[string]string{"site_name": "tunorth", "theme_color": "#f472b6"},
		accounts: make(map[string]account),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("GET /api/bookings", s.handleListBookings)
	mux.HandleFunc("POST /api/bookings", s.handleCreateBooking)
	mux.HandleFunc("PATCH /api/bookings/{id}/status", s.handleUpdateStatus)
	mux.HandleFunc("PUT /api/bookings/{id}", s.handleUpdateBooking)
	mux.HandleFunc("DELETE /api/bookings/{id}", s.handleDeleteBooking)
	mux.HandleFunc("GET /api/rooms", s.handleListRooms)
	mux.HandleFunc("GET /api/resources", s.handleListResources)
	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("GET /api/settings/public", s.handleSettings)

	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.record(r)
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.server.Close)
	return s
}

// URL returns the fixture server's base URL.
func (s *BookingServer) URL() string { return s.server.URL }

// AddAccount registers a username/password pair and the token login returns.
func (s *BookingServer) AddAccount(username, password, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[username] = account{password: password, token: token}
}

// AddBooking seeds a booking, assigning an id when the record carries none,
// and returns the stored copy.
func (s *BookingServer) AddBooking(b api.Booking) api.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		b.ID = s.nextID
	}
	if b.ID >= s.nextID {
		s.nextID = b.ID + 1
	}
	s.bookings[b.ID] = b
	return b
}

// Booking returns the stored record for id.
func (s *BookingServer) Booking(id int64) (api.Booking, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	return b, ok
}

// SetRooms seeds the room catalog.
func (s *BookingServer) SetRooms(rooms []api.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms = rooms
}

// SetResources seeds the resource catalog.
func (s *BookingServer) SetResources(resources []api.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources = resources
}

// SetUsers seeds the user directory.
func (s *BookingServer) SetUsers(users []api.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = users
}

// SetSettings replaces the public settings payload.
func (s *BookingServer) SetSettings(settings map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Requests returns every request seen so far as "METHOD path?query" strings.
func (s *BookingServer) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestCount returns how many recorded requests start with prefix.
func (s *BookingServer) RequestCount(prefix string) int {
	count := 0
	for _, r := range s.Requests() {
		if strings.HasPrefix(r, prefix) {
			count++
		}
	}
	return count
}

func (s *BookingServer) record(r *http.Request) {
	entry := r.Method + " " + r.URL.Path
	if r.URL.RawQuery != "" {
		entry += "?" + r.URL.RawQuery
	}
	s.mu.Lock()
	s.requests = append(s.requests, entry)
	s.mu.Unlock()
}

func (s *BookingServer) authorized(r *http.Request) bool {
	if s.ExpectToken == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.ExpectToken
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *BookingServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	acct, ok := s.accounts[creds.Username]
	s.mu.Unlock()
	if !ok || acct.password != creds.Password {
		writeError(w, http.StatusBadRequest, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": acct.token})
}

func (s *BookingServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var start, end time.Time
	if v := query.Get("start"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start")
			return
		}
		start = parsed
	}
	if v := query.Get("end"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end")
			return
		}
		end = parsed
	}
	status := query.Get("status")
	userID, _ := strconv.ParseInt(query.Get("user_id"), 10, 64)

	// Owner-scoped and unfiltered lists require authentication; the shared
	// calendar window (status=approved) is public.
	if status != string(api.StatusApproved) && !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]api.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if status != "" && string(b.Status) != status {
			continue
		}
		if userID != 0 && b.UserID != userID {
			continue
		}
		if !start.IsZero() && !b.EndTime.After(start) {
			continue
		}
		if !end.IsZero() && !b.StartTime.Before(end) {
			continue
		}
		out = append(out, b)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *BookingServer) bookingID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid booking id")
	}
	return id, nil
}

func (s *BookingServer) mutationGate(w http.ResponseWriter, r *http.Request) bool {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	if s.MutationStatus != 0 {
		writeError(w, s.MutationStatus, "mutation refused")
		return false
	}
	return true
}

func (s *BookingServer) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !s.mutationGate(w, r) {
		return
	}
	id, err := s.bookingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Status api.BookingStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	b.Status = body.Status
	s.bookings[id] = b
	writeJSON(w, http.StatusOK, b)
}

func (s *BookingServer) handleUpdateBooking(w http.ResponseWriter, r *http.Request) {
	if !s.mutationGate(w, r) {
		return
	}
	id, err := s.bookingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var update api.BookingUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	b.Subject = update.Subject
	b.RoomID = update.RoomID
	b.StartTime = update.StartTime
	b.EndTime = update.EndTime
	b.Note = update.Note
	s.bookings[id] = b
	writeJSON(w, http.StatusOK, b)
}

func (s *BookingServer) handleDeleteBooking(w http.ResponseWriter, r *http.Request) {
	if !s.mutationGate(w, r) {
		return
	}
	id, err := s.bookingID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		writeError(w, http.StatusNotFound, "booking not found")
		return
	}
	delete(s.bookings, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *BookingServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	if !s.mutationGate(w, r) {
		return
	}
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	roomID, _ := strconv.ParseInt(r.FormValue("room_id"), 10, 64)
	attendees, _ := strconv.Atoi(r.FormValue("attendees"))
	startTime, err := time.Parse(time.RFC3339, r.FormValue("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	endTime, err := time.Parse(time.RFC3339, r.FormValue("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	created := api.Booking{
		ID:           s.nextID,
		Subject:      r.FormValue("subject"),
		StartTime:    startTime,
		EndTime:      endTime,
		Status:       api.StatusPending,
		Department:   r.FormValue("department"),
		Phone:        r.FormValue("phone"),
		Attendees:    attendees,
		Note:         r.FormValue("note"),
		ResourceText: r.FormValue("resource_text"),
		RoomID:       roomID,
	}
	if _, header, err := r.FormFile("layout_image"); err == nil {
		created.LayoutImage = header.Filename
	}
	s.nextID++
	s.bookings[created.ID] = created
	writeJSON(w, http.StatusCreated, created)
}

func (s *BookingServer) handleListRooms(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		if status != "" && room.Status != status {
			continue
		}
		out = append(out, room)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *BookingServer) handleListResources(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.resources)
}

func (s *BookingServer) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.users)
}

func (s *BookingServer) handleSettings(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.settings)
}
