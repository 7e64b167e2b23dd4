// Package fakeapi is an in-memory stand-in for the students REST backend.
//
// It speaks the same dialect as json-server: _page/_limit pagination, an
// x-total-count header on list responses and 422 bodies shaped as
// {"error": {"<field>": "<message>"}}.
//
// Usage:
//
//	func TestSomething(t *testing.T) {
//	    api := fakeapi.Setup(t)  // closed automatically on cleanup
//	    api.Seed(25)
//	    client := studentclient.NewClient(api.URL, time.Second, nil)
//	}
package fakeapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"student-console/internal/student"

	"github.com/go-chi/chi/v5"
)

type Server struct {
	mu       sync.Mutex
	students map[int]student.Student
	nextID   int
	delay    time.Duration
	failures []int
	calls    map[string]int

	// URL is set by Setup.
	URL string
}

func New() *Server {
	return &Server{
		students: make(map[int]student.Student),
		nextID:   1,
		calls:    make(map[string]int),
	}
}

// Setup starts the fake on an httptest server tied to t's lifetime.
func Setup(t *testing.T) *Server {
	t.Helper()

	s := New()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	s.URL = ts.URL
	return s
}

func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Get("/students", s.listStudents)
	router.Post("/students", s.createStudent)
	router.Get("/students/{id}", s.getStudent)
	router.Put("/students/{id}", s.updateStudent)
	router.Delete("/students/{id}", s.deleteStudent)
	return router
}

// Seed inserts n generated students.
func (s *Server) Seed(n int) []student.Student {
	out := make([]student.Student, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, s.Add(student.Student{
			Email:      fmt.Sprintf("student%d@example.com", s.peekID()),
			FirstName:  "Student",
			LastName:   fmt.Sprintf("No.%d", s.peekID()),
			Gender:     student.Genders[i%len(student.Genders)],
			Country:    "Vietnam",
			Avatar:     "https://example.com/avatar.png",
			BTCAddress: "1BoatSLRHtKNngkdXEeobR76b53LETtpyT",
		}))
	}
	return out
}

func (s *Server) Add(st student.Student) student.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.nextID
	s.nextID++
	s.students[st.ID] = st
	return st
}

func (s *Server) peekID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextID
}

func (s *Server) Student(id int) (student.Student, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.students[id]
	return st, ok
}

func (s *Server) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.students)
}

// SetDelay makes every request wait d before answering, or until the client gives up.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// FailNext makes the next request answer with status and a plain error body.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	s.failures = append(s.failures, status)
	s.mu.Unlock()
}

// Calls returns how many requests hit "METHOD /path-pattern", e.g. "GET /students/{id}".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

// begin records the call and applies delay and injected failures.
// It returns false when the response has already been written.
func (s *Server) begin(w http.ResponseWriter, r *http.Request, route string) bool {
	s.mu.Lock()
	s.calls[route]++
	delay := s.delay
	var fail int
	if len(s.failures) > 0 {
		fail = s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if delay > 0 {
		if !sleep(r.Context(), delay) {
			return false
		}
	}
	if fail != 0 {
		respondWithJSON(w, fail, map[string]string{"error": http.StatusText(fail)})
		return false
	}
	return true
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Server) listStudents(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, "GET /students") {
		return
	}

	s.mu.Lock()
	ids := make([]int, 0, len(s.students))
	for id := range s.students {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	all := make([]student.Student, len(ids))
	for i, id := range ids {
		all[i] = s.students[id]
	}
	s.mu.Unlock()

	page, limit := 1, len(all)
	if v, err := strconv.Atoi(r.URL.Query().Get("_page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("_limit")); err == nil && v > 0 {
		limit = v
	}

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(len(all)))
	respondWithJSON(w, http.StatusOK, all[start:end])
}

func (s *Server) getStudent(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, "GET /students/{id}") {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID"})
		return
	}
	st, ok := s.Student(id)
	if !ok {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		return
	}
	respondWithJSON(w, http.StatusOK, st)
}

func (s *Server) createStudent(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, "POST /students") {
		return
	}
	var st student.Student
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	if fields := s.validate(st, 0); len(fields) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": fields})
		return
	}
	respondWithJSON(w, http.StatusCreated, s.Add(st))
}

func (s *Server) updateStudent(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, "PUT /students/{id}") {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID"})
		return
	}
	var st student.Student
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request"})
		return
	}
	if _, ok := s.Student(id); !ok {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		return
	}
	if fields := s.validate(st, id); len(fields) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": fields})
		return
	}
	st.ID = id

	s.mu.Lock()
	s.students[id] = st
	s.mu.Unlock()

	respondWithJSON(w, http.StatusOK, st)
}

func (s *Server) deleteStudent(w http.ResponseWriter, r *http.Request) {
	if !s.begin(w, r, "DELETE /students/{id}") {
		return
	}
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondWithJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid student ID"})
		return
	}

	s.mu.Lock()
	_, ok := s.students[id]
	delete(s.students, id)
	s.mu.Unlock()

	if !ok {
		respondWithJSON(w, http.StatusNotFound, map[string]string{"error": "Student not found"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{})
}

// validate mirrors the tutorial backend rules: a well-formed, unique email.
func (s *Server) validate(st student.Student, selfID int) map[string]string {
	fields := make(map[string]string)
	if !strings.Contains(st.Email, "@") {
		fields[student.FieldEmail] = "Email is invalid"
	}

	s.mu.Lock()
	for id, other := range s.students {
		if id != selfID && strings.EqualFold(other.Email, st.Email) {
			fields[student.FieldEmail] = "Email already exists"
			break
		}
	}
	s.mu.Unlock()

	return fields
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
