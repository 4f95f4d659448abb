package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/crystal-mush/godaad/pkg/archive"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/validate"
)

// slotLister is implemented by save stores that can enumerate slots.
type slotLister interface {
	ListSaves(game string) ([]gamedb.Snapshot, error)
}

// registerRESTRoutes adds the operator API. Everything but login needs
// a bearer token.
func (s *Server) registerRESTRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.Handle("POST /api/v1/auth/refresh",
		authMiddleware(s.auth, http.HandlerFunc(s.handleRefresh)))
	mux.Handle("GET /api/v1/sessions",
		authMiddleware(s.auth, http.HandlerFunc(s.handleSessions)))
	mux.Handle("GET /api/v1/transcripts",
		authMiddleware(s.auth, http.HandlerFunc(s.handleTranscripts)))
	mux.Handle("GET /api/v1/transcripts/{id}",
		authMiddleware(s.auth, http.HandlerFunc(s.handleTranscriptLines)))
	mux.Handle("GET /api/v1/saves",
		authMiddleware(s.auth, http.HandlerFunc(s.handleSaves)))
	mux.Handle("GET /api/v1/validate",
		authMiddleware(s.auth, http.HandlerFunc(s.handleValidate)))
	mux.Handle("GET /api/v1/archives",
		authMiddleware(s.auth, http.HandlerFunc(s.handleArchives)))
	mux.Handle("POST /api/v1/archives",
		authMiddleware(s.auth, http.HandlerFunc(s.handleCreateArchive)))
}

// --- Auth ---

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token, err := s.auth.Login(req.Password)
	if err != nil {
		log.Printf("server: failed operator login from %s", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	token, err := s.auth.sign(*claims)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token})
}

// --- Sessions ---

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	type sessionEntry struct {
		ID        string `json:"id"`
		Transport string `json:"transport"`
		Addr      string `json:"addr"`
		OnFor     string `json:"on_for"`
	}

	now := time.Now()
	var entries []sessionEntry
	for _, a := range s.activeSessions() {
		entries = append(entries, sessionEntry{
			ID:        a.id,
			Transport: a.transport,
			Addr:      a.addr,
			OnFor:     now.Sub(a.started).Truncate(time.Second).String(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": entries,
		"count":    len(entries),
	})
}

// --- Transcripts ---

func (s *Server) handleTranscripts(w http.ResponseWriter, r *http.Request) {
	if s.transcript == nil {
		writeError(w, http.StatusNotFound, "transcripts are disabled")
		return
	}
	game := r.URL.Query().Get("game")
	list, err := s.transcript.Sessions(game)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		ID      string    `json:"id"`
		Game    string    `json:"game"`
		Started time.Time `json:"started"`
		Ended   time.Time `json:"ended,omitzero"`
		Turns   int       `json:"turns"`
	}
	out := make([]entry, 0, len(list))
	for _, ss := range list {
		out = append(out, entry{ss.ID, ss.Game, ss.Started, ss.Ended, ss.Turns})
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}

func (s *Server) handleTranscriptLines(w http.ResponseWriter, r *http.Request) {
	if s.transcript == nil {
		writeError(w, http.StatusNotFound, "transcripts are disabled")
		return
	}
	id := r.PathValue("id")
	lines, err := s.transcript.Lines(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(lines) == 0 {
		writeError(w, http.StatusNotFound, "no such session")
		return
	}

	type entry struct {
		Kind string    `json:"kind"`
		Text string    `json:"text"`
		At   time.Time `json:"at"`
	}
	out := make([]entry, 0, len(lines))
	for _, l := range lines {
		out = append(out, entry{l.Kind, l.Text, l.At})
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "lines": out})
}

// --- Saves ---

func (s *Server) handleSaves(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.store.(slotLister)
	if !ok {
		writeError(w, http.StatusNotFound, "save slots are disabled")
		return
	}
	snaps, err := lister.ListSaves(s.conf.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		Slot    string    `json:"slot"`
		Session string    `json:"session"`
		Turns   int       `json:"turns"`
		Saved   time.Time `json:"saved"`
	}
	out := make([]entry, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, entry{snap.Slot, snap.Session, int(snap.Turns), snap.Saved})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	writeJSON(w, http.StatusOK, map[string]any{"game": s.conf.Name, "slots": out})
}

// --- Database ---

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	v := validate.New(s.DB())
	v.Run()
	writeJSON(w, http.StatusOK, validate.GenerateReport(v))
}

// --- Archives ---

func (s *Server) handleArchives(w http.ResponseWriter, r *http.Request) {
	if s.conf.ArchiveDir == "" {
		writeError(w, http.StatusNotFound, "archives are disabled")
		return
	}
	list, err := archive.List(s.conf.ArchiveDir)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type entry struct {
		Filename  string `json:"filename"`
		Size      int64  `json:"size"`
		Timestamp string `json:"timestamp"`
		Game      string `json:"game"`
		Objects   int    `json:"objects"`
	}
	out := make([]entry, 0, len(list))
	for _, a := range list {
		out = append(out, entry{a.Filename, a.Size, a.Timestamp, a.Game, a.Objects})
	}
	writeJSON(w, http.StatusOK, map[string]any{"archives": out})
}

func (s *Server) handleCreateArchive(w http.ResponseWriter, r *http.Request) {
	path, err := s.Archive()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"path": path})
}

// readJSON decodes a JSON request body.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(v)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
