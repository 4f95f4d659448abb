package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/crystal-mush/godaad/pkg/boltstore"
	"github.com/crystal-mush/godaad/pkg/ddb/ddbtest"
	"github.com/crystal-mush/godaad/pkg/gamedb"
	"github.com/crystal-mush/godaad/pkg/transcript"
)

func TestAuthService(t *testing.T) {
	hash, err := HashPassword("xyzzy")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	auth := NewAuthService(hash, "", "secret", 60)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	if _, err := auth.Login("plugh"); !errors.Is(err, ErrBadCredentials) {
		t.Errorf("expected ErrBadCredentials, got %v", err)
	}
	token, err := auth.Login("xyzzy")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken error: %v", err)
	}
	if claims.Role != "operator" || claims.Issuer != "godaad" {
		t.Errorf("unexpected claims %+v", claims)
	}

	other := NewAuthService(hash, "", "another secret", 60)
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("expected a token signed with another key to fail")
	}

	now = now.Add(2 * time.Minute)
	if _, err := auth.ValidateToken(token); err == nil {
		t.Error("expected an expired token to fail")
	}
}

func TestAuthServicePlainPassword(t *testing.T) {
	auth := NewAuthService("", "from-env", "", 0)
	if auth.expiry != 24*time.Hour {
		t.Errorf("expected the default expiry, got %v", auth.expiry)
	}
	if _, err := auth.Login("from-env"); err != nil {
		t.Errorf("expected the plain password accepted, got %v", err)
	}
	if _, err := auth.Login(""); err == nil {
		t.Error("expected an empty password rejected")
	}
	if len(GenerateJWTSecret()) != 64 {
		t.Error("expected a 32-byte hex secret")
	}
}

// apiServer builds a server with the operator API on and returns its
// handler and a valid token.
func apiServer(t *testing.T, opts Options) (*Server, http.Handler, string) {
	t.Helper()
	c := testConf()
	c.ArchiveDir = filepath.Join(t.TempDir(), "archives")
	c.JWTSecret = "test secret"
	opts.AdminPassword = "xyzzy"
	s, err := New(c, ddbtest.Sample().MustLoad(0), opts)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	h := s.routes()
	rec := doJSON(t, h, http.MethodPost, "/api/v1/auth/login", "", `{"password":"xyzzy"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected login 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp struct{ Token string }
	json.Unmarshal(rec.Body.Bytes(), &resp)
	return s, h, resp.Token
}

func doJSON(t *testing.T, h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRESTAuth(t *testing.T) {
	_, h, token := apiServer(t, Options{})

	tests := []struct {
		name, method, path, token, body string
		status                          int
	}{
		{"wrong password", http.MethodPost, "/api/v1/auth/login", "", `{"password":"plugh"}`, http.StatusUnauthorized},
		{"bad body", http.MethodPost, "/api/v1/auth/login", "", `{`, http.StatusBadRequest},
		{"no token", http.MethodGet, "/api/v1/sessions", "", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/sessions", "not-a-token", "", http.StatusUnauthorized},
		{"good token", http.MethodGet, "/api/v1/sessions", token, "", http.StatusOK},
		{"refresh", http.MethodPost, "/api/v1/auth/refresh", token, "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, tt.method, tt.path, tt.token, tt.body)
			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d: %s", tt.status, rec.Code, rec.Body)
			}
		})
	}
}

func TestRESTDisabled(t *testing.T) {
	s := newTestServer(t, testConf())
	rec := doJSON(t, s.routes(), http.MethodPost, "/api/v1/auth/login", "", `{"password":"x"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without an admin password, got %d", rec.Code)
	}
}

func TestRESTSessionsAndSaves(t *testing.T) {
	store, err := boltstore.Open(filepath.Join(t.TempDir(), "saves.db"))
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()
	for _, slot := range []string{"cellar-door", "attic"} {
		if err := store.PutSave(gamedb.Snapshot{Game: "cellar", Slot: slot, Turns: 3, State: []byte{0}}); err != nil {
			t.Fatal(err)
		}
	}

	s, h, token := apiServer(t, Options{Store: store})
	started := time.Now().Add(-time.Minute)
	s.track(activeSession{id: "b", transport: TransportWebSocket, addr: "10.0.0.2", started: started})
	s.track(activeSession{id: "a", transport: TransportTCP, addr: "10.0.0.1", started: started.Add(-time.Minute)})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/sessions", token, "")
	var sessions struct {
		Sessions []struct{ ID, Transport string }
		Count    int
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sessions); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if sessions.Count != 2 || sessions.Sessions[0].ID != "a" || sessions.Sessions[1].Transport != TransportWebSocket {
		t.Errorf("unexpected sessions %+v", sessions)
	}
	s.untrack("a")
	if got := len(s.activeSessions()); got != 1 {
		t.Errorf("expected 1 session after untrack, got %d", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/saves", token, "")
	var saves struct {
		Game  string
		Slots []struct{ Slot string }
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &saves); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	var slots []string
	for _, sl := range saves.Slots {
		slots = append(slots, sl.Slot)
	}
	if diff := cmp.Diff([]string{"attic", "cellar-door"}, slots); diff != "" {
		t.Errorf("slots mismatch (-want +got):\n%s", diff)
	}
}

func TestRESTTranscripts(t *testing.T) {
	store, err := transcript.Open(filepath.Join(t.TempDir(), "t.sqlite"), 5*time.Second)
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	defer store.Close()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.StartSession("s1", "cellar", at)
	store.Append("s1", transcript.KindInput, "get lamp", at)
	store.Append("s1", transcript.KindOutput, "Taken.", at)
	store.EndSession("s1", 1, at.Add(time.Minute))

	_, h, token := apiServer(t, Options{Transcript: store})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/transcripts?game=cellar", token, "")
	var list struct {
		Sessions []struct {
			ID    string
			Turns int
		}
	}
	json.Unmarshal(rec.Body.Bytes(), &list)
	if len(list.Sessions) != 1 || list.Sessions[0].ID != "s1" || list.Sessions[0].Turns != 1 {
		t.Errorf("unexpected transcript list %s", rec.Body)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/v1/transcripts/s1", token, "")
	var lines struct {
		Lines []struct{ Kind, Text string }
	}
	json.Unmarshal(rec.Body.Bytes(), &lines)
	want := []struct{ Kind, Text string }{{"in", "get lamp"}, {"out", "Taken."}}
	if diff := cmp.Diff(want, lines.Lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	if rec := doJSON(t, h, http.MethodGet, "/api/v1/transcripts/nope", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for an unknown session, got %d", rec.Code)
	}
}

func TestRESTValidateAndArchives(t *testing.T) {
	s, h, token := apiServer(t, Options{})

	rec := doJSON(t, h, http.MethodGet, "/api/v1/validate", token, "")
	var report struct {
		Objects int
		Errors  int
	}
	json.Unmarshal(rec.Body.Bytes(), &report)
	if report.Objects != 5 || report.Errors != 0 {
		t.Errorf("unexpected report %s", rec.Body)
	}

	// Without a game file the archive still carries the manifest.
	rec = doJSON(t, h, http.MethodPost, "/api/v1/archives", token, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
	}
	rec = doJSON(t, h, http.MethodGet, "/api/v1/archives", token, "")
	var archives struct {
		Archives []struct {
			Game    string
			Objects int
		}
	}
	json.Unmarshal(rec.Body.Bytes(), &archives)
	if len(archives.Archives) != 1 || archives.Archives[0].Game != "cellar" {
		t.Errorf("unexpected archives %s", rec.Body)
	}

	s.conf.ArchiveDir = ""
	if rec := doJSON(t, h, http.MethodGet, "/api/v1/archives", token, ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without an archive dir, got %d", rec.Code)
	}
}
