// Package server plays a DDB for remote players over TCP and WebSocket.
// Every connection gets its own interpreter session; the database, the
// event bus and the stores are shared.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/crystal-mush/godaad/pkg/ddb"
	"github.com/crystal-mush/godaad/pkg/engine"
	"github.com/crystal-mush/godaad/pkg/events"
	"github.com/crystal-mush/godaad/pkg/oob"
	"github.com/crystal-mush/godaad/pkg/platform"
	"github.com/crystal-mush/godaad/pkg/transcript"
	"github.com/crystal-mush/godaad/pkg/validate"
)

// Transports, as used in logs and metrics.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// Options wire the optional collaborators of a Server.
type Options struct {
	Bus        *events.Bus       // defaults to a new bus
	Store      engine.SaveStore  // save slots; nil disables #SAVE and #LOAD
	Transcript *transcript.Store // nil disables transcripts
	Executor   engine.Executor   // defaults to engine.TraceExecutor

	// AdminPassword enables the operator API with a plain password,
	// taking precedence over the configured hash.
	AdminPassword string
}

// Server accepts players and runs a session for each.
type Server struct {
	conf       *Conf
	db         atomic.Pointer[ddb.Database]
	bus        *events.Bus
	store      engine.SaveStore
	transcript *transcript.Store
	exec       engine.Executor
	metrics    *Metrics
	limiter    *rateLimiter
	auth       *AuthService // nil when the operator API is off

	mu       sync.Mutex
	active   map[string]activeSession
	ln       net.Listener
	webLn    net.Listener
	sessions sync.WaitGroup
}

// New creates a server for db. The configuration is validated.
func New(conf *Conf, db *ddb.Database, opts Options) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		conf:       conf,
		bus:        opts.Bus,
		store:      opts.Store,
		transcript: opts.Transcript,
		exec:       opts.Executor,
		metrics:    NewMetrics(time.Now()),
		limiter:    newRateLimiter(conf.RateLimit),
		active:     make(map[string]activeSession),
	}
	if conf.AdminPasswordHash != "" || opts.AdminPassword != "" {
		s.auth = NewAuthService(conf.AdminPasswordHash, opts.AdminPassword, conf.JWTSecret, conf.JWTExpiry)
	}
	if s.bus == nil {
		s.bus = events.NewBus()
	}
	if s.exec == nil {
		s.exec = engine.TraceExecutor{}
	}
	s.db.Store(db)
	s.bus.SubscribeGlobal(s.metrics)
	return s, nil
}

// DB returns the database new sessions start with.
func (s *Server) DB() *ddb.Database { return s.db.Load() }

// Bus returns the event bus sessions emit on.
func (s *Server) Bus() *events.Bus { return s.bus }

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Listen opens the configured listeners. Serve calls it when it has not
// been called yet.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil || s.webLn != nil {
		return nil
	}
	if s.conf.Listen != "" {
		ln, err := net.Listen("tcp", s.conf.Listen)
		if err != nil {
			return fmt.Errorf("tcp listener: %w", err)
		}
		s.ln = ln
		log.Printf("server: listening (tcp) on %s", ln.Addr())
	}
	if s.conf.WebListen != "" {
		ln, err := net.Listen("tcp", s.conf.WebListen)
		if err != nil {
			if s.ln != nil {
				s.ln.Close()
				s.ln = nil
			}
			return fmt.Errorf("web listener: %w", err)
		}
		s.webLn = ln
	}
	return nil
}

// Addr returns the address of the TCP listener, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// WebAddr returns the address of the web listener, or nil.
func (s *Server) WebAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.webLn == nil {
		return nil
	}
	return s.webLn.Addr()
}

// Serve runs the listeners, the database watcher and the transcript
// cleanup until ctx is cancelled, then waits for running sessions to end.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	g, ctx := errgroup.WithContext(ctx)

	// The writer subscribes before any session can start.
	if s.transcript != nil {
		w := transcript.NewWriter(s.transcript, s.bus)
		defer w.Close()
	}

	s.mu.Lock()
	ln, webLn := s.ln, s.webLn
	s.mu.Unlock()

	var web *webServer
	if webLn != nil {
		var err error
		if web, err = s.newWebServer(ctx, webLn); err != nil {
			webLn.Close()
			if ln != nil {
				ln.Close()
			}
			return err
		}
	}

	if ln != nil {
		g.Go(func() error { return s.acceptLoop(ctx, ln) })
		g.Go(func() error {
			<-ctx.Done()
			return ignoreClosed(ln.Close())
		})
	}
	if web != nil {
		web.start(ctx, g)
		g.Go(func() error { return s.limiter.run(ctx) })
	}
	if s.conf.Watch {
		g.Go(func() error { return ddb.Watch(ctx, s.conf.Game, s.Reload) })
	}
	if s.transcript != nil && s.conf.TranscriptRetention > 0 {
		retention := time.Duration(s.conf.TranscriptRetention) * time.Hour
		g.Go(func() error {
			transcript.RunRetention(ctx, s.transcript, retention, time.Hour)
			return nil
		})
	}
	if s.conf.ArchiveInterval > 0 {
		interval := time.Duration(s.conf.ArchiveInterval) * time.Minute
		g.Go(func() error {
			s.runArchives(ctx, interval)
			return nil
		})
	}

	err := g.Wait()
	s.sessions.Wait()
	s.bus.Cleanup()
	return err
}

func ignoreClosed(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// acceptLoop accepts connections on the given listener until it is closed.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			log.Printf("server: accept error: %v", err)
			continue
		}
		s.sessions.Add(1)
		go func() {
			defer s.sessions.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection runs one TCP session. Telnet commands are stripped
// from the input; with GMCP on, session events go to clients that accept
// it.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	addr := conn.RemoteAddr().String()

	// The session goroutine may be parked in a wait; closing the
	// connection wakes the reader.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	w := &lockedWriter{w: conn}
	if s.conf.Welcome != "" {
		io.WriteString(w, s.conf.Welcome+"\n")
	}
	var r io.Reader = conn
	if s.conf.IdleTimeout > 0 {
		r = &idleReader{conn: conn, timeout: time.Duration(s.conf.IdleTimeout) * time.Second}
	}
	caps := &oob.Capabilities{}
	tr := oob.NewReader(r, caps)
	tr.OnGMCP = func(pkg string, data []byte) {
		if pkg == "Core.Hello" {
			log.Printf("server: [tcp] %s: client hello %s", addr, data)
		}
	}
	r = tr

	var sub events.Subscriber
	if s.conf.GMCP {
		if err := oob.Offer(w); err != nil {
			log.Printf("server: [tcp] %s: %v", addr, err)
			return
		}
		sub = oob.NewSender(w, caps)
	}

	term := platform.NewTerminal(r, w)
	defer term.Close()

	if err := s.runSession(ctx, TransportTCP, addr, term, sub); err != nil {
		log.Printf("server: [tcp] %s: %v", addr, err)
	}
}

// lockedWriter serializes session output with event frames written from
// other goroutines.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// idleReader drops the connection when no input arrives in time.
type idleReader struct {
	conn    net.Conn
	timeout time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	r.conn.SetReadDeadline(time.Now().Add(r.timeout))
	return r.conn.Read(p)
}

// runSession plays one session on plat. A subscriber, when given,
// receives the session's events for as long as it runs.
func (s *Server) runSession(ctx context.Context, transport, addr string, plat platform.Platform, sub events.Subscriber) error {
	id := uuid.NewString()
	if sub != nil {
		s.bus.Subscribe(id, sub)
		defer s.bus.Unsubscribe(id, sub)
	}

	sess, err := engine.New(s.DB(), plat, engine.Options{
		ID:         id,
		Game:       s.conf.Name,
		Bus:        s.bus,
		Store:      s.store,
		ScreenMode: s.conf.ScreenMode,
	})
	if err != nil {
		return err
	}

	s.metrics.sessionStarted(transport)
	defer s.metrics.sessionEnded(transport)
	s.track(activeSession{id: id, transport: transport, addr: addr, started: time.Now()})
	defer s.untrack(id)
	log.Printf("server: [%s] session %s started from %s", transport, id, addr)

	err = sess.Run(ctx, s.exec)
	log.Printf("server: [%s] session %s ended after %d turns", transport, id, sess.Flags.Turns())
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// activeSession describes a running session for the operator API.
type activeSession struct {
	id        string
	transport string
	addr      string
	started   time.Time
}

func (s *Server) track(a activeSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active[a.id] = a
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, id)
}

// activeSessions returns the running sessions, oldest first.
func (s *Server) activeSessions() []activeSession {
	s.mu.Lock()
	out := make([]activeSession, 0, len(s.active))
	for _, a := range s.active {
		out = append(out, a)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].started.Equal(out[j].started) {
			return out[i].id < out[j].id
		}
		return out[i].started.Before(out[j].started)
	})
	return out
}

// Reload replaces the database for new sessions. Running sessions keep
// the one they started with. A database with validation errors is
// rejected.
func (s *Server) Reload(db *ddb.Database) {
	v := validate.New(db)
	v.Run()
	if n := v.Errors(); n > 0 {
		log.Printf("server: WARNING: reload rejected: %d validation errors", n)
		return
	}
	s.db.Store(db)
	s.bus.Broadcast(events.Event{
		Type: events.EvReload,
		Game: s.conf.Name,
		Text: "The game has been updated; new sessions use the new version.",
		Data: map[string]any{"bytes": db.Buffer().Len()},
	})
	log.Printf("server: database reloaded")
}

// httpServer builds the HTTP server of the web listener.
func (s *Server) httpServer(ctx context.Context) *http.Server {
	handler := http.Handler(s.routes())
	handler = rateLimitMiddleware(s.limiter, handler)
	handler = corsMiddleware(s.conf.CORSOrigins, handler)
	return &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// webServer is the HTTP side of the server: the routes on the web
// listener and, with Let's Encrypt, the ACME challenge listener.
type webServer struct {
	srv  *http.Server
	ln   net.Listener
	tls  bool
	acme *http.Server
}

// newWebServer prepares the web listener. TLS material is loaded here so
// that a bad certificate fails Serve before anything runs.
func (s *Server) newWebServer(ctx context.Context, ln net.Listener) (*webServer, error) {
	w := &webServer{srv: s.httpServer(ctx), ln: ln, tls: s.conf.TLS.Enabled}
	if w.tls {
		cfg, challenge, err := setupTLS(s.conf.TLS)
		if err != nil {
			return nil, fmt.Errorf("tls: %w", err)
		}
		w.srv.TLSConfig = cfg
		if challenge != nil && s.conf.TLS.ChallengeListen != "" {
			w.acme = &http.Server{Addr: s.conf.TLS.ChallengeListen, Handler: challenge, ReadHeaderTimeout: 10 * time.Second}
		}
	}
	return w, nil
}

func (w *webServer) start(ctx context.Context, g *errgroup.Group) {
	log.Printf("server: web listening on %s (tls=%v)", w.ln.Addr(), w.tls)
	g.Go(func() error { return serveHTTP(ctx, w.srv, w.ln, w.tls) })
	if w.acme != nil {
		log.Printf("server: ACME challenge listener on %s", w.acme.Addr)
		g.Go(func() error { return serveHTTP(ctx, w.acme, nil, false) })
	}
}

// serveHTTP runs srv until ctx ends, then shuts it down.
func serveHTTP(ctx context.Context, srv *http.Server, ln net.Listener, tlsOn bool) error {
	errc := make(chan error, 1)
	go func() {
		var err error
		switch {
		case ln == nil:
			err = srv.ListenAndServe()
		case tlsOn:
			err = srv.ServeTLS(ln, "", "")
		default:
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		errc <- err
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server: web shutdown: %v", err)
	}
	return <-errc
}
