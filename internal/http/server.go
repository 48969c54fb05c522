package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"halya/internal/cache"
	"halya/internal/core"
	"halya/internal/log"
	"halya/internal/lookup"
	"halya/internal/middleware/ratelimit"
	"halya/internal/middleware/security"
	"halya/internal/middleware/trace"
	"halya/internal/store"
	appweb "halya/web"
)

// Readiness reports whether the store answered its last probe.
type Readiness interface {
	Ready() (ok bool, detail string)
}

// Deps holds everything the server needs. Store is required.
type Deps struct {
	Store           store.Store
	Logger          *log.Logger
	Classifier      *core.Classifier
	EventSink       lookup.EventSink
	Readiness       Readiness
	FetchTimeout    time.Duration
	SessionTTL      time.Duration
	SessionCapacity int
	RateLimit       string
}

type Server struct {
	http.Server

	store        store.Store
	logger       *log.Logger
	classifier   *core.Classifier
	readiness    Readiness
	fetchTimeout time.Duration
	templates    *template.Template

	sessions    *cache.LRUCache[*lookup.Session]
	sessionOpts []lookup.Option
	sweeper     *cache.Manager

	detector *security.Detector
	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter

	done         chan struct{}
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("http server: store is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	classifier := deps.Classifier
	if classifier == nil {
		classifier = core.DefaultClassifier()
	}
	ttl := deps.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	capacity := deps.SessionCapacity
	if capacity <= 0 {
		capacity = 1000
	}

	s := &Server{
		store:        deps.Store,
		logger:       logger.WithComponent(log.ComponentHTTP),
		classifier:   classifier,
		readiness:    deps.Readiness,
		fetchTimeout: deps.FetchTimeout,
		done:         make(chan struct{}),
		sessionOpts: []lookup.Option{
			lookup.WithLogger(logger.WithComponent(log.ComponentLookup)),
			lookup.WithClassifier(classifier),
			lookup.WithEventSink(deps.EventSink),
			lookup.WithFetchTimeout(deps.FetchTimeout),
		},
	}

	s.sessions = cache.NewLRUCache[*lookup.Session](capacity, ttl,
		cache.WithEvictHook(func(id string, _ *lookup.Session) {
			s.logger.Debug("Session evicted", log.FieldSessionID, id)
		}))
	s.sweeper = cache.NewManager(logger)
	s.sweeper.Register("sessions", s.sessions)

	s.detector = security.NewDetector(logger)
	s.tracer = trace.NewMiddleware(logger, s.detector.ClientIP)

	limiter, err := ratelimit.New(ratelimit.Config{Rate: deps.RateLimit, KeyFunc: s.detector.ClientIP}, logger)
	if err != nil {
		return nil, fmt.Errorf("http server: %w", err)
	}
	s.limiter = limiter

	t, err := template.New("pages").Funcs(templateFuncs(classifier)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.CleanPath)
	r.Use(s.tracer.Handler)
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Handler)
		r.Use(security.NoStore)

		r.Get("/", s.handleIndex)
		r.Route("/ui", func(r chi.Router) {
			r.Post("/alley", s.handleChooseAlley)
			r.Post("/resident", s.handleChooseResident)
			r.Post("/back", s.handleBack)
			r.Post("/retry", s.handleRetry)
		})

		r.Route("/api", func(r chi.Router) {
			r.Get("/alleys", s.handleAPIAlleys)
			r.Get("/alleys/{alley}/residents", s.handleAPIResidents)
			r.Get("/residents/{id}/payments", s.handleAPIPayments)
			r.Get("/residents/{id}/payments.csv", s.handleAPIPaymentsCSV)
		})
	})

	return r
}

// RunSessionSweeper removes expired sessions every interval until ctx is
// done or the server shuts down.
func (s *Server) RunSessionSweeper(ctx context.Context, interval time.Duration) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()
	return s.sweeper.Run(ctx, interval)
}

// Shutdown gracefully stops the server and the session sweeper.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		close(s.done)
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.sessions.Size()
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.readiness == nil {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	ok, detail := s.readiness.Ready()
	if !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: " + detail))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) fetchContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.fetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.fetchTimeout)
}
