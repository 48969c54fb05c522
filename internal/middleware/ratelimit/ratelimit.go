package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"halya/internal/log"
)

// Config holds rate limiter configuration
type Config struct {
	// Rate in limiter notation, e.g. "60-M" for 60 requests per minute.
	Rate string
	// KeyFunc returns the client key; defaults to RemoteAddr.
	KeyFunc func(*http.Request) string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{Rate: "60-M"}
}

// Limiter throttles requests per client using an in-memory store.
type Limiter struct {
	mw     *stdlib.Middleware
	rate   limiter.Rate
	hits   int64
	logger *log.Logger
}

// New creates a limiter. An invalid rate is an error.
func New(cfg Config, logger *log.Logger) (*Limiter, error) {
	if cfg.Rate == "" {
		cfg = DefaultConfig()
	}
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("invalid rate %q: %w", cfg.Rate, err)
	}
	if logger == nil {
		logger = log.Discard()
	}

	l := &Limiter{
		rate:   rate,
		logger: logger.WithComponent(log.ComponentRateLimit),
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = func(r *http.Request) string { return r.RemoteAddr }
	}

	instance := limiter.New(memory.NewStore(), rate)
	l.mw = stdlib.NewMiddleware(instance,
		stdlib.WithKeyGetter(keyFunc),
		stdlib.WithLimitReachedHandler(l.limitReached(keyFunc)),
		stdlib.WithErrorHandler(l.storeError),
	)
	return l, nil
}

// Handler applies the limit to next.
func (l *Limiter) Handler(next http.Handler) http.Handler {
	return l.mw.Handler(next)
}

// Hits returns the number of rejected requests.
func (l *Limiter) Hits() int64 {
	return atomic.LoadInt64(&l.hits)
}

func (l *Limiter) limitReached(keyFunc func(*http.Request) string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&l.hits, 1)
		l.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, keyFunc(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
		)
		w.Header().Set("Retry-After", strconv.Itoa(int(l.rate.Period.Seconds())))
		http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	}
}

func (l *Limiter) storeError(w http.ResponseWriter, r *http.Request, err error) {
	l.logger.ErrorContext(r.Context(), "Rate limiter store failed", log.FieldError, err.Error())
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
