package httpserver

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// correlationIDMiddleware ensures every request carries a correlation ID,
// preferring the caller's X-Correlation-ID, then chi's request ID.
func correlationIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID := r.Header.Get("X-Correlation-ID")
		if correlationID == "" {
			correlationID = middleware.GetReqID(r.Context())
		}
		if correlationID == "" {
			correlationID = uuid.NewString()
		}

		w.Header().Set("X-Correlation-ID", correlationID)
		next.ServeHTTP(w, r)
	})
}

// clientThrottle applies a per-client token-bucket limit keyed by remote IP.
// This is admission control for callers; pacing of outbound provider calls is
// the rate limiter package's job.
type clientThrottle struct {
	mu       sync.Mutex
	clients  map[string]*throttleEntry
	rps      rate.Limit
	burst    int
	lastSeen func() time.Time
}

type throttleEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

func newClientThrottle(rps float64, burst int) *clientThrottle {
	if burst <= 0 {
		burst = 1
	}
	return &clientThrottle{
		clients:  make(map[string]*throttleEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
		lastSeen: time.Now,
	}
}

func (t *clientThrottle) allow(clientIP string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.lastSeen()
	entry, ok := t.clients[clientIP]
	if !ok {
		entry = &throttleEntry{limiter: rate.NewLimiter(t.rps, t.burst)}
		t.clients[clientIP] = entry
	}
	entry.seen = now

	// Evict clients idle for over an hour so the map stays bounded.
	if len(t.clients) > 1024 {
		for ip, e := range t.clients {
			if now.Sub(e.seen) > time.Hour {
				delete(t.clients, ip)
			}
		}
	}

	return entry.limiter.Allow()
}

func (t *clientThrottle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Key by IP, not IP:port, so reconnects share one bucket.
		clientIP := r.RemoteAddr
		if host, _, err := net.SplitHostPort(clientIP); err == nil {
			clientIP = host
		}
		if !t.allow(clientIP) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}
