package httpserver

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"fxconvert-service/internal/infrastructure/logx"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// clientLimiter keeps a token bucket of perMin requests per client IP. A bucket
// left alone for a minute is full again, so idle buckets are dropped.
type clientLimiter struct {
	perMin int
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*clientBucket
	lastSweep time.Time
}

type clientBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newClientLimiter(perMin int, now func() time.Time) *clientLimiter {
	if now == nil {
		now = time.Now
	}
	return &clientLimiter{perMin: perMin, now: now, buckets: map[string]*clientBucket{}}
}

// allow takes a token for ip, or reports how long until one is available.
func (l *clientLimiter) allow(ip string) (bool, time.Duration) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) >= time.Minute {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[ip]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.buckets[ip] = b
	}
	b.seen = now

	res := b.lim.ReserveN(now, 1)
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return false, d
	}
	return true, 0
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimit answers 429 with a Retry-After header once a client IP exceeds its budget.
func rateLimit(l *clientLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			ok, wait := l.allow(ip)
			if !ok {
				secs := int(math.Ceil(wait.Seconds()))
				logx.WithFields(r.Context()).Info("request_throttled",
					zap.String("client_ip", ip),
					zap.Int("retry_after", secs),
				)
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				writeJSON(w, http.StatusTooManyRequests, errorBody{
					Code:    http.StatusTooManyRequests,
					Message: "Too many requests, retry later",
					Type:    "too_many_requests",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
