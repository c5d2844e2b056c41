package ratelimit

import (
	"net/http"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Limiter is a fixed-window request counter per client.
type Limiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
	hits         int64

	requestsPerWindow int
	window            time.Duration
	cleanupInterval   time.Duration
	methods           []string
	now               func() time.Time
}

type clientInfo struct {
	windowStart time.Time
	lastRequest time.Time
	requests    int
}

// Config holds rate limiter configuration
type Config struct {
	RequestsPerWindow int
	Window            time.Duration
	CleanupInterval   time.Duration
	// Methods restricts limiting to these HTTP methods; empty limits all.
	Methods []string
}

// DefaultConfig limits state-changing requests to 60 per minute per client.
func DefaultConfig() Config {
	return Config{
		RequestsPerWindow: 60,
		Window:            time.Minute,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodDelete},
	}
}

// NewLimiter creates a new rate limiter and starts its cleanup goroutine.
// Call Stop to release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerWindow <= 0 {
		config.RequestsPerWindow = def.RequestsPerWindow
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		clients:           make(map[string]*clientInfo),
		stopCleanup:       make(chan struct{}),
		requestsPerWindow: config.RequestsPerWindow,
		window:            config.Window,
		cleanupInterval:   config.CleanupInterval,
		methods:           config.Methods,
		now:               time.Now,
	}
	go rl.startCleanup()
	return rl
}

// Allow checks if a request from the given client should be allowed
func (rl *Limiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients[clientIP]

	if !exists || now.Sub(client.windowStart) >= rl.window {
		rl.clients[clientIP] = &clientInfo{
			windowStart: now,
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	client.requests++
	client.lastRequest = now

	if client.requests > rl.requestsPerWindow {
		atomic.AddInt64(&rl.hits, 1)
		return false
	}
	return true
}

// applies reports whether requests with method are subject to limiting.
func (rl *Limiter) applies(method string) bool {
	return len(rl.methods) == 0 || slices.Contains(rl.methods, method)
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes clients idle for more than two windows.
func (rl *Limiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rl.window)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// ActiveClients returns the number of currently tracked clients
func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

// Metrics for monitoring rate limit performance
type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

// GetMetrics returns current rate limiting metrics
func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   atomic.LoadInt64(&rl.hits),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware creates HTTP middleware for rate limiting. onLimit writes the
// rejection; when nil a plain 429 is sent.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.applies(r.Method) && !rl.Allow(extractIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
