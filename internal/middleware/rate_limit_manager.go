package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const operationCompletion = "completion"

// RateLimitManager manages rate limiters with lifecycle control
type RateLimitManager struct {
	visitors     map[string]*visitor
	visitorsMu   sync.RWMutex
	operations   map[string]map[string]*visitor
	operationsMu sync.Mutex
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// NewRateLimitManager creates a new rate limit manager with context-based lifecycle
func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors:   make(map[string]*visitor),
		operations: make(map[string]map[string]*visitor),
		ctx:        managerCtx,
		cancel:     cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

func newLimiter(requestsPerWindow, windowSeconds, burst int) *rate.Limiter {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	limitPerSecond := float64(requestsPerWindow) / float64(windowSeconds)
	limit := rate.Limit(limitPerSecond)
	if limitPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}
	return rate.NewLimiter(limit, burst)
}

// GetVisitor retrieves or creates a rate limiter for the given IP
func (m *RateLimitManager) GetVisitor(ip string, requestsPerWindow int, windowSeconds int, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}

	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()

	v, exists := m.visitors[ip]
	if !exists {
		limiter := newLimiter(requestsPerWindow, windowSeconds, burst)
		m.visitors[ip] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// GetOperationLimiter retrieves or creates a limiter for key within a named
// operation bucket.
func (m *RateLimitManager) GetOperationLimiter(key, operation string, requestsPerWindow int, windowSeconds int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}

	m.operationsMu.Lock()
	defer m.operationsMu.Unlock()

	bucket, ok := m.operations[operation]
	if !ok {
		bucket = make(map[string]*visitor)
		m.operations[operation] = bucket
	}

	v, exists := bucket[key]
	if !exists {
		limiter := newLimiter(requestsPerWindow, windowSeconds, requestsPerWindow)
		bucket[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupLoop periodically removes inactive rate limiters
func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.cleanup(time.Now())
		}
	}
}

func (m *RateLimitManager) cleanup(now time.Time) {
	m.visitorsMu.Lock()
	for ip, v := range m.visitors {
		if now.Sub(v.lastSeen) > 3*time.Minute {
			delete(m.visitors, ip)
		}
	}
	m.visitorsMu.Unlock()

	m.operationsMu.Lock()
	for _, bucket := range m.operations {
		for key, v := range bucket {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(bucket, key)
			}
		}
	}
	m.operationsMu.Unlock()
}

// Shutdown stops the cleanup goroutine and waits for it to finish
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
