package pool

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker"
)

// ConnConfig parametrizes a per-backend ConnectionPool.
type ConnConfig struct {
	Host           string
	Port           int
	Min            int32
	Max            int32
	ConnectTimeout time.Duration
	IdleTimeout    time.Duration
}

// ConnectionPool fronts one gateway backend with a pool of outbound
// sockets: min/max sizing, idle eviction, and dial health probing via a
// circuit breaker so a dead backend fails fast instead of hanging every
// acquire for the full connect timeout.
type ConnectionPool struct {
	cfg     ConnConfig
	p       *puddle.Pool[net.Conn]
	breaker *gobreaker.CircuitBreaker

	stopReap chan struct{}
	reapOnce sync.Once
}

// NewConnectionPool creates a pool and starts its idle-eviction sweep.
func NewConnectionPool(cfg ConnConfig) (*ConnectionPool, error) {
	if cfg.Max <= 0 {
		cfg.Max = 1
	}
	cp := &ConnectionPool{cfg: cfg, stopReap: make(chan struct{})}

	cp.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        fmt.Sprintf("backend:%s:%d", cfg.Host, cfg.Port),
		MaxRequests: 1,
		Interval:    0, // never reset counts on a timer; ReadyToTrip drives it
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	p, err := puddle.NewPool(&puddle.Config[net.Conn]{
		Constructor: func(ctx context.Context) (net.Conn, error) {
			result, err := cp.breaker.Execute(func() (any, error) {
				d := net.Dialer{Timeout: cfg.ConnectTimeout}
				return d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
			})
			if err != nil {
				return nil, err
			}
			return result.(net.Conn), nil
		},
		Destructor: func(conn net.Conn) { _ = conn.Close() },
		MaxSize:    cfg.Max,
	})
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	cp.p = p

	for i := int32(0); i < cfg.Min; i++ {
		_ = cp.p.CreateResource(context.Background())
	}

	if cfg.IdleTimeout > 0 {
		go cp.reapIdle()
	}

	return cp, nil
}

// Acquire returns a connected socket, blocking until the deadline expires.
// A zero deadline means "block forever" (the caller's ctx still governs
// cancellation).
func (cp *ConnectionPool) Acquire(ctx context.Context, deadline time.Time) (*ConnHandle, error) {
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}
	res, err := cp.p.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &ConnHandle{res: res}, nil
}

// Release returns the socket to the free list if stillValid and the pool
// is not over max; otherwise the socket is closed.
func (cp *ConnectionPool) Release(h *ConnHandle, stillValid bool) {
	if h == nil {
		return
	}
	if stillValid {
		h.res.Release()
	} else {
		h.res.Destroy()
	}
}

// reapIdle drops sockets idle longer than IdleTimeout, down to Min.
func (cp *ConnectionPool) reapIdle() {
	ticker := time.NewTicker(cp.cfg.IdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-cp.stopReap:
			return
		case <-ticker.C:
			idle := cp.p.AcquireAllIdle()
			stat := cp.p.Stat()
			total := stat.TotalResources()
			for _, res := range idle {
				if total > int32(cp.cfg.Min) && res.IdleDuration() > cp.cfg.IdleTimeout {
					res.Destroy()
					total--
					continue
				}
				res.ReleaseUnused()
			}
		}
	}
}

// Close stops the idle reaper and closes every pooled connection.
func (cp *ConnectionPool) Close() {
	cp.reapOnce.Do(func() { close(cp.stopReap) })
	cp.p.Close()
}

// Stat exposes pool sizing for status/metrics reporting.
type Stat struct {
	Total    int32
	Idle     int32
	Acquired int32
}

func (cp *ConnectionPool) Stat() Stat {
	s := cp.p.Stat()
	return Stat{
		Total:    s.TotalResources(),
		Idle:     s.IdleResources(),
		Acquired: s.AcquiredResources(),
	}
}

// ConnHandle wraps one acquired connection.
type ConnHandle struct {
	res *puddle.Resource[net.Conn]
}

// Conn returns the underlying net.Conn.
func (h *ConnHandle) Conn() net.Conn { return h.res.Value() }
