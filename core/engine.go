package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"unresponsive/config"
	"unresponsive/core/logging"

	"github.com/panjf2000/ants/v2"
)

// Engine owns the listening socket and the pool of connection
// workers. One worker owns exactly one connection for its whole
// lifetime; workers share nothing but the log stream. In
// single-client mode the pool is capped at one worker, so accepted
// connections queue untouched until the live one closes.
type Engine struct {
	cfg        *config.Config
	delay      time.Duration
	dnsTimeout time.Duration
	pool       *ants.Pool
	ln         net.Listener

	wg   sync.WaitGroup
	done chan struct{}

	mu  sync.Mutex
	err error
}

func NewEngine(cfg *config.Config) (*Engine, error) {
	dnsTimeout, err := cfg.DNSTimeoutDuration()
	if err != nil {
		return nil, err
	}

	size := -1 // no worker cap
	if cfg.SingleClient {
		size = 1
	}
	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("worker pool: %w", err)
	}

	return &Engine{
		cfg:        cfg,
		delay:      time.Duration(cfg.Delay) * time.Second,
		dnsTimeout: dnsTimeout,
		pool:       pool,
		done:       make(chan struct{}),
	}, nil
}

// Start binds the listening socket and launches the accept loop. It
// returns once the socket is bound; use Wait to join.
func (e *Engine) Start(ctx context.Context) error {
	lc := net.ListenConfig{Control: controlSocket(e.cfg.ReusePort)}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))

	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		e.pool.Release()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	e.ln = ln

	logging.Info("Listening on %s (delay %ds)", ln.Addr(), e.cfg.Delay)
	if e.cfg.SingleClient {
		logging.Info("Single-client mode: connections are served one at a time")
	}

	go e.watch(ctx)
	go e.acceptLoop()
	return nil
}

// Wait blocks until the accept loop has exited and every live worker
// has finished, then reports the loop's fatal error, if any.
func (e *Engine) Wait() error {
	<-e.done
	e.wg.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Addr returns the bound listener address, nil before Start.
func (e *Engine) Addr() net.Addr {
	if e.ln == nil {
		return nil
	}
	return e.ln.Addr()
}

// Running reports the number of live connection workers.
func (e *Engine) Running() int {
	return e.pool.Running()
}

// watch tears the engine down when the context is cancelled or the
// accept loop exits on its own. Closing the listener unblocks Accept;
// releasing the pool unblocks a queued single-client submit.
func (e *Engine) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-e.done:
	}
	e.ln.Close()
	e.pool.Release()
}

func (e *Engine) acceptLoop() {
	defer close(e.done)
	for {
		conn, err := e.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if transientIOError(err) {
				logging.Error("accept: %v", err)
				continue
			}
			// Anything else on the listening socket is fatal to
			// the whole process.
			e.setErr(fmt.Errorf("accept: %w", err))
			return
		}
		e.dispatch(conn)
	}
}

// dispatch hands conn to a pooled worker. In single-client mode the
// submit blocks while a worker is live; the queued connection is not
// touched until its turn, and its delay window starts only when its
// worker does.
func (e *Engine) dispatch(conn net.Conn) {
	e.wg.Add(1)
	err := e.pool.Submit(func() {
		defer e.wg.Done()
		s := newSession(conn, e.delay, e.dnsTimeout)
		s.Handle()
		logging.Info("Reaped worker for [%s]", s.label)
	})
	if err != nil {
		e.wg.Done()
		conn.Close()
		if !errors.Is(err, ants.ErrPoolClosed) {
			logging.Error("dispatch: %v", err)
		}
	}
}

func (e *Engine) setErr(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}
