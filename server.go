package main

import (
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"gopkg.in/tomb.v2"
)

// busyMessage is sent to clients turned away under the reject policy.
const busyMessage = "# server busy\n"

// Server accepts TCP connections and runs one session per connection, with
// at most MaxConnections sessions at a time.
type Server struct {
	config   Config
	logger   *zap.Logger
	listener net.Listener
	slots    *semaphore.Weighted
	nextID   atomic.Uint64

	conns map[net.Conn]struct{}
	mutex sync.Mutex

	tomb tomb.Tomb
}

// NewServer creates a server for config. Config must be valid.
func NewServer(config Config, logger *zap.Logger) *Server {
	return &Server{
		config: config,
		logger: logger,
		slots:  semaphore.NewWeighted(int64(config.MaxConnections)),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Serve starts accepting connections on listener. It returns immediately;
// use Wait or Close to wait for the server to stop.
func (s *Server) Serve(listener net.Listener) {
	s.listener = listener
	s.logger.Info("starting quantum server",
		zap.String("address", listener.Addr().String()),
		zap.Int("max_connections", s.config.MaxConnections),
		zap.String("limit_policy", s.config.LimitPolicy),
		zap.String("backend", s.config.Backend),
		zap.String("flush", s.config.Flush))

	s.tomb.Go(s.acceptLoop)
}

// ServeMetrics exposes Prometheus metrics on addr until the server stops.
func (s *Server) ServeMetrics(addr string) {
	srv := &http.Server{Addr: addr, Handler: promhttp.Handler()}
	s.tomb.Go(func() error {
		go func() {
			<-s.tomb.Dying()
			_ = srv.Close()
		}()

		s.logger.Info("serving metrics", zap.String("address", addr))
		err := srv.ListenAndServe()
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(err, "serve metrics")
	})
}

// Wait blocks until the server has stopped and returns the reason.
func (s *Server) Wait() error {
	return s.tomb.Wait()
}

// Close stops accepting, closes every live connection and waits for the
// sessions to return. An in-flight backend call runs to completion first.
func (s *Server) Close() error {
	s.tomb.Kill(nil)
	return s.tomb.Wait()
}

func (s *Server) acceptLoop() error {
	s.tomb.Go(func() error {
		<-s.tomb.Dying()
		_ = s.listener.Close()
		s.closeAll()
		return nil
	})

	ctx := s.tomb.Context(nil)
	block := s.config.LimitPolicy == LimitBlock

	for {
		// wait for a free slot before accepting so that excess clients stay
		// in the listen backlog
		if block {
			if err := s.slots.Acquire(ctx, 1); err != nil {
				return tomb.ErrDying
			}
		}

		conn, err := s.listener.Accept()
		if err != nil {
			if block {
				s.slots.Release(1)
			}
			select {
			case <-s.tomb.Dying():
				return tomb.ErrDying
			default:
			}
			return errors.Wrap(err, "accept")
		}

		if !block && !s.slots.TryAcquire(1) {
			s.reject(conn)
			continue
		}

		s.tomb.Go(func() error {
			defer s.slots.Release(1)
			s.serveConn(conn)
			return nil
		})
	}
}

func (s *Server) reject(conn net.Conn) {
	connectionsRejected.Inc()
	s.logger.Warn("session limit reached, rejecting connection",
		zap.String("remote", conn.RemoteAddr().String()))
	_, _ = io.WriteString(conn, busyMessage)
	_ = conn.Close()
}

func (s *Server) serveConn(conn net.Conn) {
	id := s.nextID.Add(1)
	logger := s.logger.With(zap.Uint64("session", id), zap.String("remote", conn.RemoteAddr().String()))

	if !s.track(conn) {
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	sessionsActive.Inc()
	defer sessionsActive.Dec()

	logger.Info("connected")

	backend, err := NewBackend(s.config.Backend, BackendOptions{
		Seed:      s.sessionSeed(id),
		MaxQubits: s.config.MaxQubits,
	})
	if err != nil {
		logger.Error("cannot create backend", zap.Error(err))
		sessionsTotal.WithLabelValues("error").Inc()
		return
	}

	interp := NewInterpreter(backend, InterpreterOptions{
		Eager:     s.config.Flush == FlushEager,
		DumpLimit: s.config.DumpLimit,
	}, logger)
	session := NewSession(conn, interp, s.config.Debug, logger)

	err = session.Run()
	switch {
	case err != nil:
		sessionsTotal.WithLabelValues("error").Inc()
		logger.Warn("session ended with error", zap.Stringer("phase", session.Phase()), zap.Error(err))
	case session.Phase() == phaseTerminated:
		sessionsTotal.WithLabelValues("quit").Inc()
		logger.Info("connection closed")
	default:
		sessionsTotal.WithLabelValues("disconnect").Inc()
		logger.Info("client disconnected", zap.Stringer("phase", session.Phase()))
	}
}

// sessionSeed derives a per-session seed so that sessions differ while a
// configured seed still makes a run reproducible.
func (s *Server) sessionSeed(id uint64) uint64 {
	if s.config.Seed == 0 {
		return 0
	}
	return s.config.Seed + id - 1
}

// track registers conn for closing on shutdown. It reports false when the
// server is already stopping.
func (s *Server) track(conn net.Conn) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.tomb.Alive() {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mutex.Lock()
	delete(s.conns, conn)
	s.mutex.Unlock()

	_ = conn.Close()
}

func (s *Server) closeAll() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for conn := range s.conns {
		_ = conn.Close()
	}
}
