package server

import (
	"bufio"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tackhq/tackd/internal/cache"
	"github.com/tackhq/tackd/internal/invoke"
	"github.com/tackhq/tackd/internal/loader"
	"github.com/tackhq/tackd/internal/metrics"
	"github.com/tackhq/tackd/internal/paths"
	"github.com/tackhq/tackd/internal/protocol"
	"github.com/tackhq/tackd/internal/session"
)

const (

	// Members of this group may connect to the socket.
	socketGroup = "tackd"

	// Connecting needs write access, so owner and group get read-write.
	socketMode = 0o660

	// How long Stop waits for the metrics endpoint to drain.
	metricsShutdownTimeout = 5 * time.Second
)

// Daemon settings. The zero value serves on the default socket with a
// [loader.ScriptLoader].
type Config struct {
	SocketPath     string        // Override for the Unix socket path. Empty uses the default.
	PIDFile        string        // Override for the PID file path. Empty uses the default.
	Loader         loader.Loader // Entry point loader. Nil uses a [loader.ScriptLoader] built from the fields below.
	MainClass      string        // Class holding the entry point.
	Env            []string      // Extra "key=value" entries for every context.
	AllowExec      bool          // Whether classes may run external programs.
	MaxContexts    int           // Upper bound on live contexts. Zero uses [cache.DefaultMaxContexts].
	IdleTimeout    time.Duration // Idle time after which a context is retired. Zero disables eviction.
	EvictInterval  time.Duration // How often idle contexts are looked for. Zero uses IdleTimeout.
	SessionTimeout time.Duration // Per-session limit. Zero means none.
	MetricsAddress string        // TCP address serving /metrics. Empty disables it.
}

// The tackd daemon. Serves one command per connection on a Unix socket
// and runs invocations through a shared context cache.
type Server struct {
	socketPath    string              // Path to the Unix socket file.
	pidFile       string              // Path to the PID file.
	cache         *cache.Cache        // Execution contexts shared by all sessions.
	dispatcher    *session.Dispatcher // Runs invoke commands.
	metrics       *metrics.Metrics    // Prometheus collectors.
	metricsAddr   string              // Listen address of the metrics endpoint.
	metricsServer *http.Server        // Metrics endpoint, nil when disabled.
	metricsBound  net.Addr            // Address the metrics endpoint is bound to.
	idleTimeout   time.Duration       // Idle time after which contexts are retired.
	evictInterval time.Duration       // Period of the idle eviction sweep.
	listener      net.Listener        // Listener for incoming connections.
	startedAt     time.Time           // Timestamp when the server started.
	sessions      int                 // Total number of invoke commands processed.
	conns         sync.WaitGroup      // In-flight connections.
	done          chan struct{}       // Channel to signal server shutdown.
	stopOnce      sync.Once           // Guards shutdown.
	stopErr       error               // Result of the first Stop.
	mu            sync.Mutex          // Mutex to protect shared state.
}

// Builds a daemon from cfg without touching the filesystem. Nothing listens
// until [Server.Start].
func New(cfg Config) (*Server, error) {
	socketPath := cmp.Or(cfg.SocketPath, paths.Socket())
	pidFile := cmp.Or(cfg.PIDFile, paths.PIDFile())

	if cfg.IdleTimeout < 0 || cfg.EvictInterval < 0 || cfg.SessionTimeout < 0 {
		return nil, fmt.Errorf("%w: negative duration in configuration", ErrServer)
	}

	evictInterval := cmp.Or(cfg.EvictInterval, cfg.IdleTimeout)

	l := cfg.Loader
	if l == nil {
		l = &loader.ScriptLoader{
			MainClass: cfg.MainClass,
			Env:       cfg.Env,
			AllowExec: cfg.AllowExec,
		}
	}

	c := cache.New(l, cache.Options{MaxContexts: cfg.MaxContexts})
	m := metrics.New(c.Stats)

	return &Server{
		socketPath: socketPath,
		pidFile:    pidFile,
		cache:      c,
		dispatcher: &session.Dispatcher{
			Cache:   c,
			Invoker: &invoke.Invoker{},
			Timeout: cfg.SessionTimeout,
			Metrics: m,
		},
		metrics:       m,
		metricsAddr:   cfg.MetricsAddress,
		idleTimeout:   cfg.IdleTimeout,
		evictInterval: evictInterval,
		done:          make(chan struct{}),
	}, nil
}

// Binds the socket and the optional metrics endpoint, records the PID and
// starts serving in the background.
func (s *Server) Start() error {
	ln, err := listenUnix(s.socketPath)
	if err != nil {
		return err
	}

	if s.metricsAddr != "" {
		if err := s.serveMetrics(); err != nil {
			ln.Close()
			return err
		}
	}

	s.listener = ln
	s.startedAt = time.Now()

	if err := s.writePID(); err != nil {
		slog.Warn("could not record pid", "file", s.pidFile, "error", err)
	}

	slog.Info("accepting connections", "socket", s.socketPath)

	go s.serve()

	if s.idleTimeout > 0 {
		go s.evictIdle()
	}

	return nil
}

// Binds path as a Unix socket. A socket left behind by an earlier daemon is
// replaced.
func listenUnix(path string) (net.Listener, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrServer, err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: remove stale socket: %w", ErrServer, err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("%w: listen on %s: %w", ErrServer, path, err)
	}

	if err := os.Chmod(path, socketMode); err != nil {
		ln.Close()
		return nil, fmt.Errorf("%w: chmod %s: %w", ErrServer, path, err)
	}
	shareWithGroup(path)

	return ln, nil
}

// Hands the socket to [socketGroup] when that group exists.
func shareWithGroup(path string) {
	g, err := user.LookupGroup(socketGroup)
	if err != nil {
		slog.Debug("no socket group, owner-only access", "group", socketGroup)
		return
	}
	gid, err := strconv.Atoi(g.Gid)
	if err != nil {
		return
	}
	if err := os.Chown(path, -1, gid); err != nil {
		slog.Warn("could not hand socket to group", "group", socketGroup, "error", err)
	}
}

// Starts the Prometheus endpoint.
func (s *Server) serveMetrics() error {
	ln, err := net.Listen("tcp", s.metricsAddr)
	if err != nil {
		return fmt.Errorf("%w: failed to listen on %s: %w", ErrServer, s.metricsAddr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	s.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	s.metricsBound = ln.Addr()

	go func() {
		if err := s.metricsServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics endpoint failed", "error", err)
		}
	}()

	slog.Info("metrics endpoint listening", "address", ln.Addr().String())
	return nil
}

// Returns the address the metrics endpoint listens on, or "" when it is
// disabled or not started.
func (s *Server) MetricsAddr() string {
	if s.metricsBound == nil {
		return ""
	}
	return s.metricsBound.String()
}

// Stops accepting, lets in-flight connections finish, then closes every
// context. Later calls return the first call's result.
func (s *Server) Stop() error {
	s.stopOnce.Do(func() {
		close(s.done)
		if s.listener != nil {
			s.listener.Close()
		}

		s.conns.Wait()

		var result *multierror.Error

		if s.metricsServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			if err := s.metricsServer.Shutdown(ctx); err != nil {
				result = multierror.Append(result, fmt.Errorf("stop metrics endpoint: %w", err))
			}
			cancel()
		}

		if err := s.cache.Close(); err != nil {
			result = multierror.Append(result, err)
		}

		for _, f := range []string{s.socketPath, s.pidFile} {
			if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Debug("cleanup failed", "file", f, "error", err)
			}
		}

		s.stopErr = result.ErrorOrNil()
	})

	return s.stopErr
}

// Returns once Stop has begun.
func (s *Server) Wait() {
	<-s.done
}

// Serves each accepted connection on its own goroutine until the listener
// is closed.
func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			slog.Error("accept failed", "error", err)
			continue
		}

		s.conns.Go(func() { s.handle(conn) })
	}
}

// Retires idle contexts periodically until the server shuts down.
func (s *Server) evictIdle() {
	ticker := time.NewTicker(s.evictInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if n := s.cache.EvictIdle(s.idleTimeout); n > 0 {
				slog.Info("evicted idle contexts", "count", n)
			}
		}
	}
}

// Runs the single request/response exchange of a connection.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	line, err := br.ReadBytes('\n')
	if err != nil {
		slog.Debug("connection closed before a request", "error", err)
		return
	}

	env, payload, err := protocol.Decode(line)
	if err != nil {
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{Message: err.Error()})
		return
	}
	slog.Debug("request", "command", env.Command)

	// The client sends nothing after its request, so any read result means
	// it went away.
	ctx, cancel := cancelOnHangup(context.Background(), br)
	defer cancel()

	s.route(ctx, conn, env.Command, payload)
}

func (s *Server) route(ctx context.Context, conn net.Conn, cmd protocol.Command, payload json.RawMessage) {
	switch cmd {
	case protocol.CmdInvoke:
		s.handleInvoke(ctx, conn, payload)
	case protocol.CmdInvalidate:
		s.handleInvalidate(conn, payload)
	case protocol.CmdStatus:
		s.handleStatus(conn)
	case protocol.CmdShutdown:
		s.handleShutdown(conn)
	default:
		s.respond(conn, protocol.CmdError, &protocol.ErrorResult{
			Message: fmt.Sprintf("unknown command: %s", cmd),
		})
	}
}

// Sends one response envelope.
func (s *Server) respond(conn net.Conn, cmd protocol.Command, payload any) {
	data, err := protocol.Encode(cmd, payload)
	if err != nil {
		slog.Error("cannot encode response", "command", cmd, "error", err)
		return
	}
	if _, err := conn.Write(append(data, '\n')); err != nil {
		slog.Debug("client did not take the response", "error", err)
	}
}

func (s *Server) writePID() error {
	if err := os.MkdirAll(filepath.Dir(s.pidFile), paths.DefaultDirMode); err != nil {
		return err
	}
	return os.WriteFile(s.pidFile, []byte(strconv.Itoa(os.Getpid())), paths.DefaultFileMode)
}

// Derives a context that ends when a read on r returns. The read happens
// on its own goroutine and its data is dropped.
func cancelOnHangup(parent context.Context, r io.Reader) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		var b [1]byte
		r.Read(b[:])
		cancel()
	}()

	return ctx, cancel
}
