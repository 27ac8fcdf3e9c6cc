package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/taskdeck/taskdeck/internal/tools"
	"github.com/taskdeck/taskdeck/internal/types"
)

// ServerVersion is stamped by the daemon from the CLI build version
// before the server starts.
var ServerVersion = "dev"

// maxRequestBytes bounds one newline-framed request line.
const maxRequestBytes = 1 << 20

// Server accepts tool calls over a Unix socket and routes them through
// the dispatcher. One goroutine per connection, bounded by a semaphore;
// each request runs under its own timeout.
type Server struct {
	socketPath string
	dbPath     string
	dispatcher *tools.Dispatcher

	maxConns       int
	requestTimeout time.Duration
	logger         *log.Logger

	listener      net.Listener
	connSemaphore chan struct{}
	activeConns   atomic.Int32
	startTime     time.Time

	requestsTotal  atomic.Int64
	requestsFailed atomic.Int64

	mu           sync.Mutex
	shutdownChan chan struct{}
	stopOnce     sync.Once
	readyChan    chan struct{}
	doneChan     chan struct{}
	wg           sync.WaitGroup
}

// ServerOptions tunes a server; zero values take defaults.
type ServerOptions struct {
	MaxConns       int
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// NewServer builds a server over a dispatcher. dbPath is reported by
// health checks so clients can detect a daemon serving the wrong
// workspace.
func NewServer(socketPath, dbPath string, dispatcher *tools.Dispatcher, opts ServerOptions) *Server {
	if opts.MaxConns <= 0 {
		opts.MaxConns = 64
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{
		socketPath:     socketPath,
		dbPath:         dbPath,
		dispatcher:     dispatcher,
		maxConns:       opts.MaxConns,
		requestTimeout: opts.RequestTimeout,
		logger:         opts.Logger,
		connSemaphore:  make(chan struct{}, opts.MaxConns),
		startTime:      time.Now(),
		shutdownChan:   make(chan struct{}),
		readyChan:      make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} { return s.readyChan }

// Done is closed once Start has fully cleaned up.
func (s *Server) Done() <-chan struct{} { return s.doneChan }

// Start listens on the socket and serves until Stop. A leftover socket
// file from a crashed daemon is removed before binding.
func (s *Server) Start() error {
	defer close(s.doneChan)

	if err := EnsureSocketDir(s.socketPath); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}
	if _, err := os.Stat(s.socketPath); err == nil {
		if _, dialErr := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); dialErr == nil {
			return fmt.Errorf("socket %s is already served by another daemon", s.socketPath)
		}
		_ = os.Remove(s.socketPath)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.readyChan)
	s.logger.Printf("listening on %s", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownChan:
				s.wg.Wait()
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			s.logger.Printf("accept failed: %v", err)
			continue
		}

		select {
		case s.connSemaphore <- struct{}{}:
		default:
			// At capacity; refuse rather than queue unbounded.
			writeResponse(conn, Response{
				Success: false,
				Error:   fmt.Sprintf("server at connection limit (%d)", s.maxConns),
			})
			_ = conn.Close()
			continue
		}

		s.wg.Add(1)
		s.activeConns.Add(1)
		go func(c net.Conn) {
			defer func() {
				_ = c.Close()
				<-s.connSemaphore
				s.activeConns.Add(-1)
				s.wg.Done()
			}()
			s.serveConn(c)
		}(conn)
	}
}

// Stop shuts the server down and removes the socket.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdownChan)
		s.mu.Lock()
		listener := s.listener
		s.mu.Unlock()
		if listener != nil {
			_ = listener.Close()
		}
		_ = CleanupSocket(s.socketPath)
	})
}

// serveConn handles one client: a sequence of newline-framed requests.
func (s *Server) serveConn(conn net.Conn) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), maxRequestBytes)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			writeResponse(conn, Response{
				Success: false,
				Error:   fmt.Sprintf("%s: malformed request: %v", types.KindValidation, err),
			})
			continue
		}

		resp := s.handle(&req)
		resp.RequestID = req.RequestID
		if !writeResponse(conn, resp) {
			return
		}
		if req.Method == OpShutdown && resp.Success {
			s.Stop()
			return
		}
	}
}

func (s *Server) handle(req *Request) Response {
	s.requestsTotal.Add(1)

	if req.ClientVersion != "" && !CompatibleVersions(req.ClientVersion, ServerVersion) {
		s.requestsFailed.Add(1)
		return Response{
			Success: false,
			Error: fmt.Sprintf("%s: client version %s is incompatible with server %s",
				types.KindValidation, req.ClientVersion, ServerVersion),
		}
	}

	switch req.Method {
	case OpPing:
		return dataResponse(PingResponse{Message: "pong", Version: ServerVersion})
	case OpHealth:
		return dataResponse(s.health(req.ClientVersion))
	case OpListTools:
		return dataResponse(map[string]any{"tools": s.dispatcher.Tools()})
	case OpShutdown:
		return Response{Success: true}
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.requestTimeout)
	defer cancel()

	params := req.Params
	if params == nil {
		params = map[string]any{}
	}
	// The actor travels on the frame; tools see it as agent_id unless
	// the call named one explicitly.
	if req.Actor != "" {
		if _, ok := params["agent_id"]; !ok {
			params["agent_id"] = req.Actor
		}
	}

	result, err := s.dispatcher.Call(ctx, req.Method, params)
	if err != nil {
		s.requestsFailed.Add(1)
		return Response{Success: false, Error: err.Error()}
	}
	return dataResponse(result)
}

func (s *Server) health(clientVersion string) HealthResponse {
	resp := HealthResponse{
		Status:         "healthy",
		Version:        ServerVersion,
		ClientVersion:  clientVersion,
		Compatible:     CompatibleVersions(clientVersion, ServerVersion),
		UptimeSeconds:  time.Since(s.startTime).Seconds(),
		ActiveConns:    s.activeConns.Load(),
		MaxConns:       s.maxConns,
		RequestsTotal:  s.requestsTotal.Load(),
		RequestsFailed: s.requestsFailed.Load(),
		DatabasePath:   s.dbPath,
		SocketPath:     s.socketPath,
		PID:            os.Getpid(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	if _, err := s.dispatcher.Call(ctx, "get_statistics", map[string]any{}); err != nil {
		resp.Status = "unhealthy"
		resp.Error = err.Error()
	}
	resp.DBResponseMS = float64(time.Since(start).Microseconds()) / 1000

	return resp
}

func dataResponse(result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return Response{
			Success: false,
			Error:   fmt.Sprintf("%s: failed to encode response: %v", types.KindFatal, err),
		}
	}
	return Response{Success: true, Data: data}
}

func writeResponse(conn net.Conn, resp Response) bool {
	payload, err := json.Marshal(resp)
	if err != nil {
		return false
	}
	payload = append(payload, '\n')
	_, err = conn.Write(payload)
	return err == nil
}
