package feed

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/verte-zerg/strafeval/internal/logger"
)

// DefaultListen is the default websocket listen address.
const DefaultListen = "127.0.0.1:8765"

// Server accepts websocket producers on /events and answers /healthz.
type Server struct {
	Addr string
	Now  func() time.Time
	// OriginPatterns lists extra origins allowed to connect.
	OriginPatterns []string
}

// Handler returns the HTTP handler delivering decoded messages to out.
func (s *Server) Handler(ctx context.Context, out chan<- Message) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.OriginPatterns})
		if err != nil {
			logger.Warn("websocket accept failed", "error", err)
			return
		}
		s.serveConn(ctx, conn, out)
	})
	return mux
}

func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn, out chan<- Message) {
	defer func() {
		_ = conn.CloseNow() // best-effort
	}()
	now := clock(s.Now)
	logger.Info("producer connected")
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || ctx.Err() != nil {
				logger.Info("producer disconnected")
			} else {
				logger.Warn("producer read failed", "error", err)
			}
			return
		}
		msg, err := Decode(data, now())
		if err != nil {
			if !errors.Is(err, ErrEmpty) {
				logger.Warn("skipping feed message", "error", err)
			}
			continue
		}
		if err := send(ctx, out, msg); err != nil {
			return
		}
	}
}

// Run listens on Addr until ctx is done.
func (s *Server) Run(ctx context.Context, out chan<- Message) error {
	addr := s.Addr
	if addr == "" {
		addr = DefaultListen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, out)
}

// Serve accepts connections on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener, out chan<- Message) error {
	srv := &http.Server{
		Handler:           s.Handler(ctx, out),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("feed server listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close() // best-effort
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("feed server failed: %w", err)
	}
}
