package httptransport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Server HTTP-сервер формы анализа с управляемым жизненным циклом.
type Server struct {
	srv             *http.Server
	logger          *zap.SugaredLogger
	shutdownTimeout time.Duration

	started  atomic.Bool
	done     chan struct{} // закрывается, когда Serve вернул управление
	stopOnce sync.Once
	stopErr  error
}

// NewServer оборачивает handler в http.Server. WriteTimeout больше таймаута запроса к модели,
// иначе ответ анализа обрежется.
func NewServer(addr string, handler http.Handler, requestTimeout time.Duration, logger *zap.SugaredLogger) *Server {
	if addr == "" {
		addr = "127.0.0.1:8080"
	}
	writeTimeout := 120 * time.Second
	if requestTimeout > 0 && requestTimeout+30*time.Second > writeTimeout {
		writeTimeout = requestTimeout + 30*time.Second
	}
	// Незавершённый анализ должен успеть ответить до принудительного закрытия соединений.
	shutdownTimeout := 5 * time.Second
	if requestTimeout > 0 {
		shutdownTimeout += requestTimeout
	}
	return &Server{
		logger:          logger,
		shutdownTimeout: shutdownTimeout,
		done:            make(chan struct{}),
		srv: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Start начинает слушать адрес и обслуживать запросы в фоне. Ошибка bind возвращается сразу.
// Отмена ctx запускает Stop.
func (s *Server) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return nil
	}
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		s.started.Store(false)
		return err
	}
	s.srv.Addr = ln.Addr().String()

	go func() {
		defer close(s.done)
		s.logger.Infow("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) && err != nil {
			s.logger.Errorw("HTTP server stopped with error", "error", err)
		} else {
			s.logger.Infow("HTTP server stopped")
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Stop(context.WithoutCancel(ctx))
		case <-s.done:
		}
	}()
	return nil
}

// Stop корректно останавливает сервер. Безопасен для повторных и конкурентных вызовов:
// каждый вызов возвращается только после завершения активных запросов и выхода Serve
// (или по отмене ctx). До Start ничего не делает.
func (s *Server) Stop(ctx context.Context) error {
	if !s.started.Load() {
		return nil
	}
	s.stopOnce.Do(func() {
		shutdownCtx, cancel := context.WithTimeoutCause(ctx, s.shutdownTimeout, errors.New("http server shutdown timeout"))
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnw("graceful shutdown error", "error", err)
			_ = s.srv.Close()
			s.stopErr = err
		}
	})

	select {
	case <-s.done:
		return s.stopErr
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Addr фактический адрес слушателя (после Start, в том числе для порта :0).
func (s *Server) Addr() string { return s.srv.Addr }
