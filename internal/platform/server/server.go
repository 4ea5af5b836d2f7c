package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/ogurasousui/employee-lifecycle/internal/platform/config"
	"github.com/sirupsen/logrus"
)

// Server は HTTP サーバーのライフサイクルを管理します。
type Server struct {
	listenAddr      string
	httpServer      *http.Server
	shutdownTimeout time.Duration
	logger          logrus.FieldLogger
}

// New は指定された設定で待ち受ける HTTP サーバーを構築します。
func New(cfg config.ServerConfig, handler http.Handler, logger logrus.FieldLogger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Server{
		listenAddr: cfg.ListenAddr,
		httpServer: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			ErrorLog:          newErrorLog(logger),
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          logger,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると Shutdown します。
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.listenAddr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve は既存のリスナーで待ち受けます。
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.WithField("addr", lis.Addr().String()).Info("http server listening")

	shutdownErr := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownErr <- s.Shutdown()
	}()

	if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}

	if err := <-shutdownErr; err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// Shutdown は処理中のリクエストの完了を待ってサーバーを停止します。
func (s *Server) Shutdown() error {
	ctx := context.Background()
	if s.shutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownTimeout)
		defer cancel()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}

func newErrorLog(logger logrus.FieldLogger) *log.Logger {
	return log.New(logger.WithField("component", "net/http").WriterLevel(logrus.WarnLevel), "", 0)
}
