package arena

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jacl-coder/RhodesGacha-Server/internal/auth"
)

// Server 竞技场HTTP服务
type Server struct {
	port       int
	handler    *Handler
	httpServer *http.Server
}

// NewServer 创建竞技场服务
func NewServer(port int, service *Service, tokens *auth.TokenService) *Server {
	return &Server{
		port:    port,
		handler: NewHandler(service, tokens),
	}
}

// Handler HTTP路由
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.handler.RegisterHandlers(mux)
	return mux
}

// Run 启动服务直到ctx结束
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("竞技场服务启动，监听端口: %d", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("竞技场服务错误: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("竞技场服务关闭错误: %w", err)
	}
	log.Println("竞技场服务已停止")
	return nil
}
