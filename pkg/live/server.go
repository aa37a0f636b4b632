package live

import (
	"context"
	"errors"
	"net/http"
	"time"

	"pipelinehealth/pkg/core/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server 独立端口上提供 /ws 与 /metrics
type Server struct {
	srv *http.Server
	log *logger.Log
}

func NewServer(addr string, hub *Hub, gatherer prometheus.Gatherer, log *logger.Log) *Server {
	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	if gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log.WithEntryName("LiveServer"),
	}
}

// Start 非阻塞
func (s *Server) Start() {
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("实时推送服务已启动")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithErr(err).Error("实时推送服务异常退出")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
