package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"pos-handoff-svc/src/clients"
	"pos-handoff-svc/src/internal/config"
	"pos-handoff-svc/src/internal/dependency"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var log = logrus.StandardLogger()

type Server struct {
	cfg  *config.Configuration
	deps *dependency.Manager
}

func New(cfg *config.Configuration) *Server {
	return &Server{cfg: cfg}
}

// Start connects all backing services, wires dependencies and serves HTTP
// until an interrupt arrives.
func (s *Server) Start() error {
	gin.SetMode(s.cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery())

	mongodb, err := clients.NewMongoDB(&s.cfg.Database)
	if err != nil {
		return err
	}

	redisClient, err := clients.NewRedisClient(&s.cfg.Redis)
	if err != nil {
		return err
	}

	rabbitMQ, err := clients.NewRabbitMQ(&s.cfg.Queue)
	if err != nil {
		return err
	}
	if err := rabbitMQ.SetupExchange(); err != nil {
		return err
	}

	s.deps = dependency.NewDependencyManager(router, mongodb, redisClient, rabbitMQ, s.cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.Database.Timeout)*time.Second)
	if err := s.deps.SessionRepo.EnsureIndexes(ctx); err != nil {
		cancel()
		return err
	}
	cancel()

	SetupRoutes(s.deps)

	if s.cfg.Sweeper.Enabled {
		s.deps.Sweeper.Start()
	}

	srv := &http.Server{
		Addr:         ":" + s.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("HTTP server listening on port %s", s.cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Infof("Received signal %s, shutting down...", sig)
	}

	if s.cfg.Sweeper.Enabled {
		s.deps.Sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("HTTP server shutdown failed")
	}

	rabbitMQ.Close()
	redisClient.Close()
	mongodb.Close(shutdownCtx)

	log.Info("Server stopped")
	return nil
}
