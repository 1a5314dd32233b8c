// Пакет server — HTTP-сервер Certstore с graceful shutdown.
// Без TLS — HTTP внутри кластера, TLS termination на API Gateway.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/bigkaa/certstore/internal/api/handlers"
	"github.com/bigkaa/certstore/internal/api/middleware"
	"github.com/bigkaa/certstore/internal/config"
	"github.com/bigkaa/certstore/internal/domain/rbac"
)

// Server — HTTP-сервер Certstore.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// jwtAuth — JWT middleware (может быть nil для тестирования без auth).
func New(cfg *config.Config, logger *slog.Logger, handler *handlers.APIHandler, jwtAuth *middleware.JWTAuth) *Server {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Публичные endpoints: health и metrics проверяются Kubernetes
	// напрямую, без API Gateway и без JWT.
	router.Get("/health/live", handler.HealthLive)
	router.Get("/health/ready", handler.HealthReady)
	router.Get("/metrics", handler.GetMetrics)

	// API под JWT. Чтение — admin или readonly, изменение — только admin.
	router.Route("/api/v1", func(r chi.Router) {
		if jwtAuth != nil {
			r.Use(jwtAuth.Middleware())
		}

		readAccess := middleware.RequireRole(rbac.RoleAdmin, rbac.RoleReadonly)
		adminOnly := middleware.RequireRole(rbac.RoleAdmin)

		r.Group(func(r chi.Router) {
			r.Use(readAccess)
			r.Get("/certificates", handler.ListCertificates)
			r.Get("/certificates/export", handler.ExportCertificates)
			r.Get("/certificates/{id}", handler.GetCertificate)
			r.Get("/certificates/{id}/logs", handler.ListCertificateLogs)
			r.Get("/events", handler.ListEvents)
			r.Get("/events/{id}", handler.GetEvent)
			r.Get("/sheet", handler.GetSheet)
			r.Get("/sheet/stats", handler.GetSheetStats)
			r.Get("/stats", handler.GetStats)
			r.Get("/logs", handler.ListVerificationLogs)
			r.Get("/settings", handler.ListSettings)
			r.Get("/settings/{key}", handler.GetSetting)
		})

		r.Group(func(r chi.Router) {
			r.Use(adminOnly)
			r.Post("/certificates", handler.CreateCertificate)
			r.Post("/certificates/bulk-import", handler.BulkImportCertificates)
			r.Put("/certificates/{id}", handler.UpdateCertificate)
			r.Delete("/certificates/{id}", handler.DeleteCertificate)
			r.Post("/certificates/{id}/revoke", handler.RevokeCertificate)
			r.Post("/certificates/{id}/restore", handler.RestoreCertificate)
			r.Post("/events", handler.CreateEvent)
			r.Post("/sync/from-sheet", handler.ImportFromSheet)
			r.Post("/sync/to-sheet", handler.ExportToSheet)
			r.Put("/settings/{key}", handler.UpdateSetting)
		})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
