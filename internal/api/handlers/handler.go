// handler.go — основной обработчик API Certstore.
// Объединяет все доменные обработчики и делегирует запросы в сервисный слой.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bigkaa/certstore/internal/repository"
	"github.com/bigkaa/certstore/internal/service"
)

// APIHandler — основной обработчик API Certstore.
// Делегирует запросы в сервисный слой.
type APIHandler struct {
	health    *HealthHandler
	certs     *service.CertificatesService
	events    *service.EventsService
	sync      *service.SheetSyncService
	sheetView *service.SheetViewService
	stats     *service.StatsService
	settings  *service.SettingsService
	logs      repository.VerificationLogRepository
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	certs *service.CertificatesService,
	events *service.EventsService,
	sync *service.SheetSyncService,
	sheetView *service.SheetViewService,
	stats *service.StatsService,
	settings *service.SettingsService,
	logs repository.VerificationLogRepository,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		certs:     certs,
		events:    events,
		sync:      sync,
		sheetView: sheetView,
		stats:     stats,
		settings:  settings,
		logs:      logs,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// paginationParams читает limit и offset из query-параметров запроса
// и нормализует их: limit 1..1000 (по умолчанию 100), offset >= 0.
func paginationParams(r *http.Request) (int, int) {
	l := 100
	o := 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			l = v
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			o = v
		}
	}

	if l < 1 {
		l = 1
	}
	if l > 1000 {
		l = 1000
	}
	if o < 0 {
		o = 0
	}

	return l, o
}

// optionalQuery возвращает указатель на значение query-параметра
// или nil, если параметр пуст.
func optionalQuery(r *http.Request, name string) *string {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil
	}
	return &v
}
