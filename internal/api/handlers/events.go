// events.go — обработчики /api/v1/events endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
	"github.com/bigkaa/certstore/internal/api/middleware"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/service"
)

// ListEvents — GET /api/v1/events.
// Возвращает все события с количеством сертификатов.
// Доступ: admin или readonly.
func (h *APIHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения списка событий", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка событий")
		return
	}

	items := make([]eventResponse, len(events))
	for i, ev := range events {
		items[i] = mapEvent(ev)
	}

	writeJSON(w, http.StatusOK, eventListResponse{Items: items, Total: len(items)})
}

// GetEvent — GET /api/v1/events/{id}.
// Доступ: admin или readonly.
func (h *APIHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ev, err := h.events.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Событие не найдено")
			return
		}
		h.logger.Error("Ошибка получения события", "event_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения события")
		return
	}

	writeJSON(w, http.StatusOK, mapEvent(ev))
}

// CreateEvent — POST /api/v1/events.
// Создаёт событие. Код события уникален.
// Доступ: admin.
func (h *APIHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req service.EventInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	ev, err := h.events.Create(r.Context(), req, middleware.UsernameFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		if errors.Is(err, service.ErrConflict) {
			apierrors.Conflict(w, err.Error())
			return
		}
		h.logger.Error("Ошибка создания события", "error", err)
		apierrors.InternalError(w, "Ошибка создания события")
		return
	}

	writeJSON(w, http.StatusCreated, mapEvent(ev))
}

// --- Маппинг domain → API ---

// eventResponse — API-представление события.
type eventResponse struct {
	ID               string    `json:"id"`
	EventCode        string    `json:"eventCode"`
	EventName        string    `json:"eventName"`
	Year             int       `json:"year"`
	Month            int       `json:"month,omitempty"`
	Session          int       `json:"session,omitempty"`
	EventType        string    `json:"eventType,omitempty"`
	CertificateCount int       `json:"certificateCount"`
	CreatedAt        time.Time `json:"createdAt"`
	CreatedBy        string    `json:"createdBy,omitempty"`
}

// eventListResponse — список событий.
type eventListResponse struct {
	Items []eventResponse `json:"items"`
	Total int             `json:"total"`
}

// mapEvent конвертирует domain model в API-представление.
func mapEvent(ev *model.Event) eventResponse {
	return eventResponse{
		ID:               ev.ID,
		EventCode:        ev.EventCode,
		EventName:        ev.EventName,
		Year:             ev.Year,
		Month:            ev.Month,
		Session:          ev.Session,
		EventType:        ev.EventType,
		CertificateCount: ev.CertificateCount,
		CreatedAt:        ev.CreatedAt,
		CreatedBy:        ev.CreatedBy,
	}
}
