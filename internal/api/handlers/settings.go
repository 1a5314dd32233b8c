// settings.go — обработчики /api/v1/settings endpoints.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
	"github.com/bigkaa/certstore/internal/api/middleware"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/service"
)

// ListSettings — GET /api/v1/settings.
// Возвращает все настройки портала.
// Доступ: admin или readonly.
func (h *APIHandler) ListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.List(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения настроек", "error", err)
		apierrors.InternalError(w, "Ошибка получения настроек")
		return
	}
	if settings == nil {
		settings = []model.Setting{}
	}

	writeJSON(w, http.StatusOK, settings)
}

// GetSetting — GET /api/v1/settings/{key}.
// Доступ: admin или readonly.
func (h *APIHandler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	setting, err := h.settings.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Настройка не найдена")
			return
		}
		h.logger.Error("Ошибка получения настройки", "key", key, "error", err)
		apierrors.InternalError(w, "Ошибка получения настройки")
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

// settingUpdateRequest — тело запроса обновления настройки.
type settingUpdateRequest struct {
	Value string `json:"value"`
}

// UpdateSetting — PUT /api/v1/settings/{key}.
// Обновляет значение настройки. Ключ и значение валидируются.
// Доступ: admin.
func (h *APIHandler) UpdateSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req settingUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	err := h.settings.Set(r.Context(), key, req.Value, middleware.UsernameFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка обновления настройки", "key", key, "error", err)
		apierrors.InternalError(w, "Ошибка обновления настройки")
		return
	}

	setting, err := h.settings.Get(r.Context(), key)
	if err != nil {
		h.logger.Error("Ошибка чтения настройки после обновления", "key", key, "error", err)
		apierrors.InternalError(w, "Ошибка чтения настройки после обновления")
		return
	}

	writeJSON(w, http.StatusOK, setting)
}
