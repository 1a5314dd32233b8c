// stats.go — обработчик /api/v1/stats.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
)

// GetStats — GET /api/v1/stats.
// Сводные показатели для главной страницы портала.
// Доступ: admin или readonly.
func (h *APIHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("Ошибка получения статистики", "error", err)
		apierrors.InternalError(w, "Ошибка получения статистики")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
