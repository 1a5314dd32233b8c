// sheet.go — обработчики /api/v1/sheet endpoints.
// Просмотр внешней таблицы через TTL-кеш.
package handlers

import (
	"errors"
	"net/http"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/service"
)

// sheetResponse — строки внешней таблицы.
type sheetResponse struct {
	Rows  []model.SheetRow `json:"rows"`
	Total int              `json:"total"`
}

// GetSheet — GET /api/v1/sheet?refresh=true.
// Возвращает строки внешней таблицы. По умолчанию из кеша,
// refresh=true принудительно перечитывает таблицу.
// Доступ: admin или readonly.
func (h *APIHandler) GetSheet(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	rows, err := h.sheetView.Rows(r.Context(), forceRefresh)
	if err != nil {
		if errors.Is(err, service.ErrSheetUnavailable) {
			apierrors.SheetUnavailable(w, err.Error())
			return
		}
		h.logger.Error("Ошибка чтения таблицы", "error", err)
		apierrors.InternalError(w, "Ошибка чтения таблицы")
		return
	}
	if rows == nil {
		rows = []model.SheetRow{}
	}

	writeJSON(w, http.StatusOK, sheetResponse{Rows: rows, Total: len(rows)})
}

// GetSheetStats — GET /api/v1/sheet/stats.
// Сводка по таблице: всего строк, обработано, ожидает, по категориям.
// Доступ: admin или readonly.
func (h *APIHandler) GetSheetStats(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	stats, err := h.sheetView.Stats(r.Context(), forceRefresh)
	if err != nil {
		if errors.Is(err, service.ErrSheetUnavailable) {
			apierrors.SheetUnavailable(w, err.Error())
			return
		}
		h.logger.Error("Ошибка получения сводки таблицы", "error", err)
		apierrors.InternalError(w, "Ошибка получения сводки таблицы")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
