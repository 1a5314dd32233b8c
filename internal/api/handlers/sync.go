// sync.go — обработчики /api/v1/sync endpoints.
// Ручной запуск синхронизации БД с внешней таблицей.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
	"github.com/bigkaa/certstore/internal/api/middleware"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/service"
)

// importResponse — итог импорта из таблицы.
type importResponse struct {
	Message           string             `json:"message"`
	Processed         int                `json:"processed"`
	Success           []model.RowSuccess `json:"success"`
	Errors            []model.RowError   `json:"errors"`
	SheetUpdated      int                `json:"sheetUpdated"`
	SheetUpdateFailed int                `json:"sheetUpdateFailed"`
	StartedAt         time.Time          `json:"startedAt"`
	CompletedAt       time.Time          `json:"completedAt"`
}

// ImportFromSheet — POST /api/v1/sync/from-sheet.
// Импортирует необработанные строки таблицы в БД и пишет
// идентификаторы обратно в таблицу.
// Доступ: admin.
func (h *APIHandler) ImportFromSheet(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.ImportFromSheet(r.Context(), middleware.UsernameFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrSheetUnavailable) {
			apierrors.SheetUnavailable(w, err.Error())
			return
		}
		// Событие по умолчанию не заведено
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, err.Error())
			return
		}
		h.logger.Error("Ошибка импорта из таблицы", "error", err)
		apierrors.InternalError(w, "Ошибка импорта из таблицы")
		return
	}

	resp := importResponse{
		Message:           fmt.Sprintf("Импорт завершён: создано %d, ошибок %d", result.Processed, len(result.Errors)),
		Processed:         result.Processed,
		Success:           result.Success,
		Errors:            result.Errors,
		SheetUpdated:      result.SheetUpdated,
		SheetUpdateFailed: result.SheetUpdateFailed,
		StartedAt:         result.StartedAt,
		CompletedAt:       result.CompletedAt,
	}
	if resp.Success == nil {
		resp.Success = []model.RowSuccess{}
	}
	if resp.Errors == nil {
		resp.Errors = []model.RowError{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// exportResponse — итог экспорта в таблицу.
type exportResponse struct {
	Message     string    `json:"message"`
	Updated     int       `json:"updated"`
	Failed      int       `json:"failed"`
	Checked     int       `json:"checked"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

// ExportToSheet — POST /api/v1/sync/to-sheet.
// Сверяет обработанные строки таблицы с БД и исправляет расхождения.
// Доступ: admin.
func (h *APIHandler) ExportToSheet(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.ExportToSheet(r.Context())
	if err != nil {
		if errors.Is(err, service.ErrSheetUnavailable) {
			apierrors.SheetUnavailable(w, err.Error())
			return
		}
		h.logger.Error("Ошибка экспорта в таблицу", "error", err)
		apierrors.InternalError(w, "Ошибка экспорта в таблицу")
		return
	}

	resp := exportResponse{
		Message:     fmt.Sprintf("Экспорт завершён: исправлено %d из %d, ошибок %d", result.Updated, result.Checked, result.Failed),
		Updated:     result.Updated,
		Failed:      result.Failed,
		Checked:     result.Checked,
		StartedAt:   result.StartedAt,
		CompletedAt: result.CompletedAt,
	}

	writeJSON(w, http.StatusOK, resp)
}
