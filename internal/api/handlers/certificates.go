// certificates.go — обработчики /api/v1/certificates endpoints.
// CRUD сертификатов, отзыв/восстановление, экспорт, массовый импорт.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
	"github.com/bigkaa/certstore/internal/api/middleware"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/repository"
	"github.com/bigkaa/certstore/internal/service"
)

// ListCertificates — GET /api/v1/certificates.
// Список сертификатов с фильтрами и пагинацией.
// Доступ: admin или readonly.
func (h *APIHandler) ListCertificates(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	filter := repository.CertificateFilter{
		Search:          optionalQuery(r, "search"),
		EventID:         optionalQuery(r, "eventId"),
		Status:          optionalQuery(r, "status"),
		CertificateType: optionalQuery(r, "type"),
	}

	certs, total, err := h.certs.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения списка сертификатов", "error", err)
		apierrors.InternalError(w, "Ошибка получения списка сертификатов")
		return
	}

	items := make([]certificateResponse, len(certs))
	for i, c := range certs {
		items[i] = mapCertificate(c)
	}

	resp := certificateListResponse{
		Items:   items,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCertificate — GET /api/v1/certificates/{id}.
// Возвращает сертификат по UUID вместе с метаданными и событием.
// Доступ: admin или readonly.
func (h *APIHandler) GetCertificate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	cert, err := h.certs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Сертификат не найден")
			return
		}
		h.logger.Error("Ошибка получения сертификата", "certificate_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения сертификата")
		return
	}

	writeJSON(w, http.StatusOK, mapCertificate(cert))
}

// CreateCertificate — POST /api/v1/certificates.
// Выпускает новый сертификат: генерация идентификатора, запись в БД,
// добавление строки во внешнюю таблицу.
// Доступ: admin.
func (h *APIHandler) CreateCertificate(w http.ResponseWriter, r *http.Request) {
	var req service.CertificateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	cert, err := h.certs.Create(r.Context(), req, middleware.UsernameFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		if errors.Is(err, service.ErrNotFound) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка создания сертификата", "error", err)
		apierrors.InternalError(w, "Ошибка создания сертификата")
		return
	}

	writeJSON(w, http.StatusCreated, mapCertificate(cert))
}

// UpdateCertificate — PUT /api/v1/certificates/{id}.
// Обновляет изменяемые поля сертификата. Публичный идентификатор
// и URL верификации не меняются.
// Доступ: admin.
func (h *APIHandler) UpdateCertificate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req service.CertificateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}

	cert, err := h.certs.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Сертификат не найден")
			return
		}
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка обновления сертификата", "certificate_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка обновления сертификата")
		return
	}

	writeJSON(w, http.StatusOK, mapCertificate(cert))
}

// revokeRequest — тело запроса отзыва сертификата.
type revokeRequest struct {
	Reason string `json:"reason"`
}

// RevokeCertificate — POST /api/v1/certificates/{id}/revoke.
// Переводит сертификат в статус revoked и ставит обновление
// статуса строки таблицы в очередь.
// Доступ: admin.
func (h *APIHandler) RevokeCertificate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req revokeRequest
	if r.Body != nil {
		// Тело опционально: отзыв без причины допустим.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	err := h.certs.Revoke(r.Context(), id, middleware.UsernameFromContext(r.Context()), req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Сертификат не найден")
			return
		}
		h.logger.Error("Ошибка отзыва сертификата", "certificate_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка отзыва сертификата")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Сертификат отозван"})
}

// RestoreCertificate — POST /api/v1/certificates/{id}/restore.
// Возвращает отозванный сертификат в статус active.
// Доступ: admin.
func (h *APIHandler) RestoreCertificate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.certs.Restore(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Сертификат не найден")
			return
		}
		h.logger.Error("Ошибка восстановления сертификата", "certificate_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка восстановления сертификата")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Сертификат восстановлен"})
}

// DeleteCertificate — DELETE /api/v1/certificates/{id}.
// Удаляет сертификат из БД и очищает строку внешней таблицы.
// Доступ: admin.
func (h *APIHandler) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := h.certs.Delete(r.Context(), id, middleware.UsernameFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			apierrors.NotFound(w, "Сертификат не найден")
			return
		}
		h.logger.Error("Ошибка удаления сертификата", "certificate_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка удаления сертификата")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportCertificates — GET /api/v1/certificates/export?format=csv|json.
// Выгружает сертификаты под текущим фильтром файлом.
// Доступ: admin или readonly.
func (h *APIHandler) ExportCertificates(w http.ResponseWriter, r *http.Request) {
	filter := repository.CertificateFilter{
		Search:          optionalQuery(r, "search"),
		EventID:         optionalQuery(r, "eventId"),
		Status:          optionalQuery(r, "status"),
		CertificateType: optionalQuery(r, "type"),
	}
	format := r.URL.Query().Get("format")

	data, contentType, err := h.certs.Export(r.Context(), filter, format)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			apierrors.ValidationError(w, err.Error())
			return
		}
		h.logger.Error("Ошибка экспорта сертификатов", "format", format, "error", err)
		apierrors.InternalError(w, "Ошибка экспорта сертификатов")
		return
	}

	ext := "csv"
	if contentType == "application/json" {
		ext = "json"
	}
	filename := fmt.Sprintf("certificates-%s.%s", time.Now().UTC().Format("2006-01-02"), ext)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// bulkImportRequest — тело запроса массового импорта.
type bulkImportRequest struct {
	Certificates []service.CertificateInput `json:"certificates"`
}

// BulkImportCertificates — POST /api/v1/certificates/bulk-import.
// Выпускает сертификаты по загруженному списку. Ошибка одной записи
// не прерывает остальные.
// Доступ: admin.
func (h *APIHandler) BulkImportCertificates(w http.ResponseWriter, r *http.Request) {
	var req bulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.ValidationError(w, "Некорректный JSON: "+err.Error())
		return
	}
	if len(req.Certificates) == 0 {
		apierrors.ValidationError(w, "Список сертификатов пуст")
		return
	}

	result, err := h.certs.BulkImport(r.Context(), req.Certificates, middleware.UsernameFromContext(r.Context()))
	if err != nil {
		h.logger.Error("Ошибка массового импорта", "error", err)
		apierrors.InternalError(w, "Ошибка массового импорта")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// --- Маппинг domain → API ---

// messageResponse — простой ответ с сообщением.
type messageResponse struct {
	Message string `json:"message"`
}

// certificateResponse — API-представление сертификата.
type certificateResponse struct {
	ID                string            `json:"id"`
	CertificateID     string            `json:"certificateId"`
	EventID           string            `json:"eventId"`
	Event             *eventResponse    `json:"event,omitempty"`
	CertificateType   string            `json:"certificateType"`
	ParticipantName   string            `json:"participantName"`
	School            string            `json:"school,omitempty"`
	DateIssued        string            `json:"dateIssued"`
	Status            string            `json:"status"`
	RevokedAt         *time.Time        `json:"revokedAt,omitempty"`
	RevokedBy         *string           `json:"revokedBy,omitempty"`
	RevokedReason     *string           `json:"revokedReason,omitempty"`
	VerificationURL   string            `json:"verificationUrl"`
	VerificationCount int               `json:"verificationCount"`
	LastVerifiedAt    *time.Time        `json:"lastVerifiedAt,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	CreatedBy         string            `json:"createdBy,omitempty"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// certificateListResponse — страница списка сертификатов.
type certificateListResponse struct {
	Items   []certificateResponse `json:"items"`
	Total   int                   `json:"total"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
	HasMore bool                  `json:"hasMore"`
}

// mapCertificate конвертирует domain model в API-представление.
func mapCertificate(c *model.Certificate) certificateResponse {
	resp := certificateResponse{
		ID:                c.ID,
		CertificateID:     c.CertificateID,
		EventID:           c.EventID,
		CertificateType:   c.CertificateType,
		ParticipantName:   c.ParticipantName,
		School:            c.School,
		DateIssued:        c.DateIssued,
		Status:            c.Status,
		RevokedAt:         c.RevokedAt,
		RevokedBy:         c.RevokedBy,
		RevokedReason:     c.RevokedReason,
		VerificationURL:   c.VerificationURL,
		VerificationCount: c.VerificationCount,
		LastVerifiedAt:    c.LastVerifiedAt,
		CreatedAt:         c.CreatedAt,
		CreatedBy:         c.CreatedBy,
	}

	if c.Event != nil {
		ev := mapEvent(c.Event)
		resp.Event = &ev
	}
	if len(c.Metadata) > 0 {
		resp.Metadata = make(map[string]string, len(c.Metadata))
		for _, m := range c.Metadata {
			resp.Metadata[m.FieldName] = m.FieldValue
		}
	}

	return resp
}
