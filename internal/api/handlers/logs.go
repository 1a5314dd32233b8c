// logs.go — обработчики журналов верификации.
// Записи создаёт публичный портал проверки; админка только читает их.
package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/certstore/internal/api/errors"
	"github.com/bigkaa/certstore/internal/domain/model"
)

// verificationLogResponse — API-представление записи журнала.
type verificationLogResponse struct {
	ID              string    `json:"id"`
	CertificateID   string    `json:"certificateId"`
	PublicID        string    `json:"publicId,omitempty"`
	ParticipantName string    `json:"participantName,omitempty"`
	VerifiedAt      time.Time `json:"verifiedAt"`
	IPAddress       *string   `json:"ipAddress,omitempty"`
	UserAgent       *string   `json:"userAgent,omitempty"`
}

// verificationLogListResponse — страница журнала верификации.
type verificationLogListResponse struct {
	Items   []verificationLogResponse `json:"items"`
	Total   int                       `json:"total"`
	Limit   int                       `json:"limit"`
	Offset  int                       `json:"offset"`
	HasMore bool                      `json:"hasMore"`
}

// ListVerificationLogs — GET /api/v1/logs.
// Журнал проверок по всем сертификатам, новые записи первыми.
// Доступ: admin или readonly.
func (h *APIHandler) ListVerificationLogs(w http.ResponseWriter, r *http.Request) {
	limit, offset := paginationParams(r)

	logs, err := h.logs.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения журнала верификации", "error", err)
		apierrors.InternalError(w, "Ошибка получения журнала верификации")
		return
	}

	total, err := h.logs.Count(r.Context())
	if err != nil {
		h.logger.Error("Ошибка подсчёта журнала верификации", "error", err)
		apierrors.InternalError(w, "Ошибка получения журнала верификации")
		return
	}

	resp := verificationLogListResponse{
		Items:   mapVerificationLogs(logs),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+limit < total,
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListCertificateLogs — GET /api/v1/certificates/{id}/logs.
// Журнал проверок одного сертификата.
// Доступ: admin или readonly.
func (h *APIHandler) ListCertificateLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit, offset := paginationParams(r)

	logs, err := h.logs.ListByCertificate(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("Ошибка получения журнала сертификата", "certificate_id", id, "error", err)
		apierrors.InternalError(w, "Ошибка получения журнала сертификата")
		return
	}

	resp := verificationLogListResponse{
		Items:  mapVerificationLogs(logs),
		Total:  len(logs),
		Limit:  limit,
		Offset: offset,
	}

	writeJSON(w, http.StatusOK, resp)
}

// mapVerificationLogs конвертирует записи журнала в API-представление.
func mapVerificationLogs(logs []*model.VerificationLog) []verificationLogResponse {
	items := make([]verificationLogResponse, len(logs))
	for i, l := range logs {
		items[i] = verificationLogResponse{
			ID:              l.ID,
			CertificateID:   l.CertificateID,
			PublicID:        l.PublicID,
			ParticipantName: l.ParticipantName,
			VerifiedAt:      l.VerifiedAt,
			IPAddress:       l.IPAddress,
			UserAgent:       l.UserAgent,
		}
	}
	return items
}
