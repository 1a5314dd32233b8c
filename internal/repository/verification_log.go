package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/certstore/internal/domain/model"
)

// VerificationLogRepository — интерфейс для таблицы verification_logs.
// Записи создаёт публичный портал проверки; здесь журнал читается
// для отображения в админке.
type VerificationLogRepository interface {
	// Create записывает факт проверки сертификата.
	Create(ctx context.Context, l *model.VerificationLog) error
	// List возвращает страницу журнала, новые записи первыми.
	List(ctx context.Context, limit, offset int) ([]*model.VerificationLog, error)
	// ListByCertificate возвращает журнал одного сертификата.
	ListByCertificate(ctx context.Context, certificateID string, limit, offset int) ([]*model.VerificationLog, error)
	// Count возвращает общее число записей журнала.
	Count(ctx context.Context) (int, error)
}

// verificationLogRepo — реализация VerificationLogRepository.
type verificationLogRepo struct {
	db DBTX
}

// NewVerificationLogRepository создаёт репозиторий журнала проверок.
func NewVerificationLogRepository(db DBTX) VerificationLogRepository {
	return &verificationLogRepo{db: db}
}

func (r *verificationLogRepo) Create(ctx context.Context, l *model.VerificationLog) error {
	query := `
		INSERT INTO verification_logs (certificate_id, ip_address, user_agent)
		VALUES ($1, $2, $3)
		RETURNING id, verified_at`

	err := r.db.QueryRow(ctx, query, l.CertificateID, l.IPAddress, l.UserAgent).
		Scan(&l.ID, &l.VerifiedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала проверок: %w", err)
	}
	return nil
}

// logColumns — колонки журнала с JOIN сертификата.
const logColumns = `
	l.id, l.certificate_id, l.verified_at, l.ip_address, l.user_agent,
	c.certificate_id, c.participant_name`

func (r *verificationLogRepo) list(ctx context.Context, where string, filterArgs []any, limit, offset int) ([]*model.VerificationLog, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM verification_logs l
		JOIN certificates c ON c.id = l.certificate_id
		%s
		ORDER BY l.verified_at DESC
		LIMIT $%d OFFSET $%d`, logColumns, where, len(filterArgs)+1, len(filterArgs)+2)

	args := append(filterArgs, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала проверок: %w", err)
	}
	defer rows.Close()

	var result []*model.VerificationLog
	for rows.Next() {
		l := &model.VerificationLog{}
		if err := rows.Scan(
			&l.ID, &l.CertificateID, &l.VerifiedAt, &l.IPAddress, &l.UserAgent,
			&l.PublicID, &l.ParticipantName,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования журнала: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}

func (r *verificationLogRepo) List(ctx context.Context, limit, offset int) ([]*model.VerificationLog, error) {
	return r.list(ctx, "", nil, limit, offset)
}

func (r *verificationLogRepo) ListByCertificate(ctx context.Context, certificateID string, limit, offset int) ([]*model.VerificationLog, error) {
	return r.list(ctx, "WHERE l.certificate_id = $1", []any{certificateID}, limit, offset)
}

func (r *verificationLogRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM verification_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта журнала: %w", err)
	}
	return count, nil
}
