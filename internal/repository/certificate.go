package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/certstore/internal/domain/model"
)

// CertificateFilter — фильтры списка сертификатов.
// nil-поле означает отсутствие фильтра.
type CertificateFilter struct {
	// Поиск по имени участника, публичному идентификатору или школе (ILIKE)
	Search *string
	// UUID события
	EventID *string
	// Статус (active, revoked)
	Status *string
	// Категория сертификата
	CertificateType *string
}

// CertificateRepository — интерфейс CRUD для таблиц certificates
// и certificate_metadata.
type CertificateRepository interface {
	// Create создаёт сертификат вместе с метаданными.
	Create(ctx context.Context, c *model.Certificate) error
	// GetByID возвращает сертификат по UUID вместе с событием и метаданными.
	GetByID(ctx context.Context, id string) (*model.Certificate, error)
	// GetByCertificateID возвращает сертификат по публичному идентификатору.
	GetByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error)
	// ExistsByCertificateID проверяет занятость публичного идентификатора.
	ExistsByCertificateID(ctx context.Context, certificateID string) (bool, error)
	// List возвращает страницу сертификатов с событиями, без метаданных.
	List(ctx context.Context, filter CertificateFilter, limit, offset int) ([]*model.Certificate, error)
	// ListWithMetadata возвращает сертификаты с событиями и метаданными.
	ListWithMetadata(ctx context.Context, filter CertificateFilter, limit, offset int) ([]*model.Certificate, error)
	// Count возвращает количество сертификатов под фильтром.
	Count(ctx context.Context, filter CertificateFilter) (int, error)
	// Update обновляет изменяемые поля сертификата и заменяет метаданные.
	Update(ctx context.Context, c *model.Certificate) error
	// Revoke переводит сертификат в статус revoked.
	Revoke(ctx context.Context, id, revokedBy, reason string) error
	// Restore возвращает сертификат в статус active.
	Restore(ctx context.Context, id string) error
	// Delete удаляет сертификат (метаданные и журнал — каскадно).
	Delete(ctx context.Context, id string) error
	// StatusCounts возвращает общее число сертификатов и разбивку по статусам.
	StatusCounts(ctx context.Context) (total, active, revoked int, err error)
	// TotalVerifications возвращает суммарное число проверок по всем сертификатам.
	TotalVerifications(ctx context.Context) (int64, error)
}

// certificateRepo — реализация CertificateRepository.
type certificateRepo struct {
	db DBTX
}

// NewCertificateRepository создаёт репозиторий сертификатов.
func NewCertificateRepository(db DBTX) CertificateRepository {
	return &certificateRepo{db: db}
}

func (r *certificateRepo) Create(ctx context.Context, c *model.Certificate) error {
	query := `
		INSERT INTO certificates (id, certificate_id, event_id, certificate_type,
			participant_name, school, date_issued, status, verification_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7::date, $8, $9, $10)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		c.ID, c.CertificateID, c.EventID, c.CertificateType,
		c.ParticipantName, c.School, c.DateIssued, c.Status,
		c.VerificationURL, c.CreatedBy,
	).Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: публичный идентификатор %s уже занят", ErrConflict, c.CertificateID)
		}
		return fmt.Errorf("ошибка создания сертификата: %w", err)
	}

	return r.insertMetadata(ctx, c.ID, c.Metadata)
}

// certificateColumns — общий список колонок с JOIN события.
const certificateColumns = `
	c.id, c.certificate_id, c.event_id, c.certificate_type,
	c.participant_name, c.school, c.date_issued::text, c.status,
	c.revoked_at, c.revoked_by, c.revoked_reason,
	c.verification_url, c.verification_count, c.last_verified_at,
	c.created_at, c.created_by,
	e.id, e.event_code, e.event_name, e.year, e.month, e.session, e.event_type,
	e.created_at, e.created_by`

// scanCertificate сканирует строку с колонками certificateColumns.
func scanCertificate(row pgx.Row) (*model.Certificate, error) {
	c := &model.Certificate{Event: &model.Event{}}
	err := row.Scan(
		&c.ID, &c.CertificateID, &c.EventID, &c.CertificateType,
		&c.ParticipantName, &c.School, &c.DateIssued, &c.Status,
		&c.RevokedAt, &c.RevokedBy, &c.RevokedReason,
		&c.VerificationURL, &c.VerificationCount, &c.LastVerifiedAt,
		&c.CreatedAt, &c.CreatedBy,
		&c.Event.ID, &c.Event.EventCode, &c.Event.EventName, &c.Event.Year,
		&c.Event.Month, &c.Event.Session, &c.Event.EventType,
		&c.Event.CreatedAt, &c.Event.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *certificateRepo) getBy(ctx context.Context, column, value string) (*model.Certificate, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM certificates c
		JOIN events e ON e.id = c.event_id
		WHERE c.%s = $1`, certificateColumns, column)

	c, err := scanCertificate(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения сертификата: %w", err)
	}

	c.Metadata, err = r.loadMetadata(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *certificateRepo) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	return r.getBy(ctx, "id", id)
}

func (r *certificateRepo) GetByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error) {
	return r.getBy(ctx, "certificate_id", certificateID)
}

func (r *certificateRepo) ExistsByCertificateID(ctx context.Context, certificateID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM certificates WHERE certificate_id = $1)`,
		certificateID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки идентификатора: %w", err)
	}
	return exists, nil
}

// buildFilter собирает WHERE из фильтра. Возвращает условие, аргументы
// и номер следующего плейсхолдера.
func buildFilter(f CertificateFilter) (string, []any, int) {
	var conditions []string
	var args []any
	argNum := 1

	if f.Search != nil {
		conditions = append(conditions, fmt.Sprintf(
			"(c.participant_name ILIKE $%d OR c.certificate_id ILIKE $%d OR c.school ILIKE $%d)",
			argNum, argNum, argNum))
		args = append(args, "%"+*f.Search+"%")
		argNum++
	}
	if f.EventID != nil {
		conditions = append(conditions, fmt.Sprintf("c.event_id = $%d", argNum))
		args = append(args, *f.EventID)
		argNum++
	}
	if f.Status != nil {
		conditions = append(conditions, fmt.Sprintf("c.status = $%d", argNum))
		args = append(args, *f.Status)
		argNum++
	}
	if f.CertificateType != nil {
		conditions = append(conditions, fmt.Sprintf("c.certificate_type = $%d", argNum))
		args = append(args, *f.CertificateType)
		argNum++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	return where, args, argNum
}

func (r *certificateRepo) List(ctx context.Context, filter CertificateFilter, limit, offset int) ([]*model.Certificate, error) {
	where, args, argNum := buildFilter(filter)

	query := fmt.Sprintf(`
		SELECT %s
		FROM certificates c
		JOIN events e ON e.id = c.event_id
		%s
		ORDER BY c.created_at DESC
		LIMIT $%d OFFSET $%d`, certificateColumns, where, argNum, argNum+1)

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка сертификатов: %w", err)
	}
	defer rows.Close()

	var result []*model.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования сертификата: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func (r *certificateRepo) ListWithMetadata(ctx context.Context, filter CertificateFilter, limit, offset int) ([]*model.Certificate, error) {
	certs, err := r.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(certs) == 0 {
		return certs, nil
	}

	ids := make([]string, 0, len(certs))
	byID := make(map[string]*model.Certificate, len(certs))
	for _, c := range certs {
		ids = append(ids, c.ID)
		byID[c.ID] = c
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, certificate_id, field_name, field_value, field_type
		FROM certificate_metadata
		WHERE certificate_id = ANY($1)
		ORDER BY field_name`, ids)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения метаданных: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m model.CertificateMetadata
		if err := rows.Scan(&m.ID, &m.CertificateID, &m.FieldName, &m.FieldValue, &m.FieldType); err != nil {
			return nil, fmt.Errorf("ошибка сканирования метаданных: %w", err)
		}
		if c, ok := byID[m.CertificateID]; ok {
			c.Metadata = append(c.Metadata, m)
		}
	}
	return certs, rows.Err()
}

func (r *certificateRepo) Count(ctx context.Context, filter CertificateFilter) (int, error) {
	where, args, _ := buildFilter(filter)

	query := fmt.Sprintf(`SELECT COUNT(*) FROM certificates c %s`, where)

	var count int
	err := r.db.QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта сертификатов: %w", err)
	}
	return count, nil
}

func (r *certificateRepo) Update(ctx context.Context, c *model.Certificate) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE certificates
		SET certificate_type = $2, participant_name = $3, school = $4,
			date_issued = $5::date, event_id = $6
		WHERE id = $1`,
		c.ID, c.CertificateType, c.ParticipantName, c.School, c.DateIssued, c.EventID)
	if err != nil {
		return fmt.Errorf("ошибка обновления сертификата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	// Замена метаданных целиком
	if _, err := r.db.Exec(ctx,
		`DELETE FROM certificate_metadata WHERE certificate_id = $1`, c.ID); err != nil {
		return fmt.Errorf("ошибка очистки метаданных: %w", err)
	}
	return r.insertMetadata(ctx, c.ID, c.Metadata)
}

func (r *certificateRepo) Revoke(ctx context.Context, id, revokedBy, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE certificates
		SET status = 'revoked', revoked_at = now(), revoked_by = $2, revoked_reason = $3
		WHERE id = $1 AND status = 'active'`,
		id, revokedBy, reason)
	if err != nil {
		return fmt.Errorf("ошибка отзыва сертификата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *certificateRepo) Restore(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE certificates
		SET status = 'active', revoked_at = NULL, revoked_by = NULL, revoked_reason = NULL
		WHERE id = $1 AND status = 'revoked'`,
		id)
	if err != nil {
		return fmt.Errorf("ошибка восстановления сертификата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *certificateRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка удаления сертификата: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *certificateRepo) StatusCounts(ctx context.Context) (total, active, revoked int, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'revoked')
		FROM certificates`).Scan(&total, &active, &revoked)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка подсчёта по статусам: %w", err)
	}
	return total, active, revoked, nil
}

func (r *certificateRepo) TotalVerifications(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(verification_count), 0) FROM certificates`).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта проверок: %w", err)
	}
	return total, nil
}

// loadMetadata загружает метаданные одного сертификата.
func (r *certificateRepo) loadMetadata(ctx context.Context, certificateID string) ([]model.CertificateMetadata, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, certificate_id, field_name, field_value, field_type
		FROM certificate_metadata
		WHERE certificate_id = $1
		ORDER BY field_name`, certificateID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения метаданных: %w", err)
	}
	defer rows.Close()

	var result []model.CertificateMetadata
	for rows.Next() {
		var m model.CertificateMetadata
		if err := rows.Scan(&m.ID, &m.CertificateID, &m.FieldName, &m.FieldValue, &m.FieldType); err != nil {
			return nil, fmt.Errorf("ошибка сканирования метаданных: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// insertMetadata вставляет метаданные сертификата.
func (r *certificateRepo) insertMetadata(ctx context.Context, certificateID string, metadata []model.CertificateMetadata) error {
	for i := range metadata {
		m := &metadata[i]
		m.CertificateID = certificateID
		if m.FieldType == "" {
			m.FieldType = "text"
		}
		err := r.db.QueryRow(ctx, `
			INSERT INTO certificate_metadata (certificate_id, field_name, field_value, field_type)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			m.CertificateID, m.FieldName, m.FieldValue, m.FieldType,
		).Scan(&m.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: поле %s уже задано", ErrConflict, m.FieldName)
			}
			return fmt.Errorf("ошибка сохранения метаданных: %w", err)
		}
	}
	return nil
}
