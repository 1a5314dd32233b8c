package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/certstore/internal/domain/model"
)

// EventRepository — интерфейс для таблицы events.
type EventRepository interface {
	// Create создаёт новое событие.
	Create(ctx context.Context, e *model.Event) error
	// GetByID возвращает событие по UUID.
	GetByID(ctx context.Context, id string) (*model.Event, error)
	// GetByCode возвращает событие по коду.
	GetByCode(ctx context.Context, code string) (*model.Event, error)
	// List возвращает все события с количеством сертификатов.
	List(ctx context.Context) ([]*model.Event, error)
	// Count возвращает общее количество событий.
	Count(ctx context.Context) (int, error)
}

// eventRepo — реализация EventRepository.
type eventRepo struct {
	db DBTX
}

// NewEventRepository создаёт репозиторий событий.
func NewEventRepository(db DBTX) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) Create(ctx context.Context, e *model.Event) error {
	query := `
		INSERT INTO events (id, event_code, event_name, year, month, session, event_type, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query,
		e.ID, e.EventCode, e.EventName, e.Year, e.Month, e.Session, e.EventType, e.CreatedBy,
	).Scan(&e.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: событие с кодом %s уже существует", ErrConflict, e.EventCode)
		}
		return fmt.Errorf("ошибка создания события: %w", err)
	}
	return nil
}

func (r *eventRepo) getBy(ctx context.Context, column, value string) (*model.Event, error) {
	query := fmt.Sprintf(`
		SELECT id, event_code, event_name, year, month, session, event_type, created_at, created_by
		FROM events
		WHERE %s = $1`, column)

	e := &model.Event{}
	err := r.db.QueryRow(ctx, query, value).Scan(
		&e.ID, &e.EventCode, &e.EventName, &e.Year, &e.Month, &e.Session,
		&e.EventType, &e.CreatedAt, &e.CreatedBy,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения события: %w", err)
	}
	return e, nil
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*model.Event, error) {
	return r.getBy(ctx, "id", id)
}

func (r *eventRepo) GetByCode(ctx context.Context, code string) (*model.Event, error) {
	return r.getBy(ctx, "event_code", code)
}

func (r *eventRepo) List(ctx context.Context) ([]*model.Event, error) {
	query := `
		SELECT e.id, e.event_code, e.event_name, e.year, e.month, e.session,
			e.event_type, e.created_at, e.created_by,
			COUNT(c.id) AS certificate_count
		FROM events e
		LEFT JOIN certificates c ON c.event_id = e.id
		GROUP BY e.id
		ORDER BY e.year DESC, e.event_code`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка событий: %w", err)
	}
	defer rows.Close()

	var result []*model.Event
	for rows.Next() {
		e := &model.Event{}
		if err := rows.Scan(
			&e.ID, &e.EventCode, &e.EventName, &e.Year, &e.Month, &e.Session,
			&e.EventType, &e.CreatedAt, &e.CreatedBy, &e.CertificateCount,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования события: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func (r *eventRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта событий: %w", err)
	}
	return count, nil
}
