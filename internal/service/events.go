// events.go — бизнес-логика событий (конференций).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/repository"
)

// EventInput — входные данные создания события.
type EventInput struct {
	// Код события (уникальный, например MUN26)
	EventCode string `json:"eventCode"`
	// Отображаемое название
	EventName string `json:"eventName"`
	// Год проведения
	Year int `json:"year"`
	// Месяц проведения 1-12 (0 — не задан)
	Month int `json:"month"`
	// Порядковый номер сессии (0 — не задан)
	Session int `json:"session"`
	// Тип события (опционально)
	EventType string `json:"eventType"`
}

// EventsService — бизнес-логика событий.
type EventsService struct {
	repo   repository.EventRepository
	logger *slog.Logger
}

// NewEventsService создаёт сервис событий.
func NewEventsService(repo repository.EventRepository, logger *slog.Logger) *EventsService {
	return &EventsService{
		repo:   repo,
		logger: logger.With(slog.String("component", "events")),
	}
}

// List возвращает все события с количеством сертификатов.
func (s *EventsService) List(ctx context.Context) ([]*model.Event, error) {
	return s.repo.List(ctx)
}

// Get возвращает событие по UUID.
func (s *EventsService) Get(ctx context.Context, id string) (*model.Event, error) {
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return event, nil
}

// Create создаёт событие.
func (s *EventsService) Create(ctx context.Context, in EventInput, createdBy string) (*model.Event, error) {
	code := strings.ToUpper(strings.TrimSpace(in.EventCode))
	if code == "" {
		return nil, fmt.Errorf("%w: не задан код события", ErrValidation)
	}
	name := strings.TrimSpace(in.EventName)
	if name == "" {
		name = code
	}
	year := in.Year
	if year == 0 {
		year = time.Now().UTC().Year()
	}
	if year < 2000 || year > 2100 {
		return nil, fmt.Errorf("%w: недопустимый год %d", ErrValidation, year)
	}
	if in.Month < 0 || in.Month > 12 {
		return nil, fmt.Errorf("%w: недопустимый месяц %d", ErrValidation, in.Month)
	}

	event := &model.Event{
		ID:        uuid.New().String(),
		EventCode: code,
		EventName: name,
		Year:      year,
		Month:     in.Month,
		Session:   in.Session,
		EventType: strings.TrimSpace(in.EventType),
		CreatedBy: createdBy,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: событие %s уже существует", ErrConflict, code)
		}
		return nil, err
	}

	s.logger.Info("Событие создано",
		slog.String("event_code", code),
		slog.String("created_by", createdBy),
	)
	return event, nil
}
