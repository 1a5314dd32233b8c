// settings.go — сервис настроек портала.
// Валидирует ключи и значения, делегирует хранение репозиторию.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/repository"
)

// Допустимые ключи настроек.
// Используется для валидации при Set.
var validSettingKeys = map[string]string{
	"auto_sync_enabled":          "Включён ли периодический импорт из таблицы (true/false)",
	"auto_sync_interval_minutes": "Интервал периодического импорта в минутах",
}

// SettingsService — сервис настроек портала.
type SettingsService struct {
	repo   repository.SettingsRepository
	logger *slog.Logger
}

// NewSettingsService создаёт сервис настроек.
func NewSettingsService(
	repo repository.SettingsRepository,
	logger *slog.Logger,
) *SettingsService {
	return &SettingsService{
		repo:   repo,
		logger: logger.With(slog.String("component", "settings")),
	}
}

// Get возвращает значение настройки по ключу.
// Возвращает ErrNotFound если настройка не существует.
func (s *SettingsService) Get(ctx context.Context, key string) (*model.Setting, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения настройки %q: %w", key, err)
	}
	return setting, nil
}

// Set устанавливает значение настройки. Валидирует ключ и значение.
// updatedBy — имя пользователя, выполняющего изменение.
func (s *SettingsService) Set(ctx context.Context, key, value, updatedBy string) error {
	if _, ok := validSettingKeys[key]; !ok {
		return fmt.Errorf("%w: недопустимый ключ настройки %q", ErrValidation, key)
	}

	if err := s.validateValue(key, value); err != nil {
		return err
	}

	if err := s.repo.Set(ctx, key, value, updatedBy); err != nil {
		return fmt.Errorf("ошибка сохранения настройки %q: %w", key, err)
	}

	s.logger.Info("Настройка обновлена",
		slog.String("key", key),
		slog.String("updated_by", updatedBy),
	)
	return nil
}

// List возвращает все настройки.
func (s *SettingsService) List(ctx context.Context) ([]model.Setting, error) {
	settings, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения списка настроек: %w", err)
	}
	return settings, nil
}

// IsAutoSyncEnabled возвращает true, если включён периодический импорт.
func (s *SettingsService) IsAutoSyncEnabled(ctx context.Context) bool {
	setting, err := s.repo.Get(ctx, "auto_sync_enabled")
	if err != nil {
		return false
	}
	return setting.Value == "true"
}

// AutoSyncInterval возвращает интервал периодического импорта в минутах.
// По умолчанию 60.
func (s *SettingsService) AutoSyncInterval(ctx context.Context) int {
	setting, err := s.repo.Get(ctx, "auto_sync_interval_minutes")
	if err != nil {
		return 60
	}
	n, err := strconv.Atoi(setting.Value)
	if err != nil || n <= 0 {
		return 60
	}
	return n
}

// validateValue проверяет корректность значения для указанного ключа.
func (s *SettingsService) validateValue(key, value string) error {
	switch key {
	case "auto_sync_enabled":
		if value != "true" && value != "false" {
			return fmt.Errorf("%w: %s должен быть true или false", ErrValidation, key)
		}
	case "auto_sync_interval_minutes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 1440 {
			return fmt.Errorf("%w: %s должен быть числом от 1 до 1440", ErrValidation, key)
		}
	}
	return nil
}
