// sheet_sync.go — двусторонняя сверка базы сертификатов с внешней таблицей.
//
// ImportFromSheet (таблица → БД):
//  1. Загрузить все строки таблицы
//  2. Для каждой необработанной строки (пустой Unique_ID): валидация полей
//     по категории, выпуск публичного идентификатора, создание сертификата
//     с метаданными
//  3. Записать выданные идентификаторы обратно в таблицу пакетом
//     (поиск по Participant_Name)
//
// ExportToSheet (БД → таблица):
//  1. Загрузить строки таблицы и сертификаты из БД
//  2. Для каждого сертификата сравнить ожидаемые значения колонок
//     с фактическими (поиск по Unique_ID)
//  3. Расхождения записать пакетом
//
// Prometheus-метрики:
//   - cs_sync_duration_seconds — длительность синхронизации (по направлениям)
//   - cs_sync_rows_total — количество обработанных строк (по результатам)
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/certstore/internal/cache"
	"github.com/bigkaa/certstore/internal/certid"
	"github.com/bigkaa/certstore/internal/domain/certtype"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/notify"
	"github.com/bigkaa/certstore/internal/repository"
	"github.com/bigkaa/certstore/internal/sheetclient"
)

// Prometheus-метрики синхронизации.
var (
	syncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cs_sync_duration_seconds",
		Help:    "Длительность синхронизации с таблицей",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 0.1s … ~204s
	}, []string{"direction"}) // direction: from_sheet, to_sheet

	syncRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cs_sync_rows_total",
		Help: "Количество обработанных строк при синхронизации",
	}, []string{"direction", "result"}) // result: created, failed, corrected, unchanged
)

// SheetAPI — операции табличного API, используемые синхронизацией.
// Реализуется sheetclient.Client.
type SheetAPI interface {
	GetAllRows(ctx context.Context) ([]model.SheetRow, error)
	UpdateRow(ctx context.Context, searchColumn, searchValue string, fields model.SheetFields) (int, error)
	BatchUpdateRows(ctx context.Context, updates []model.RowUpdate) (*sheetclient.BatchResult, error)
	AddRow(ctx context.Context, fields model.SheetFields) error
	AddRows(ctx context.Context, rows []model.SheetFields) error
	DeleteRow(ctx context.Context, searchColumn, searchValue string) error
}

// idCollisionRetries — сколько раз перегенерировать идентификатор при
// занятости. После исчерпания попыток создание всё равно выполняется:
// остаточную коллизию поймает UNIQUE-ограничение БД.
const idCollisionRetries = 10

// SheetSyncService — сервис сверки БД с таблицей.
type SheetSyncService struct {
	sheet            SheetAPI
	certRepo         repository.CertificateRepository
	eventRepo        repository.EventRepository
	sheetCache       *cache.SheetCache
	notifier         notify.Notifier
	portalBaseURL    string
	defaultEventCode string
	logger           *slog.Logger
}

// NewSheetSyncService создаёт сервис синхронизации.
func NewSheetSyncService(
	sheet SheetAPI,
	certRepo repository.CertificateRepository,
	eventRepo repository.EventRepository,
	sheetCache *cache.SheetCache,
	notifier notify.Notifier,
	portalBaseURL string,
	defaultEventCode string,
	logger *slog.Logger,
) *SheetSyncService {
	return &SheetSyncService{
		sheet:            sheet,
		certRepo:         certRepo,
		eventRepo:        eventRepo,
		sheetCache:       sheetCache,
		notifier:         notifier,
		portalBaseURL:    portalBaseURL,
		defaultEventCode: defaultEventCode,
		logger:           logger.With(slog.String("component", "sheet_sync")),
	}
}

// ImportFromSheet обрабатывает необработанные строки таблицы:
// выпускает сертификаты и записывает идентификаторы обратно.
// Ошибка одной строки не прерывает импорт остальных.
// Событие по умолчанию должно существовать заранее, иначе ErrNotFound.
func (s *SheetSyncService) ImportFromSheet(ctx context.Context, importedBy string) (*model.ImportResult, error) {
	startedAt := time.Now().UTC()
	result := &model.ImportResult{StartedAt: startedAt}

	rows, err := s.sheet.GetAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetUnavailable, err)
	}

	event, err := s.defaultEvent(ctx)
	if err != nil {
		return nil, err
	}

	var writebacks []model.RowUpdate

	for i, row := range rows {
		// Строки таблицы нумеруются с 2 (первая — заголовок)
		rowNum := i + 2

		if row.Processed() {
			continue
		}

		cert, rowErr := s.importRow(ctx, &row, event, importedBy)
		if rowErr != nil {
			syncRowsTotal.WithLabelValues("from_sheet", "failed").Inc()
			result.Errors = append(result.Errors, model.RowError{
				Row:             rowNum,
				ParticipantName: row.ParticipantName,
				Error:           rowErr.Error(),
			})
			s.logger.Warn("Строка таблицы не импортирована",
				slog.Int("row", rowNum),
				slog.String("participant", row.ParticipantName),
				slog.String("error", rowErr.Error()),
			)
			continue
		}

		syncRowsTotal.WithLabelValues("from_sheet", "created").Inc()
		result.Processed++
		result.Success = append(result.Success, model.RowSuccess{
			Row:             rowNum,
			CertificateID:   cert.CertificateID,
			ParticipantName: cert.ParticipantName,
			VerificationURL: cert.VerificationURL,
		})

		// Идентификатор записывается обратно по имени участника:
		// Unique_ID строки ещё пуст
		writebacks = append(writebacks, model.RowUpdate{
			SearchColumn: model.SheetColParticipantName,
			SearchValue:  row.ParticipantName,
			Fields: model.SheetFields{
				model.SheetColUniqueID:        cert.CertificateID,
				model.SheetColVerificationURL: cert.VerificationURL,
				model.SheetColDateIssued:      cert.DateIssued,
				model.SheetColVerifiedStatus:  "active",
				model.SheetColEventName:       event.EventCode,
			},
		})
	}

	// Пакетная запись идентификаторов в таблицу
	if len(writebacks) > 0 {
		batch, err := s.sheet.BatchUpdateRows(ctx, writebacks)
		if err != nil {
			return nil, fmt.Errorf("запись идентификаторов в таблицу: %w", err)
		}
		result.SheetUpdated = batch.Succeeded
		result.SheetUpdateFailed = batch.Failed
	}

	s.sheetCache.Clear()

	result.CompletedAt = time.Now().UTC()
	syncDuration.WithLabelValues("from_sheet").Observe(result.CompletedAt.Sub(startedAt).Seconds())

	s.logger.Info("Импорт из таблицы завершён",
		slog.Int("processed", result.Processed),
		slog.Int("created", len(result.Success)),
		slog.Int("failed", len(result.Errors)),
		slog.Int("sheet_updated", result.SheetUpdated),
		slog.Int("sheet_update_failed", result.SheetUpdateFailed),
	)

	if result.Processed > 0 || len(result.Errors) > 0 {
		level := notify.LevelInfo
		if len(result.Errors) > 0 {
			level = notify.LevelWarn
		}
		s.notifier.Notify(notify.Event{
			Title: "Импорт из таблицы завершён",
			Level: level,
			Fields: []notify.Field{
				{Name: "Обработано", Value: fmt.Sprintf("%d", result.Processed)},
				{Name: "Создано", Value: fmt.Sprintf("%d", len(result.Success))},
				{Name: "Ошибок", Value: fmt.Sprintf("%d", len(result.Errors))},
			},
		})
	}

	return result, nil
}

// importRow выпускает сертификат по одной строке таблицы.
func (s *SheetSyncService) importRow(ctx context.Context, row *model.SheetRow, event *model.Event, importedBy string) (*model.Certificate, error) {
	validation := certtype.ValidateFields(row.CertType, certtype.Fields{
		ParticipantName: row.ParticipantName,
		Email:           row.Email,
		Institution:     row.Institution,
		AwardType:       row.AwardType,
		Committee:       row.Committee,
		Country:         row.Country,
	})
	if !validation.Valid {
		return nil, fmt.Errorf("%w: отсутствуют обязательные поля: %s",
			ErrValidation, strings.Join(validation.MissingFields, ", "))
	}
	// Award_Type — печатаемое название сертификата, без него выпуск невозможен
	if strings.TrimSpace(row.AwardType) == "" {
		return nil, fmt.Errorf("%w: отсутствуют обязательные поля: Award Type", ErrValidation)
	}

	publicID, err := generatePublicID(ctx, s.certRepo, s.logger)
	if err != nil {
		return nil, err
	}

	// Дата выдачи всегда сегодняшняя: значение в строке таблицы,
	// если оно есть, не используется
	dateIssued := time.Now().UTC().Format("2006-01-02")

	cert := &model.Certificate{
		ID:              uuid.New().String(),
		CertificateID:   publicID,
		EventID:         event.ID,
		CertificateType: row.AwardType,
		ParticipantName: strings.TrimSpace(row.ParticipantName),
		School:          strings.TrimSpace(row.Institution),
		DateIssued:      dateIssued,
		Status:          model.StatusActive,
		VerificationURL: certid.VerificationURL(s.portalBaseURL, publicID),
		CreatedBy:       importedBy,
		Metadata:        rowMetadata(row),
		Event:           event,
	}

	if err := s.certRepo.Create(ctx, cert); err != nil {
		return nil, err
	}
	return cert, nil
}

// rowMetadata собирает метаданные сертификата из строки таблицы.
// Набор полей зависит от категории; email и исходная категория
// сохраняются всегда.
func rowMetadata(row *model.SheetRow) []model.CertificateMetadata {
	md := []model.CertificateMetadata{
		{FieldName: "email", FieldValue: strings.TrimSpace(row.Email)},
		{FieldName: "cert_type", FieldValue: strings.TrimSpace(row.CertType)},
	}

	switch certtype.Classify(row.CertType) {
	case certtype.CategoryDelegate:
		md = append(md,
			model.CertificateMetadata{FieldName: "committee", FieldValue: strings.TrimSpace(row.Committee)},
			model.CertificateMetadata{FieldName: "country", FieldValue: strings.TrimSpace(row.Country)},
		)
	case certtype.CategorySecretariat:
		// Секретариат переиспользует колонки таблицы:
		// Committee хранит департамент, Country — должность
		md = append(md,
			model.CertificateMetadata{FieldName: "department", FieldValue: strings.TrimSpace(row.Committee)},
			model.CertificateMetadata{FieldName: "designation", FieldValue: strings.TrimSpace(row.Country)},
		)
	case certtype.CategoryExecutiveBoard:
		md = append(md,
			model.CertificateMetadata{FieldName: "committee", FieldValue: strings.TrimSpace(row.Committee)},
			model.CertificateMetadata{FieldName: "position", FieldValue: strings.TrimSpace(row.Country)},
		)
	}
	return md
}

// generatePublicID выпускает свободный публичный идентификатор.
// После idCollisionRetries занятых подряд возвращает последний кандидат:
// финальную уникальность гарантирует БД.
func generatePublicID(ctx context.Context, certRepo repository.CertificateRepository, logger *slog.Logger) (string, error) {
	var id string
	for attempt := 0; attempt < idCollisionRetries; attempt++ {
		var err error
		id, err = certid.Generate()
		if err != nil {
			return "", fmt.Errorf("генерация идентификатора: %w", err)
		}
		exists, err := certRepo.ExistsByCertificateID(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	logger.Warn("Свободный идентификатор не найден за отведённые попытки",
		slog.Int("attempts", idCollisionRetries),
	)
	return id, nil
}

// defaultEvent возвращает событие по умолчанию, под которым выпускаются
// импортированные сертификаты. Событие заводится администратором заранее;
// импорт никогда не создаёт его сам и без него не выполняется.
func (s *SheetSyncService) defaultEvent(ctx context.Context) (*model.Event, error) {
	event, err := s.eventRepo.GetByCode(ctx, s.defaultEventCode)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: событие %s не найдено", ErrNotFound, s.defaultEventCode)
		}
		return nil, err
	}
	return event, nil
}

// ExportToSheet сверяет таблицу с БД и исправляет расхождения.
func (s *SheetSyncService) ExportToSheet(ctx context.Context) (*model.ExportResult, error) {
	startedAt := time.Now().UTC()
	result := &model.ExportResult{StartedAt: startedAt}

	rows, err := s.sheet.GetAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetUnavailable, err)
	}

	// Индекс строк по Unique_ID
	rowByID := make(map[string]*model.SheetRow, len(rows))
	for i := range rows {
		if id := strings.TrimSpace(rows[i].UniqueID); id != "" {
			rowByID[id] = &rows[i]
		}
	}

	certs, err := s.certRepo.ListWithMetadata(ctx, repository.CertificateFilter{}, 100000, 0)
	if err != nil {
		return nil, err
	}

	var corrections []model.RowUpdate
	for _, cert := range certs {
		row, ok := rowByID[cert.CertificateID]
		if !ok {
			continue
		}
		result.Checked++

		// Источник истины — БД: статус, дата выдачи, код события и URL
		fields := model.SheetFields{}
		expectedStatus := "active"
		if cert.Status == model.StatusRevoked {
			expectedStatus = "revoked"
		}
		if row.VerifiedStatus != expectedStatus {
			fields[model.SheetColVerifiedStatus] = expectedStatus
		}
		if row.DateIssued != cert.DateIssued {
			fields[model.SheetColDateIssued] = cert.DateIssued
		}
		if cert.Event != nil && row.EventName != cert.Event.EventCode {
			fields[model.SheetColEventName] = cert.Event.EventCode
		}
		if row.VerificationURL != cert.VerificationURL {
			fields[model.SheetColVerificationURL] = cert.VerificationURL
		}

		if len(fields) == 0 {
			syncRowsTotal.WithLabelValues("to_sheet", "unchanged").Inc()
			continue
		}

		corrections = append(corrections, model.RowUpdate{
			SearchColumn: model.SheetColUniqueID,
			SearchValue:  cert.CertificateID,
			Fields:       fields,
		})
	}

	if len(corrections) > 0 {
		batch, err := s.sheet.BatchUpdateRows(ctx, corrections)
		if err != nil {
			return nil, fmt.Errorf("запись исправлений в таблицу: %w", err)
		}
		result.Updated = batch.Succeeded
		result.Failed = batch.Failed
		syncRowsTotal.WithLabelValues("to_sheet", "corrected").Add(float64(batch.Succeeded))
		syncRowsTotal.WithLabelValues("to_sheet", "failed").Add(float64(batch.Failed))
	}

	s.sheetCache.Clear()

	result.CompletedAt = time.Now().UTC()
	syncDuration.WithLabelValues("to_sheet").Observe(result.CompletedAt.Sub(startedAt).Seconds())

	s.logger.Info("Экспорт в таблицу завершён",
		slog.Int("checked", result.Checked),
		slog.Int("updated", result.Updated),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}
