// certificates.go — бизнес-логика сертификатов: выпуск, правка, отзыв,
// восстановление, удаление, экспорт и массовый импорт.
// Каждая мутация отражается в таблице: создание добавляет строку,
// правки уходят через отложенную пакетную очередь, удаление затирает строку.
package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/certstore/internal/cache"
	"github.com/bigkaa/certstore/internal/certid"
	"github.com/bigkaa/certstore/internal/domain/certtype"
	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/notify"
	"github.com/bigkaa/certstore/internal/repository"
)

// CertificateInput — входные данные создания или правки сертификата.
type CertificateInput struct {
	// Код события
	EventCode string `json:"eventCode"`
	// Печатаемое название сертификата (Award_Type)
	CertificateType string `json:"certificateType"`
	// Исходная категория (delegate, secretariat, ...)
	Category string `json:"category"`
	// Имя участника
	ParticipantName string `json:"participantName"`
	// Учебное заведение
	School string `json:"school"`
	// Дата выдачи в формате YYYY-MM-DD (пустая — сегодня)
	DateIssued string `json:"dateIssued"`
	// Дополнительные поля (email, committee, country, ...)
	Metadata map[string]string `json:"metadata"`
}

// BulkImportResult — итог массового импорта сертификатов.
type BulkImportResult struct {
	Created int              `json:"created"`
	Errors  []model.RowError `json:"errors"`
}

// CertificatesService — бизнес-логика сертификатов.
type CertificatesService struct {
	certRepo      repository.CertificateRepository
	eventRepo     repository.EventRepository
	sheet         SheetAPI
	batcher       *cache.Batcher
	sheetCache    *cache.SheetCache
	notifier      notify.Notifier
	portalBaseURL string
	logger        *slog.Logger
}

// NewCertificatesService создаёт сервис сертификатов.
func NewCertificatesService(
	certRepo repository.CertificateRepository,
	eventRepo repository.EventRepository,
	sheet SheetAPI,
	batcher *cache.Batcher,
	sheetCache *cache.SheetCache,
	notifier notify.Notifier,
	portalBaseURL string,
	logger *slog.Logger,
) *CertificatesService {
	return &CertificatesService{
		certRepo:      certRepo,
		eventRepo:     eventRepo,
		sheet:         sheet,
		batcher:       batcher,
		sheetCache:    sheetCache,
		notifier:      notifier,
		portalBaseURL: portalBaseURL,
		logger:        logger.With(slog.String("component", "certificates")),
	}
}

// invalidateSheetCache сбрасывает кэшированные чтения таблицы после мутации.
func (s *CertificatesService) invalidateSheetCache() {
	if err := s.sheetCache.InvalidatePattern("^sheet"); err != nil {
		s.logger.Warn("Сброс кэша таблицы", slog.String("error", err.Error()))
	}
}

// List возвращает страницу сертификатов и общее количество под фильтром.
func (s *CertificatesService) List(ctx context.Context, filter repository.CertificateFilter, limit, offset int) ([]*model.Certificate, int, error) {
	certs, err := s.certRepo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.certRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return certs, total, nil
}

// Get возвращает сертификат по UUID.
func (s *CertificatesService) Get(ctx context.Context, id string) (*model.Certificate, error) {
	cert, err := s.certRepo.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return cert, nil
}

// Create выпускает сертификат и добавляет строку в таблицу.
func (s *CertificatesService) Create(ctx context.Context, in CertificateInput, createdBy string) (*model.Certificate, error) {
	cert, err := s.buildCertificate(ctx, in, createdBy)
	if err != nil {
		return nil, err
	}

	if err := s.certRepo.Create(ctx, cert); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Строка в таблице — best effort: её отсутствие исправит экспорт
	if err := s.sheet.AddRow(ctx, s.sheetRow(cert, in.Category)); err != nil {
		s.logger.Warn("Не удалось добавить строку сертификата в таблицу",
			slog.String("certificate_id", cert.CertificateID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidateSheetCache()

	s.notifier.Notify(notify.Event{
		Title: "Сертификат создан",
		Level: notify.LevelInfo,
		Fields: []notify.Field{
			{Name: "ID", Value: cert.CertificateID},
			{Name: "Участник", Value: cert.ParticipantName},
			{Name: "Тип", Value: cert.CertificateType},
		},
	})

	s.logger.Info("Сертификат создан",
		slog.String("certificate_id", cert.CertificateID),
		slog.String("participant", cert.ParticipantName),
		slog.String("created_by", createdBy),
	)
	return cert, nil
}

// Update правит сертификат и ставит исправление строки таблицы в очередь.
func (s *CertificatesService) Update(ctx context.Context, id string, in CertificateInput) (*model.Certificate, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := validateInput(in); err != nil {
		return nil, err
	}

	if in.EventCode != "" && (cert.Event == nil || in.EventCode != cert.Event.EventCode) {
		event, err := s.eventRepo.GetByCode(ctx, in.EventCode)
		if err != nil {
			if err == repository.ErrNotFound {
				return nil, fmt.Errorf("%w: событие %s не найдено", ErrValidation, in.EventCode)
			}
			return nil, err
		}
		cert.EventID = event.ID
		cert.Event = event
	}

	cert.CertificateType = in.CertificateType
	cert.ParticipantName = strings.TrimSpace(in.ParticipantName)
	cert.School = strings.TrimSpace(in.School)
	if strings.TrimSpace(in.DateIssued) != "" {
		cert.DateIssued = strings.TrimSpace(in.DateIssued)
	}
	cert.Metadata = inputMetadata(in)

	if err := s.certRepo.Update(ctx, cert); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Исправление строки уходит пакетом после окна накопления
	s.batcher.Add(model.RowUpdate{
		SearchColumn: model.SheetColUniqueID,
		SearchValue:  cert.CertificateID,
		Fields: model.SheetFields{
			model.SheetColParticipantName: cert.ParticipantName,
			model.SheetColAwardType:       cert.CertificateType,
			model.SheetColInstitution:     cert.School,
		},
	})
	s.invalidateSheetCache()

	return cert, nil
}

// Revoke отзывает сертификат.
func (s *CertificatesService) Revoke(ctx context.Context, id, revokedBy, reason string) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.certRepo.Revoke(ctx, id, revokedBy, reason); err != nil {
		if err == repository.ErrNotFound {
			return ErrNotFound
		}
		return err
	}

	s.batcher.Add(model.RowUpdate{
		SearchColumn: model.SheetColUniqueID,
		SearchValue:  cert.CertificateID,
		Fields:       model.SheetFields{model.SheetColVerifiedStatus: "revoked"},
	})
	s.invalidateSheetCache()

	s.notifier.Notify(notify.Event{
		Title: "Сертификат отозван",
		Level: notify.LevelWarn,
		Fields: []notify.Field{
			{Name: "ID", Value: cert.CertificateID},
			{Name: "Участник", Value: cert.ParticipantName},
			{Name: "Причина", Value: reason},
			{Name: "Отозвал", Value: revokedBy},
		},
	})

	s.logger.Info("Сертификат отозван",
		slog.String("certificate_id", cert.CertificateID),
		slog.String("revoked_by", revokedBy),
		slog.String("reason", reason),
	)
	return nil
}

// Restore возвращает отозванный сертификат в действующие.
func (s *CertificatesService) Restore(ctx context.Context, id string) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.certRepo.Restore(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrNotFound
		}
		return err
	}

	s.batcher.Add(model.RowUpdate{
		SearchColumn: model.SheetColUniqueID,
		SearchValue:  cert.CertificateID,
		Fields:       model.SheetFields{model.SheetColVerifiedStatus: "active"},
	})
	s.invalidateSheetCache()

	s.logger.Info("Сертификат восстановлен",
		slog.String("certificate_id", cert.CertificateID),
	)
	return nil
}

// Delete удаляет сертификат из БД и затирает строку таблицы.
// Строка не удаляется физически: идентификатор и URL обнуляются,
// статус помечается deleted, чтобы исходные данные участника сохранились.
func (s *CertificatesService) Delete(ctx context.Context, id, deletedBy string) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.certRepo.Delete(ctx, id); err != nil {
		if err == repository.ErrNotFound {
			return ErrNotFound
		}
		return err
	}

	// Затирание сразу, без очереди: ключ строки перестаёт существовать
	if _, err := s.sheet.UpdateRow(ctx, model.SheetColUniqueID, cert.CertificateID, model.SheetFields{
		model.SheetColUniqueID:        "",
		model.SheetColVerificationURL: "",
		model.SheetColVerifiedStatus:  "deleted",
	}); err != nil {
		s.logger.Warn("Не удалось затереть строку таблицы",
			slog.String("certificate_id", cert.CertificateID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidateSheetCache()

	s.notifier.Notify(notify.Event{
		Title: "Сертификат удалён",
		Level: notify.LevelWarn,
		Fields: []notify.Field{
			{Name: "ID", Value: cert.CertificateID},
			{Name: "Участник", Value: cert.ParticipantName},
			{Name: "Удалил", Value: deletedBy},
		},
	})

	s.logger.Info("Сертификат удалён",
		slog.String("certificate_id", cert.CertificateID),
		slog.String("deleted_by", deletedBy),
	)
	return nil
}

// Export выгружает сертификаты под фильтром в csv или json.
func (s *CertificatesService) Export(ctx context.Context, filter repository.CertificateFilter, format string) ([]byte, string, error) {
	certs, err := s.certRepo.ListWithMetadata(ctx, filter, 100000, 0)
	if err != nil {
		return nil, "", err
	}

	switch format {
	case "json":
		data, err := json.MarshalIndent(certs, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("кодирование экспорта: %w", err)
		}
		return data, "application/json", nil
	case "", "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		header := []string{"certificate_id", "participant_name", "certificate_type",
			"school", "event_code", "date_issued", "status", "verification_url",
			"committee", "country", "email"}
		if err := w.Write(header); err != nil {
			return nil, "", err
		}
		for _, c := range certs {
			eventCode := ""
			if c.Event != nil {
				eventCode = c.Event.EventCode
			}
			record := []string{
				c.CertificateID, c.ParticipantName, c.CertificateType,
				c.School, eventCode, c.DateIssued,
				c.Status, c.VerificationURL,
				c.MetadataValue("committee"), c.MetadataValue("country"),
				c.MetadataValue("email"),
			}
			if err := w.Write(record); err != nil {
				return nil, "", err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "text/csv", nil
	default:
		return nil, "", fmt.Errorf("%w: неизвестный формат %q, допустимые: csv, json", ErrValidation, format)
	}
}

// BulkImport выпускает сертификаты по загруженному списку.
// Ошибка одной записи не прерывает остальные; строки таблицы
// добавляются пакетом после успешных созданий.
func (s *CertificatesService) BulkImport(ctx context.Context, inputs []CertificateInput, createdBy string) (*BulkImportResult, error) {
	result := &BulkImportResult{}
	var newRows []model.SheetFields

	for i, in := range inputs {
		cert, err := s.buildCertificate(ctx, in, createdBy)
		if err == nil {
			err = s.certRepo.Create(ctx, cert)
		}
		if err != nil {
			result.Errors = append(result.Errors, model.RowError{
				Row:             i + 1,
				ParticipantName: in.ParticipantName,
				Error:           err.Error(),
			})
			continue
		}
		result.Created++
		newRows = append(newRows, s.sheetRow(cert, in.Category))
	}

	if len(newRows) > 0 {
		if err := s.sheet.AddRows(ctx, newRows); err != nil {
			s.logger.Warn("Не удалось добавить импортированные строки в таблицу",
				slog.Int("rows", len(newRows)),
				slog.String("error", err.Error()),
			)
		}
		s.invalidateSheetCache()
	}

	s.logger.Info("Массовый импорт завершён",
		slog.Int("created", result.Created),
		slog.Int("failed", len(result.Errors)),
	)
	return result, nil
}

// buildCertificate валидирует вход и собирает сертификат с метаданными.
func (s *CertificatesService) buildCertificate(ctx context.Context, in CertificateInput, createdBy string) (*model.Certificate, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	event, err := s.eventRepo.GetByCode(ctx, in.EventCode)
	if err != nil {
		if err == repository.ErrNotFound {
			return nil, fmt.Errorf("%w: событие %s не найдено", ErrValidation, in.EventCode)
		}
		return nil, err
	}

	publicID, err := generatePublicID(ctx, s.certRepo, s.logger)
	if err != nil {
		return nil, err
	}

	dateIssued := strings.TrimSpace(in.DateIssued)
	if dateIssued == "" {
		dateIssued = time.Now().UTC().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", dateIssued); err != nil {
		return nil, fmt.Errorf("%w: неверный формат даты %q, ожидается YYYY-MM-DD", ErrValidation, dateIssued)
	}

	return &model.Certificate{
		ID:              uuid.New().String(),
		CertificateID:   publicID,
		EventID:         event.ID,
		CertificateType: in.CertificateType,
		ParticipantName: strings.TrimSpace(in.ParticipantName),
		School:          strings.TrimSpace(in.School),
		DateIssued:      dateIssued,
		Status:          model.StatusActive,
		VerificationURL: certid.VerificationURL(s.portalBaseURL, publicID),
		CreatedBy:       createdBy,
		Metadata:        inputMetadata(in),
		Event:           event,
	}, nil
}

// validateInput проверяет обязательные поля входных данных.
func validateInput(in CertificateInput) error {
	if strings.TrimSpace(in.CertificateType) == "" {
		return fmt.Errorf("%w: отсутствуют обязательные поля: Certificate Type", ErrValidation)
	}
	v := certtype.ValidateFields(in.Category, certtype.Fields{
		ParticipantName: in.ParticipantName,
		Committee:       in.Metadata["committee"],
		Country:         in.Metadata["country"],
	})
	if !v.Valid {
		return fmt.Errorf("%w: отсутствуют обязательные поля: %s",
			ErrValidation, strings.Join(v.MissingFields, ", "))
	}
	return nil
}

// inputMetadata собирает метаданные из входных данных.
// Исходная категория хранится в cert_type.
func inputMetadata(in CertificateInput) []model.CertificateMetadata {
	md := []model.CertificateMetadata{
		{FieldName: "cert_type", FieldValue: strings.TrimSpace(in.Category)},
	}
	for name, value := range in.Metadata {
		if name == "cert_type" {
			continue
		}
		md = append(md, model.CertificateMetadata{
			FieldName:  name,
			FieldValue: strings.TrimSpace(value),
		})
	}
	return md
}

// sheetRow собирает строку таблицы для нового сертификата.
func (s *CertificatesService) sheetRow(cert *model.Certificate, category string) model.SheetFields {
	// Event_Name в таблице хранит код события
	eventCode := ""
	if cert.Event != nil {
		eventCode = cert.Event.EventCode
	}
	return model.SheetFields{
		model.SheetColCertType:        category,
		model.SheetColParticipantName: cert.ParticipantName,
		model.SheetColEmail:           cert.MetadataValue("email"),
		model.SheetColInstitution:     cert.School,
		model.SheetColAwardType:       cert.CertificateType,
		model.SheetColCommittee:       cert.MetadataValue("committee"),
		model.SheetColCountry:         cert.MetadataValue("country"),
		model.SheetColUniqueID:        cert.CertificateID,
		model.SheetColVerificationURL: cert.VerificationURL,
		model.SheetColDateIssued:      cert.DateIssued,
		model.SheetColVerifiedStatus:  "active",
		model.SheetColEventName:       eventCode,
	}
}
