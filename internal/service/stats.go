// stats.go — сводные показатели для главной страницы портала.
// Счётчики собираются параллельно, первая ошибка прерывает сборку.
package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/bigkaa/certstore/internal/domain/model"
	"github.com/bigkaa/certstore/internal/repository"
)

// StatsService — сборка показателей дашборда.
type StatsService struct {
	certRepo  repository.CertificateRepository
	eventRepo repository.EventRepository
	logger    *slog.Logger
}

// NewStatsService создаёт сервис статистики.
func NewStatsService(
	certRepo repository.CertificateRepository,
	eventRepo repository.EventRepository,
	logger *slog.Logger,
) *StatsService {
	return &StatsService{
		certRepo:  certRepo,
		eventRepo: eventRepo,
		logger:    logger.With(slog.String("component", "stats")),
	}
}

// Dashboard возвращает сводные показатели по сертификатам,
// событиям и проверкам.
func (s *StatsService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	stats := &model.DashboardStats{}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	wg.Add(3)
	go func() {
		defer wg.Done()
		total, active, revoked, err := s.certRepo.StatusCounts(ctx)
		if err != nil {
			fail(err)
			return
		}
		stats.TotalCertificates = total
		stats.ActiveCertificates = active
		stats.RevokedCertificates = revoked
	}()
	go func() {
		defer wg.Done()
		verifications, err := s.certRepo.TotalVerifications(ctx)
		if err != nil {
			fail(err)
			return
		}
		stats.TotalVerifications = int(verifications)
	}()
	go func() {
		defer wg.Done()
		events, err := s.eventRepo.Count(ctx)
		if err != nil {
			fail(err)
			return
		}
		stats.TotalEvents = events
	}()
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return stats, nil
}
