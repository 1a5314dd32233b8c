// sheet_view.go — чтение внешней таблицы для админки.
// Строки отдаются из TTL-кэша, чтобы не упираться в лимиты табличного API
// при каждом открытии страницы.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/certstore/internal/cache"
	"github.com/bigkaa/certstore/internal/domain/certtype"
	"github.com/bigkaa/certstore/internal/domain/model"
)

// sheetDataKey — ключ кэша для полного набора строк таблицы.
const sheetDataKey = "sheet_data"

// SheetViewService — чтение таблицы с кэшированием.
type SheetViewService struct {
	sheet      SheetAPI
	sheetCache *cache.SheetCache
	logger     *slog.Logger
}

// NewSheetViewService создаёт сервис чтения таблицы.
func NewSheetViewService(sheet SheetAPI, sheetCache *cache.SheetCache, logger *slog.Logger) *SheetViewService {
	return &SheetViewService{
		sheet:      sheet,
		sheetCache: sheetCache,
		logger:     logger.With(slog.String("component", "sheet_view")),
	}
}

// Rows возвращает все строки таблицы. forceRefresh обходит кэш.
func (s *SheetViewService) Rows(ctx context.Context, forceRefresh bool) ([]model.SheetRow, error) {
	if !forceRefresh {
		if rows, ok := s.sheetCache.Get(sheetDataKey); ok {
			return rows, nil
		}
	}

	rows, err := s.sheet.GetAllRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSheetUnavailable, err)
	}
	s.sheetCache.Set(sheetDataKey, rows)

	s.logger.Debug("Строки таблицы загружены",
		slog.Int("rows", len(rows)),
		slog.Bool("force_refresh", forceRefresh),
	)
	return rows, nil
}

// Stats возвращает сводку по таблице: всего строк, обработано,
// ожидает импорта и распределение по категориям.
func (s *SheetViewService) Stats(ctx context.Context, forceRefresh bool) (*model.SheetStats, error) {
	rows, err := s.Rows(ctx, forceRefresh)
	if err != nil {
		return nil, err
	}

	stats := &model.SheetStats{
		Total:  len(rows),
		ByType: map[string]int{},
	}
	for i := range rows {
		if rows[i].Processed() {
			stats.Processed++
		} else {
			stats.Pending++
		}
		stats.ByType[certtype.Classify(rows[i].CertType).String()]++
	}
	return stats, nil
}
