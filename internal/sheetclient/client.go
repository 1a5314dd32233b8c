// Пакет sheetclient — HTTP-клиент табличного API (SheetDB).
// API лимитирует частоту запросов, поэтому клиент выдерживает минимальный
// интервал между запросами (golang.org/x/time/rate) и повторяет запросы
// при 429 и сетевых ошибках с линейно растущей паузой.
// Операции: GetAllRows, AddRow, AddRows, UpdateRow, BatchUpdateRows, DeleteRow.
package sheetclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/bigkaa/certstore/internal/domain/model"
)

// ErrRateLimited — API вернул 429 и повторы исчерпаны.
var ErrRateLimited = errors.New("табличное API ограничило частоту запросов")

// Options — параметры клиента табличного API.
type Options struct {
	// Базовый URL API (без trailing slash)
	BaseURL string
	// Bearer-токен (пустая строка — без авторизации)
	Token string
	// Минимальный интервал между запросами
	RateLimitDelay time.Duration
	// Максимум повторов запроса
	MaxRetries int
	// Размер под-пакета при пакетной записи
	BatchSize int
	// Пауза между под-пакетами
	BatchPause time.Duration
	// Базовая пауза перед повтором после 429
	Retry429Delay time.Duration
	// Базовая пауза перед повтором после сетевой ошибки
	RetryNetDelay time.Duration
	// HTTP-клиент (nil — клиент с таймаутом 30s)
	HTTPClient *http.Client
}

// Client — клиент табличного API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	batchSize  int
	batchPause time.Duration
	retry429   time.Duration
	retryNet   time.Duration
	logger     *slog.Logger
}

// New создаёт клиент табличного API.
func New(opts Options, logger *slog.Logger) *Client {
	if opts.RateLimitDelay <= 0 {
		opts.RateLimitDelay = time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.BatchPause <= 0 {
		opts.BatchPause = 500 * time.Millisecond
	}
	if opts.Retry429Delay <= 0 {
		opts.Retry429Delay = 2 * time.Second
	}
	if opts.RetryNetDelay <= 0 {
		opts.RetryNetDelay = time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		baseURL:    opts.BaseURL,
		token:      opts.Token,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(opts.RateLimitDelay), 1),
		maxRetries: opts.MaxRetries,
		batchSize:  opts.BatchSize,
		batchPause: opts.BatchPause,
		retry429:   opts.Retry429Delay,
		retryNet:   opts.RetryNetDelay,
		logger:     logger.With(slog.String("component", "sheet_client")),
	}
}

// GetAllRows возвращает все строки таблицы.
// GET /
func (c *Client) GetAllRows(ctx context.Context) ([]model.SheetRow, error) {
	body, err := c.do(ctx, http.MethodGet, "", nil)
	if err != nil {
		return nil, err
	}

	var rows []model.SheetRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("декодирование строк таблицы: %w", err)
	}
	return rows, nil
}

// AddRow добавляет одну строку.
func (c *Client) AddRow(ctx context.Context, fields model.SheetFields) error {
	return c.AddRows(ctx, []model.SheetFields{fields})
}

// AddRows добавляет строки одним запросом.
// POST / с телом {"data": [...]}
func (c *Client) AddRows(ctx context.Context, rows []model.SheetFields) error {
	if len(rows) == 0 {
		return nil
	}
	payload, err := json.Marshal(map[string]any{"data": rows})
	if err != nil {
		return fmt.Errorf("кодирование строк: %w", err)
	}
	if _, err := c.do(ctx, http.MethodPost, "", payload); err != nil {
		return err
	}
	return nil
}

// UpdateRow обновляет строки, у которых searchColumn равен searchValue.
// PATCH /{column}/{value} с телом {"data": {...}}
// Возвращает число обновлённых строк по данным API.
func (c *Client) UpdateRow(ctx context.Context, searchColumn, searchValue string, fields model.SheetFields) (int, error) {
	payload, err := json.Marshal(map[string]any{"data": fields})
	if err != nil {
		return 0, fmt.Errorf("кодирование обновления: %w", err)
	}

	path := fmt.Sprintf("/%s/%s", url.PathEscape(searchColumn), url.PathEscape(searchValue))
	body, err := c.do(ctx, http.MethodPatch, path, payload)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Updated int `json:"updated"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		// Часть инсталляций SheetDB отвечает просто числом строк
		return 0, nil
	}
	return resp.Updated, nil
}

// BatchResult — итог пакетного обновления строк.
type BatchResult struct {
	// Succeeded — число успешно обновлённых строк
	Succeeded int
	// Failed — число строк, обновить которые не удалось
	Failed int
	// Errors — ошибки по строкам, в порядке обхода
	Errors []error
}

// BatchUpdateRows обновляет строки под-пакетами с паузой между ними.
// Ошибка одной строки не прерывает остальные.
func (c *Client) BatchUpdateRows(ctx context.Context, updates []model.RowUpdate) (*BatchResult, error) {
	result := &BatchResult{}

	for start := 0; start < len(updates); start += c.batchSize {
		end := start + c.batchSize
		if end > len(updates) {
			end = len(updates)
		}

		for _, u := range updates[start:end] {
			if _, err := c.UpdateRow(ctx, u.SearchColumn, u.SearchValue, u.Fields); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				result.Failed++
				result.Errors = append(result.Errors,
					fmt.Errorf("строка %s=%s: %w", u.SearchColumn, u.SearchValue, err))
				c.logger.Warn("Не удалось обновить строку таблицы",
					slog.String("column", u.SearchColumn),
					slog.String("value", u.SearchValue),
					slog.String("error", err.Error()),
				)
				continue
			}
			result.Succeeded++
		}

		// Пауза между под-пакетами
		if end < len(updates) {
			if err := sleep(ctx, c.batchPause); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// DeleteRow удаляет строки, у которых searchColumn равен searchValue.
// DELETE /{column}/{value}
func (c *Client) DeleteRow(ctx context.Context, searchColumn, searchValue string) error {
	path := fmt.Sprintf("/%s/%s", url.PathEscape(searchColumn), url.PathEscape(searchValue))
	_, err := c.do(ctx, http.MethodDelete, path, nil)
	return err
}

// do выполняет запрос с rate-лимитом и повторами.
// Повторы только при 429 и сетевых ошибках; пауза растёт линейно
// с номером попытки.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		// Выдерживаем минимальный интервал между запросами
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, retryable, err := c.doOnce(ctx, method, path, payload)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable || ctx.Err() != nil {
			return nil, err
		}

		// Линейный backoff: при 429 пауза длиннее
		delay := c.retryNet * time.Duration(attempt)
		if errors.Is(err, ErrRateLimited) {
			delay = c.retry429 * time.Duration(attempt)
		}
		c.logger.Warn("Повтор запроса к табличному API",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("запрос %s %s не удался после %d попыток: %w",
		method, path, c.maxRetries, lastErr)
}

// doOnce выполняет один запрос. Второй результат — можно ли повторять.
func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte) ([]byte, bool, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, false, fmt.Errorf("создание запроса: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Сетевая ошибка — повторяемая
		return nil, true, fmt.Errorf("запрос к табличному API: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("чтение ответа табличного API: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, ErrRateLimited
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("табличное API вернуло статус %d: %s",
			resp.StatusCode, string(body))
	}

	return body, false, nil
}

// sleep ждёт d с учётом отмены контекста.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
