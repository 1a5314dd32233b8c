package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/certstore/internal/domain/model"
)

// Prometheus-метрики очереди отложенных обновлений.
var (
	batchQueuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cs_sheet_batch_queued_total",
		Help: "Общее количество обновлений, поставленных в очередь записи в таблицу.",
	})
	batchFlushErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cs_sheet_batch_flush_errors_total",
		Help: "Общее количество неудачных сбросов очереди обновлений.",
	})
	batchPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "cs_sheet_batch_pending",
		Help: "Текущее число обновлений в очереди записи в таблицу.",
	})
)

// FlushFunc выполняет запись накопленных обновлений в таблицу.
type FlushFunc func(ctx context.Context, updates []model.RowUpdate) error

// Batcher накапливает обновления строк таблицы и сбрасывает их пачкой.
// Каждый Add сдвигает таймер сброса (debounce): пока админка активно
// редактирует, обновления копятся и уходят одним пакетом.
// При неудачном сбросе обновления возвращаются в начало очереди,
// порядок относительно накопленных позже сохраняется.
type Batcher struct {
	mu      sync.Mutex
	queue   []model.RowUpdate
	timer   *time.Timer
	delay   time.Duration
	timeout time.Duration
	flush   FlushFunc
	logger  *slog.Logger
	closed  bool
	wg      sync.WaitGroup
}

// NewBatcher создаёт очередь отложенных обновлений.
// delay — окно накопления после последнего Add.
func NewBatcher(delay time.Duration, flush FlushFunc, logger *slog.Logger) *Batcher {
	return &Batcher{
		delay:   delay,
		timeout: 2 * time.Minute,
		flush:   flush,
		logger:  logger.With(slog.String("component", "sheet_batcher")),
	}
}

// Add ставит обновление в хвост очереди. Обновления не сливаются:
// повторные правки той же строки уходят в пакете отдельными записями
// в порядке поступления, табличный API применяет их последовательно.
func (b *Batcher) Add(u model.RowUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}

	b.queue = append(b.queue, u)
	batchPending.Set(float64(len(b.queue)))
	batchQueuedTotal.Inc()

	// Debounce: каждый Add сдвигает сброс
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flushAsync)
}

// PendingCount возвращает число обновлений в очереди.
func (b *Batcher) PendingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// Flush синхронно сбрасывает очередь. Возвращает ошибку записи;
// при ошибке обновления остаются в очереди.
func (b *Batcher) Flush(ctx context.Context) error {
	b.mu.Lock()
	if len(b.queue) == 0 {
		b.mu.Unlock()
		return nil
	}
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	batch := b.queue
	b.queue = nil
	batchPending.Set(0)
	b.mu.Unlock()

	if err := b.flush(ctx, batch); err != nil {
		batchFlushErrorsTotal.Inc()
		b.requeue(batch)
		return err
	}
	return nil
}

// Close останавливает таймер и сбрасывает остаток очереди.
func (b *Batcher) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.wg.Wait()
	return b.Flush(ctx)
}

// flushAsync — сброс по таймеру.
func (b *Batcher) flushAsync() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := b.Flush(ctx); err != nil {
			b.logger.Error("Сброс очереди обновлений таблицы не удался",
				slog.String("error", err.Error()),
				slog.Int("pending", b.PendingCount()),
			)
		}
	}()
}

// requeue возвращает неудавшийся пакет в начало очереди и
// планирует повторный сброс.
func (b *Batcher) requeue(batch []model.RowUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(batch, b.queue...)
	batchPending.Set(float64(len(b.queue)))
	if b.closed {
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flushAsync)
}
