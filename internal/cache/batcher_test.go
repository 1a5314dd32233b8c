package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/certstore/internal/domain/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// collectFlush возвращает FlushFunc, копящую пакеты, и доступ к ним.
func collectFlush() (FlushFunc, func() [][]model.RowUpdate) {
	var mu sync.Mutex
	var batches [][]model.RowUpdate
	fn := func(ctx context.Context, updates []model.RowUpdate) error {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, updates)
		return nil
	}
	get := func() [][]model.RowUpdate {
		mu.Lock()
		defer mu.Unlock()
		return batches
	}
	return fn, get
}

func update(value string, fields model.SheetFields) model.RowUpdate {
	return model.RowUpdate{SearchColumn: "Unique_ID", SearchValue: value, Fields: fields}
}

func TestBatcher_DebounceFlush(t *testing.T) {
	flush, batches := collectFlush()
	b := NewBatcher(30*time.Millisecond, flush, testLogger())
	defer b.Close(context.Background())

	b.Add(update("aaa1111", model.SheetFields{"x": "1"}))
	b.Add(update("bbb2222", model.SheetFields{"x": "2"}))

	if b.PendingCount() != 2 {
		t.Errorf("PendingCount() = %d, ожидается 2", b.PendingCount())
	}

	// Ждём срабатывания таймера
	time.Sleep(100 * time.Millisecond)

	got := batches()
	if len(got) != 1 {
		t.Fatalf("сбросов: %d, ожидается 1", len(got))
	}
	if len(got[0]) != 2 {
		t.Fatalf("в пакете %d обновлений, ожидается 2", len(got[0]))
	}
	// Порядок FIFO
	if got[0][0].SearchValue != "aaa1111" || got[0][1].SearchValue != "bbb2222" {
		t.Errorf("порядок пакета: %+v", got[0])
	}
	if b.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d после сброса, ожидается 0", b.PendingCount())
	}
}

func TestBatcher_SameRowKeepsAllUpdates(t *testing.T) {
	flush, batches := collectFlush()
	b := NewBatcher(time.Hour, flush, testLogger())

	// Пять правок одной строки — пять записей в пакете, порядок поступления
	statuses := []string{"active", "revoked", "active", "revoked", "active"}
	for _, st := range statuses {
		b.Add(update("aaa1111", model.SheetFields{"Verified_Status": st}))
	}

	if b.PendingCount() != 5 {
		t.Fatalf("PendingCount() = %d, ожидается 5", b.PendingCount())
	}

	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() ошибка: %v", err)
	}

	got := batches()
	if len(got) != 1 || len(got[0]) != 5 {
		t.Fatalf("после Flush: %+v", got)
	}
	for i, u := range got[0] {
		if u.SearchValue != "aaa1111" {
			t.Errorf("обновление %d: ключ %q", i, u.SearchValue)
		}
		if u.Fields["Verified_Status"] != statuses[i] {
			t.Errorf("обновление %d: Verified_Status = %q, ожидается %q",
				i, u.Fields["Verified_Status"], statuses[i])
		}
	}
}

func TestBatcher_RequeueOnFailure(t *testing.T) {
	var mu sync.Mutex
	var calls int
	var lastBatch []model.RowUpdate
	flush := func(ctx context.Context, updates []model.RowUpdate) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastBatch = updates
		if calls == 1 {
			return errors.New("таблица недоступна")
		}
		return nil
	}

	b := NewBatcher(time.Hour, flush, testLogger())

	b.Add(update("aaa1111", model.SheetFields{"x": "1"}))

	// Первый сброс падает — обновление возвращается в очередь
	if err := b.Flush(context.Background()); err == nil {
		t.Fatal("Flush() не вернул ошибку")
	}
	if b.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d после неудачного сброса, ожидается 1", b.PendingCount())
	}

	// Обновление, добавленное после неудачи, встаёт позже вернувшегося
	b.Add(update("bbb2222", model.SheetFields{"x": "2"}))

	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("повторный Flush() ошибка: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lastBatch) != 2 {
		t.Fatalf("во втором пакете %d обновлений, ожидается 2", len(lastBatch))
	}
	if lastBatch[0].SearchValue != "aaa1111" || lastBatch[1].SearchValue != "bbb2222" {
		t.Errorf("порядок после requeue: %+v", lastBatch)
	}
}

func TestBatcher_FlushEmpty(t *testing.T) {
	flush, batches := collectFlush()
	b := NewBatcher(time.Hour, flush, testLogger())

	if err := b.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() пустой очереди ошибка: %v", err)
	}
	if len(batches()) != 0 {
		t.Error("FlushFunc вызвана для пустой очереди")
	}
}

func TestBatcher_CloseFlushesRemainder(t *testing.T) {
	flush, batches := collectFlush()
	b := NewBatcher(time.Hour, flush, testLogger())

	b.Add(update("aaa1111", model.SheetFields{"x": "1"}))

	if err := b.Close(context.Background()); err != nil {
		t.Fatalf("Close() ошибка: %v", err)
	}
	got := batches()
	if len(got) != 1 || len(got[0]) != 1 {
		t.Fatalf("Close() не сбросил остаток: %+v", got)
	}

	// После Close добавления игнорируются
	b.Add(update("bbb2222", model.SheetFields{"x": "2"}))
	if b.PendingCount() != 0 {
		t.Errorf("PendingCount() = %d после Close, ожидается 0", b.PendingCount())
	}
}
