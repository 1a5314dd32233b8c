package cache

import (
	"testing"
	"time"

	"github.com/bigkaa/certstore/internal/domain/model"
)

func testRows(names ...string) []model.SheetRow {
	rows := make([]model.SheetRow, 0, len(names))
	for _, n := range names {
		rows = append(rows, model.SheetRow{ParticipantName: n})
	}
	return rows
}

func TestSheetCache_GetSet(t *testing.T) {
	c := NewSheetCache(10, time.Minute)

	// Miss на пустом кэше
	if _, ok := c.Get("sheet_data"); ok {
		t.Error("Get() на пустом кэше вернул hit")
	}

	c.Set("sheet_data", testRows("Alice", "Bob"))

	rows, ok := c.Get("sheet_data")
	if !ok {
		t.Fatal("Get() после Set вернул miss")
	}
	if len(rows) != 2 || rows[0].ParticipantName != "Alice" {
		t.Errorf("Get() вернул %+v", rows)
	}
}

func TestSheetCache_TTLExpiry(t *testing.T) {
	c := NewSheetCache(10, 50*time.Millisecond)

	c.Set("sheet_data", testRows("Alice"))
	if _, ok := c.Get("sheet_data"); !ok {
		t.Fatal("запись не найдена сразу после Set")
	}

	time.Sleep(80 * time.Millisecond)

	if _, ok := c.Get("sheet_data"); ok {
		t.Error("запись не истекла после TTL")
	}
}

func TestSheetCache_Invalidate(t *testing.T) {
	c := NewSheetCache(10, time.Minute)

	c.Set("sheet_data", testRows("Alice"))
	c.Invalidate("sheet_data")

	if _, ok := c.Get("sheet_data"); ok {
		t.Error("запись найдена после Invalidate")
	}
}

func TestSheetCache_InvalidatePattern(t *testing.T) {
	c := NewSheetCache(10, time.Minute)

	c.Set("sheet_data", testRows("Alice"))
	c.Set("sheet_stats", testRows("Bob"))
	c.Set("other", testRows("Carol"))

	if err := c.InvalidatePattern("^sheet_"); err != nil {
		t.Fatalf("InvalidatePattern() ошибка: %v", err)
	}

	if _, ok := c.Get("sheet_data"); ok {
		t.Error("sheet_data найдена после InvalidatePattern")
	}
	if _, ok := c.Get("sheet_stats"); ok {
		t.Error("sheet_stats найдена после InvalidatePattern")
	}
	if _, ok := c.Get("other"); !ok {
		t.Error("other удалена, хотя шаблон не совпадает")
	}
}

func TestSheetCache_InvalidatePattern_BadRegexp(t *testing.T) {
	c := NewSheetCache(10, time.Minute)

	c.Set("sheet_data", testRows("Alice"))

	if err := c.InvalidatePattern("(["); err == nil {
		t.Fatal("InvalidatePattern() не вернул ошибку на кривом шаблоне")
	}
	if _, ok := c.Get("sheet_data"); !ok {
		t.Error("запись удалена при ошибке компиляции шаблона")
	}
}

func TestSheetCache_Clear(t *testing.T) {
	c := NewSheetCache(10, time.Minute)

	c.Set("a", testRows("Alice"))
	c.Set("b", testRows("Bob"))
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len() = %d после Clear, ожидается 0", c.Len())
	}
}

func TestSheetCache_Eviction(t *testing.T) {
	// Размер 2 — третья запись вытесняет самую старую
	c := NewSheetCache(2, time.Minute)

	c.Set("a", testRows("Alice"))
	c.Set("b", testRows("Bob"))
	c.Set("c", testRows("Carol"))

	if c.Len() != 2 {
		t.Errorf("Len() = %d, ожидается 2", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("самая старая запись не вытеснена")
	}
}
