package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDiscord_Notify(t *testing.T) {
	received := make(chan discordPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p discordPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("декодирование payload: %v", err)
		}
		received <- p
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	d := NewDiscord(server.URL, "", testLogger())
	d.Notify(Event{
		Title:       "Сертификат создан",
		Description: "Alice — delegate",
		Level:       LevelInfo,
		Fields: []Field{
			{Name: "ID", Value: "a1b2c3d"},
			{Name: "Событие", Value: "MUN2026"},
		},
	})
	d.Wait()

	p := <-received
	if p.Username != "Certificate Portal" {
		t.Errorf("Username = %q", p.Username)
	}
	if len(p.Embeds) != 1 {
		t.Fatalf("Embeds = %d, ожидается 1", len(p.Embeds))
	}
	e := p.Embeds[0]
	if e.Title != "Сертификат создан" || e.Color != colorInfo {
		t.Errorf("embed: %+v", e)
	}
	if len(e.Fields) != 2 || e.Fields[0].Name != "ID" {
		t.Errorf("поля embed: %+v", e.Fields)
	}
}

func TestDiscord_ErrorLevelUsesErrorWebhook(t *testing.T) {
	mainCalls := 0
	main := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mainCalls++
	}))
	defer main.Close()

	errCh := make(chan discordPayload, 1)
	errServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p discordPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		errCh <- p
	}))
	defer errServer.Close()

	d := NewDiscord(main.URL, errServer.URL, testLogger())
	d.Notify(Event{Title: "Синхронизация не удалась", Level: LevelError})
	d.Wait()

	p := <-errCh
	if p.Embeds[0].Color != colorError {
		t.Errorf("Color = %#x, ожидается %#x", p.Embeds[0].Color, colorError)
	}
	if mainCalls != 0 {
		t.Errorf("основной webhook вызван %d раз для LevelError", mainCalls)
	}
}

func TestDiscord_SwallowsDeliveryErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	// Notify не должен ни паниковать, ни блокировать
	d := NewDiscord(server.URL, "", testLogger())
	d.Notify(Event{Title: "x", Level: LevelInfo})
	d.Wait()
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	n.Notify(Event{Title: "игнорируется"})
}
