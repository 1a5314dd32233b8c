package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Цвета embed по уровню.
const (
	colorInfo  = 0x0099FF
	colorWarn  = 0xFFA500
	colorError = 0xFF0000
)

// Discord отправляет уведомления в Discord webhook.
// Отправка асинхронная, ошибки доставки только логируются.
type Discord struct {
	webhookURL      string
	errorWebhookURL string
	httpClient      *http.Client
	logger          *slog.Logger
	wg              sync.WaitGroup
}

// NewDiscord создаёт Discord-нотификатор.
// errorWebhookURL — отдельный webhook для LevelError (пустая строка —
// используется основной).
func NewDiscord(webhookURL, errorWebhookURL string, logger *slog.Logger) *Discord {
	if errorWebhookURL == "" {
		errorWebhookURL = webhookURL
	}
	return &Discord{
		webhookURL:      webhookURL,
		errorWebhookURL: errorWebhookURL,
		httpClient:      &http.Client{Timeout: 10 * time.Second},
		logger:          logger.With(slog.String("component", "discord_notify")),
	}
}

// discordEmbed — embed в формате Discord webhook API.
type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Timestamp   string              `json:"timestamp"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordPayload struct {
	Username string         `json:"username"`
	Embeds   []discordEmbed `json:"embeds"`
}

// Notify отправляет уведомление в фоне.
func (d *Discord) Notify(e Event) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.send(e); err != nil {
			d.logger.Warn("Не удалось отправить уведомление в Discord",
				slog.String("title", e.Title),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// Wait дожидается завершения отправок (для graceful shutdown и тестов).
func (d *Discord) Wait() {
	d.wg.Wait()
}

func (d *Discord) send(e Event) error {
	color := colorInfo
	url := d.webhookURL
	switch e.Level {
	case LevelWarn:
		color = colorWarn
	case LevelError:
		color = colorError
		url = d.errorWebhookURL
	}

	embed := discordEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       color,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: true,
		})
	}

	payload, err := json.Marshal(discordPayload{
		Username: "Certificate Portal",
		Embeds:   []discordEmbed{embed},
	})
	if err != nil {
		return fmt.Errorf("кодирование уведомления: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("запрос к Discord: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Discord вернул статус %d", resp.StatusCode)
	}
	return nil
}
