package model

import "time"

// RowError — ошибка обработки одной строки при импорте из таблицы.
// Ошибка строки не прерывает обработку остальных строк.
type RowError struct {
	// Row — номер строки в списке необработанных (с 1)
	Row int `json:"row"`
	// ParticipantName — имя участника из строки ("Unknown" если пусто)
	ParticipantName string `json:"participant_name"`
	// Error — текст ошибки
	Error string `json:"error"`
}

// RowSuccess — успешно обработанная строка импорта.
type RowSuccess struct {
	// Row — номер строки в списке необработанных (с 1)
	Row int `json:"row"`
	// CertificateID — сгенерированный публичный идентификатор
	CertificateID string `json:"certificate_id"`
	// ParticipantName — имя участника
	ParticipantName string `json:"participant_name"`
	// VerificationURL — URL проверки
	VerificationURL string `json:"verification_url"`
}

// ImportResult — итог импорта необработанных строк таблицы в БД.
type ImportResult struct {
	// Processed — количество созданных сертификатов
	Processed int
	// Success — успешно обработанные строки
	Success []RowSuccess
	// Errors — ошибки отдельных строк
	Errors []RowError
	// SheetUpdated — успешных обратных записей в таблицу
	SheetUpdated int
	// SheetUpdateFailed — неудачных обратных записей
	SheetUpdateFailed int
	// StartedAt — время начала импорта
	StartedAt time.Time
	// CompletedAt — время завершения
	CompletedAt time.Time
}

// ExportResult — итог экспорта состояния БД в таблицу.
type ExportResult struct {
	// Updated — исправленных строк таблицы
	Updated int
	// Failed — неудачных обновлений
	Failed int
	// Checked — просмотренных обработанных строк
	Checked int
	// StartedAt — время начала экспорта
	StartedAt time.Time
	// CompletedAt — время завершения
	CompletedAt time.Time
}

// SheetStats — сводка по внешней таблице для дашборда.
type SheetStats struct {
	// Total — всего строк
	Total int `json:"total"`
	// Processed — строк с заполненным Unique_ID
	Processed int `json:"processed"`
	// Pending — строк, ожидающих импорта
	Pending int `json:"pending"`
	// ByType — распределение по категориям
	ByType map[string]int `json:"byType"`
}

// DashboardStats — сводные показатели для главной страницы портала.
type DashboardStats struct {
	// TotalCertificates — всего сертификатов
	TotalCertificates int `json:"totalCertificates"`
	// ActiveCertificates — действующих
	ActiveCertificates int `json:"activeCertificates"`
	// RevokedCertificates — отозванных
	RevokedCertificates int `json:"revokedCertificates"`
	// TotalVerifications — суммарный счётчик проверок
	TotalVerifications int `json:"totalVerifications"`
	// TotalEvents — количество событий
	TotalEvents int `json:"totalEvents"`
}

// Setting — настройка портала (таблица portal_settings).
// Настройки auto-sync сохраняются, но планировщик их не читает:
// синхронизация запускается только входящим запросом.
type Setting struct {
	// Key — ключ настройки (например "auto_sync_enabled")
	Key string `json:"key"`
	// Value — строковое значение
	Value string `json:"value"`
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time `json:"updated_at"`
	// UpdatedBy — кто обновил (username)
	UpdatedBy string `json:"updated_by"`
}
