package model

import "time"

// Event — событие (конференция, сессия), в рамках которого выдаются сертификаты.
// Хранится в таблице events. Создаётся только администратором; импорт из
// таблицы требует, чтобы событие по умолчанию уже существовало.
type Event struct {
	// ID — UUID записи
	ID string
	// EventCode — человекочитаемый код события (например, "mun-session-3-2025")
	EventCode string
	// EventName — отображаемое название
	EventName string
	// Year — год проведения
	Year int
	// Month — месяц проведения (1-12)
	Month int
	// Session — порядковый номер сессии
	Session int
	// EventType — тип события (mun, conference, workshop)
	EventType string
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// CreatedBy — кто создал запись (username, может быть пустым)
	CreatedBy string

	// CertificateCount — количество сертификатов события (заполняется при выборках списка)
	CertificateCount int
}
