// Пакет notify — уведомления о событиях сертификатов.
// Уведомления не входят в критический путь операций: все ошибки
// доставки пишутся в лог и глотаются.
package notify

// Level определяет цвет и webhook уведомления.
type Level int

const (
	// LevelInfo — обычное событие (создание, импорт).
	LevelInfo Level = iota
	// LevelWarn — событие, требующее внимания (отзыв, удаление).
	LevelWarn
	// LevelError — ошибка (неудачная синхронизация).
	LevelError
)

// Field — пара имя/значение в теле уведомления.
type Field struct {
	Name  string
	Value string
}

// Event — уведомление.
type Event struct {
	Title       string
	Description string
	Level       Level
	Fields      []Field
}

// Notifier отправляет уведомления. Реализации не возвращают ошибок:
// доставка — best effort.
type Notifier interface {
	Notify(e Event)
}

// Nop — заглушка, когда webhook не настроен.
type Nop struct{}

// Notify ничего не делает.
func (Nop) Notify(Event) {}
