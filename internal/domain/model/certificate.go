// Пакет model — доменные модели Certstore.
package model

import "time"

// Статусы сертификата.
const (
	// StatusActive — сертификат действителен.
	StatusActive = "active"
	// StatusRevoked — сертификат отозван.
	StatusRevoked = "revoked"
)

// Certificate — выданный сертификат участника.
// Хранится в таблице certificates.
type Certificate struct {
	// ID — UUID записи (суррогатный ключ)
	ID string
	// CertificateID — публичный короткий идентификатор (6-7 символов [a-z0-9]),
	// уникален, неизменяем после выдачи, входит в URL верификации
	CertificateID string
	// EventID — UUID события, к которому привязан сертификат
	EventID string
	// CertificateType — печатаемое название сертификата (award name, свободный текст)
	CertificateType string
	// ParticipantName — имя участника
	ParticipantName string
	// School — учебное заведение / организация участника
	School string
	// DateIssued — дата выдачи (YYYY-MM-DD)
	DateIssued string
	// Status — статус жизненного цикла (active, revoked)
	Status string
	// RevokedAt — время отзыва (nil если не отозван)
	RevokedAt *time.Time
	// RevokedBy — кто отозвал (nil если не отозван)
	RevokedBy *string
	// RevokedReason — причина отзыва (nil если не отозван)
	RevokedReason *string
	// VerificationURL — публичный URL проверки подлинности
	VerificationURL string
	// VerificationCount — счётчик проверок сертификата
	VerificationCount int
	// LastVerifiedAt — время последней проверки (nil если не проверялся)
	LastVerifiedAt *time.Time
	// CreatedAt — время создания записи
	CreatedAt time.Time
	// CreatedBy — кто создал запись (username, может быть пустым)
	CreatedBy string

	// Event — событие сертификата (заполняется при join-выборках)
	Event *Event
	// Metadata — категорийные поля сертификата (заполняется при join-выборках)
	Metadata []CertificateMetadata
}

// CertificateMetadata — одно категорийное поле сертификата
// (committee, country, department, designation, position, email, cert_type).
// Поля хранятся как разреженные пары ключ/значение, т.к. набор обязательных
// полей зависит от категории сертификата.
type CertificateMetadata struct {
	// ID — UUID записи
	ID string
	// CertificateID — UUID сертификата-владельца
	CertificateID string
	// FieldName — имя поля
	FieldName string
	// FieldValue — значение поля
	FieldValue string
	// FieldType — тип значения (text, array, json)
	FieldType string
}

// MetadataValue возвращает значение метаданных по имени поля
// или пустую строку, если поле отсутствует.
func (c *Certificate) MetadataValue(fieldName string) string {
	for _, m := range c.Metadata {
		if m.FieldName == fieldName {
			return m.FieldValue
		}
	}
	return ""
}

// VerificationLog — запись о проверке сертификата на публичном портале.
// Хранится в таблице verification_logs.
type VerificationLog struct {
	// ID — UUID записи
	ID string
	// CertificateID — UUID проверенного сертификата
	CertificateID string
	// VerifiedAt — время проверки
	VerifiedAt time.Time
	// IPAddress — адрес проверяющего (может быть nil)
	IPAddress *string
	// UserAgent — user agent проверяющего (может быть nil)
	UserAgent *string

	// PublicID — публичный идентификатор сертификата (join)
	PublicID string
	// ParticipantName — имя участника (join)
	ParticipantName string
}
