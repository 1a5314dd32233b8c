package model

import "strings"

// Имена колонок внешней таблицы (Google Sheet через SheetDB-совместимый API).
// Регистр и написание исторические — менять нельзя, это контракт с таблицей.
const (
	SheetColCertType        = "Cert_Type"
	SheetColUniqueID        = "Unique_ID"
	SheetColParticipantName = "Participant_Name"
	SheetColEmail           = "Email"
	SheetColInstitution     = "institution" // в таблице колонка в нижнем регистре
	SheetColVerificationURL = "Verification_URL"
	SheetColAwardType       = "Award_Type"
	SheetColCommittee       = "Committee"
	SheetColCountry         = "Country"
	SheetColDateIssued      = "Date_Issued"
	SheetColVerifiedStatus  = "Verified_Status"
	SheetColEventName       = "Event_Name"
)

// SheetRow — строка внешней таблицы. Слаботипизированная: все поля строковые,
// адресация строк — по совпадению значения колонки, а не по стабильному id.
type SheetRow struct {
	// CertType — категория сертификата (delegate, secretariat, ...)
	CertType string `json:"Cert_Type"`
	// UniqueID — публичный идентификатор сертификата; пустой у необработанных строк
	UniqueID string `json:"Unique_ID"`
	// ParticipantName — имя участника (ключ обратной записи при импорте)
	ParticipantName string `json:"Participant_Name"`
	// Email — почта участника
	Email string `json:"Email"`
	// Institution — учебное заведение (колонка "institution")
	Institution string `json:"institution"`
	// VerificationURL — URL проверки
	VerificationURL string `json:"Verification_URL"`
	// AwardType — печатаемое название сертификата
	AwardType string `json:"Award_Type"`
	// Committee — комитет (для secretariat переиспользуется под department)
	Committee string `json:"Committee"`
	// Country — страна (для secretariat переиспользуется под designation)
	Country string `json:"Country"`
	// DateIssued — дата выдачи
	DateIssued string `json:"Date_Issued"`
	// VerifiedStatus — статус в таблице (active, revoked, deleted)
	VerifiedStatus string `json:"Verified_Status"`
	// EventName — код события
	EventName string `json:"Event_Name"`
}

// Processed сообщает, обработана ли строка: у обработанной строки
// заполнен Unique_ID.
func (r *SheetRow) Processed() bool {
	return strings.TrimSpace(r.UniqueID) != ""
}

// SheetFields — частичное обновление строки: имя колонки → новое значение.
type SheetFields map[string]string

// RowUpdate — одно отложенное обновление строки внешней таблицы.
type RowUpdate struct {
	// SearchColumn — колонка, по которой ищется строка
	SearchColumn string
	// SearchValue — значение для поиска
	SearchValue string
	// Fields — обновляемые поля
	Fields SheetFields
}
