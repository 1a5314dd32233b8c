// Пакет certtype — классификация категорий сертификатов и требования к полям.
// Категория приходит из внешней таблицы свободным текстом, поэтому
// классификация устойчива к регистру и подстрокам ("Best Delegate Award"
// классифицируется как delegate). Таблица категория → обязательные поля
// централизована здесь и нигде больше не дублируется.
package certtype

import "strings"

// Category — распознанная категория сертификата.
type Category int

const (
	// CategoryOther — категория не распознана; дополнительных полей нет.
	CategoryOther Category = iota
	// CategoryDelegate — делегат: обязательны committee и country.
	CategoryDelegate
	// CategorySecretariat — секретариат: department и designation
	// (в таблице переиспользуются колонки Committee и Country).
	CategorySecretariat
	// CategoryExecutiveBoard — executive board: committee и position.
	CategoryExecutiveBoard
	// CategoryCampusAmbassador — campus ambassador: без дополнительных полей.
	CategoryCampusAmbassador
)

// String возвращает каноническое имя категории.
func (c Category) String() string {
	switch c {
	case CategoryDelegate:
		return "delegate"
	case CategorySecretariat:
		return "secretariat"
	case CategoryExecutiveBoard:
		return "executive board"
	case CategoryCampusAmbassador:
		return "campus ambassador"
	default:
		return "other"
	}
}

// Classify распознаёт категорию по свободному тексту.
// Порядок проверок важен: "executive board" проверяется до "eb",
// точное совпадение "eb" не пересекается с другими предикатами.
func Classify(raw string) Category {
	t := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(t, "delegate"):
		return CategoryDelegate
	case strings.Contains(t, "secretariat"):
		return CategorySecretariat
	case strings.Contains(t, "executive board") || t == "eb":
		return CategoryExecutiveBoard
	case strings.Contains(t, "campus ambassador"):
		return CategoryCampusAmbassador
	default:
		return CategoryOther
	}
}

// RequiredFields возвращает имена дополнительных полей категории.
// Для delegate эти поля обязательны при валидации; для secretariat и
// executive board они заполняются в точках создания/импорта, но валидатор
// их не требует (см. ValidateFields).
func (c Category) RequiredFields() []string {
	switch c {
	case CategoryDelegate:
		return []string{"committee", "country"}
	case CategorySecretariat:
		return []string{"department", "designation"}
	case CategoryExecutiveBoard:
		return []string{"committee", "position"}
	default:
		return nil
	}
}

// Fields — входные данные сертификата для валидации.
type Fields struct {
	ParticipantName string
	Email           string
	Institution     string
	AwardType       string
	Committee       string
	Country         string
}

// ValidationResult — итог проверки обязательных полей.
type ValidationResult struct {
	Valid         bool
	MissingFields []string
}

// ValidateFields проверяет обязательные поля для указанной категории.
// Безусловно обязательно только имя участника; committee и country
// требуются только для делегатов. Требования department/designation и
// committee/position секретариата и executive board исторически
// применяются в точках создания и импорта, а не здесь — унификация
// изменила бы результат импорта существующих таблиц.
func ValidateFields(rawType string, f Fields) ValidationResult {
	var missing []string

	if strings.TrimSpace(f.ParticipantName) == "" {
		missing = append(missing, "Participant Name")
	}

	if Classify(rawType) == CategoryDelegate {
		if strings.TrimSpace(f.Committee) == "" {
			missing = append(missing, "Committee")
		}
		if strings.TrimSpace(f.Country) == "" {
			missing = append(missing, "Country")
		}
	}

	return ValidationResult{
		Valid:         len(missing) == 0,
		MissingFields: missing,
	}
}
