// Пакет certid — генерация публичных идентификаторов сертификатов.
// Идентификатор короткий (6–7 символов, [a-z0-9]), попадает в URL проверки
// и печатается на сертификате, поэтому без заглавных букв и спецсимволов.
package certid

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	// MinLength и MaxLength — границы длины публичного идентификатора.
	MinLength = 6
	MaxLength = 7
)

// Generate возвращает новый случайный идентификатор: 6 или 7 символов,
// длина выбирается монетой, символы — равномерно из алфавита.
// Уникальность гарантируется не здесь, а ограничением UNIQUE в базе:
// вызывающий код при коллизии генерирует заново.
func Generate() (string, error) {
	coin, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return "", fmt.Errorf("certid: %w", err)
	}
	length := MinLength + int(coin.Int64())

	max := big.NewInt(int64(len(alphabet)))
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("certid: %w", err)
		}
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String(), nil
}

// Valid сообщает, похожа ли строка на публичный идентификатор:
// 6–7 символов из [a-z0-9].
func Valid(id string) bool {
	if len(id) < MinLength || len(id) > MaxLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// VerificationURL собирает публичный URL проверки сертификата.
// Путь до страницы проверки живёт в базовом URL, здесь добавляется
// только сам идентификатор.
func VerificationURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/" + id
}
