// Пакет cache — in-memory кэширование чтений табличного API и
// отложенная пакетная запись обновлений строк.
// Кэш — обёртка над hashicorp/golang-lru/v2/expirable с TTL.
package cache

import (
	"fmt"
	"regexp"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/certstore/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cs_cache_hits_total",
		Help: "Общее количество попаданий в кэш чтений таблицы.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cs_cache_misses_total",
		Help: "Общее количество промахов кэша чтений таблицы.",
	})
)

// SheetCache — TTL-кэш строк таблицы. Каждый экземпляр сервиса держит
// собственный in-memory кэш; TTL короткий, чтобы данные таблицы не
// расходились с админкой дольше, чем на него.
type SheetCache struct {
	cache *expirable.LRU[string, []model.SheetRow]
}

// NewSheetCache создаёт кэш с указанным максимальным размером и TTL.
func NewSheetCache(maxSize int, ttl time.Duration) *SheetCache {
	cache := expirable.NewLRU[string, []model.SheetRow](maxSize, nil, ttl)
	return &SheetCache{cache: cache}
}

// Get возвращает строки из кэша по ключу.
// Возвращает (строки, true) при hit или (nil, false) при miss.
func (c *SheetCache) Get(key string) ([]model.SheetRow, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись в кэше.
func (c *SheetCache) Set(key string, rows []model.SheetRow) {
	c.cache.Add(key, rows)
}

// Invalidate удаляет запись из кэша.
func (c *SheetCache) Invalidate(key string) {
	c.cache.Remove(key)
}

// InvalidatePattern удаляет все записи, чьи ключи совпадают с
// регулярным выражением pattern.
func (c *SheetCache) InvalidatePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("cache: неверный шаблон %q: %w", pattern, err)
	}
	for _, key := range c.cache.Keys() {
		if re.MatchString(key) {
			c.cache.Remove(key)
		}
	}
	return nil
}

// Clear очищает кэш целиком.
func (c *SheetCache) Clear() {
	c.cache.Purge()
}

// Len возвращает текущее число записей в кэше.
func (c *SheetCache) Len() int {
	return c.cache.Len()
}
