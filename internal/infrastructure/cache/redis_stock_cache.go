// Package cache caché de resúmenes de stock sobre Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/application/inventory"
)

const (
	keyPrefix = "pae:stock-summary"
	genPrefix = "pae:stock-gen"
	// allLocations campo del hash para el resumen sin filtro de ubicación.
	allLocations = "*"
)

// setIfGeneration escribe el campo solo si la generación no avanzó desde la lectura.
// KEYS[1] hash de resúmenes, KEYS[2] contador de generación.
// ARGV: generación leída, campo, resumen JSON, TTL en milisegundos (0 = sin expiración).
const setIfGeneration = `
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[1] then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[2], ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`

var _ inventory.StockCache = (*RedisStockCache)(nil)

// RedisConfig conexión a Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient abre el cliente y verifica la conexión con PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr, err)
	}
	return rdb, nil
}

// RedisStockCache guarda un hash por producto+institución; cada campo es una ubicación.
// Junto al hash vive un contador de generación: Invalidate lo incrementa y borra el hash.
// Los fallos de Redis se registran y se tratan como miss.
type RedisStockCache struct {
	rdb redis.Cmdable
	ttl time.Duration
	log zerolog.Logger
}

// NewRedisStockCache construye la caché. ttl <= 0 deja las entradas sin expiración.
func NewRedisStockCache(rdb redis.Cmdable, ttl time.Duration, log zerolog.Logger) *RedisStockCache {
	return &RedisStockCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "stock_cache").Logger(),
	}
}

func summaryKey(productID string, institutionID int64) string {
	return fmt.Sprintf("%s:%s:%d", keyPrefix, productID, institutionID)
}

func generationKey(productID string, institutionID int64) string {
	return fmt.Sprintf("%s:%s:%d", genPrefix, productID, institutionID)
}

func field(location string) string {
	if location == "" {
		return allLocations
	}
	return location
}

// GetSummary implementa inventory.StockCache.
func (c *RedisStockCache) GetSummary(ctx context.Context, productID string, institutionID int64, location string) (*dto.StockSummaryResponse, bool) {
	raw, err := c.rdb.HGet(ctx, summaryKey(productID, institutionID), field(location)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("product_id", productID).Msg("lectura de caché fallida")
		}
		return nil, false
	}
	var summary dto.StockSummaryResponse
	if err := json.Unmarshal(raw, &summary); err != nil {
		c.log.Warn().Err(err).Str("product_id", productID).Msg("entrada de caché corrupta")
		return nil, false
	}
	return &summary, true
}

// Generation implementa inventory.StockCache. Un contador inexistente vale 0.
func (c *RedisStockCache) Generation(ctx context.Context, productID string, institutionID int64) (int64, bool) {
	gen, err := c.rdb.Get(ctx, generationKey(productID, institutionID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, true
		}
		c.log.Warn().Err(err).Str("product_id", productID).Msg("lectura de generación fallida")
		return 0, false
	}
	return gen, true
}

// SetSummary implementa inventory.StockCache.
func (c *RedisStockCache) SetSummary(ctx context.Context, summary *dto.StockSummaryResponse, gen int64) {
	raw, err := json.Marshal(summary)
	if err != nil {
		c.log.Warn().Err(err).Msg("no se pudo serializar el resumen")
		return
	}
	keys := []string{
		summaryKey(summary.ProductID, summary.InstitutionID),
		generationKey(summary.ProductID, summary.InstitutionID),
	}
	written, err := c.rdb.Eval(ctx, setIfGeneration, keys,
		strconv.FormatInt(gen, 10), field(summary.StorageLocation), string(raw), c.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		c.log.Warn().Err(err).Str("product_id", summary.ProductID).Msg("escritura de caché fallida")
		return
	}
	if written == 0 {
		c.log.Debug().
			Str("product_id", summary.ProductID).
			Int64("institution_id", summary.InstitutionID).
			Int64("generation", gen).
			Msg("resumen descartado, hubo una mutación durante la lectura")
	}
}

// Invalidate implementa inventory.StockCache. Primero avanza la generación para que
// ningún lector en curso pueda volver a escribir el resumen viejo.
func (c *RedisStockCache) Invalidate(ctx context.Context, productID string, institutionID int64) {
	if err := c.rdb.Incr(ctx, generationKey(productID, institutionID)).Err(); err != nil {
		c.log.Error().Err(err).
			Str("product_id", productID).
			Int64("institution_id", institutionID).
			Msg("no se pudo avanzar la generación de la caché")
	}
	if err := c.rdb.Del(ctx, summaryKey(productID, institutionID)).Err(); err != nil {
		c.log.Error().Err(err).
			Str("product_id", productID).
			Int64("institution_id", institutionID).
			Msg("no se pudo invalidar la caché de stock")
	}
}
