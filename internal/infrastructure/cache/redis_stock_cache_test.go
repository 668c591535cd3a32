package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/pae-compras/internal/application/dto"
)

// fakeRedis implementa solo los comandos que usa RedisStockCache.
// El resto de redis.Cmdable queda nil y entra en pánico si se llama.
type fakeRedis struct {
	redis.Cmdable

	mu      sync.Mutex
	strings map[string]string
	hashes  map[string]map[string]string
	ttls    map[string]int64
	fail    error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		strings: map[string]string{},
		hashes:  map[string]map[string]string{},
		ttls:    map[string]int64{},
	}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStringResult("", f.fail)
	}
	v, ok := f.strings[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) HGet(_ context.Context, key, field string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewStringResult("", f.fail)
	}
	v, ok := f.hashes[key][field]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewIntResult(0, f.fail)
	}
	n, _ := strconv.ParseInt(f.strings[key], 10, 64)
	n++
	f.strings[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewIntResult(0, f.fail)
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.hashes[k]; ok {
			delete(f.hashes, k)
			n++
		}
		delete(f.ttls, k)
	}
	return redis.NewIntResult(n, nil)
}

// Eval reproduce setIfGeneration.
func (f *fakeRedis) Eval(_ context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return redis.NewCmdResult(nil, f.fail)
	}
	if script != setIfGeneration {
		return redis.NewCmdResult(nil, errors.New("script desconocido"))
	}
	current, ok := f.strings[keys[1]]
	if !ok {
		current = "0"
	}
	if current != fmt.Sprint(args[0]) {
		return redis.NewCmdResult(int64(0), nil)
	}
	h := f.hashes[keys[0]]
	if h == nil {
		h = map[string]string{}
		f.hashes[keys[0]] = h
	}
	h[fmt.Sprint(args[1])] = fmt.Sprint(args[2])
	if ttl := args[3].(int64); ttl > 0 {
		f.ttls[keys[0]] = ttl
	}
	return redis.NewCmdResult(int64(1), nil)
}

func summary(location, total string) *dto.StockSummaryResponse {
	return &dto.StockSummaryResponse{
		ProductID:           "arroz",
		InstitutionID:       7,
		StorageLocation:     location,
		TotalAvailableStock: decimal.RequireFromString(total),
		NumberOfBatches:     1,
		Unit:                "kg",
	}
}

func TestRedisStockCache_HashPorProducto(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisStockCache(rdb, time.Minute, zerolog.Nop())
	ctx := context.Background()

	gen, ok := c.Generation(ctx, "arroz", 7)
	require.True(t, ok)
	assert.Zero(t, gen)

	c.SetSummary(ctx, summary("", "10"), gen)
	c.SetSummary(ctx, summary("bodega", "4"), gen)

	require.Contains(t, rdb.hashes, "pae:stock-summary:arroz:7")
	assert.Len(t, rdb.hashes["pae:stock-summary:arroz:7"], 2)
	assert.Contains(t, rdb.hashes["pae:stock-summary:arroz:7"], "*")
	assert.Equal(t, int64(60000), rdb.ttls["pae:stock-summary:arroz:7"])

	all, ok := c.GetSummary(ctx, "arroz", 7, "")
	require.True(t, ok)
	assert.Equal(t, "10", all.TotalAvailableStock.String())
	inLocation, ok := c.GetSummary(ctx, "arroz", 7, "bodega")
	require.True(t, ok)
	assert.Equal(t, "4", inLocation.TotalAvailableStock.String())

	_, ok = c.GetSummary(ctx, "arroz", 8, "")
	assert.False(t, ok)
}

func TestRedisStockCache_InvalidateDescartaEscriturasViejas(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisStockCache(rdb, 0, zerolog.Nop())
	ctx := context.Background()

	stale, ok := c.Generation(ctx, "arroz", 7)
	require.True(t, ok)
	c.SetSummary(ctx, summary("", "10"), stale)

	c.Invalidate(ctx, "arroz", 7)
	_, ok = c.GetSummary(ctx, "arroz", 7, "")
	assert.False(t, ok, "Invalidate borra el hash")
	assert.Equal(t, "1", rdb.strings["pae:stock-gen:arroz:7"])

	// un lector que tomó la generación antes de la mutación no puede escribir
	c.SetSummary(ctx, summary("", "10"), stale)
	_, ok = c.GetSummary(ctx, "arroz", 7, "")
	assert.False(t, ok)

	fresh, ok := c.Generation(ctx, "arroz", 7)
	require.True(t, ok)
	assert.Equal(t, int64(1), fresh)
	c.SetSummary(ctx, summary("", "6"), fresh)
	got, ok := c.GetSummary(ctx, "arroz", 7, "")
	require.True(t, ok)
	assert.Equal(t, "6", got.TotalAvailableStock.String())
	assert.NotContains(t, rdb.ttls, "pae:stock-summary:arroz:7")
}

func TestRedisStockCache_ErroresSonMiss(t *testing.T) {
	rdb := newFakeRedis()
	c := NewRedisStockCache(rdb, time.Minute, zerolog.Nop())
	ctx := context.Background()

	rdb.hashes["pae:stock-summary:arroz:7"] = map[string]string{"*": "{no es json"}
	_, ok := c.GetSummary(ctx, "arroz", 7, "")
	assert.False(t, ok, "entrada corrupta")

	rdb.fail = errors.New("connection refused")
	_, ok = c.GetSummary(ctx, "arroz", 7, "")
	assert.False(t, ok)
	_, ok = c.Generation(ctx, "arroz", 7)
	assert.False(t, ok)
	assert.NotPanics(t, func() {
		c.SetSummary(ctx, summary("", "1"), 0)
		c.Invalidate(ctx, "arroz", 7)
	})
}
