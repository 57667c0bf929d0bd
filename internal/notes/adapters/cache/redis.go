package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"sheetnotes/internal/notes/domain/entities"
	"sheetnotes/internal/notes/ports/cache"
	"sheetnotes/pkg/logger"
)

// Константы ошибок кэша в Redis.
const (
	ErrorFailedToGet        = "failed to get row index from redis"
	ErrorFailedToSet        = "failed to set row index in redis"
	ErrorFailedToDelete     = "failed to delete row index from redis"
	ErrorFailedToPopulate   = "failed to populate row index in redis"
	ErrorFailedToInvalidate = "failed to invalidate row index in redis"
	ErrorFailedToClear      = "failed to clear row index in redis"
	ErrorCorruptRowIndex    = "corrupt row index value"
)

var _ cache.RowIndexCache = (*RedisRowIndex)(nil)

// RedisRowIndex хранит номера строк источника в одном хэше Redis.
type RedisRowIndex struct {
	client redis.Cmdable
	prefix string
}

// NewRedisRowIndex создает кэш поверх client. prefix добавляется ко всем ключам.
func NewRedisRowIndex(client redis.Cmdable, prefix string) *RedisRowIndex {
	return &RedisRowIndex{client: client, prefix: prefix}
}

// clearBatch число ключей за один SCAN.
const clearBatch = 100

func (c *RedisRowIndex) key(scope string) string {
	return c.prefix + "rowindex:" + scope
}

// Get возвращает номер строки заметки.
func (c *RedisRowIndex) Get(ctx context.Context, scope, noteID string) (int, bool, error) {
	raw, err := c.client.HGet(ctx, c.key(scope), noteID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		logger.Log(ctx).Error(ctx, ErrorFailedToGet,
			zap.String("method", "RedisRowIndex.Get"), zap.String("scope", scope), zap.Error(err))
		return 0, false, fmt.Errorf("%s: %w", ErrorFailedToGet, err)
	}

	row, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", ErrorCorruptRowIndex, err)
	}
	return row, true, nil
}

// Set запоминает номер строки.
func (c *RedisRowIndex) Set(ctx context.Context, scope, noteID string, rowIndex int) error {
	if err := c.client.HSet(ctx, c.key(scope), noteID, rowIndex).Err(); err != nil {
		logger.Log(ctx).Error(ctx, ErrorFailedToSet,
			zap.String("method", "RedisRowIndex.Set"), zap.String("scope", scope), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToSet, err)
	}
	return nil
}

// Delete забывает номер строки.
func (c *RedisRowIndex) Delete(ctx context.Context, scope, noteID string) error {
	if err := c.client.HDel(ctx, c.key(scope), noteID).Err(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToDelete, err)
	}
	return nil
}

// PopulateFromListing атомарно заменяет хэш источника.
func (c *RedisRowIndex) PopulateFromListing(ctx context.Context, scope string, rows []*entities.Note) error {
	fresh := indexRows(rows)
	key := c.key(scope)

	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fresh) == 0 {
			return nil
		}
		values := make(map[string]any, len(fresh))
		for id, row := range fresh {
			values[id] = row
		}
		pipe.HSet(ctx, key, values)
		return nil
	})
	if err != nil {
		logger.Log(ctx).Error(ctx, ErrorFailedToPopulate,
			zap.String("method", "RedisRowIndex.PopulateFromListing"), zap.String("scope", scope), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToPopulate, err)
	}
	return nil
}

// Invalidate удаляет хэш источника.
func (c *RedisRowIndex) Invalidate(ctx context.Context, scope string) error {
	if err := c.client.Del(ctx, c.key(scope)).Err(); err != nil {
		return fmt.Errorf("%s: %w", ErrorFailedToInvalidate, err)
	}
	return nil
}

// Clear удаляет хэши всех источников под prefix, оставшиеся от прошлых запусков.
func (c *RedisRowIndex) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.key("*"), clearBatch).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Log(ctx).Error(ctx, ErrorFailedToClear, zap.String("method", "RedisRowIndex.Clear"), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		logger.Log(ctx).Error(ctx, ErrorFailedToClear, zap.String("method", "RedisRowIndex.Clear"), zap.Error(err))
		return fmt.Errorf("%s: %w", ErrorFailedToClear, err)
	}
	return nil
}
