package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/medilens-admin/config"
	"github.com/ikkim/medilens-admin/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes Redis connection
func Init(cfg *config.RedisConfig) error {
	logger.Info("Initializing Redis connection", map[string]interface{}{
		"host": cfg.Host,
		"port": cfg.Port,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"host": cfg.Host,
			"port": cfg.Port,
		})
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully", nil)
	return nil
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	return client
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection", nil)
		return client.Close()
	}
	return nil
}

// SequenceSeed reports the last number already issued for (name, year) outside Redis.
type SequenceSeed interface {
	Current(ctx context.Context, name string, year int) (int64, error)
}

// SequenceGenerator issues id numbers with INCR on seq:{name}:{year}.
// A missing key is first seeded from seed so numbering continues after a
// flush or when Redis is enabled on a database that already has ids.
type SequenceGenerator struct {
	client *redis.Client
	seed   SequenceSeed
}

func NewSequenceGenerator(c *redis.Client, seed SequenceSeed) *SequenceGenerator {
	return &SequenceGenerator{client: c, seed: seed}
}

func sequenceKey(name string, year int) string {
	return fmt.Sprintf("seq:%s:%d", name, year)
}

// Next returns the next number for (name, year), starting at 1.
func (g *SequenceGenerator) Next(ctx context.Context, name string, year int) (int64, error) {
	key := sequenceKey(name, year)

	if g.seed != nil {
		if err := g.ensureSeeded(ctx, key, name, year); err != nil {
			return 0, err
		}
	}

	value, err := g.client.Incr(ctx, key).Result()
	if err != nil {
		logger.Error("Failed to increment sequence", err, map[string]interface{}{
			"name": name,
			"year": year,
		})
		return 0, err
	}

	logger.Debug("Sequence incremented", map[string]interface{}{
		"name":  name,
		"year":  year,
		"value": value,
	})
	return value, nil
}

func (g *SequenceGenerator) ensureSeeded(ctx context.Context, key, name string, year int) error {
	exists, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		logger.Error("Failed to check sequence key", err, map[string]interface{}{
			"key": key,
		})
		return err
	}
	if exists > 0 {
		return nil
	}

	current, err := g.seed.Current(ctx, name, year)
	if err != nil {
		logger.Error("Failed to load sequence seed", err, map[string]interface{}{
			"name": name,
			"year": year,
		})
		return err
	}

	// 다른 인스턴스가 먼저 채웠다면 그 값을 유지
	seeded, err := g.client.SetNX(ctx, key, current, 0).Result()
	if err != nil {
		return err
	}
	if seeded {
		logger.Info("Sequence seeded", map[string]interface{}{
			"key":   key,
			"value": current,
		})
	}
	return nil
}
