package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const seedKeyPrefix = "lottery:draw-seed:"

// RedisSeedStore holds raw server seeds in Redis between sales open and execution
type RedisSeedStore struct {
	client goredis.UniversalClient
}

// NewRedisSeedStore creates a seed store over an existing Redis client
func NewRedisSeedStore(client goredis.UniversalClient) *RedisSeedStore {
	return &RedisSeedStore{client: client}
}

// NewRedisClient connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}

	log.WithField("addr", addr).Info("Connected to Redis")
	return client, nil
}

// Store saves the seed unless one is already held for the draw
func (s *RedisSeedStore) Store(ctx context.Context, drawID uuid.UUID, serverSeed string, ttl time.Duration) error {
	stored, err := s.client.SetNX(ctx, seedKey(drawID), serverSeed, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to store seed for draw %s: %w", drawID, err)
	}

	if !stored {
		log.WithField("drawId", drawID).Debug("Seed already held for draw, keeping the first one")
	}
	return nil
}

// Get returns the held seed; found is false when none is stored or it expired
func (s *RedisSeedStore) Get(ctx context.Context, drawID uuid.UUID) (string, bool, error) {
	seed, err := s.client.Get(ctx, seedKey(drawID)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load seed for draw %s: %w", drawID, err)
	}
	return seed, true, nil
}

func seedKey(drawID uuid.UUID) string {
	return seedKeyPrefix + drawID.String()
}
