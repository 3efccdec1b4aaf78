// Package store holds the persistence collaborators fed by the job
// engine: job snapshots, channel delivery statuses, earnings and
// royalty statements.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hardbanrecords/backoffice/internal/model"
)

const jobRetention = 7 * 24 * time.Hour

// RedisJobStore mirrors job snapshots into redis under job:<id>.
type RedisJobStore struct {
	redis *redis.Client
}

func NewRedisJobStore(redisClient *redis.Client) *RedisJobStore {
	return &RedisJobStore{redis: redisClient}
}

// Save stores one snapshot as JSON with a retention TTL.
func (s *RedisJobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, fmt.Sprintf("job:%s", job.ID), data, jobRetention).Err()
}

// Get loads a snapshot; used by ops tooling, not the engine.
func (s *RedisJobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, fmt.Sprintf("job:%s", jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("job not found")
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// RedisChannelStore records the latest delivery status per
// platform/release pair under channel:<release>:<platform>.
type RedisChannelStore struct {
	redis *redis.Client
}

func NewRedisChannelStore(redisClient *redis.Client) *RedisChannelStore {
	return &RedisChannelStore{redis: redisClient}
}

// Update persists the channel status update.
func (s *RedisChannelStore) Update(ctx context.Context, update model.ChannelUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}
	key := fmt.Sprintf("channel:%s:%s", update.ReleaseID, update.Platform)
	return s.redis.Set(ctx, key, data, 0).Err()
}

// Get returns the latest status for a platform/release pair.
func (s *RedisChannelStore) Get(ctx context.Context, releaseID, platformName string) (*model.ChannelUpdate, error) {
	key := fmt.Sprintf("channel:%s:%s", releaseID, platformName)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("channel status not found")
		}
		return nil, err
	}

	var update model.ChannelUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, err
	}
	return &update, nil
}
