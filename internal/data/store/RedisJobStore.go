package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/data/redisStore"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/akolanti/LegalRAG/pkg/logger_i"
)

const jobKeyPrefix = "job:"

type RedisJobStore struct {
	store  *redisStore.Store
	ttl    time.Duration
	logger *logger_i.Logger
}

func NewRedisJobStore(s *redisStore.Store) *RedisJobStore {
	return &RedisJobStore{
		store:  s,
		ttl:    config.RedisJobStoreTTL,
		logger: logger_i.NewLogger("JobStore"),
	}
}

// GetRedisJobStore connects to the job database. Callers fall back to the
// in-memory store on error.
func GetRedisJobStore(ctx context.Context, s config.Settings) (*RedisJobStore, error) {
	rs, err := redisStore.NewStore(ctx, redisStore.Options{
		Addr:     s.RedisAddr,
		Password: s.RedisPassword,
		DB:       config.RedisJobStore,
	})
	if err != nil {
		return nil, err
	}
	return NewRedisJobStore(rs), nil
}

func jobKey(id string) string { return jobKeyPrefix + id }

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.WithTrace(ctx).With("jobId", job.Id)
	log.Debug("saving job")
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, jobKey(job.Id), data, s.ttl)
	if err == nil {
		log.Debug("Saved job to Redis")
	}
	return err
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	var job jobModel.Job
	log := s.logger.WithTrace(ctx).With("jobId", jobId)
	val, err := s.store.Get(ctx, jobKey(jobId))
	if s.store.IsNil(err) {
		return job, false
	} else if err != nil {
		log.Error("reading job from Redis", "error", err)
		return job, false
	}

	if err = json.Unmarshal([]byte(val), &job); err != nil {
		log.Error("decoding job", "error", err)
		return job, false
	}
	log.Debug("Job found in Redis")
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobID string) {
	if err := s.store.Del(ctx, jobKey(jobID)); err != nil {
		s.logger.Error("Error deleting job from Redis", "jobId", jobID, "error", err)
		return
	}
	s.logger.Debug("Job deleted from Redis", "jobId", jobID)
}
