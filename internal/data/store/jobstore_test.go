package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/akolanti/LegalRAG/internal/config"
	"github.com/akolanti/LegalRAG/internal/data/redisStore"
	"github.com/akolanti/LegalRAG/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(id string) jobModel.Job {
	return jobModel.Job{
		Id:       id,
		Status:   jobModel.JobStatusRunning,
		Progress: 50,
		JobPayload: jobModel.JobPayload{
			Question: "What notice period applies to a residential lease?",
			Sources:  []string{"lease.pdf (chunk 2, score 0.81)"},
			IngestReport: &jobModel.IngestSummary{
				FilesProcessed: 1,
				FailedFiles:    []string{"broken.pdf"},
			},
		},
	}
}

func stores(t *testing.T) (map[string]jobModel.JobStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return map[string]jobModel.JobStore{
		"redis":    NewRedisJobStore(redisStore.NewTestStore(client)),
		"inMemory": InitInMemoryJobStore(),
	}, mr
}

func TestJobStore_Lifecycle(t *testing.T) {
	all, _ := stores(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")

	for name, jobStore := range all {
		t.Run(name, func(t *testing.T) {
			want := testJob("job_abc_123")
			require.NoError(t, jobStore.SaveJob(ctx, want))

			got, found := jobStore.GetJob(ctx, want.Id)
			require.True(t, found, "saved job not found")
			assert.Equal(t, want.JobPayload.Question, got.JobPayload.Question)
			assert.Equal(t, want.JobPayload.Sources, got.JobPayload.Sources)
			assert.Equal(t, 50, got.Progress)
			require.NotNil(t, got.JobPayload.IngestReport)
			assert.Equal(t, []string{"broken.pdf"}, got.JobPayload.IngestReport.FailedFiles)

			want.Progress = 100
			want.Status = jobModel.JobStatusComplete
			require.NoError(t, jobStore.SaveJob(ctx, want))
			got, _ = jobStore.GetJob(ctx, want.Id)
			assert.Equal(t, jobModel.JobStatusComplete, got.Status)
			assert.True(t, got.Finished())

			_, found = jobStore.GetJob(ctx, "ghost-id")
			assert.False(t, found)

			jobStore.DeleteJob(ctx, want.Id)
			_, found = jobStore.GetJob(ctx, want.Id)
			assert.False(t, found)
		})
	}
}

func TestRedisJobStore_KeysExpire(t *testing.T) {
	all, mr := stores(t)
	ctx := context.Background()
	require.NoError(t, all["redis"].SaveJob(ctx, testJob("ttl-job")))

	assert.True(t, mr.Exists(jobKeyPrefix+"ttl-job"))
	assert.Equal(t, config.RedisJobStoreTTL, mr.TTL(jobKeyPrefix+"ttl-job"))

	mr.FastForward(config.RedisJobStoreTTL + time.Second)
	_, found := all["redis"].GetJob(ctx, "ttl-job")
	assert.False(t, found, "job should be gone after the TTL")
}

func TestRedisJobStore_CorruptValue(t *testing.T) {
	all, mr := stores(t)
	require.NoError(t, mr.Set(jobKeyPrefix+"bad", "{not json"))

	_, found := all["redis"].GetJob(context.Background(), "bad")
	assert.False(t, found)
}

func TestJobStore_Race(t *testing.T) {
	all, _ := stores(t)
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")

	for name, jobStore := range all {
		t.Run(name, func(t *testing.T) {
			job := testJob("race-job")
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = jobStore.SaveJob(ctx, job)
					_, _ = jobStore.GetJob(ctx, job.Id)
				}()
			}
			wg.Wait()
			_, found := jobStore.GetJob(ctx, job.Id)
			assert.True(t, found)
		})
	}
}
