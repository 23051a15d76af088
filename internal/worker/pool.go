package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zenstudy-backend/internal/models"
	"zenstudy-backend/internal/services"
)

const (
	QueueListeningAnalysis = "queue:listening-analysis"
	QueueVocabularyImport  = "queue:vocabulary-import"

	lockTTL    = 10 * time.Minute
	jobTimeout = 10 * time.Minute
)

type JobStore interface {
	Create(ctx context.Context, j *models.Job) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateError(ctx context.Context, id uuid.UUID, errMsg string, retryCount int) error
	SetResult(ctx context.Context, id uuid.UUID, referenceID string, result any) error
}

type ListeningAnalyzer interface {
	Analyze(ctx context.Context, req models.AnalyzeRequest, progress services.ProgressFunc) (*models.VideoData, error)
}

type VocabularyImporter interface {
	GenerateAndImport(ctx context.Context, req models.GenerateVocabularyRequest) (*models.ImportResult, error)
}

func jobQueueName(jobType string) string {
	switch jobType {
	case models.JobListeningAnalysis:
		return QueueListeningAnalysis
	case models.JobVocabularyImport:
		return QueueVocabularyImport
	default:
		return "queue:" + jobType
	}
}

func getResultType(jobType string) string {
	switch jobType {
	case models.JobListeningAnalysis:
		return "listening_video"
	case models.JobVocabularyImport:
		return "group"
	default:
		return "job"
	}
}

// Queue records a job and pushes it to its Redis list.
type Queue struct {
	redis *redis.Client
	jobs  JobStore
}

func NewQueue(redisClient *redis.Client, jobs JobStore) *Queue {
	return &Queue{redis: redisClient, jobs: jobs}
}

func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	if err := q.jobs.Create(ctx, job); err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	jobBytes, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := q.redis.LPush(ctx, jobQueueName(job.Type), jobBytes).Err(); err != nil {
		return fmt.Errorf("push job %s: %w", job.ID, err)
	}
	return nil
}

type Pool struct {
	redis       *redis.Client
	jobs        JobStore
	listening   ListeningAnalyzer
	vocabulary  VocabularyImporter
	notify      services.Publisher
	log         *zap.Logger
	workerCount int

	pollTimeout time.Duration
	backoff     func(attempt int) time.Duration

	ctx      context.Context
	cancel   context.CancelFunc
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewPool(
	redisClient *redis.Client,
	jobs JobStore,
	listening ListeningAnalyzer,
	vocabulary VocabularyImporter,
	notify services.Publisher,
	workerCount int,
	log *zap.Logger,
) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		redis:       redisClient,
		jobs:        jobs,
		listening:   listening,
		vocabulary:  vocabulary,
		notify:      notify,
		log:         log.Named("worker"),
		workerCount: workerCount,
		pollTimeout: 5 * time.Second,
		backoff: func(attempt int) time.Duration {
			return time.Duration(1<<uint(attempt)) * time.Second
		},
		ctx:      ctx,
		cancel:   cancel,
		stopChan: make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{QueueListeningAnalysis, QueueVocabularyImport}

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i, queues)
	}

	p.log.Info("workers started", zap.Int("count", p.workerCount))
}

// Stop cancels running jobs and waits for every worker to return.
func (p *Pool) Stop() {
	close(p.stopChan)
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int, queues []string) {
	defer p.wg.Done()
	log := p.log.With(zap.Int("worker", id))

	for {
		select {
		case <-p.stopChan:
			log.Info("worker shutting down")
			return
		default:
		}

		result, err := p.redis.BLPop(p.ctx, p.pollTimeout, queues...).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && p.ctx.Err() == nil {
				log.Warn("queue poll failed", zap.Error(err))
				time.Sleep(time.Second)
			}
			continue
		}
		if len(result) < 2 {
			continue
		}

		p.handle(p.ctx, result[1])
	}
}

// handle runs one queued payload under the job lock.
func (p *Pool) handle(ctx context.Context, payload string) {
	var job models.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		p.log.Error("failed to parse job", zap.Error(err))
		return
	}
	log := p.log.With(zap.String("job_id", job.ID.String()), zap.String("type", job.Type))

	lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
	locked, err := p.redis.SetNX(ctx, lockKey, "1", lockTTL).Result()
	if err != nil || !locked {
		return // Another worker has this job
	}
	defer p.redis.Del(context.Background(), lockKey)

	log.Info("processing job", zap.Int("attempt", job.RetryCount+1))
	if err := p.jobs.UpdateStatus(ctx, job.ID, "processing"); err != nil {
		log.Warn("update job status", zap.Error(err))
	}

	jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	progress := func(step int, name string, eta int) {
		p.notify.PublishUpdate(ctx, job.ClientID, models.WSMessage{
			Type: "status_update",
			Payload: models.StatusUpdate{
				JobID:                     job.ID,
				Step:                      step,
				StepName:                  name,
				EstimatedSecondsRemaining: eta,
			},
		})
	}

	var (
		resultID string
		result   any
	)
	switch job.Type {
	case models.JobListeningAnalysis:
		resultID, result, err = p.processListening(jobCtx, &job, progress)
	case models.JobVocabularyImport:
		resultID, result, err = p.processVocabulary(jobCtx, &job, progress)
	default:
		err = permanent(fmt.Errorf("unknown job type: %s", job.Type))
	}

	if err != nil {
		p.handleFailure(ctx, &job, err)
		return
	}
	p.handleSuccess(ctx, &job, resultID, result)
}

func (p *Pool) processListening(ctx context.Context, job *models.Job, progress services.ProgressFunc) (string, any, error) {
	var req models.AnalyzeRequest
	if err := json.Unmarshal(job.ConfigJSON, &req); err != nil {
		return "", nil, permanent(fmt.Errorf("decode listening config: %w", err))
	}

	data, err := p.listening.Analyze(ctx, req, progress)
	if err != nil {
		return "", nil, err
	}
	return data.VideoID, data, nil
}

func (p *Pool) processVocabulary(ctx context.Context, job *models.Job, progress services.ProgressFunc) (string, any, error) {
	var req models.GenerateVocabularyRequest
	if err := json.Unmarshal(job.ConfigJSON, &req); err != nil {
		return "", nil, permanent(fmt.Errorf("decode vocabulary config: %w", err))
	}

	progress(1, "Generating Vocabulary", 45)
	res, err := p.vocabulary.GenerateAndImport(ctx, req)
	if err != nil {
		return "", nil, err
	}
	progress(2, "Saving", 1)
	return strconv.FormatInt(res.GroupID, 10), res, nil
}

func (p *Pool) handleSuccess(ctx context.Context, job *models.Job, resultID string, result any) {
	if err := p.jobs.SetResult(ctx, job.ID, resultID, result); err != nil {
		p.handleFailure(ctx, job, fmt.Errorf("store result: %w", err))
		return
	}
	p.cleanup(job)

	p.log.Info("job completed", zap.String("job_id", job.ID.String()), zap.String("result_id", resultID))
	p.notify.PublishUpdate(ctx, job.ClientID, models.WSMessage{
		Type: "completed",
		Payload: models.CompletedEvent{
			JobID:      job.ID,
			ResultID:   resultID,
			ResultType: getResultType(job.Type),
		},
	})
}

func (p *Pool) handleFailure(ctx context.Context, job *models.Job, err error) {
	job.RetryCount++
	errMsg := err.Error()
	log := p.log.With(zap.String("job_id", job.ID.String()), zap.Int("attempt", job.RetryCount))

	maxRetries := job.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	if job.RetryCount < maxRetries && retryable(err) && ctx.Err() == nil {
		log.Warn("job failed, retrying", zap.Error(err))
		p.jobs.UpdateStatus(ctx, job.ID, "pending")
		p.jobs.UpdateError(ctx, job.ID, errMsg, job.RetryCount)

		jobBytes, _ := json.Marshal(job)
		queue := jobQueueName(job.Type)
		time.AfterFunc(p.backoff(job.RetryCount), func() {
			if err := p.redis.LPush(context.Background(), queue, jobBytes).Err(); err != nil {
				p.log.Error("requeue job", zap.String("job_id", job.ID.String()), zap.Error(err))
			}
		})
		return
	}

	log.Error("job failed permanently", zap.Error(err))
	p.jobs.UpdateStatus(context.Background(), job.ID, "failed")
	p.jobs.UpdateError(context.Background(), job.ID, errMsg, job.RetryCount)
	p.cleanup(job)

	p.notify.PublishUpdate(context.Background(), job.ClientID, models.WSMessage{
		Type: "error",
		Payload: models.ErrorEvent{
			JobID:        job.ID,
			ErrorCode:    errorCode(err),
			ErrorMessage: errMsg,
		},
	})
}

// cleanup removes an uploaded source document once its job is finished.
func (p *Pool) cleanup(job *models.Job) {
	if job.Type != models.JobVocabularyImport {
		return
	}
	var req models.GenerateVocabularyRequest
	if json.Unmarshal(job.ConfigJSON, &req) != nil || req.SourcePath == "" {
		return
	}
	if err := os.Remove(req.SourcePath); err != nil && !os.IsNotExist(err) {
		p.log.Warn("remove upload", zap.String("path", req.SourcePath), zap.Error(err))
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// retryable reports whether another attempt could succeed. Bad input and
// missing resources fail the same way every time.
func retryable(err error) bool {
	var (
		perm  *permanentError
		verr  *services.ValidationError
		nferr *services.NotFoundError
	)
	return !errors.As(err, &perm) && !errors.As(err, &verr) && !errors.As(err, &nferr)
}

func errorCode(err error) string {
	var (
		verr  *services.ValidationError
		nferr *services.NotFoundError
		uerr  *services.UnavailableError
	)
	switch {
	case errors.As(err, &verr):
		return "VALIDATION_ERROR"
	case errors.As(err, &nferr):
		return "NOT_FOUND"
	case errors.As(err, &uerr):
		return "UPSTREAM_UNAVAILABLE"
	default:
		return "JOB_FAILED"
	}
}
