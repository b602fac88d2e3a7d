package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/plclassificados/marketplace/internal/pkg/mail"
	"github.com/plclassificados/marketplace/internal/pkg/metrics"
)

const (
	KeyNamespace  = "marketplace:jobs:"
	PendingKey    = KeyNamespace + "pending"
	ProcessingKey = KeyNamespace + "processing"
	StatsKey      = KeyNamespace + "stats"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour
)

func jobKey(id string) string { return KeyNamespace + "job:" + id }

// MailSender delivers one message; mail.SendMail in production.
type MailSender func(to, subject, body string) error

// Handler runs one job. A returned error schedules a retry while attempts remain.
type Handler func(ctx context.Context, job *Job) error

// Config tunes a Queue. Zero values fall back to the defaults below.
type Config struct {
	Workers       int
	RetryDelay    time.Duration // multiplied by the attempt number
	StuckAfter    time.Duration
	SweepInterval time.Duration
	PollTimeout   time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 3
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = time.Minute
	}
	if c.StuckAfter <= 0 {
		c.StuckAfter = 10 * time.Minute
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = time.Minute
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Second
	}
	return c
}

// Queue is a Redis list backed job queue. Jobs move atomically from the
// pending list to the processing list and are swept back if a worker dies.
type Queue struct {
	client   *redis.Client
	cfg      Config
	handlers map[JobType]Handler
	sendMail MailSender
	metrics  *metrics.Metrics

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	retries map[string]*time.Timer
}

// NewQueue creates a queue with the given worker count and default timings.
func NewQueue(client *redis.Client, workers int) *Queue {
	return NewQueueWithConfig(client, Config{Workers: workers})
}

func NewQueueWithConfig(client *redis.Client, cfg Config) *Queue {
	q := &Queue{
		client:   client,
		cfg:      cfg.withDefaults(),
		handlers: make(map[JobType]Handler),
		retries:  make(map[string]*time.Timer),
		sendMail: mail.SendMail,
		metrics:  metrics.Default(),
	}
	q.Register(JobTypePlanConfirmationEmail, q.processPlanConfirmationJob)
	q.Register(JobTypeWelcomeEmail, q.processWelcomeJob)
	return q
}

// Register binds a handler to a job type, replacing any previous one.
func (q *Queue) Register(jobType JobType, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

func (q *Queue) handler(jobType JobType) (Handler, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

func (q *Queue) SetMailSender(fn MailSender) {
	q.sendMail = fn
}

// Start launches the workers and the stuck job sweeper. Calling it twice is a no-op.
func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	log.Infof("[JobQueue] Starting %d workers", q.cfg.Workers)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work(ctx, i)
	}
	q.wg.Add(1)
	go q.sweep(ctx)
}

// Stop cancels the workers and waits for in-flight jobs. Retries still
// waiting on their delay are pushed back to the pending list right away.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.mu.Unlock()
	if cancel == nil {
		return
	}

	log.Info("[JobQueue] Stopping workers...")
	cancel()
	q.wg.Wait()

	q.mu.Lock()
	var early []string
	for id, t := range q.retries {
		if t.Stop() {
			early = append(early, id)
		}
		delete(q.retries, id)
	}
	q.mu.Unlock()
	for _, id := range early {
		q.requeue(context.Background(), id)
	}
	log.Info("[JobQueue] All workers stopped")
}

func (q *Queue) work(ctx context.Context, id int) {
	defer q.wg.Done()
	for ctx.Err() == nil {
		job, err := q.dequeue(ctx)
		switch {
		case err == nil:
			log.Debugf("[JobQueue] Worker %d picked job %s (%s)", id, job.ID, job.Type)
			// in-flight jobs finish even when Stop has been called
			q.process(context.WithoutCancel(ctx), job)
		case errors.Is(err, redis.Nil), ctx.Err() != nil:
		default:
			log.Errorf("[JobQueue] Worker %d: dequeue failed: %v", id, err)
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
	log.Debugf("[JobQueue] Worker %d stopped", id)
}

func (q *Queue) sweep(ctx context.Context) {
	defer q.wg.Done()
	ticker := time.NewTicker(q.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.recoverStuck(ctx, q.cfg.StuckAfter); err != nil {
				log.Errorf("[JobQueue] Sweep failed: %v", err)
			} else if n > 0 {
				log.Warnf("[JobQueue] Requeued %d stuck jobs", n)
			}
		}
	}
}

// recoverStuck moves jobs that have been processing for longer than maxAge
// back to the pending list and drops processing entries whose job is gone.
func (q *Queue) recoverStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := q.client.LRange(ctx, ProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}

	recovered := 0
	now := time.Now()
	for _, id := range ids {
		job, err := q.GetJob(ctx, id)
		if err != nil || job.Status != JobStatusProcessing {
			if err != nil && !errors.Is(err, redis.Nil) {
				log.Errorf("[JobQueue] Dropping unreadable job %s: %v", id, err)
			}
			q.client.LRem(ctx, ProcessingKey, 1, id)
			continue
		}
		if now.Sub(job.startedAt()) <= maxAge {
			continue
		}

		job.Status = JobStatusPending
		job.ErrorMsg = "recovered by sweeper"
		job.UpdatedAt = now
		if err := q.save(ctx, job); err != nil {
			return recovered, err
		}
		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, ProcessingKey, 1, id)
		pipe.RPush(ctx, PendingKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// EnqueueJob stores a new job and pushes it onto the pending list.
func (q *Queue) EnqueueJob(ctx context.Context, jobType JobType, payload any) (*Job, error) {
	job, err := NewJob(jobType, payload)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), data, JobTTL)
	pipe.LPush(ctx, PendingKey, job.ID)
	pipe.HIncrBy(ctx, StatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}

	log.Infof("[JobQueue] Enqueued job %s (%s)", job.ID, job.Type)
	return job, nil
}

func (q *Queue) dequeue(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, PendingKey, ProcessingKey, q.cfg.PollTimeout).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.GetJob(ctx, id)
	if err != nil {
		q.client.LRem(ctx, ProcessingKey, 1, id)
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

func (q *Queue) process(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.persist(ctx, job)

	err := q.run(ctx, job)
	defer q.client.LRem(ctx, ProcessingKey, 1, job.ID)

	if err == nil {
		job.MarkAsCompleted()
		q.client.HIncrBy(ctx, StatsKey, string(JobStatusCompleted), 1)
		q.client.Del(ctx, jobKey(job.ID))
		q.metrics.JobFinished(string(job.Type), true)
		log.Infof("[JobQueue] Job %s completed", job.ID)
		return
	}

	log.Errorf("[JobQueue] Job %s failed: %v", job.ID, err)
	job.MarkAsFailed(err.Error())
	if !job.IsRetryable() {
		q.persist(ctx, job)
		q.client.HIncrBy(ctx, StatsKey, string(JobStatusFailed), 1)
		q.metrics.JobFinished(string(job.Type), false)
		log.Errorf("[JobQueue] Job %s gave up after %d attempts", job.ID, job.RetryCount)
		return
	}

	job.MarkAsRetrying()
	q.persist(ctx, job)
	delay := q.cfg.RetryDelay * time.Duration(job.RetryCount)
	log.Infof("[JobQueue] Retrying job %s in %s (attempt %d/%d)", job.ID, delay, job.RetryCount, job.MaxRetries)

	id := job.ID
	q.mu.Lock()
	q.retries[id] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.retries, id)
		q.mu.Unlock()
		q.requeue(ctx, id)
	})
	q.mu.Unlock()
}

func (q *Queue) requeue(ctx context.Context, id string) {
	if err := q.client.LPush(ctx, PendingKey, id).Err(); err != nil {
		log.Errorf("[JobQueue] Could not requeue job %s: %v", id, err)
	}
}

func (q *Queue) run(ctx context.Context, job *Job) (err error) {
	h, ok := q.handler(job.Type)
	if !ok {
		return fmt.Errorf("no handler for job type %q", job.Type)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(ctx, job)
}

func (q *Queue) save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return q.client.Set(ctx, jobKey(job.ID), data, JobTTL).Err()
}

func (q *Queue) persist(ctx context.Context, job *Job) {
	if err := q.save(ctx, job); err != nil {
		log.Errorf("[JobQueue] Could not store job %s: %v", job.ID, err)
	}
}

// GetJob loads a job by ID; redis.Nil when it expired or completed.
func (q *Queue) GetJob(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, jobKey(id)).Bytes()
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &job, nil
}

// GetJobStats returns the lifetime counters per status.
func (q *Queue) GetJobStats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, StatsKey).Result()
	if err != nil {
		return nil, err
	}
	stats := make(map[JobStatus]int64, len(raw))
	for status, v := range raw {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			stats[JobStatus(status)] = n
		}
	}
	return stats, nil
}

func (q *Queue) GetQueueSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, PendingKey).Result()
}

func (q *Queue) GetProcessingSize(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, ProcessingKey).Result()
}
