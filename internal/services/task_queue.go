package services

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/internal/models"
	"github.com/memodeck/memodeck/pkg/logger"
)

const (
	TaskTypeUsageRetry   = "usage:retry"
	TaskTypePersistRetry = "persist:retry"
)

// UsageRetryTask carries a telemetry row whose direct insert failed. The
// worker replays it with backoff so transient database trouble does not
// drop billing-relevant records.
type UsageRetryTask struct {
	Entry models.GenerationLog `json:"entry"`
}

// PersistRetryTask carries a generated batch whose save transaction failed
// after the generation itself succeeded. The worker replays the save with
// backoff; the caller already got the content back.
type PersistRetryTask struct {
	FolderID      uint              `json:"folder_id"`
	MaterialID    *uint             `json:"material_id,omitempty"`
	Task          string            `json:"task"`
	Replace       bool              `json:"replace"`
	Flashcards    []FlashcardDTO    `json:"flashcards,omitempty"`
	QuizQuestions []QuizQuestionDTO `json:"quiz_questions,omitempty"`
}

// TaskQueueService is the redis-backed retry queue. Without redis it
// degrades to a logged no-op: the request path never depends on it.
type TaskQueueService struct {
	client *asynq.Client
}

// NewTaskQueueService connects to the queue, verifying the redis backend is
// actually reachable before committing to async mode. Returns nil on any
// failure so callers treat the queue as absent.
func NewTaskQueueService(cfg *config.RedisConfig) *TaskQueueService {
	if !cfg.Enabled {
		return nil
	}

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()
	if _, err := inspector.Queues(); err != nil {
		logger.Warnf("[TaskQueue] redis unreachable, retry queue disabled: %v", err)
		return nil
	}

	logger.Infof("[TaskQueue] retry queue connected at %s", cfg.Addr)
	return &TaskQueueService{client: asynq.NewClient(redisOpt)}
}

// EnqueueUsageRetry schedules a replay of a failed telemetry insert.
func (q *TaskQueueService) EnqueueUsageRetry(entry *models.GenerationLog) {
	if q == nil {
		return
	}

	payload, err := json.Marshal(&UsageRetryTask{Entry: *entry})
	if err != nil {
		logger.Warnf("[TaskQueue] failed to marshal usage retry: %v", err)
		return
	}

	info, err := q.client.Enqueue(
		asynq.NewTask(TaskTypeUsageRetry, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(5),
		asynq.ProcessIn(10*time.Second),
	)
	if err != nil {
		logger.Warnf("[TaskQueue] enqueue failed, telemetry row dropped: %v", err)
		return
	}
	logger.Infof("[TaskQueue] usage retry enqueued: id=%s", info.ID)
}

// EnqueuePersistRetry schedules a replay of a failed save transaction.
func (q *TaskQueueService) EnqueuePersistRetry(task *PersistRetryTask) {
	if q == nil {
		return
	}

	payload, err := json.Marshal(task)
	if err != nil {
		logger.Warnf("[TaskQueue] failed to marshal persist retry: %v", err)
		return
	}

	info, err := q.client.Enqueue(
		asynq.NewTask(TaskTypePersistRetry, payload),
		asynq.Queue("default"),
		asynq.MaxRetry(5),
		asynq.ProcessIn(10*time.Second),
	)
	if err != nil {
		logger.Warnf("[TaskQueue] enqueue failed, save replay dropped: %v", err)
		return
	}
	logger.Infof("[TaskQueue] persist retry enqueued: id=%s folder=%d", info.ID, task.FolderID)
}

func (q *TaskQueueService) Close() error {
	if q == nil {
		return nil
	}
	return q.client.Close()
}
