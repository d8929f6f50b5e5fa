package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/memodeck/memodeck/internal/config"
	"github.com/memodeck/memodeck/pkg/logger"
	"gorm.io/gorm"
)

// Worker drains the retry queue. It runs in-process alongside the HTTP
// server; a deployment without redis simply never constructs one.
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	db          *gorm.DB
	persistence *PersistenceService

	mu      sync.Mutex
	wg      sync.WaitGroup
	running bool
}

func NewWorker(cfg *config.RedisConfig, db *gorm.DB, persistence *PersistenceService) *Worker {
	if !cfg.Enabled {
		return nil
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				"default": 1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warnf("[Worker] task %s failed: %v", task.Type(), err)
			}),
		},
	)

	return &Worker{
		server:      server,
		mux:         asynq.NewServeMux(),
		db:          db,
		persistence: persistence,
	}
}

// Start begins draining the queue. Safe to call on a nil worker.
func (w *Worker) Start() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}

	w.mux.HandleFunc(TaskTypeUsageRetry, w.handleUsageRetry)
	w.mux.HandleFunc(TaskTypePersistRetry, w.handlePersistRetry)
	w.running = true
	w.wg.Add(1)

	go func() {
		defer w.wg.Done()
		logger.Infof("[Worker] retry worker starting")
		if err := w.server.Run(w.mux); err != nil {
			logger.Errorf("[Worker] server error: %v", err)
		}
	}()
}

// Stop drains in-flight tasks and shuts down. Safe on a nil worker.
func (w *Worker) Stop() {
	if w == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	w.server.Shutdown()
	w.running = false
	w.wg.Wait()
	logger.Infof("[Worker] shutdown complete")
}

// handleUsageRetry replays a telemetry insert. Returning the error lets
// asynq apply its retry/backoff policy.
func (w *Worker) handleUsageRetry(ctx context.Context, t *asynq.Task) error {
	var task UsageRetryTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logger.Warnf("[Worker] discarding malformed usage retry: %v", err)
		return nil
	}

	if err := w.db.WithContext(ctx).Create(&task.Entry).Error; err != nil {
		return err
	}
	logger.Infof("[Worker] replayed telemetry row request_id=%s", task.Entry.RequestID)
	return nil
}

// handlePersistRetry replays a failed save transaction. Returning the error
// lets asynq apply its retry/backoff policy.
func (w *Worker) handlePersistRetry(ctx context.Context, t *asynq.Task) error {
	var task PersistRetryTask
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		logger.Warnf("[Worker] discarding malformed persist retry: %v", err)
		return nil
	}

	var err error
	if task.Task == TaskQuiz {
		_, err = w.persistence.SaveQuizQuestions(task.FolderID, task.MaterialID, task.QuizQuestions, task.Replace)
	} else {
		_, err = w.persistence.SaveFlashcards(task.FolderID, task.MaterialID, task.Flashcards, task.Replace)
	}
	if err != nil {
		return err
	}
	logger.Infof("[Worker] replayed save for folder %d", task.FolderID)
	return nil
}
