package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/devcamper/catalog/internal/metrics"
	"github.com/devcamper/catalog/pkg/model"
)

// Processor executes a recompute task. *Synchronizer implements it.
type Processor interface {
	Recompute(ctx context.Context, name, parentID string) (Result, error)
}

// Worker consumes recompute tasks and runs them on a fixed pool. Tasks for
// the same parent hash to the same goroutine, so within one process they
// run in arrival order. This is partitioning, not locking: other processes
// may still recompute the same parent concurrently.
type Worker struct {
	consumer  pubsub.Consumer
	processor Processor
	cfg       Config
	logger    *slog.Logger

	chans []chan pubsub.Message
	wg    sync.WaitGroup

	inFlight atomic.Int32

	processed atomic.Int64
	failed    atomic.Int64

	ready chan struct{}
}

// NewWorker creates a worker reading from consumer.
func NewWorker(consumer pubsub.Consumer, processor Processor, cfg Config, logger *slog.Logger) *Worker {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		consumer:  consumer,
		processor: processor,
		cfg:       cfg,
		logger:    logger.With("component", "aggregate-worker"),
		ready:     make(chan struct{}),
	}
}

// Ready is closed once Start has subscribed, or failed to.
func (w *Worker) Ready() <-chan struct{} {
	return w.ready
}

// ConsumerOptions returns the queue subscription the worker expects.
func ConsumerOptions(cfg Config, streamName, prefix string, storage pubsub.StorageType) pubsub.ConsumerOptions {
	cfg.ApplyDefaults()
	opts := pubsub.DefaultConsumerOptions()
	opts.StreamName = streamName
	opts.ConsumerName = cfg.ConsumerName
	opts.FilterSubject = prefix + ".>"
	opts.ChannelBufSize = cfg.ChannelBufSize
	opts.Storage = storage
	if cfg.RetryAttempts > 0 {
		opts.MaxDeliver = cfg.RetryAttempts + 1
	}
	return opts
}

// Stats returns the number of tasks acknowledged and dropped so far.
func (w *Worker) Stats() (processed, failed int64) {
	return w.processed.Load(), w.failed.Load()
}

// Start consumes until ctx is cancelled, then drains and stops the pool.
func (w *Worker) Start(ctx context.Context) error {
	msgCh, err := w.consumer.Subscribe(ctx)
	close(w.ready)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	w.chans = make([]chan pubsub.Message, w.cfg.NumWorkers)
	for i := range w.chans {
		w.chans[i] = make(chan pubsub.Message, w.cfg.ChannelBufSize)
		w.wg.Add(1)
		go w.loop(ctx, i)
	}
	w.logger.Info("Aggregate worker started", "num_workers", w.cfg.NumWorkers, "retry_attempts", w.cfg.RetryAttempts)

	for msg := range msgCh {
		w.dispatch(msg)
	}

	w.logger.Info("Stopping aggregate worker...")

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), w.cfg.DrainTimeout)
	defer cancelDrain()
	w.waitForDrain(drainCtx)

	for _, ch := range w.chans {
		close(ch)
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		w.logger.Info("Aggregate worker stopped")
	case <-time.After(w.cfg.ShutdownTimeout):
		w.logger.Warn("Shutdown timeout exceeded, some recomputes may still be running")
	}
	return nil
}

func (w *Worker) waitForDrain(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		if w.inFlight.Load() == 0 {
			return
		}
		select {
		case <-ctx.Done():
			w.logger.Warn("Drain timeout, dispatches still in flight", "remaining", w.inFlight.Load())
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) dispatch(msg pubsub.Message) {
	w.inFlight.Add(1)
	defer w.inFlight.Add(-1)

	task, err := decodeTask(msg.Data())
	if err != nil {
		w.logger.Error("Invalid task payload, dropping", "subject", msg.Subject(), "error", err)
		w.failed.Add(1)
		_ = msg.Term()
		return
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(task.ParentID))
	w.chans[int(h.Sum32()%uint32(len(w.chans)))] <- msg
}

func decodeTask(data []byte) (Task, error) {
	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return task, err
	}
	if task.Aggregate == "" || task.ParentID == "" {
		return task, fmt.Errorf("%w: task needs aggregate and parentId", model.ErrInvalidInput)
	}
	return task, nil
}

func (w *Worker) loop(ctx context.Context, id int) {
	defer w.wg.Done()
	for msg := range w.chans[id] {
		w.handle(ctx, id, msg)
	}
}

func (w *Worker) handle(ctx context.Context, id int, msg pubsub.Message) {
	metrics.WorkerInFlight.Inc()
	defer metrics.WorkerInFlight.Dec()

	task, _ := decodeTask(msg.Data())
	log := w.logger.With("worker_id", id, "aggregate", task.Aggregate, "parent_id", task.ParentID)

	// The pool's ctx is cancelled at shutdown; in-flight recomputes finish.
	taskCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.TaskTimeout)
	res, err := w.processor.Recompute(taskCtx, task.Aggregate, task.ParentID)
	cancel()

	if err == nil {
		w.processed.Add(1)
		log.Debug("Recompute done", "children", res.Count, "vanished", res.Vanished)
		_ = msg.Ack()
		return
	}

	if errors.Is(err, ErrUnknownAggregate) || errors.Is(err, model.ErrInvalidInput) || w.cfg.RetryAttempts == 0 {
		w.failed.Add(1)
		log.Error("Recompute failed, dropping task", "error", err)
		_ = msg.Term()
		return
	}

	md, mdErr := msg.Metadata()
	if mdErr != nil {
		log.Error("Failed to read delivery metadata", "error", mdErr)
		_ = msg.Nak()
		return
	}
	attempt := int(md.NumDelivered)
	if attempt > w.cfg.RetryAttempts {
		w.failed.Add(1)
		log.Error("Recompute failed, retries exhausted", "attempts", attempt, "error", err)
		_ = msg.Term()
		return
	}

	backoff := w.cfg.backoff(attempt)
	log.Warn("Recompute failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)
	_ = msg.NakWithDelay(backoff)
}
