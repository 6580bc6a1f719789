package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"partnerd/internal/eventlog"
	"partnerd/internal/platform/kafka/producer"
	"partnerd/internal/platform/metrics"
)

// Worker polls the outbox and publishes entries to the broker. Publication is
// at-least-once: entries are marked processed only after delivery, so
// consumers must deduplicate on tx_ref.
type Worker struct {
	store        eventlog.OutboxStore
	sink         producer.Sink
	topic        string
	batchSize    int
	pollInterval time.Duration
	metrics      *metrics.Metrics
	logger       *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Worker.
type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) { w.topic = topic }
}

func WithBatchSize(size int) Option {
	return func(w *Worker) { w.batchSize = size }
}

func WithPollInterval(interval time.Duration) Option {
	return func(w *Worker) { w.pollInterval = interval }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

// New creates a new outbox worker.
func New(store eventlog.OutboxStore, sink producer.Sink, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		store:        store,
		sink:         sink,
		topic:        "partnerd.ledger.events",
		batchSize:    100,
		pollInterval: 100 * time.Millisecond,
		ctx:          ctx,
		cancel:       cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins the polling loop in a background goroutine.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop halts polling after the in-flight batch completes.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			// Final drain runs on its own deadline since w.ctx is cancelled.
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.poll(drainCtx)
			cancel()
			return
		case <-ticker.C:
			w.poll(w.ctx)
		}
	}
}

// poll fetches and publishes one batch. Entries that fail delivery stay
// unprocessed and are retried on the next tick.
func (w *Worker) poll(ctx context.Context) {
	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		if w.logger != nil && w.ctx.Err() == nil {
			w.logger.Error("failed to fetch outbox entries", "error", err)
		}
		return
	}
	if len(entries) == 0 {
		return
	}

	var published []eventlog.OutboxEntry
	for _, entry := range entries {
		err := w.sink.Produce(ctx, &producer.Message{
			Topic: w.topic,
			Key:   []byte(entry.Key),
			Value: entry.Payload,
		})
		if err != nil {
			if w.logger != nil && w.ctx.Err() == nil {
				w.logger.Error("failed to publish outbox entry",
					"entry_id", entry.ID.String(),
					"error", err,
				)
			}
			break
		}
		published = append(published, entry)
	}

	if len(published) == 0 {
		return
	}

	processedIDs := make([]uuid.UUID, 0, len(published))
	for _, entry := range published {
		processedIDs = append(processedIDs, entry.ID)
	}
	if err := w.store.MarkProcessed(ctx, processedIDs); err != nil {
		if w.logger != nil && w.ctx.Err() == nil {
			w.logger.Error("failed to mark outbox entries processed", "error", err)
		}
		return
	}
	if w.metrics != nil {
		w.metrics.EventsPublished.Add(float64(len(published)))
	}
}
