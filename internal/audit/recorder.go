package audit

import (
	"context"
	"log/slog"
	"time"

	"hrgate/internal/platform/metrics"
	"hrgate/pkg/requestcontext"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Sink receives audit events after they are persisted, e.g. a Kafka topic.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder accepts events from domain logic without blocking it. Events
// flow through a bounded inbox into the worker; when the inbox is full the
// event is dropped and counted rather than stalling a check-in.
//
// Attendance auditing is observability, not a ledger: operations must not
// fail because the audit path is slow.
type Recorder struct {
	inbox   chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRecorder(buffer int, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	if buffer <= 0 {
		buffer = 256
	}
	return &Recorder{
		inbox:   make(chan Event, buffer),
		logger:  logger,
		metrics: m,
	}
}

// Emit enqueues an event, stamping timestamp, request ID, client IP, and
// device details from the context when the caller left them empty.
func (r *Recorder) Emit(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.Device == "" {
		event.Device = requestcontext.DeviceName(ctx)
	}
	if event.DeviceFingerprint == "" {
		event.DeviceFingerprint = requestcontext.DeviceFingerprint(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}

	select {
	case r.inbox <- event:
	default:
		if r.metrics != nil {
			r.metrics.AuditEventsDropped.Inc()
		}
		r.logger.Warn("audit inbox full, event dropped",
			"action", event.Action.String(),
			"category", event.Category.String(),
		)
	}
}

// Inbox exposes the receive side for the worker.
func (r *Recorder) Inbox() <-chan Event { return r.inbox }

// Worker consumes audit events from the recorder inbox, persists them, and
// forwards them to the optional sink. Persist failures are logged and
// counted, not retried; the sink is best-effort.
type Worker struct {
	store   Store
	sink    Sink
	inbox   <-chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(store Store, sink Sink, inbox <-chan Event, logger *slog.Logger, m *metrics.Metrics) *Worker {
	return &Worker{store: store, sink: sink, inbox: inbox, logger: logger, metrics: m}
}

// Run processes events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			w.handle(ctx, event)
		}
	}
}

func (w *Worker) handle(ctx context.Context, event Event) {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := w.store.Append(writeCtx, event); err != nil {
		if w.metrics != nil {
			w.metrics.AuditPublishErrors.Inc()
		}
		w.logger.Error("audit store append failed",
			"action", event.Action.String(),
			"error", err.Error(),
		)
	}
	if w.sink == nil {
		return
	}
	if err := w.sink.Publish(writeCtx, event); err != nil {
		if w.metrics != nil {
			w.metrics.AuditPublishErrors.Inc()
		}
		w.logger.Error("audit sink publish failed",
			"action", event.Action.String(),
			"error", err.Error(),
		)
	}
}
