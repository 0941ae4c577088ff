package audit

import (
	"context"
	"log/slog"
	"time"

	"vitrine/internal/platform/metrics"
	"vitrine/pkg/requestcontext"
)

const (
	defaultQueueSize = 256
	appendRetries    = 3
	retryBackoff     = 100 * time.Millisecond
)

// Recorder accepts audit events on a bounded queue and drains them to the
// store in the background. Enqueueing never blocks the caller: when the queue
// is full the event is dropped with a diagnostic, preserving availability
// over audit completeness.
type Recorder struct {
	store   Store
	queue   chan Event
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewRecorder(store Store, queueSize int, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Recorder{
		store:   store,
		queue:   make(chan Event, queueSize),
		logger:  logger,
		metrics: m,
	}
}

// RecordOption mutates an event before it is enqueued.
type RecordOption func(*Event)

// WithSubjectRecord identifies the specific row the event concerns.
func WithSubjectRecord(recordID string) RecordOption {
	return func(e *Event) { e.SubjectRecordID = recordID }
}

// Record enqueues an audit event. Actor and client context come from the
// request context; timestamp and sequence are assigned by the store at
// append time. Failures never propagate to the caller.
func (r *Recorder) Record(ctx context.Context, eventType EventType, subjectTable string, payload map[string]any, opts ...RecordOption) {
	event := Event{
		ActorID:      requestcontext.ActorFrom(ctx).ID(),
		Type:         eventType,
		SubjectTable: subjectTable,
		Payload:      payload,
		ClientContext: ClientContext{
			UserAgent: requestcontext.UserAgent(ctx),
			IP:        requestcontext.ClientIP(ctx),
			Device:    requestcontext.Device(ctx),
		},
	}
	for _, opt := range opts {
		opt(&event)
	}

	select {
	case r.queue <- event:
		if r.metrics != nil {
			r.metrics.AuditQueueDepth.Set(float64(len(r.queue)))
		}
	default:
		if r.metrics != nil {
			r.metrics.AuditDropped.Inc()
		}
		r.logger.Warn("audit queue full, dropping event",
			"event_type", eventType,
			"subject_table", subjectTable,
		)
	}
}

// PageView records a storefront page view.
func (r *Recorder) PageView(ctx context.Context, path string) {
	r.Record(ctx, EventPageView, "pages", map[string]any{"path": path})
}

// DataAccess records a sensitive data access tagged with its kind.
func (r *Recorder) DataAccess(ctx context.Context, kind AccessKind, subjectTable, recordID string, fields []string) {
	payload := map[string]any{"access_kind": string(kind)}
	if len(fields) > 0 {
		payload["fields"] = fields
	}
	r.Record(ctx, EventDataAccess, subjectTable, payload, WithSubjectRecord(recordID))
}

// SecurityIncident records a security-relevant event with its derived
// severity.
func (r *Recorder) SecurityIncident(ctx context.Context, eventType EventType, detail string) {
	r.Record(ctx, eventType, "security", map[string]any{
		"severity": string(SeverityFor(eventType)),
		"detail":   detail,
	})
}

// Run drains the queue until ctx is cancelled, then flushes whatever is still
// queued before returning. Each append is retried a few times with backoff
// and then dropped with a diagnostic: the log is best-effort by design.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			r.flush()
			return ctx.Err()
		case event := <-r.queue:
			r.append(ctx, event)
			if r.metrics != nil {
				r.metrics.AuditQueueDepth.Set(float64(len(r.queue)))
			}
		}
	}
}

// flush empties the queue with a detached context so shutdown still lands
// queued events.
func (r *Recorder) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-r.queue:
			r.append(ctx, event)
		default:
			return
		}
	}
}

func (r *Recorder) append(ctx context.Context, event Event) {
	var err error
	for attempt := 1; attempt <= appendRetries; attempt++ {
		if err = r.store.Append(ctx, event); err == nil {
			if r.metrics != nil {
				r.metrics.AuditRecorded.Inc()
			}
			return
		}
		if attempt < appendRetries {
			if r.metrics != nil {
				r.metrics.AuditRetries.Inc()
			}
			select {
			case <-ctx.Done():
				err = ctx.Err()
				attempt = appendRetries
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
	}
	if r.metrics != nil {
		r.metrics.AuditDropped.Inc()
	}
	r.logger.Warn("audit append failed, dropping event",
		"event_type", event.Type,
		"subject_table", event.SubjectTable,
		"error", err,
	)
}
