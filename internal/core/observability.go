package core

import (
	"context"
	"time"

	"pedigreecore/internal/blob"
	"pedigreecore/internal/merge"
	"pedigreecore/internal/sim"
	"pedigreecore/pkg/domain"
)

// ClockFunc supplies the current time for audit entries and durations.
type ClockFunc func() time.Time

// Now returns the current time, falling back to UTC wall clock when unset.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f()
}

// AuditStatus labels the outcome of an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusFailure AuditStatus = "failure"
)

// AuditEntry captures one audited service operation.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for completed operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation outcomes and latency.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan terminates a traced operation.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type serviceOptions struct {
	logger        domain.Logger
	clock         ClockFunc
	audit         AuditRecorder
	metrics       MetricsRecorder
	tracer        Tracer
	archive       blob.Store
	mergeRecorder merge.Recorder
	simRecorder   sim.Recorder
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  domain.NopLogger{},
		clock:   nil,
		audit:   noopAuditRecorder{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// ServiceOption customizes service construction.
type ServiceOption func(*serviceOptions)

// WithLogger injects the logger used for operational messages.
func WithLogger(logger domain.Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock ClockFunc) ServiceOption {
	return func(o *serviceOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithAuditRecorder wires an audit sink.
func WithAuditRecorder(rec AuditRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if rec != nil {
			o.audit = rec
		}
	}
}

// WithMetricsRecorder wires a metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if rec != nil {
			o.metrics = rec
		}
	}
}

// WithTracer wires a tracing implementation.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithArchiveStore wires the blob store used to archive pedigree dumps and
// relationship matrices. Archive operations fail without one.
func WithArchiveStore(store blob.Store) ServiceOption {
	return func(o *serviceOptions) {
		o.archive = store
	}
}

// WithMergeRecorder forwards merge comparison counters to a metrics backend.
func WithMergeRecorder(rec merge.Recorder) ServiceOption {
	return func(o *serviceOptions) {
		o.mergeRecorder = rec
	}
}

// WithSimRecorder forwards simulator draw counters to a metrics backend.
func WithSimRecorder(rec sim.Recorder) ServiceOption {
	return func(o *serviceOptions) {
		o.simRecorder = rec
	}
}

// auditSpec binds an operation name to the entity and action it audits.
// Operations absent from the table are not audited.
type auditSpec struct {
	entity EntityType
	action Action
}

var auditSpecs = map[string]auditSpec{
	"import_pedigree":   {entity: EntityPedigree, action: ActionCreate},
	"simulate_pedigree": {entity: EntityPedigree, action: ActionCreate},
	"merge_pedigrees":   {entity: EntityPedigree, action: ActionCreate},
	"delete_pedigree":   {entity: EntityPedigree, action: ActionDelete},
	"add_animal":        {entity: EntityPedigree, action: ActionUpdate},
	"remove_animal":     {entity: EntityPedigree, action: ActionUpdate},
	"archive_pedigree":  {entity: EntityPedigree, action: ActionUpdate},
}
