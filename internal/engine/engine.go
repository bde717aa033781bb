// Package engine is the serialized host for the registry and marketplace.
//
// Every mutating call runs alone: the engine opens one ledger.Tx, applies a
// single operation, appends the emitted events to the persistent event log
// in the same batch, commits, and only then publishes the events. A call that
// fails at any point leaves no trace in storage, in the log or on the broker.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"Atelier/internal/ledger"
	"Atelier/internal/logger"
	"Atelier/internal/marketplace"
	"Atelier/internal/pubsub"
	"Atelier/internal/registry"
	"Atelier/internal/storage"
	"Atelier/internal/tracing"
)

// ErrClosed is returned by operations on a closed engine.
var ErrClosed = errors.New("engine closed")

// Options configures an engine. The zero value is usable.
type Options struct {
	// Name and Symbol identify the collection; empty means the defaults.
	Name   string
	Symbol string

	// Tracer receives one span per operation. Nil disables tracing.
	Tracer trace.Tracer

	// Logger receives operation logs. Nil uses the global logger.
	Logger *slog.Logger

	// SubscriberBuffer is the per-subscriber event buffer. Zero uses the broker default.
	SubscriberBuffer int
}

// Receipt lists the events a committed operation appended to the log, in
// emission order. Their sequence numbers are contiguous.
type Receipt struct {
	Events []ledger.Event `json:"events"`
}

// FirstSeq returns the log sequence number of the first event, or 0.
func (r *Receipt) FirstSeq() uint64 {
	if len(r.Events) == 0 {
		return 0
	}

	return r.Events[0].Seq
}

// Engine owns the store and serializes all mutations.
type Engine struct {
	mu     sync.RWMutex
	closed bool

	db       *storage.Storage
	registry *registry.Registry
	market   *marketplace.Marketplace
	broker   *pubsub.Broker[ledger.Event]
	tracer   trace.Tracer
	log      *slog.Logger
}

// Open opens or creates the ledger stored at path.
func Open(path string, opts Options) (*Engine, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("open storage %s:\n%w", path, err)
	}

	reg := registry.New(opts.Name, opts.Symbol)

	e := &Engine{
		db:       db,
		registry: reg,
		market:   marketplace.New(reg),
		tracer:   opts.Tracer,
		log:      opts.Logger,
	}

	if opts.SubscriberBuffer > 0 {
		e.broker = pubsub.NewBrokerWithBuffer[ledger.Event](opts.SubscriberBuffer)
	} else {
		e.broker = pubsub.NewBroker[ledger.Event]()
	}

	if e.tracer == nil {
		e.tracer = tracing.Noop().Tracer()
	}

	if e.log == nil {
		e.log = logger.With("component", "engine")
	}

	return e, nil
}

// Close stops event delivery and closes the store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	e.broker.Close()

	return e.db.Close()
}

// Subscribe returns a channel of committed events. Delivery is best effort;
// the event log returned by Events is authoritative.
func (e *Engine) Subscribe(ctx context.Context) <-chan pubsub.Event[ledger.Event] {
	return e.broker.Subscribe(ctx)
}

// view runs a read against committed state. Reads share the lock with each
// other and never overlap a mutation or Close.
func (e *Engine) view(fn func() error) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return ErrClosed
	}

	return fn()
}

// apply runs fn as one atomic operation.
func (e *Engine) apply(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(tx *ledger.Tx) error) (*Receipt, error) {
	start := time.Now()

	_, span := e.tracer.Start(ctx, "ledger."+op, trace.WithAttributes(attrs...))
	defer span.End()

	span.SetAttributes(attribute.String(tracing.AttrOp, op))

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		tracing.RecordError(span, ErrClosed, "")
		return nil, ErrClosed
	}

	tx := ledger.Begin(e.db)

	if err := fn(tx); err != nil {
		tx.Discard()
		e.reject(span, op, err)
		return nil, err
	}

	events, err := appendEvents(tx, tx.Events())
	if err != nil {
		tx.Discard()
		e.reject(span, op, err)
		return nil, fmt.Errorf("append events:\n%w", err)
	}

	if err := tx.Commit(); err != nil {
		e.reject(span, op, err)
		return nil, fmt.Errorf("commit %s:\n%w", op, err)
	}

	for _, ev := range events {
		e.broker.Publish(pubsub.CommittedEvent, ev)
	}

	receipt := &Receipt{Events: events}

	span.SetAttributes(attribute.Int(tracing.AttrEvents, len(events)))

	e.log.Debug("operation applied",
		"op", op,
		"events", len(events),
		"first_seq", receipt.FirstSeq(),
		logger.Timed(start),
	)

	return receipt, nil
}

// reject records a failed operation on its span and in the log.
func (e *Engine) reject(span trace.Span, op string, err error) {
	kind := ledger.KindOf(err)

	if kind == ledger.KindNone {
		tracing.RecordError(span, err, "")
		e.log.Error("operation failed", "op", op, "error", err)
		return
	}

	tracing.RecordError(span, err, kind.String())
	e.log.Debug("operation rejected", "op", op, "kind", kind.String(), "reason", err.Error())
}
