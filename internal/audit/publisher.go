package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var errBufferFull = errors.New("audit buffer full")

// Publisher emits audit records to a Store. By default records are appended
// synchronously; WithAsyncBuffer switches to a buffered channel drained by a
// background goroutine, so Emit never blocks the request path.
type Publisher struct {
	store  Store
	logger *slog.Logger

	inbox     chan Record
	done      chan struct{}
	closeOnce sync.Once
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given channel
// capacity. Records are dropped with an error once the buffer is full.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.inbox = make(chan Record, size)
		}
	}
}

// WithPublisherLogger sets the logger used for append failures in async
// mode, where no caller is left to receive the error.
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func NewPublisher(store Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.inbox != nil {
		go p.run()
	} else {
		close(p.done)
	}
	return p
}

// Emit records one action. A zero timestamp is stamped with the current
// time. In async mode a full buffer drops the record and returns an error;
// the caller decides whether that matters.
func (p *Publisher) Emit(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, rec)
	}

	select {
	case p.inbox <- rec:
		return nil
	default:
		if err := ctx.Err(); err != nil {
			return err
		}
		return errBufferFull
	}
}

// ListBySession returns the stored records for one session.
func (p *Publisher) ListBySession(ctx context.Context, sessionID string) ([]Record, error) {
	return p.store.ListBySession(ctx, sessionID)
}

// ListRecent returns up to limit stored records, most recent first.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close drains buffered records and stops the background goroutine. Safe to
// call more than once.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
		}
	})
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)
	for rec := range p.inbox {
		if err := p.store.Append(context.Background(), rec); err != nil {
			p.logger.Error("audit append failed",
				"action", string(rec.Action),
				"session_id", rec.SessionID,
				"error", err,
			)
		}
	}
}
