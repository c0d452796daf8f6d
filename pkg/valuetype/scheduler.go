package valuetype

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-logr/logr"
)

var (
	ErrSchedulerClosed = errors.New("scheduler closed")
	ErrOutOfOrder      = errors.New("message out of sequence order")
)

// Target is what a Scheduler drives: typically the host map of values.
type Target interface {
	Prepare(ctx context.Context, msg *SequencedMessage) (any, error)
	Process(msg *SequencedMessage, opCtx any) error
}

// Scheduler is the contract between the ordering service and the values it
// feeds:
// - messages are submitted in ascending sequence number order
// - Prepare of a message starts once it is queued and may run concurrently
// - Process runs on the Run goroutine, one message at a time, in sequence
// number order, and only after the message's own Prepare returned
// - a Prepare or Process error stops the pipeline; the failing message and
// every later one are never processed, and later submits are rejected
type Scheduler struct {
	target Target
	l      logr.Logger

	queue   chan *job
	stopped chan struct{}
	stop    sync.Once

	// sm serializes Submit and Close so the queue follows sequence order
	sm      sync.Mutex
	lastSeq int
	closed  bool

	m   sync.Mutex
	err error
}

type job struct {
	msg   *SequencedMessage
	done  chan struct{}
	opCtx any
	err   error
}

type SchedulerOption func(*Scheduler)

func WithSchedulerLogger(l logr.Logger) SchedulerOption {
	return func(s *Scheduler) {
		s.l = l
	}
}

// NewScheduler creates a new Scheduler with the specified queue size
func NewScheduler(target Target, queueSize int, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		target:  target,
		l:       logr.Discard(),
		queue:   make(chan *job, queueSize),
		stopped: make(chan struct{}),
		lastSeq: -1,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit queues msg for processing and starts preparing it. It blocks when
// the queue is full. A message that is not queued leaves no trace and can be
// submitted again.
func (s *Scheduler) Submit(ctx context.Context, msg *SequencedMessage) error {
	s.sm.Lock()
	defer s.sm.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	if err := s.failure(); err != nil {
		return err
	}
	if msg.SequenceNumber <= s.lastSeq {
		return fmt.Errorf("%w: got %d after %d", ErrOutOfOrder, msg.SequenceNumber, s.lastSeq)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	j := &job{msg: msg, done: make(chan struct{})}
	select {
	case s.queue <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopped:
		if err := s.failure(); err != nil {
			return err
		}
		return ErrSchedulerClosed
	}
	s.lastSeq = msg.SequenceNumber

	go func() {
		defer close(j.done)
		j.opCtx, j.err = s.target.Prepare(ctx, msg)
	}()
	return nil
}

// failure returns the error that stopped Run, if any.
func (s *Scheduler) failure() error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSchedulerClosed, s.err)
}

// Run processes the queued messages until Close is called and the queue is
// drained, ctx is done, or a message fails.
func (s *Scheduler) Run(ctx context.Context) error {
	err := s.run(ctx)
	s.m.Lock()
	if err != nil && s.err == nil {
		s.err = err
	}
	s.m.Unlock()
	s.stop.Do(func() { close(s.stopped) })
	return err
}

func (s *Scheduler) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case j, ok := <-s.queue:
			if !ok {
				return nil
			}
			select {
			case <-j.done:
			case <-ctx.Done():
				return ctx.Err()
			}
			if j.err != nil {
				s.l.Error(j.err, "prepare failed", "seq", j.msg.SequenceNumber, "key", j.msg.Key, "op", j.msg.Op.Type)
				return fmt.Errorf("prepare %s op seq %d: %w", j.msg.Op.Type, j.msg.SequenceNumber, j.err)
			}
			if err := s.target.Process(j.msg, j.opCtx); err != nil {
				s.l.Error(err, "process failed", "seq", j.msg.SequenceNumber, "key", j.msg.Key, "op", j.msg.Op.Type)
				return fmt.Errorf("process %s op seq %d: %w", j.msg.Op.Type, j.msg.SequenceNumber, err)
			}
			s.l.V(1).Info("processed", "seq", j.msg.SequenceNumber, "key", j.msg.Key, "op", j.msg.Op.Type)
		}
	}
}

// Close stops accepting messages; Run returns once the queue is drained.
// Close waits for a Submit blocked on a full queue.
func (s *Scheduler) Close() {
	s.sm.Lock()
	defer s.sm.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	close(s.queue)
}
