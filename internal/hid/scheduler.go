package hid

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Lakr233/vphone-cli/internal/capability"
	"github.com/Lakr233/vphone-cli/internal/observability"
)

var (
	ErrSchedulerClosed = errors.New("hid: scheduler closed")
	ErrQueueFull       = errors.New("hid: queue full")
)

const (
	queueCapacity = 128
	recentKept    = 32
)

// Backend probes the input subsystem and opens the delivery client.
type Backend interface {
	capability.Provider
	Open() (Client, error)
}

// Client delivers one event into the guest.
type Client interface {
	Dispatch(Event) error
}

// Handle tracks one submitted chain.
type Handle struct {
	id     string
	chain  Chain
	queued time.Time

	done chan struct{}
	err  error
}

func (h *Handle) ID() string { return h.id }

// Done is closed once the chain has finished, successfully or not.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err reports the delivery outcome. Valid once Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the chain completes or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return h.err
	}
}

func (h *Handle) complete(err error) {
	h.err = err
	close(h.done)
}

func (h *Handle) status(state string, err error) ChainStatus {
	st := ChainStatus{
		ID:       h.id,
		Name:     h.chain.Name,
		Steps:    len(h.chain.Steps),
		State:    state,
		QueuedAt: h.queued,
	}
	if err != nil {
		st.Error = err.Error()
	}
	return st
}

// Scheduler owns the delivery timeline for synthetic input. A single
// worker drains a FIFO of submitted chains, so deliveries are mutually
// exclusive across chains and ordered by arrival.
type Scheduler struct {
	backend Backend
	logger  zerolog.Logger

	queue chan *Handle
	wg    sync.WaitGroup

	openOnce sync.Once
	client   Client
	openErr  error

	mu     sync.Mutex
	closed bool
	active *ChainStatus
	recent []ChainStatus
}

// NewScheduler starts the delivery worker.
func NewScheduler(backend Backend, logger zerolog.Logger) *Scheduler {
	s := &Scheduler{
		backend: backend,
		logger:  logger.With().Str("component", "hid").Logger(),
		queue:   make(chan *Handle, queueCapacity),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Scheduler) Metadata() capability.Metadata { return s.backend.Metadata() }
func (s *Scheduler) Load() capability.ActionSet    { return s.backend.Load() }
func (s *Scheduler) Available() bool               { return s.backend.Available() }

// Submit queues a chain for delivery. It fails fast when the input
// subsystem is unavailable. Acceptance means the chain will run, not
// that it has; track completion through the handle.
func (s *Scheduler) Submit(c Chain) (*Handle, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	if s.Load().Empty() {
		return nil, capability.ErrUnavailable
	}
	h := &Handle{
		id:     uuid.NewString(),
		chain:  c,
		queued: time.Now(),
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSchedulerClosed
	}
	select {
	case s.queue <- h:
	default:
		return nil, ErrQueueFull
	}
	observability.SetHIDQueueDepth(len(s.queue))
	s.logger.Debug().
		Str("chain", h.id).
		Str("name", c.Name).
		Int("steps", len(c.Steps)).
		Msg("chain queued")
	return h, nil
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for h := range s.queue {
		observability.SetHIDQueueDepth(len(s.queue))
		s.deliver(h)
	}
}

func (s *Scheduler) deliver(h *Handle) {
	s.markActive(h)
	var err error
	for i := range h.chain.Steps {
		step := h.chain.Steps[i]
		if step.Delay > 0 {
			time.Sleep(step.Delay)
		}
		client, cerr := s.ensureClient()
		if cerr != nil {
			err = fmt.Errorf("%w: %v", capability.ErrUnavailable, cerr)
			break
		}
		if derr := client.Dispatch(step.Event); derr != nil {
			err = fmt.Errorf("step %d: %w", i, derr)
			break
		}
		observability.RecordHIDEvent()
	}
	if err == nil && h.chain.Settle > 0 {
		time.Sleep(h.chain.Settle)
	}
	s.markDone(h, err)
	h.complete(err)
}

// ensureClient opens the capability handle on first delivery and caches
// it for the life of the process.
func (s *Scheduler) ensureClient() (Client, error) {
	s.openOnce.Do(func() {
		s.client, s.openErr = s.backend.Open()
		if s.openErr != nil {
			s.logger.Error().Err(s.openErr).Msg("input client open failed")
		}
	})
	return s.client, s.openErr
}

func (s *Scheduler) markActive(h *Handle) {
	st := h.status("delivering", nil)
	s.mu.Lock()
	s.active = &st
	s.mu.Unlock()
}

func (s *Scheduler) markDone(h *Handle, err error) {
	outcome := "done"
	if err != nil {
		outcome = "failed"
	}
	observability.RecordChain(h.chain.Name, outcome)

	ev := s.logger.Info()
	if err != nil {
		ev = s.logger.Error().Err(err)
	}
	ev.Str("chain", h.id).Str("name", h.chain.Name).Msg("chain " + outcome)

	st := h.status(outcome, err)
	st.EndedAt = time.Now()
	s.mu.Lock()
	s.active = nil
	s.recent = append(s.recent, st)
	if len(s.recent) > recentKept {
		s.recent = s.recent[len(s.recent)-recentKept:]
	}
	s.mu.Unlock()
}

// Close stops intake and waits for queued chains to drain.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	close(s.queue)
	s.wg.Wait()
}
