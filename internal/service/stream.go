package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/scottkmcmillan/relate/internal/domain"
	"go.uber.org/zap"
)

const streamBufferSize = 16

// StreamCoordinator sequences a response over a bounded event channel:
// sources first, then content deltas, then a single terminal event. The
// channel blocks when the consumer falls behind; nothing is dropped.
//
// State transitions are enforced; an out-of-order emit is a programming error
// and panics.
//
// A single goroutine produces the stream: EmitSource, EmitDelta,
// EmitLateSource, Complete, Fail, and Cancel must all be called from that
// goroutine, which also owns closing the channel. State, Text, and
// SourceCount are safe from any goroutine.
type StreamCoordinator struct {
	mu      sync.Mutex
	state   domain.StreamState
	events  chan domain.ResponseEvent
	text    strings.Builder
	sources int
	logger  *zap.Logger
}

func NewStreamCoordinator(logger *zap.Logger) *StreamCoordinator {
	return &StreamCoordinator{
		state:  domain.StateInit,
		events: make(chan domain.ResponseEvent, streamBufferSize),
		logger: logger,
	}
}

// Events returns the consumer side of the stream. The channel is closed after
// the terminal event.
func (c *StreamCoordinator) Events() <-chan domain.ResponseEvent {
	return c.events
}

// State reports the current stream state.
func (c *StreamCoordinator) State() domain.StreamState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Text returns the accumulated response text so far.
func (c *StreamCoordinator) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text.String()
}

// SourceCount reports how many source events were emitted.
func (c *StreamCoordinator) SourceCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sources
}

// EmitSource sends a cited source to the consumer. Valid from INIT and
// EMITTING_SOURCES.
func (c *StreamCoordinator) EmitSource(ctx context.Context, source domain.ContextSource) error {
	c.transition(domain.StateEmittingSources, domain.StateInit, domain.StateEmittingSources)
	c.mu.Lock()
	c.sources++
	c.mu.Unlock()
	return c.send(ctx, domain.ResponseEvent{Type: domain.EventSource, Source: &source})
}

// EmitDelta sends a content fragment. The first delta moves the stream past
// the source phase; no further sources may be emitted after it, except
// through EmitLateSource.
func (c *StreamCoordinator) EmitDelta(ctx context.Context, text string) error {
	c.transition(domain.StateEmittingContent, domain.StateInit, domain.StateEmittingSources, domain.StateEmittingContent)
	c.mu.Lock()
	c.text.WriteString(text)
	c.mu.Unlock()
	return c.send(ctx, domain.ResponseEvent{Type: domain.EventContentDelta, Delta: text})
}

// EmitLateSource sends a source discovered mid-generation. It does not move
// the stream back to the source phase.
func (c *StreamCoordinator) EmitLateSource(ctx context.Context, source domain.ContextSource) error {
	c.mu.Lock()
	if c.state != domain.StateEmittingContent {
		c.mu.Unlock()
		panic(fmt.Sprintf("stream: late source in state %s", c.state))
	}
	c.sources++
	c.mu.Unlock()
	return c.send(ctx, domain.ResponseEvent{Type: domain.EventSource, Source: &source})
}

// Complete emits the terminal metadata event and closes the stream.
func (c *StreamCoordinator) Complete(ctx context.Context, meta domain.ResponseMetadata) error {
	c.transition(domain.StateComplete, domain.StateInit, domain.StateEmittingSources, domain.StateEmittingContent)
	meta.SourceCount = c.SourceCount()
	err := c.send(ctx, domain.ResponseEvent{Type: domain.EventComplete, Metadata: &meta})
	close(c.events)
	return err
}

// Fail emits a terminal error event and closes the stream. Valid from any
// non-terminal state; calling it after the stream has already terminated is a
// no-op so cleanup paths can call it unconditionally.
func (c *StreamCoordinator) Fail(ctx context.Context, kind domain.ErrorKind, message string) {
	c.mu.Lock()
	if terminal(c.state) {
		c.mu.Unlock()
		return
	}
	c.state = domain.StateError
	c.mu.Unlock()

	event := domain.ResponseEvent{
		Type: domain.EventError,
		Err:  &domain.StreamError{Kind: kind, Message: message},
	}
	select {
	case c.events <- event:
	case <-ctx.Done():
		c.logger.Debug("consumer gone before error event delivered")
	}
	close(c.events)
}

// Cancel marks the stream cancelled and closes it without emitting further
// events. Cancellation is terminal but not an error.
func (c *StreamCoordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if terminal(c.state) {
		return
	}
	c.state = domain.StateCancelled
	close(c.events)
}

// send delivers an event, honoring cancellation while blocked on a slow
// consumer.
func (c *StreamCoordinator) send(ctx context.Context, event domain.ResponseEvent) error {
	select {
	case c.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *StreamCoordinator) transition(to domain.StreamState, from ...domain.StreamState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range from {
		if c.state == f {
			c.state = to
			return
		}
	}
	panic(fmt.Sprintf("stream: invalid transition %s -> %s", c.state, to))
}

func terminal(s domain.StreamState) bool {
	return s == domain.StateComplete || s == domain.StateError || s == domain.StateCancelled
}
